package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// HorizonDay 排班周期中的一天
type HorizonDay struct {
	Label   string    `json:"label"` // 例如 "8/1"
	Date    time.Time `json:"date"`
	Weekend bool      `json:"weekend"`
}

// Horizon 排班周期
type Horizon []HorizonDay

// Labels 返回所有日期标签
func (h Horizon) Labels() []string {
	labels := make([]string, len(h))
	for i, d := range h {
		labels[i] = d.Label
	}
	return labels
}

// Index 返回标签对应的下标，不存在返回 -1
func (h Horizon) Index(label string) int {
	for i, d := range h {
		if d.Label == label {
			return i
		}
	}
	return -1
}

// DayLabel 生成 "M/D" 格式的日期标签
func DayLabel(t time.Time) string {
	return fmt.Sprintf("%d/%d", int(t.Month()), t.Day())
}

// MonthHorizon 生成某年某月的排班周期
func MonthHorizon(year int, month time.Month) (Horizon, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("无效的月份: %d", month)
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)

	daily, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: start,
		Until:   end,
	})
	if err != nil {
		return nil, fmt.Errorf("生成日期规则失败: %w", err)
	}
	weekends, err := weekendSet(start, end)
	if err != nil {
		return nil, err
	}

	dates := daily.All()
	horizon := make(Horizon, len(dates))
	for i, d := range dates {
		horizon[i] = HorizonDay{
			Label:   DayLabel(d),
			Date:    d,
			Weekend: weekends[d.Format(time.DateOnly)],
		}
	}
	return horizon, nil
}

// HorizonFromLabels 根据 "M/D" 标签生成周期（例如从导入的希望表表头）
func HorizonFromLabels(year int, labels []string) (Horizon, error) {
	horizon := make(Horizon, 0, len(labels))
	seen := make(map[string]bool, len(labels))
	for _, raw := range labels {
		label := strings.TrimSpace(raw)
		date, err := parseDayLabel(year, label)
		if err != nil {
			return nil, err
		}
		if seen[label] {
			return nil, fmt.Errorf("日期重复: %s", label)
		}
		seen[label] = true
		horizon = append(horizon, HorizonDay{Label: label, Date: date})
	}
	if len(horizon) == 0 {
		return horizon, nil
	}

	first, last := horizon[0].Date, horizon[0].Date
	for _, d := range horizon {
		if d.Date.Before(first) {
			first = d.Date
		}
		if d.Date.After(last) {
			last = d.Date
		}
	}
	weekends, err := weekendSet(first, last)
	if err != nil {
		return nil, err
	}
	for i := range horizon {
		horizon[i].Weekend = weekends[horizon[i].Date.Format(time.DateOnly)]
	}
	return horizon, nil
}

// IsDayLabel 判断字符串是否为 "M/D" 日期标签
func IsDayLabel(s string) bool {
	_, err := parseDayLabel(2000, strings.TrimSpace(s))
	return err == nil
}

func parseDayLabel(year int, label string) (time.Time, error) {
	parts := strings.Split(label, "/")
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("无效的日期标签: %q", label)
	}
	m, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("无效的日期标签: %q", label)
	}
	d, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("无效的日期标签: %q", label)
	}
	date := time.Date(year, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if m < 1 || m > 12 || date.Day() != d {
		return time.Time{}, fmt.Errorf("无效的日期标签: %q", label)
	}
	return date, nil
}

// weekendSet 返回区间内所有周六、周日
func weekendSet(start, end time.Time) (map[string]bool, error) {
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{rrule.SA, rrule.SU},
		Dtstart:   start,
		Until:     end,
	})
	if err != nil {
		return nil, fmt.Errorf("生成周末规则失败: %w", err)
	}
	set := make(map[string]bool)
	for _, d := range rule.All() {
		set[d.Format(time.DateOnly)] = true
	}
	return set, nil
}
