// Package validator 提供排班验证功能
package validator

import (
	"fmt"
	"sort"

	"github.com/paiban/nurseshift/pkg/compat"
	"github.com/paiban/nurseshift/pkg/model"
	"github.com/paiban/nurseshift/pkg/scheduler/solver"
)

// ConflictType 冲突类型
type ConflictType string

const (
	ConflictCoverage      ConflictType = "coverage"       // 缺少或重复分配
	ConflictRest          ConflictType = "rest"           // 夜勤后休息不足
	ConflictBlock         ConflictType = "block"          // 禁止组合同上夜勤
	ConflictViolationFlag ConflictType = "violation_flag" // 希望违反标记与实际不符
	ConflictUnderstaffed  ConflictType = "understaffed"   // 人数不足
)

// Severity 严重程度
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Conflict 冲突信息
type Conflict struct {
	Type     ConflictType `json:"type"`
	Severity Severity     `json:"severity"`
	Nurse    string       `json:"nurse,omitempty"`
	Day      string       `json:"day"`
	Message  string       `json:"message"`
}

// DetectorConfig 检测器配置
type DetectorConfig struct {
	Staffing           model.Staffing
	ReportUnderstaffed bool // 是否报告人数不足
}

// DefaultDetectorConfig 返回默认配置
func DefaultDetectorConfig() *DetectorConfig {
	return &DetectorConfig{
		Staffing:           model.Staffing{DayRequired: 3, NightRequired: 2},
		ReportUnderstaffed: true,
	}
}

// Detector 排班冲突检测器
type Detector struct {
	config *DetectorConfig
}

// NewDetector 创建冲突检测器
func NewDetector(config *DetectorConfig) *Detector {
	if config == nil {
		config = DefaultDetectorConfig()
	}
	return &Detector{config: config}
}

// Detect 检测排班表中的所有冲突，按日期顺序返回
func (d *Detector) Detect(nurses []*model.Nurse, matrix *compat.Matrix, schedule *model.Schedule) []Conflict {
	var conflicts []Conflict
	if schedule == nil {
		return conflicts
	}

	byName := make(map[string]*model.Nurse, len(nurses))
	for _, n := range nurses {
		byName[n.Name] = n
	}

	for i := range schedule.Days {
		day := &schedule.Days[i]
		conflicts = append(conflicts, d.detectCoverage(nurses, byName, day)...)
		conflicts = append(conflicts, d.detectRest(schedule, i)...)
		conflicts = append(conflicts, d.detectBlockPairs(matrix, day)...)
		conflicts = append(conflicts, d.detectViolationFlags(byName, day)...)
		if d.config.ReportUnderstaffed {
			conflicts = append(conflicts, d.detectUnderstaffed(day)...)
		}
	}
	return conflicts
}

// detectCoverage 每名护士每天恰好一条分配
func (d *Detector) detectCoverage(nurses []*model.Nurse, byName map[string]*model.Nurse, day *model.Day) []Conflict {
	var conflicts []Conflict

	counts := make(map[string]int, len(day.Assignments))
	for _, a := range day.Assignments {
		counts[a.Nurse]++
	}
	for _, n := range nurses {
		switch c := counts[n.Name]; {
		case c == 0:
			conflicts = append(conflicts, Conflict{
				Type:     ConflictCoverage,
				Severity: SeverityError,
				Nurse:    n.Name,
				Day:      day.Label,
				Message:  fmt.Sprintf("%s 在 %s 没有分配", n.Name, day.Label),
			})
		case c > 1:
			conflicts = append(conflicts, Conflict{
				Type:     ConflictCoverage,
				Severity: SeverityError,
				Nurse:    n.Name,
				Day:      day.Label,
				Message:  fmt.Sprintf("%s 在 %s 有 %d 条分配", n.Name, day.Label, c),
			})
		}
	}

	// 名单外的护士
	unknown := make([]string, 0)
	for name := range counts {
		if byName[name] == nil {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		conflicts = append(conflicts, Conflict{
			Type:     ConflictCoverage,
			Severity: SeverityError,
			Nurse:    name,
			Day:      day.Label,
			Message:  fmt.Sprintf("%s 不在护士名单中", name),
		})
	}
	return conflicts
}

// detectRest 夜勤次日必须是明け休み，第三天必须休息；明け休み前一天必须是夜勤
func (d *Detector) detectRest(schedule *model.Schedule, i int) []Conflict {
	var conflicts []Conflict
	day := &schedule.Days[i]

	for _, a := range day.Assignments {
		if a.Shift == model.ShiftNight {
			if next := schedule.Find(i+1, a.Nurse); next != nil && (next.Shift != model.ShiftOff || !next.OffAfterNight) {
				conflicts = append(conflicts, Conflict{
					Type:     ConflictRest,
					Severity: SeverityError,
					Nurse:    a.Nurse,
					Day:      schedule.Days[i+1].Label,
					Message:  fmt.Sprintf("%s 夜勤后次日未安排明け休み", a.Nurse),
				})
			}
			if after := schedule.Find(i+2, a.Nurse); after != nil && after.Shift != model.ShiftOff {
				conflicts = append(conflicts, Conflict{
					Type:     ConflictRest,
					Severity: SeverityError,
					Nurse:    a.Nurse,
					Day:      schedule.Days[i+2].Label,
					Message:  fmt.Sprintf("%s 夜勤后第三天未安排休息", a.Nurse),
				})
			}
		}

		if a.OffAfterNight {
			prev := schedule.Find(i-1, a.Nurse)
			if prev == nil || prev.Shift != model.ShiftNight {
				conflicts = append(conflicts, Conflict{
					Type:     ConflictRest,
					Severity: SeverityWarning,
					Nurse:    a.Nurse,
					Day:      day.Label,
					Message:  fmt.Sprintf("%s 的明け休み前一天不是夜勤", a.Nurse),
				})
			}
		}
	}
	return conflicts
}

// detectBlockPairs 禁止组合不得同上夜勤
func (d *Detector) detectBlockPairs(matrix *compat.Matrix, day *model.Day) []Conflict {
	var conflicts []Conflict

	var night []string
	for _, a := range day.Assignments {
		if a.Shift == model.ShiftNight {
			night = append(night, a.Nurse)
		}
	}
	for i := 0; i < len(night); i++ {
		for j := i + 1; j < len(night); j++ {
			if matrix.Status(night[i], night[j]) != compat.StatusBlock {
				continue
			}
			conflicts = append(conflicts, Conflict{
				Type:     ConflictBlock,
				Severity: SeverityError,
				Nurse:    night[i],
				Day:      day.Label,
				Message:  fmt.Sprintf("%s 与 %s 禁止同上夜勤", night[i], night[j]),
			})
		}
	}
	return conflicts
}

// detectViolationFlags 希望违反标记必须与实际判定一致
func (d *Detector) detectViolationFlags(byName map[string]*model.Nurse, day *model.Day) []Conflict {
	var conflicts []Conflict
	for _, a := range day.Assignments {
		n := byName[a.Nurse]
		if n == nil {
			continue
		}
		expected := solver.CheckViolation(n, day.Label, a.Shift)
		if expected == a.Violation {
			continue
		}
		msg := fmt.Sprintf("%s 在 %s 的%s违反希望但未标记", a.Nurse, day.Label, a.Shift.Label())
		if !expected {
			msg = fmt.Sprintf("%s 在 %s 的%s被错误标记为违反希望", a.Nurse, day.Label, a.Shift.Label())
		}
		conflicts = append(conflicts, Conflict{
			Type:     ConflictViolationFlag,
			Severity: SeverityError,
			Nurse:    a.Nurse,
			Day:      day.Label,
			Message:  msg,
		})
	}
	return conflicts
}

// detectUnderstaffed 人数不足只作为提示
func (d *Detector) detectUnderstaffed(day *model.Day) []Conflict {
	var conflicts []Conflict

	dayRequired := d.config.Staffing.DayHeadcount(day.Weekend)
	if got := day.Count(model.ShiftDay); got < dayRequired {
		conflicts = append(conflicts, Conflict{
			Type:     ConflictUnderstaffed,
			Severity: SeverityWarning,
			Day:      day.Label,
			Message:  fmt.Sprintf("%s 日勤 %d/%d", day.Label, got, dayRequired),
		})
	}
	if got := day.Count(model.ShiftNight); got < d.config.Staffing.NightRequired {
		conflicts = append(conflicts, Conflict{
			Type:     ConflictUnderstaffed,
			Severity: SeverityWarning,
			Day:      day.Label,
			Message:  fmt.Sprintf("%s 夜勤 %d/%d", day.Label, got, d.config.Staffing.NightRequired),
		})
	}
	return conflicts
}

// HasErrors 是否存在错误级别的冲突
func HasErrors(conflicts []Conflict) bool {
	for _, c := range conflicts {
		if c.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Filter 按类型筛选冲突
func Filter(conflicts []Conflict, t ConflictType) []Conflict {
	var out []Conflict
	for _, c := range conflicts {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}
