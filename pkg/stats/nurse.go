// Package stats 提供排班统计分析功能
package stats

import (
	"github.com/paiban/nurseshift/pkg/model"
)

// NurseStats 护士在排班表中的汇总数据，每次按需重新计算
type NurseStats struct {
	WorkDays       int `json:"work_days"`
	NightShifts    int `json:"night_shifts"`
	WeekendOffDays int `json:"weekend_off_days"`
	PublicHolidays int `json:"public_holidays"`
	Violations     int `json:"violations"`
}

// add 累加一条分配
func (s *NurseStats) add(day *model.Day, a *model.Assignment) {
	switch {
	case a.Shift.IsWork():
		s.WorkDays++
		if a.Shift == model.ShiftNight {
			s.NightShifts++
		}
	case !a.OffAfterNight:
		// 明け休み是休息而非休假，不计入休日
		s.PublicHolidays++
		if day.Weekend {
			s.WeekendOffDays++
		}
	}
	if a.Violation {
		s.Violations++
	}
}

// ComputeStats 计算单名护士的统计
func ComputeStats(nurse string, schedule *model.Schedule) NurseStats {
	var s NurseStats
	if schedule == nil {
		return s
	}
	for i := range schedule.Days {
		day := &schedule.Days[i]
		if a := day.Find(nurse); a != nil {
			s.add(day, a)
		}
	}
	return s
}

// ComputeAll 一次遍历计算所有护士的统计
func ComputeAll(schedule *model.Schedule) map[string]NurseStats {
	out := make(map[string]NurseStats)
	if schedule == nil {
		return out
	}
	for i := range schedule.Days {
		day := &schedule.Days[i]
		for j := range day.Assignments {
			a := &day.Assignments[j]
			s := out[a.Nurse]
			s.add(day, a)
			out[a.Nurse] = s
		}
	}
	return out
}

// Averages 护士群体的平均值
type Averages struct {
	WeekendOffDays float64 `json:"weekend_off_days"`
	PublicHolidays float64 `json:"public_holidays"`
	NightShifts    float64 `json:"night_shifts"` // 仅统计可上夜勤的护士
	NightEligible  int     `json:"night_eligible"`
}

// Cohort 参与平均值计算的护士群体
type Cohort struct {
	names    []string
	eligible map[string]bool
}

// NewCohort 创建护士群体，预先判定夜勤资格
func NewCohort(nurses []*model.Nurse) *Cohort {
	c := &Cohort{
		names:    make([]string, len(nurses)),
		eligible: make(map[string]bool, len(nurses)),
	}
	for i, n := range nurses {
		c.names[i] = n.Name
		c.eligible[n.Name] = n.IsNightEligible()
	}
	return c
}

// NightEligible 护士是否可上夜勤
func (c *Cohort) NightEligible(name string) bool {
	return c.eligible[name]
}

// Averages 计算群体平均值，没有出现在 all 里的护士按 0 计
func (c *Cohort) Averages(all map[string]NurseStats) Averages {
	var avg Averages
	if len(c.names) == 0 {
		return avg
	}
	var weekendSum, holidaySum, nightSum float64
	for _, name := range c.names {
		s := all[name]
		weekendSum += float64(s.WeekendOffDays)
		holidaySum += float64(s.PublicHolidays)
		if c.eligible[name] {
			nightSum += float64(s.NightShifts)
			avg.NightEligible++
		}
	}
	avg.WeekendOffDays = weekendSum / float64(len(c.names))
	avg.PublicHolidays = holidaySum / float64(len(c.names))
	if avg.NightEligible > 0 {
		avg.NightShifts = nightSum / float64(avg.NightEligible)
	}
	return avg
}
