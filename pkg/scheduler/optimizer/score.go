// Package optimizer 提供排班公平性优化
package optimizer

import (
	"math"

	"github.com/paiban/nurseshift/pkg/model"
	"github.com/paiban/nurseshift/pkg/stats"
)

// 评分权重
const (
	workDayWeight           = 10.0
	eligibleViolationCost   = 150.0 // 可上夜勤护士的希望违反
	ineligibleViolationCost = 100.0
	publicHolidayWeight     = 8.0
	weekendOffWeight        = 5.0
	nightShiftWeight        = 3.0
)

// Targets 公平性目标
type Targets struct {
	WorkDays int  `json:"work_days"`
	Holidays *int `json:"holidays,omitempty"` // 为空时使用群体平均值
}

// Scorer 护士评分，分数越低越好
type Scorer struct {
	targets Targets
	cohort  *stats.Cohort
}

// NewScorer 创建评分器
func NewScorer(nurses []*model.Nurse, targets Targets) *Scorer {
	return &Scorer{targets: targets, cohort: stats.NewCohort(nurses)}
}

// Averages 计算当前统计下的群体平均值
func (s *Scorer) Averages(all map[string]stats.NurseStats) stats.Averages {
	return s.cohort.Averages(all)
}

// Score 计算单名护士的分数
func (s *Scorer) Score(nurse string, st stats.NurseStats, avg stats.Averages) float64 {
	violationCost := ineligibleViolationCost
	if s.cohort.NightEligible(nurse) {
		violationCost = eligibleViolationCost
	}

	holidayTarget := avg.PublicHolidays
	if s.targets.Holidays != nil {
		holidayTarget = float64(*s.targets.Holidays)
	}

	score := math.Abs(float64(st.WorkDays-s.targets.WorkDays))*workDayWeight +
		float64(st.Violations)*violationCost +
		math.Abs(float64(st.PublicHolidays)-holidayTarget)*publicHolidayWeight +
		math.Abs(float64(st.WeekendOffDays)-avg.WeekendOffDays)*weekendOffWeight

	if avg.NightEligible > 0 {
		score += math.Abs(float64(st.NightShifts)-avg.NightShifts) * nightShiftWeight
	}
	return score
}

// Total 计算排班表的总分
func (s *Scorer) Total(nurses []*model.Nurse, schedule *model.Schedule) float64 {
	all := stats.ComputeAll(schedule)
	avg := s.cohort.Averages(all)
	total := 0.0
	for _, n := range nurses {
		total += s.Score(n.Name, all[n.Name], avg)
	}
	return total
}
