package optimizer

import (
	"github.com/paiban/nurseshift/pkg/logger"
	"github.com/paiban/nurseshift/pkg/model"
	"github.com/paiban/nurseshift/pkg/scheduler/solver"
	"github.com/paiban/nurseshift/pkg/stats"
)

// RefineConfig 公平性调整配置
type RefineConfig struct {
	Iterations int     `json:"iterations"` // 遍历轮数
	Targets    Targets `json:"targets"`
}

// DefaultRefineConfig 默认配置
func DefaultRefineConfig() *RefineConfig {
	return &RefineConfig{Iterations: 3}
}

// RefineResult 调整结果
type RefineResult struct {
	Iterations  int     `json:"iterations"`
	Swaps       int     `json:"swaps"`
	ScoreBefore float64 `json:"score_before"`
	ScoreAfter  float64 `json:"score_after"`
}

// FairnessRefiner 同日两名护士交换班次的局部搜索。
// 只在日勤与休息之间交换，夜勤及其后的休息保持不动。
type FairnessRefiner struct {
	config *RefineConfig
	logger *logger.SchedulerLogger
}

// NewFairnessRefiner 创建公平性调整器
func NewFairnessRefiner(config *RefineConfig) *FairnessRefiner {
	if config == nil {
		config = DefaultRefineConfig()
	}
	return &FairnessRefiner{config: config}
}

// WithLogger 设置日志器
func (r *FairnessRefiner) WithLogger(l *logger.SchedulerLogger) *FairnessRefiner {
	r.logger = l
	return r
}

// Refine 原地调整排班表
func (r *FairnessRefiner) Refine(nurses []*model.Nurse, schedule *model.Schedule) *RefineResult {
	scorer := NewScorer(nurses, r.config.Targets)
	byName := make(map[string]*model.Nurse, len(nurses))
	for _, n := range nurses {
		byName[n.Name] = n
	}

	table := stats.ComputeAll(schedule)
	result := &RefineResult{ScoreBefore: scorer.Total(nurses, schedule)}

	pairScore := func(a, b string) float64 {
		// 每次比较都按当前排班重新计算群体平均值
		avg := scorer.Averages(table)
		return scorer.Score(a, table[a], avg) + scorer.Score(b, table[b], avg)
	}

	for iter := 0; iter < r.config.Iterations; iter++ {
		result.Iterations++
		for d := range schedule.Days {
			day := &schedule.Days[d]
			for i := range day.Assignments {
				for j := range day.Assignments {
					if i == j {
						continue
					}
					a, b := &day.Assignments[i], &day.Assignments[j]
					if a.Shift == b.Shift {
						continue
					}
					na, nb := byName[a.Nurse], byName[b.Nurse]
					if na == nil || nb == nil {
						continue
					}
					if !movable(schedule, d, a) || !movable(schedule, d, b) {
						continue
					}
					if !r.canTake(scorer, na, day, b.Shift) || !r.canTake(scorer, nb, day, a.Shift) {
						continue
					}

					before := pairScore(na.Name, nb.Name)
					savedA, savedB := *a, *b
					savedStatsA, savedStatsB := table[na.Name], table[nb.Name]

					a.Shift, b.Shift = b.Shift, a.Shift
					a.Violation = solver.CheckViolation(na, day.Label, a.Shift)
					b.Violation = solver.CheckViolation(nb, day.Label, b.Shift)
					table[na.Name] = stats.ComputeStats(na.Name, schedule)
					table[nb.Name] = stats.ComputeStats(nb.Name, schedule)

					if pairScore(na.Name, nb.Name) < before {
						result.Swaps++
						continue
					}

					*a, *b = savedA, savedB
					table[na.Name], table[nb.Name] = savedStatsA, savedStatsB
				}
			}
		}
	}

	result.ScoreAfter = scorer.Total(nurses, schedule)
	if r.logger != nil {
		r.logger.RefineComplete(result.Iterations, result.Swaps, result.ScoreBefore, result.ScoreAfter)
	}
	return result
}

// movable 分配是否可以参与交换：夜勤、明け休み以及明け休み次日的休息不可移动
func movable(schedule *model.Schedule, dayIndex int, a *model.Assignment) bool {
	if a.Shift == model.ShiftNight || a.OffAfterNight {
		return false
	}
	if prev := schedule.Find(dayIndex-1, a.Nurse); prev != nil && prev.OffAfterNight {
		return false
	}
	return true
}

// canTake 护士接手该班次是否不产生新的希望违反
func (r *FairnessRefiner) canTake(scorer *Scorer, n *model.Nurse, day *model.Day, shift model.ShiftKind) bool {
	if solver.CheckViolation(n, day.Label, shift) {
		return false
	}
	// 不上夜勤的护士周末不排日勤
	if shift == model.ShiftDay && day.Weekend && !scorer.cohort.NightEligible(n.Name) {
		return false
	}
	return true
}
