// Package draft 生成多份候选排班草案
package draft

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/nurseshift/pkg/compat"
	"github.com/paiban/nurseshift/pkg/logger"
	"github.com/paiban/nurseshift/pkg/model"
	"github.com/paiban/nurseshift/pkg/scheduler/optimizer"
	"github.com/paiban/nurseshift/pkg/scheduler/random"
	"github.com/paiban/nurseshift/pkg/scheduler/solver"
	"github.com/paiban/nurseshift/pkg/stats"
)

// Options 草案生成参数
type Options struct {
	Count            int            `json:"count" validate:"gte=1,lte=20"`
	Staffing         model.Staffing `json:"staffing"`
	TargetWorkDays   int            `json:"target_work_days" validate:"gte=0"`
	TargetHolidays   *int           `json:"target_holidays,omitempty" validate:"omitempty,gte=0"`
	Seed             uint32         `json:"seed"`
	RefineIterations int            `json:"refine_iterations" validate:"gte=0"`
}

// DefaultOptions 默认参数：日勤3人、夜勤2人、目标出勤20天、3份草案
func DefaultOptions() Options {
	return Options{
		Count:            3,
		Staffing:         model.Staffing{DayRequired: 3, NightRequired: 2},
		TargetWorkDays:   20,
		RefineIterations: 3,
	}
}

// Input 一次生成的输入快照，生成期间只读
type Input struct {
	Nurses  []*model.Nurse
	Horizon model.Horizon
	Matrix  *compat.Matrix
}

// Warning 草案中的提示信息（例如人手不足）
type Warning struct {
	Day     string          `json:"day"`
	Shift   model.ShiftKind `json:"shift"`
	Message string          `json:"message"`
}

// Draft 一份候选排班
type Draft struct {
	ID       uuid.UUID                   `json:"id"`
	Index    int                         `json:"index"`
	Seed     uint32                      `json:"seed"`
	Schedule *model.Schedule             `json:"schedule"`
	Stats    map[string]stats.NurseStats `json:"stats"`
	Score    float64                     `json:"score"`
	Fairness *stats.FairnessMetrics      `json:"fairness"`
	Refine   *optimizer.RefineResult     `json:"refine"`
	Warnings []Warning                   `json:"warnings,omitempty"`
	Duration time.Duration               `json:"duration"`
}

// Generate 使用给定随机源执行一次完整流程：贪心分配、公平性调整、统计
func Generate(in *Input, opts Options, shuffler random.Shuffler, l *logger.SchedulerLogger) *Draft {
	start := time.Now()

	greedy := solver.NewGreedySolver(shuffler).WithLogger(l)
	solved := greedy.Solve(&solver.Input{
		Nurses:   in.Nurses,
		Horizon:  in.Horizon,
		Matrix:   in.Matrix,
		Staffing: opts.Staffing,
	})

	targets := optimizer.Targets{WorkDays: opts.TargetWorkDays, Holidays: opts.TargetHolidays}
	refiner := optimizer.NewFairnessRefiner(&optimizer.RefineConfig{
		Iterations: opts.RefineIterations,
		Targets:    targets,
	}).WithLogger(l)
	refined := refiner.Refine(in.Nurses, solved.Schedule)

	d := &Draft{
		ID:       uuid.New(),
		Schedule: solved.Schedule,
		Stats:    stats.ComputeAll(solved.Schedule),
		Score:    refined.ScoreAfter,
		Fairness: stats.NewFairnessAnalyzer().Analyze(in.Nurses, solved.Schedule),
		Refine:   refined,
	}

	coverage := stats.NewCoverageAnalyzer(opts.Staffing).Analyze(solved.Schedule)
	for _, u := range coverage.Understaffed {
		d.Warnings = append(d.Warnings, Warning{
			Day:     u.Day,
			Shift:   u.Shift,
			Message: fmt.Sprintf("%s %s 人数不足: %d/%d", u.Day, u.Shift.Label(), u.Assigned, u.Required),
		})
	}

	d.Duration = time.Since(start)
	return d
}
