// Package solver 提供排班求解器
package solver

import (
	"sort"

	"github.com/paiban/nurseshift/pkg/compat"
	"github.com/paiban/nurseshift/pkg/logger"
	"github.com/paiban/nurseshift/pkg/model"
	"github.com/paiban/nurseshift/pkg/scheduler/random"
)

// Input 求解输入，求解期间只读
type Input struct {
	Nurses   []*model.Nurse
	Horizon  model.Horizon
	Matrix   *compat.Matrix
	Staffing model.Staffing
}

// Shortage 某日某班次人数不足
type Shortage struct {
	DayIndex int             `json:"day_index"`
	Day      string          `json:"day"`
	Shift    model.ShiftKind `json:"shift"`
	Required int             `json:"required"`
	Assigned int             `json:"assigned"`
}

// Result 求解结果
type Result struct {
	Schedule  *model.Schedule `json:"schedule"`
	Shortages []Shortage      `json:"shortages,omitempty"`
}

// tally 求解过程中的累计数据，仅用于候选排序
type tally struct {
	workDays    int
	nightShifts int
	violations  int
}

// GreedySolver 按日贪心分配日勤、夜勤和休息
type GreedySolver struct {
	shuffler random.Shuffler
	logger   *logger.SchedulerLogger
}

// NewGreedySolver 创建贪心求解器
func NewGreedySolver(shuffler random.Shuffler) *GreedySolver {
	return &GreedySolver{shuffler: shuffler}
}

// WithLogger 设置日志器
func (s *GreedySolver) WithLogger(l *logger.SchedulerLogger) *GreedySolver {
	s.logger = l
	return s
}

// Name 返回求解器名称
func (s *GreedySolver) Name() string {
	return "GreedySolver"
}

// CheckViolation 判断班次是否违反护士当日希望
func CheckViolation(nurse *model.Nurse, day string, shift model.ShiftKind) bool {
	switch nurse.RequestFor(day) {
	case model.RequestPaidLeave:
		return shift != model.ShiftOff
	case model.RequestDayOnly, model.RequestDayLate:
		return shift == model.ShiftNight
	case model.RequestNightOnly:
		return shift == model.ShiftDay
	default:
		return false
	}
}

// Solve 生成一份完整排班
func (s *GreedySolver) Solve(in *Input) *Result {
	nurses := model.PrioritizeLeave(in.Nurses)
	schedule := model.NewSchedule(in.Horizon)
	result := &Result{Schedule: schedule}

	eligible := make(map[string]bool, len(nurses))
	running := make(map[string]*tally, len(nurses))
	for _, n := range nurses {
		eligible[n.Name] = n.IsNightEligible()
		running[n.Name] = &tally{}
	}

	// 先处理整个周期的公休希望
	for i := range schedule.Days {
		day := &schedule.Days[i]
		for _, n := range nurses {
			if n.RequestFor(day.Label) == model.RequestPaidLeave {
				day.Put(model.Assignment{Nurse: n.Name, Shift: model.ShiftOff})
			}
		}
	}

	for i := range schedule.Days {
		day := &schedule.Days[i]
		var prev *model.Day
		if i > 0 {
			prev = &schedule.Days[i-1]
		}

		available := make([]*model.Nurse, 0, len(nurses))
		for _, n := range nurses {
			if day.Has(n.Name) {
				continue
			}
			// 前一天是明け休み的护士今天不排班
			if prev != nil {
				if a := prev.Find(n.Name); a != nil && a.OffAfterNight {
					continue
				}
			}
			available = append(available, n)
		}

		assign := func(n *model.Nurse, shift model.ShiftKind) {
			violation := CheckViolation(n, day.Label, shift)
			day.Put(model.Assignment{Nurse: n.Name, Shift: shift, Violation: violation})
			t := running[n.Name]
			t.workDays++
			if shift == model.ShiftNight {
				t.nightShifts++
			}
			if violation {
				t.violations++
			}
		}

		// 日勤
		dayCandidates := make([]*model.Nurse, 0, len(available))
		for _, n := range available {
			req := n.RequestFor(day.Label)
			if req == model.RequestNightOnly || req == model.RequestPaidLeave {
				continue
			}
			// 不上夜勤的护士周末也不排日勤
			if day.Weekend && !eligible[n.Name] {
				continue
			}
			dayCandidates = append(dayCandidates, n)
		}
		s.shuffle(dayCandidates)
		sort.SliceStable(dayCandidates, func(a, b int) bool {
			na, nb := dayCandidates[a], dayCandidates[b]
			ea, eb := eligible[na.Name], eligible[nb.Name]
			if ea != eb {
				return ea
			}
			ta, tb := running[na.Name], running[nb.Name]
			if ea && ta.violations != tb.violations {
				return ta.violations < tb.violations
			}
			if ta.workDays != tb.workDays {
				return ta.workDays < tb.workDays
			}
			return ta.violations < tb.violations
		})

		dayRequired := in.Staffing.DayHeadcount(day.Weekend)
		dayAssigned := 0
		for _, n := range dayCandidates {
			if dayAssigned >= dayRequired {
				break
			}
			assign(n, model.ShiftDay)
			dayAssigned++
		}
		if dayAssigned < dayRequired {
			result.Shortages = append(result.Shortages, Shortage{
				DayIndex: i, Day: day.Label, Shift: model.ShiftDay,
				Required: dayRequired, Assigned: dayAssigned,
			})
		}

		// 夜勤
		nightCandidates := make([]*model.Nurse, 0, len(available))
		for _, n := range available {
			if day.Has(n.Name) || !eligible[n.Name] {
				continue
			}
			if n.RequestFor(day.Label).BlocksNight() {
				continue
			}
			nightCandidates = append(nightCandidates, n)
		}
		s.shuffle(nightCandidates)
		sort.SliceStable(nightCandidates, func(a, b int) bool {
			na, nb := nightCandidates[a], nightCandidates[b]
			ea, eb := eligible[na.Name], eligible[nb.Name]
			if ea != eb {
				return ea
			}
			ta, tb := running[na.Name], running[nb.Name]
			if ta.violations != tb.violations {
				return ta.violations < tb.violations
			}
			if ta.nightShifts != tb.nightShifts {
				return ta.nightShifts < tb.nightShifts
			}
			return ta.workDays < tb.workDays
		})

		selected := s.pickNight(nightCandidates, in.Matrix, in.Staffing.NightRequired)
		for _, n := range selected {
			assign(n, model.ShiftNight)
		}
		if len(selected) < in.Staffing.NightRequired {
			result.Shortages = append(result.Shortages, Shortage{
				DayIndex: i, Day: day.Label, Shift: model.ShiftNight,
				Required: in.Staffing.NightRequired, Assigned: len(selected),
			})
			if s.logger != nil {
				s.logger.NightShortage(day.Label, in.Staffing.NightRequired, len(selected))
			}
		}

		// 夜勤后第二天为明け休み，第三天为普通休息，覆盖已有分配
		for _, n := range selected {
			if i+1 < len(schedule.Days) {
				schedule.Days[i+1].Put(model.Assignment{Nurse: n.Name, Shift: model.ShiftOff, OffAfterNight: true})
			}
			if i+2 < len(schedule.Days) {
				schedule.Days[i+2].Put(model.Assignment{Nurse: n.Name, Shift: model.ShiftOff})
			}
		}

		// 其余护士休息
		for _, n := range nurses {
			if !day.Has(n.Name) {
				day.Put(model.Assignment{
					Nurse:     n.Name,
					Shift:     model.ShiftOff,
					Violation: CheckViolation(n, day.Label, model.ShiftOff),
				})
			}
		}
	}

	return result
}

// pickNight 依次选择夜勤人员：跳过与已选人员禁止同班者，
// 优先选择无需回避的候选人，没有时才接受回避组合。人数不足时直接返回。
func (s *GreedySolver) pickNight(candidates []*model.Nurse, matrix *compat.Matrix, required int) []*model.Nurse {
	selected := make([]*model.Nurse, 0, required)
	selectedNames := make([]string, 0, required)
	used := make(map[string]bool, required)

	for len(selected) < required {
		var picked *model.Nurse
		for _, c := range candidates {
			if used[c.Name] || matrix.Blocks(c.Name, selectedNames) {
				continue
			}
			if !matrix.Avoids(c.Name, selectedNames) {
				picked = c
				break
			}
		}
		if picked == nil {
			for _, c := range candidates {
				if used[c.Name] || matrix.Blocks(c.Name, selectedNames) {
					continue
				}
				picked = c
				break
			}
		}
		if picked == nil {
			break
		}
		used[picked.Name] = true
		selected = append(selected, picked)
		selectedNames = append(selectedNames, picked.Name)
	}
	return selected
}

func (s *GreedySolver) shuffle(nurses []*model.Nurse) {
	if s.shuffler == nil {
		return
	}
	s.shuffler.Shuffle(len(nurses), func(i, j int) {
		nurses[i], nurses[j] = nurses[j], nurses[i]
	})
}
