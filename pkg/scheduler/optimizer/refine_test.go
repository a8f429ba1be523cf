package optimizer

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/nurseshift/pkg/compat"
	"github.com/paiban/nurseshift/pkg/model"
	"github.com/paiban/nurseshift/pkg/scheduler/random"
	"github.com/paiban/nurseshift/pkg/scheduler/solver"
)

// twoDaySchedule 8/4(一) 8/5(二)：A 连续日勤，B 连续休息
func twoDaySchedule(t *testing.T) *model.Schedule {
	t.Helper()
	h, err := model.HorizonFromLabels(2025, []string{"8/4", "8/5"})
	require.NoError(t, err)
	s := model.NewSchedule(h)
	for i := range s.Days {
		s.Days[i].Put(model.Assignment{Nurse: "A", Shift: model.ShiftDay})
		s.Days[i].Put(model.Assignment{Nurse: "B", Shift: model.ShiftOff})
	}
	return s
}

func TestFairnessRefiner_SwapsTowardTarget(t *testing.T) {
	nurses := []*model.Nurse{
		{Name: "A", Capability: model.CapabilityDayOnly},
		{Name: "B", Capability: model.CapabilityDayOnly},
	}
	s := twoDaySchedule(t)

	r := NewFairnessRefiner(&RefineConfig{Iterations: 3, Targets: Targets{WorkDays: 1}})
	res := r.Refine(nurses, s)

	assert.Equal(t, 3, res.Iterations)
	assert.Equal(t, 1, res.Swaps)
	assert.InDelta(t, 36.0, res.ScoreBefore, 1e-9)
	assert.InDelta(t, 0.0, res.ScoreAfter, 1e-9)

	assert.Equal(t, model.ShiftOff, s.Find(0, "A").Shift)
	assert.Equal(t, model.ShiftDay, s.Find(0, "B").Shift)
	assert.Equal(t, model.ShiftDay, s.Find(1, "A").Shift)
	assert.Equal(t, model.ShiftOff, s.Find(1, "B").Shift)
}

func TestFairnessRefiner_RejectsViolation(t *testing.T) {
	nurses := []*model.Nurse{
		{Name: "A", Capability: model.CapabilityDayOnly},
		{Name: "B", Capability: model.CapabilityDayOnly, Requests: map[string]model.RequestKind{
			"8/4": model.RequestPaidLeave,
			"8/5": model.RequestPaidLeave,
		}},
	}
	s := twoDaySchedule(t)

	res := NewFairnessRefiner(&RefineConfig{Iterations: 2, Targets: Targets{WorkDays: 1}}).Refine(nurses, s)
	assert.Equal(t, 0, res.Swaps)
	assert.Equal(t, model.ShiftOff, s.Find(0, "B").Shift)
	assert.Equal(t, model.ShiftOff, s.Find(1, "B").Shift)
}

func TestFairnessRefiner_NightNotMoved(t *testing.T) {
	nurses := []*model.Nurse{
		{Name: "A", Capability: model.CapabilityAll},
		{Name: "B", Capability: model.CapabilityAll},
	}
	h, err := model.HorizonFromLabels(2025, []string{"8/4", "8/5", "8/6"})
	require.NoError(t, err)
	s := model.NewSchedule(h)
	s.Days[0].Put(model.Assignment{Nurse: "A", Shift: model.ShiftNight})
	s.Days[0].Put(model.Assignment{Nurse: "B", Shift: model.ShiftOff})
	s.Days[1].Put(model.Assignment{Nurse: "A", Shift: model.ShiftOff, OffAfterNight: true})
	s.Days[1].Put(model.Assignment{Nurse: "B", Shift: model.ShiftDay})
	s.Days[2].Put(model.Assignment{Nurse: "A", Shift: model.ShiftOff})
	s.Days[2].Put(model.Assignment{Nurse: "B", Shift: model.ShiftDay})
	before := s.Clone()

	res := NewFairnessRefiner(&RefineConfig{Iterations: 3, Targets: Targets{WorkDays: 3}}).Refine(nurses, s)
	assert.Equal(t, 0, res.Swaps)
	assert.Equal(t, before, s)
}

func TestFairnessRefiner_WeekendDayNeedsNightEligible(t *testing.T) {
	nurses := []*model.Nurse{
		{Name: "A", Capability: model.CapabilityAll},
		{Name: "B", Capability: model.CapabilityDayOnly},
	}
	// 8/2 周六
	h, err := model.HorizonFromLabels(2025, []string{"8/2"})
	require.NoError(t, err)
	s := model.NewSchedule(h)
	s.Days[0].Put(model.Assignment{Nurse: "A", Shift: model.ShiftDay})
	s.Days[0].Put(model.Assignment{Nurse: "B", Shift: model.ShiftOff})

	res := NewFairnessRefiner(&RefineConfig{Iterations: 1, Targets: Targets{WorkDays: 0}}).Refine(nurses, s)
	assert.Equal(t, 0, res.Swaps)
	assert.Equal(t, model.ShiftOff, s.Find(0, "B").Shift)
}

func TestFairnessRefiner_PreservesGreedyInvariants(t *testing.T) {
	h, err := model.MonthHorizon(2025, time.August)
	require.NoError(t, err)

	nurses := make([]*model.Nurse, 0, 9)
	for i := 0; i < 9; i++ {
		n := &model.Nurse{Name: fmt.Sprintf("N%d", i+1), Capability: model.CapabilityAll, Requests: map[string]model.RequestKind{}}
		if i%4 == 3 {
			n.Capability = model.CapabilityDayLate
		}
		nurses = append(nurses, n)
	}
	nurses[0].Requests["8/5"] = model.RequestPaidLeave
	nurses[1].Requests["8/11"] = model.RequestDayOnly
	nurses[2].Requests["8/20"] = model.RequestNightOnly

	for _, seed := range []uint32{1, 17, 4242} {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			res := solver.NewGreedySolver(random.NewLCG(seed)).Solve(&solver.Input{
				Nurses:   nurses,
				Horizon:  h,
				Matrix:   compat.Empty(),
				Staffing: model.Staffing{DayRequired: 3, NightRequired: 2},
			})
			before := res.Schedule.Clone()

			out := NewFairnessRefiner(&RefineConfig{Iterations: 3, Targets: Targets{WorkDays: 20}}).Refine(nurses, res.Schedule)
			assert.LessOrEqual(t, out.ScoreAfter, out.ScoreBefore)

			for d, day := range res.Schedule.Days {
				prev := before.Days[d]
				assert.Equal(t, prev.Count(model.ShiftDay), day.Count(model.ShiftDay), day.Label)
				assert.Equal(t, prev.Count(model.ShiftNight), day.Count(model.ShiftNight), day.Label)
				for _, a := range day.Assignments {
					old := prev.Find(a.Nurse)
					require.NotNil(t, old)
					// 夜勤和明け休み保持不变
					if old.Shift == model.ShiftNight || old.OffAfterNight {
						assert.Equal(t, *old, a)
					}
					// 不产生新的希望违反
					if a.Violation {
						assert.Equal(t, *old, a)
					}
				}
			}
		})
	}
}

func TestDefaultRefineConfig(t *testing.T) {
	r := NewFairnessRefiner(nil)
	assert.Equal(t, 3, r.config.Iterations)
}
