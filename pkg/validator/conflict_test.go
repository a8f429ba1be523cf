package validator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/nurseshift/pkg/compat"
	"github.com/paiban/nurseshift/pkg/model"
	"github.com/paiban/nurseshift/pkg/scheduler/random"
	"github.com/paiban/nurseshift/pkg/scheduler/solver"
)

func labels(t *testing.T, l ...string) model.Horizon {
	t.Helper()
	h, err := model.HorizonFromLabels(2025, l)
	require.NoError(t, err)
	return h
}

func twoNurses() []*model.Nurse {
	return []*model.Nurse{
		{Name: "A", Capability: model.CapabilityAll},
		{Name: "B", Capability: model.CapabilityAll},
	}
}

func TestDetector_GreedyScheduleHasNoErrors(t *testing.T) {
	h, err := model.MonthHorizon(2025, time.August)
	require.NoError(t, err)

	nurses := []*model.Nurse{
		{Name: "A", Capability: model.CapabilityAll, Requests: map[string]model.RequestKind{"8/5": model.RequestPaidLeave}},
		{Name: "B", Capability: model.CapabilityAll},
		{Name: "C", Capability: model.CapabilityAll},
		{Name: "D", Capability: model.CapabilityDayNight},
		{Name: "E", Capability: model.CapabilityDayOnly},
		{Name: "F", Capability: model.CapabilityAll},
	}
	m := compat.New(nil, []compat.Pair{{A: "A", B: "B", Status: compat.StatusBlock}})
	staffing := model.Staffing{DayRequired: 2, NightRequired: 2}

	res := solver.NewGreedySolver(random.NewLCG(11)).Solve(&solver.Input{
		Nurses: nurses, Horizon: h, Matrix: m, Staffing: staffing,
	})

	conflicts := NewDetector(&DetectorConfig{Staffing: staffing}).Detect(nurses, m, res.Schedule)
	assert.False(t, HasErrors(conflicts), "%v", conflicts)
}

func TestDetector_Detect(t *testing.T) {
	tests := []struct {
		name     string
		build    func(s *model.Schedule)
		matrix    *compat.Matrix
		expected  []ConflictType
		hasErrors bool
	}{
		{
			name: "正常排班",
			build: func(s *model.Schedule) {
				s.Days[0].Put(model.Assignment{Nurse: "A", Shift: model.ShiftNight})
				s.Days[0].Put(model.Assignment{Nurse: "B", Shift: model.ShiftDay})
				s.Days[1].Put(model.Assignment{Nurse: "A", Shift: model.ShiftOff, OffAfterNight: true})
				s.Days[1].Put(model.Assignment{Nurse: "B", Shift: model.ShiftDay})
				s.Days[2].Put(model.Assignment{Nurse: "A", Shift: model.ShiftOff})
				s.Days[2].Put(model.Assignment{Nurse: "B", Shift: model.ShiftDay})
			},
			expected: nil,
		},
		{
			name: "缺少分配",
			build: func(s *model.Schedule) {
				for i := range s.Days {
					s.Days[i].Put(model.Assignment{Nurse: "A", Shift: model.ShiftDay})
				}
				s.Days[0].Put(model.Assignment{Nurse: "B", Shift: model.ShiftOff})
				s.Days[1].Put(model.Assignment{Nurse: "B", Shift: model.ShiftOff})
			},
			expected:  []ConflictType{ConflictCoverage},
			hasErrors: true,
		},
		{
			name: "名单外护士",
			build: func(s *model.Schedule) {
				for i := range s.Days {
					s.Days[i].Put(model.Assignment{Nurse: "A", Shift: model.ShiftDay})
					s.Days[i].Put(model.Assignment{Nurse: "B", Shift: model.ShiftOff})
				}
				s.Days[1].Put(model.Assignment{Nurse: "Z", Shift: model.ShiftOff})
			},
			expected:  []ConflictType{ConflictCoverage},
			hasErrors: true,
		},
		{
			name: "夜勤后连续出勤",
			build: func(s *model.Schedule) {
				s.Days[0].Put(model.Assignment{Nurse: "A", Shift: model.ShiftNight})
				s.Days[1].Put(model.Assignment{Nurse: "A", Shift: model.ShiftDay})
				s.Days[2].Put(model.Assignment{Nurse: "A", Shift: model.ShiftDay})
				for i := range s.Days {
					s.Days[i].Put(model.Assignment{Nurse: "B", Shift: model.ShiftOff})
				}
			},
			expected:  []ConflictType{ConflictRest, ConflictRest},
			hasErrors: true,
		},
		{
			name: "孤立的明け休み",
			build: func(s *model.Schedule) {
				s.Days[0].Put(model.Assignment{Nurse: "A", Shift: model.ShiftDay})
				s.Days[1].Put(model.Assignment{Nurse: "A", Shift: model.ShiftOff, OffAfterNight: true})
				s.Days[2].Put(model.Assignment{Nurse: "A", Shift: model.ShiftDay})
				for i := range s.Days {
					s.Days[i].Put(model.Assignment{Nurse: "B", Shift: model.ShiftOff})
				}
			},
			expected: []ConflictType{ConflictRest},
		},
		{
			name: "禁止组合同上夜勤",
			build: func(s *model.Schedule) {
				s.Days[2].Put(model.Assignment{Nurse: "A", Shift: model.ShiftNight})
				s.Days[2].Put(model.Assignment{Nurse: "B", Shift: model.ShiftNight})
				for i := 0; i < 2; i++ {
					s.Days[i].Put(model.Assignment{Nurse: "A", Shift: model.ShiftOff})
					s.Days[i].Put(model.Assignment{Nurse: "B", Shift: model.ShiftOff})
				}
			},
			matrix:    compat.New(nil, []compat.Pair{{A: "B", B: "A", Status: compat.StatusBlock}}),
			expected:  []ConflictType{ConflictBlock},
			hasErrors: true,
		},
		{
			name: "回避组合不算冲突",
			build: func(s *model.Schedule) {
				s.Days[2].Put(model.Assignment{Nurse: "A", Shift: model.ShiftNight})
				s.Days[2].Put(model.Assignment{Nurse: "B", Shift: model.ShiftNight})
				for i := 0; i < 2; i++ {
					s.Days[i].Put(model.Assignment{Nurse: "A", Shift: model.ShiftOff})
					s.Days[i].Put(model.Assignment{Nurse: "B", Shift: model.ShiftOff})
				}
			},
			matrix:   compat.New(nil, []compat.Pair{{A: "A", B: "B", Status: compat.StatusAvoid}}),
			expected: nil,
		},
		{
			name: "违反标记错误",
			build: func(s *model.Schedule) {
				for i := range s.Days {
					s.Days[i].Put(model.Assignment{Nurse: "A", Shift: model.ShiftDay})
					s.Days[i].Put(model.Assignment{Nurse: "B", Shift: model.ShiftOff})
				}
				s.Days[1].Put(model.Assignment{Nurse: "B", Shift: model.ShiftOff, Violation: true})
			},
			expected:  []ConflictType{ConflictViolationFlag},
			hasErrors: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := model.NewSchedule(labels(t, "8/4", "8/5", "8/6"))
			tt.build(s)
			m := tt.matrix
			if m == nil {
				m = compat.Empty()
			}

			d := NewDetector(&DetectorConfig{})
			conflicts := d.Detect(twoNurses(), m, s)

			var got []ConflictType
			for _, c := range conflicts {
				got = append(got, c.Type)
			}
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.hasErrors, HasErrors(conflicts))
		})
	}
}

func TestDetector_MissingViolationFlag(t *testing.T) {
	nurses := []*model.Nurse{
		{Name: "A", Capability: model.CapabilityAll, Requests: map[string]model.RequestKind{"8/4": model.RequestPaidLeave}},
	}
	s := model.NewSchedule(labels(t, "8/4"))
	s.Days[0].Put(model.Assignment{Nurse: "A", Shift: model.ShiftDay})

	conflicts := NewDetector(&DetectorConfig{}).Detect(nurses, compat.Empty(), s)
	require.Len(t, conflicts, 1)
	assert.Equal(t, ConflictViolationFlag, conflicts[0].Type)
	assert.Contains(t, conflicts[0].Message, "未标记")
}

func TestDetector_Understaffed(t *testing.T) {
	// 8/2 周六：日勤需求等于夜勤人数
	s := model.NewSchedule(labels(t, "8/1", "8/2"))
	for i := range s.Days {
		s.Days[i].Put(model.Assignment{Nurse: "A", Shift: model.ShiftDay})
		s.Days[i].Put(model.Assignment{Nurse: "B", Shift: model.ShiftOff})
	}

	d := NewDetector(&DetectorConfig{
		Staffing:           model.Staffing{DayRequired: 2, NightRequired: 1},
		ReportUnderstaffed: true,
	})
	conflicts := d.Detect(twoNurses(), nil, s)

	under := Filter(conflicts, ConflictUnderstaffed)
	require.Len(t, under, 3)
	assert.Equal(t, "8/1", under[0].Day)
	assert.Contains(t, under[0].Message, "日勤 1/2")
	assert.Contains(t, under[1].Message, "夜勤 0/1")
	assert.Equal(t, "8/2", under[2].Day)
	assert.Contains(t, under[2].Message, "夜勤 0/1")
	assert.False(t, HasErrors(conflicts))
}

func TestDetector_NilSchedule(t *testing.T) {
	assert.Empty(t, NewDetector(nil).Detect(twoNurses(), nil, nil))
}
