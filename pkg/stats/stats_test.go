package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/nurseshift/pkg/model"
)

// buildSchedule 8/1(五) 8/2(六) 8/3(日) 8/4(一)
func buildSchedule(t *testing.T) *model.Schedule {
	t.Helper()
	h, err := model.HorizonFromLabels(2025, []string{"8/1", "8/2", "8/3", "8/4"})
	require.NoError(t, err)
	s := model.NewSchedule(h)

	put := func(day int, a model.Assignment) { s.Days[day].Put(a) }

	put(0, model.Assignment{Nurse: "A", Shift: model.ShiftNight})
	put(1, model.Assignment{Nurse: "A", Shift: model.ShiftOff, OffAfterNight: true})
	put(2, model.Assignment{Nurse: "A", Shift: model.ShiftOff})
	put(3, model.Assignment{Nurse: "A", Shift: model.ShiftDay, Violation: true})

	put(0, model.Assignment{Nurse: "B", Shift: model.ShiftDay})
	put(1, model.Assignment{Nurse: "B", Shift: model.ShiftDay})
	put(2, model.Assignment{Nurse: "B", Shift: model.ShiftNight})
	put(3, model.Assignment{Nurse: "B", Shift: model.ShiftOff, OffAfterNight: true})
	return s
}

func TestComputeStats(t *testing.T) {
	s := buildSchedule(t)

	tests := []struct {
		name     string
		nurse    string
		expected NurseStats
	}{
		{
			name:  "夜勤后明け休み不计休日",
			nurse: "A",
			expected: NurseStats{
				WorkDays:       2,
				NightShifts:    1,
				WeekendOffDays: 1,
				PublicHolidays: 1,
				Violations:     1,
			},
		},
		{
			name:  "周末夜勤",
			nurse: "B",
			expected: NurseStats{
				WorkDays:    3,
				NightShifts: 1,
			},
		},
		{
			name:     "不存在的护士",
			nurse:    "Z",
			expected: NurseStats{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ComputeStats(tt.nurse, s))
		})
	}
}

func TestComputeAll_MatchesComputeStats(t *testing.T) {
	s := buildSchedule(t)
	all := ComputeAll(s)
	require.Len(t, all, 2)
	for name, st := range all {
		assert.Equal(t, ComputeStats(name, s), st, name)
	}
	assert.Empty(t, ComputeAll(nil))
}

func TestCohort_Averages(t *testing.T) {
	s := buildSchedule(t)
	nurses := []*model.Nurse{
		{Name: "A", Capability: model.CapabilityAll},
		{Name: "B", Capability: model.CapabilityAll},
		{Name: "C", Capability: model.CapabilityDayOnly},
	}
	avg := NewCohort(nurses).Averages(ComputeAll(s))
	assert.InDelta(t, 1.0/3, avg.WeekendOffDays, 1e-9)
	assert.InDelta(t, 1.0/3, avg.PublicHolidays, 1e-9)
	assert.InDelta(t, 1.0, avg.NightShifts, 1e-9)
	assert.Equal(t, 2, avg.NightEligible)

	assert.Equal(t, Averages{}, NewCohort(nil).Averages(nil))
}

func TestFairnessAnalyzer_Analyze(t *testing.T) {
	s := buildSchedule(t)
	nurses := []*model.Nurse{
		{Name: "A", Capability: model.CapabilityAll},
		{Name: "B", Capability: model.CapabilityAll},
	}
	m := NewFairnessAnalyzer().Analyze(nurses, s)

	require.Len(t, m.NurseStats, 2)
	assert.Equal(t, "B", m.NurseStats[0].Name)
	assert.Equal(t, 2.5, m.AvgWorkDays)
	assert.Equal(t, 3.0, m.MaxWorkDays)
	assert.Equal(t, 2.0, m.MinWorkDays)
	assert.Equal(t, 0.0, m.NightShiftGini)
	assert.True(t, m.WorkDaysGini > 0 && m.WorkDaysGini < 1)
	assert.True(t, m.OverallFairnessScore > 0 && m.OverallFairnessScore <= 100)
}

func TestFairnessAnalyzer_EmptyInput(t *testing.T) {
	m := NewFairnessAnalyzer().Analyze(nil, nil)
	assert.Equal(t, 100.0, m.OverallFairnessScore)
}

func TestCalculateGini(t *testing.T) {
	assert.Equal(t, 0.0, calculateGini([]float64{5, 5, 5}))
	assert.Equal(t, 0.0, calculateGini(nil))
	assert.InDelta(t, 0.5, calculateGini([]float64{0, 10}), 1e-9)
}

func TestCoverageAnalyzer_Analyze(t *testing.T) {
	s := buildSchedule(t)
	m := NewCoverageAnalyzer(model.Staffing{DayRequired: 2, NightRequired: 1}).Analyze(s)

	require.Len(t, m.DailyCoverage, 4)
	// 周末日勤需求沿用夜勤人数
	assert.Equal(t, 1, m.DailyCoverage[1].DayRequired)
	assert.Equal(t, 2, m.DailyCoverage[0].DayRequired)

	// 8/1 日勤 1/2，8/2 夜勤 0/1，8/3 日勤 0/1，8/4 日勤 1/2 夜勤 0/1
	var shortages []string
	for _, u := range m.Understaffed {
		shortages = append(shortages, u.Day+string(u.Shift))
	}
	assert.Equal(t, []string{"8/1DAY", "8/2NIGHT", "8/3DAY", "8/4DAY", "8/4NIGHT"}, shortages)

	assert.Equal(t, 10, m.RequiredSlots)
	assert.Equal(t, 5, m.FilledSlots)
	assert.InDelta(t, 50.0, m.OverallCoverage, 1e-9)
}
