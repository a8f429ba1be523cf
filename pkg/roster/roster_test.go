package roster

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/nurseshift/pkg/compat"
	"github.com/paiban/nurseshift/pkg/errors"
	"github.com/paiban/nurseshift/pkg/model"
)

const requestCSV = "\ufeff氏名,備考,夜勤設定,8/1,8/2,8/3\n" +
	"佐藤,有給,全部する,公休希望,,夜勤のみ可能\n" +
	"鈴木,,日勤のみ,日勤のみ可能,勤務可能,\n" +
	",,,,,\n" +
	"高橋,,,謎の値,no-night,paid-leave\n"

func TestReadRequests(t *testing.T) {
	nurses, horizon, err := ReadRequests(strings.NewReader(requestCSV), 2025)
	require.NoError(t, err)
	require.Len(t, nurses, 3)
	assert.Equal(t, []string{"8/1", "8/2", "8/3"}, horizon.Labels())
	assert.True(t, horizon[1].Weekend)

	tests := []struct {
		name       string
		nurse      int
		capability model.ShiftCapability
		requests   []model.RequestKind
	}{
		{"日文短语", 0, model.CapabilityAll,
			[]model.RequestKind{model.RequestPaidLeave, model.RequestAvailable, model.RequestNightOnly}},
		{"日勤のみ", 1, model.CapabilityDayOnly,
			[]model.RequestKind{model.RequestDayOnly, model.RequestAvailable, model.RequestAvailable}},
		{"未知值和旧格式", 2, model.CapabilityUnset,
			[]model.RequestKind{model.RequestAvailable, model.RequestDayLate, model.RequestPaidLeave}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := nurses[tt.nurse]
			assert.Equal(t, tt.capability, n.Capability)
			for i, label := range horizon.Labels() {
				assert.Equal(t, tt.requests[i], n.RequestFor(label), label)
			}
		})
	}
	assert.Equal(t, "佐藤", nurses[0].Name)
	assert.True(t, nurses[0].HasLeavePriority())
}

func TestReadRequests_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"空文件", ""},
		{"缺少氏名列", "名前,8/1\nA,\n"},
		{"没有日期列", "氏名,備考\nA,\n"},
		{"姓名重复", "氏名,8/1\nA,\nA,\n"},
		{"日期重复", "看護師名,8/1,8/1\nA,,\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ReadRequests(strings.NewReader(tt.input), 2025)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.CodeMalformedRoster))
		})
	}
}

func TestReadMatrix(t *testing.T) {
	input := ",A,B,C\nA,,×,△\nB,,,○\n"
	m, err := ReadMatrix(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, compat.StatusBlock, m.Status("B", "A"))
	assert.Equal(t, compat.StatusAvoid, m.Status("C", "A"))
	assert.Equal(t, compat.StatusOK, m.Status("B", "C"))

	_, err = ReadMatrix(strings.NewReader(",A,B\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeMalformedMatrix))
}

func TestWriteAndReadSchedule(t *testing.T) {
	h, err := model.HorizonFromLabels(2025, []string{"8/4", "8/5", "8/6"})
	require.NoError(t, err)
	nurses := []*model.Nurse{
		{Name: "A", Capability: model.CapabilityAll, Requests: map[string]model.RequestKind{"8/6": model.RequestPaidLeave}},
		{Name: "B", Capability: model.CapabilityAll},
	}

	s := model.NewSchedule(h)
	s.Days[0].Put(model.Assignment{Nurse: "A", Shift: model.ShiftNight})
	s.Days[1].Put(model.Assignment{Nurse: "A", Shift: model.ShiftOff, OffAfterNight: true})
	s.Days[2].Put(model.Assignment{Nurse: "A", Shift: model.ShiftOff})
	s.Days[0].Put(model.Assignment{Nurse: "B", Shift: model.ShiftDay})
	s.Days[1].Put(model.Assignment{Nurse: "B", Shift: model.ShiftDay})
	s.Days[2].Put(model.Assignment{Nurse: "B", Shift: model.ShiftDay})

	var buf bytes.Buffer
	require.NoError(t, WriteSchedule(&buf, nurses, s))
	assert.Equal(t, "看護師名,8/4,8/5,8/6\nA,夜勤,休,休\nB,日勤,日勤,日勤\n", buf.String())

	got, err := ReadSchedule(&buf, 2025, nurses)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestReadSchedule_InfersViolation(t *testing.T) {
	nurses := []*model.Nurse{
		{Name: "A", Requests: map[string]model.RequestKind{"8/4": model.RequestPaidLeave}},
	}
	s, err := ReadSchedule(strings.NewReader("看護師名,8/4\nA,日勤\nZ,夜勤\n"), 2025, nurses)
	require.NoError(t, err)
	assert.True(t, s.Find(0, "A").Violation)
	assert.False(t, s.Find(0, "Z").Violation)
}

func TestReadSchedule_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"空文件", ""},
		{"没有日期列", "看護師名\nA\n"},
		{"无效日期", "看護師名,8/32\nA,休\n"},
		{"无效班次", "看護師名,8/1\nA,遅出\n"},
		{"姓名重复", "看護師名,8/1\nA,休\nA,休\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadSchedule(strings.NewReader(tt.input), 2025, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.CodeMalformedRoster))
		})
	}
}
