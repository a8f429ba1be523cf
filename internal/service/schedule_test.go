package service

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/nurseshift/internal/config"
	"github.com/paiban/nurseshift/internal/metrics"
	"github.com/paiban/nurseshift/internal/repository"
	"github.com/paiban/nurseshift/pkg/errors"
	"github.com/paiban/nurseshift/pkg/model"
	"github.com/paiban/nurseshift/pkg/scheduler/random"
	"github.com/paiban/nurseshift/pkg/validator"
)

func testConfig() config.SchedulerConfig {
	return config.FromEnv().Scheduler
}

func newTestService(t *testing.T) (*ScheduleService, *repository.MemoryDraftRepository) {
	t.Helper()
	repo := repository.NewMemoryDraftRepository()
	svc := NewScheduleService(repo, testConfig(), metrics.New())
	svc.now = func() time.Time { return time.Unix(0, 42) }
	return svc, repo
}

func testNurses(count int) []*model.Nurse {
	nurses := make([]*model.Nurse, 0, count)
	for i := 0; i < count; i++ {
		nurses = append(nurses, &model.Nurse{
			Name:       fmt.Sprintf("看護師%02d", i+1),
			Capability: model.CapabilityAll,
		})
	}
	return nurses
}

func intPtr(v int) *int { return &v }

func uint32Ptr(v uint32) *uint32 { return &v }

// optionsCheck 期望的合并结果
type optionsCheck struct {
	Count, Day, Night, Target int
	Holidays                  *int
	Seed                      uint32
	Iterations                int
}

func TestScheduleService_Options(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name   string
		req    *OptionsRequest
		expect optionsCheck
	}{
		{
			name: "未指定时使用配置默认值和时间种子",
			req:  nil,
			expect: optionsCheck{
				Count: 3, Day: 3, Night: 2, Target: 20, Holidays: nil, Seed: 42, Iterations: 3,
			},
		},
		{
			name: "请求覆盖各项参数",
			req: &OptionsRequest{
				DayRequired:      intPtr(1),
				NightRequired:    intPtr(0),
				TargetWorkDays:   intPtr(18),
				TargetHolidays:   intPtr(10),
				DraftCount:       intPtr(5),
				Seed:             uint32Ptr(0),
				RefineIterations: intPtr(0),
			},
			expect: optionsCheck{
				Count: 5, Day: 1, Night: 0, Target: 18, Holidays: intPtr(10), Seed: 0, Iterations: 0,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := svc.Options(tt.req)
			assert.Equal(t, tt.expect.Count, opts.Count)
			assert.Equal(t, tt.expect.Day, opts.Staffing.DayRequired)
			assert.Equal(t, tt.expect.Night, opts.Staffing.NightRequired)
			assert.Equal(t, tt.expect.Target, opts.TargetWorkDays)
			assert.Equal(t, tt.expect.Holidays, opts.TargetHolidays)
			assert.Equal(t, tt.expect.Seed, opts.Seed)
			assert.Equal(t, tt.expect.Iterations, opts.RefineIterations)
		})
	}
}

func TestScheduleService_Options_ConfigSeed(t *testing.T) {
	cfg := testConfig()
	cfg.Seed = 99
	cfg.TargetHolidays = 9
	svc := NewScheduleService(repository.NewMemoryDraftRepository(), cfg, nil)

	opts := svc.Options(nil)
	assert.Equal(t, uint32(99), opts.Seed)
	require.NotNil(t, opts.TargetHolidays)
	assert.Equal(t, 9, *opts.TargetHolidays)
}

func TestScheduleService_Generate(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	batch, err := svc.Generate(ctx, &GenerateRequest{
		Year:   2025,
		Month:  8,
		Nurses: testNurses(10),
		MatrixGrid: [][]string{
			{"", "看護師01", "看護師02"},
			{"看護師01", "", "×"},
		},
		Options: &OptionsRequest{DraftCount: intPtr(2), Seed: uint32Ptr(7)},
	})
	require.NoError(t, err)

	assert.Equal(t, 2025, batch.Year)
	assert.Equal(t, 8, batch.Month)
	assert.Equal(t, "2025-08-01", batch.Range.StartDate)
	require.Len(t, batch.Drafts, 2)
	for i, d := range batch.Drafts {
		assert.Equal(t, i, d.Index)
		assert.Equal(t, random.DeriveSeed(7, i), d.Seed)
		assert.Equal(t, 31, d.Schedule.Len())

		// 生成结果不应有错误级别的冲突
		conflicts := validator.NewDetector(nil).Detect(batch.Nurses, batch.Matrix, d.Schedule)
		assert.False(t, validator.HasErrors(conflicts), "草案 %d", i)
	}

	stored, err := repo.Get(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, batch.ID, stored.ID)

	_, total, err := svc.ListBatches(ctx, repository.DefaultListFilter().WithPeriod(2025, 8))
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestScheduleService_Generate_Labels(t *testing.T) {
	svc, _ := newTestService(t)

	batch, err := svc.Generate(context.Background(), &GenerateRequest{
		Year:    2025,
		Labels:  []string{"8/4", "8/5", "8/6"},
		Nurses:  testNurses(4),
		Options: &OptionsRequest{DraftCount: intPtr(1), DayRequired: intPtr(1), NightRequired: intPtr(1)},
	})
	require.NoError(t, err)
	assert.Equal(t, 8, batch.Month)
	require.Len(t, batch.Drafts, 1)
	assert.Equal(t, []string{"8/4", "8/5", "8/6"}, batch.Drafts[0].Schedule.Horizon().Labels())
}

func TestScheduleService_Generate_Invalid(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name string
		req  *GenerateRequest
		code errors.Code
	}{
		{
			name: "缺少年份",
			req:  &GenerateRequest{Month: 8, Nurses: testNurses(2)},
			code: errors.CodeValidationFail,
		},
		{
			name: "缺少月份和日期",
			req:  &GenerateRequest{Year: 2025, Nurses: testNurses(2)},
			code: errors.CodeValidationFail,
		},
		{
			name: "月份越界",
			req:  &GenerateRequest{Year: 2025, Month: 13, Nurses: testNurses(2)},
			code: errors.CodeValidationFail,
		},
		{
			name: "护士姓名为空",
			req:  &GenerateRequest{Year: 2025, Month: 8, Nurses: []*model.Nurse{{Name: ""}}},
			code: errors.CodeValidationFail,
		},
		{
			name: "草案数为0",
			req:  &GenerateRequest{Year: 2025, Month: 8, Nurses: testNurses(2), Options: &OptionsRequest{DraftCount: intPtr(0)}},
			code: errors.CodeValidationFail,
		},
		{
			name: "日期标签无效",
			req:  &GenerateRequest{Year: 2025, Labels: []string{"8/40"}, Nurses: testNurses(2)},
			code: errors.CodeInvalidInput,
		},
		{
			name: "相性表没有数据行",
			req:  &GenerateRequest{Year: 2025, Month: 8, Nurses: testNurses(2), MatrixGrid: [][]string{{"", "A"}}},
			code: errors.CodeMalformedMatrix,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Generate(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}
}

func TestScheduleService_DuplicateNames(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	nurses := []*model.Nurse{
		{Name: "A", Capability: model.CapabilityAll},
		{Name: "A", Capability: model.CapabilityDayOnly, Requests: map[string]model.RequestKind{"8/4": model.RequestPaidLeave}},
		{Name: "B", Capability: model.CapabilityAll},
	}

	_, err := svc.Generate(ctx, &GenerateRequest{Year: 2025, Month: 8, Nurses: nurses})
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	assert.Contains(t, err.Error(), "A")

	_, total, err := repo.List(ctx, repository.DefaultListFilter())
	require.NoError(t, err)
	assert.Zero(t, total)

	h, err := model.HorizonFromLabels(2025, []string{"8/4"})
	require.NoError(t, err)
	_, err = svc.Validate(&ValidateRequest{Nurses: nurses, Schedule: model.NewSchedule(h)})
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestScheduleService_Generate_Cancelled(t *testing.T) {
	svc, repo := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Generate(ctx, &GenerateRequest{Year: 2025, Month: 8, Nurses: testNurses(6)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeGenerationCancelled))

	_, total, err := repo.List(context.Background(), repository.DefaultListFilter())
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestScheduleService_SelectAndExport(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	batch, err := svc.Generate(ctx, &GenerateRequest{
		Year:    2025,
		Labels:  []string{"8/4", "8/5"},
		Nurses:  testNurses(3),
		Options: &OptionsRequest{DraftCount: intPtr(2), DayRequired: intPtr(1), NightRequired: intPtr(1)},
	})
	require.NoError(t, err)

	chosen := batch.Drafts[1]
	selected, err := svc.SelectDraft(ctx, batch.ID, chosen.ID)
	require.NoError(t, err)
	require.NotNil(t, selected.Selected())
	assert.Equal(t, chosen.ID, selected.Selected().ID)

	_, err = svc.SelectDraft(ctx, batch.ID, uuid.New())
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	var buf bytes.Buffer
	require.NoError(t, svc.ExportDraft(ctx, chosen.ID, &buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "看護師名,8/4,8/5", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "看護師01,"))

	err = svc.ExportDraft(ctx, uuid.New(), &buf)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestScheduleService_Validate(t *testing.T) {
	svc, _ := newTestService(t)

	h, err := model.HorizonFromLabels(2025, []string{"8/4", "8/5"})
	require.NoError(t, err)
	schedule := model.NewSchedule(h)
	for i := range schedule.Days {
		schedule.Days[i].Put(model.Assignment{Nurse: "A", Shift: model.ShiftDay})
	}

	resp, err := svc.Validate(&ValidateRequest{
		Nurses:   []*model.Nurse{{Name: "A"}, {Name: "B"}},
		Schedule: schedule,
		Staffing: &model.Staffing{DayRequired: 1, NightRequired: 0},
	})
	require.NoError(t, err)
	assert.False(t, resp.Valid)
	coverage := validator.Filter(resp.Conflicts, validator.ConflictCoverage)
	require.Len(t, coverage, 2)
	assert.Equal(t, "B", coverage[0].Nurse)

	_, err = svc.Validate(&ValidateRequest{Nurses: testNurses(1)})
	assert.True(t, errors.Is(err, errors.CodeValidationFail))
}

func TestScheduleService_Validate_Strict(t *testing.T) {
	svc, _ := newTestService(t)

	h, err := model.HorizonFromLabels(2025, []string{"8/4"})
	require.NoError(t, err)
	schedule := model.NewSchedule(h)
	schedule.Days[0].Put(model.Assignment{Nurse: "A", Shift: model.ShiftDay})

	tests := []struct {
		name     string
		nurses   []*model.Nurse
		conflict bool
	}{
		{"无错误时正常返回", []*model.Nurse{{Name: "A"}}, false},
		{"缺少分配时返回冲突错误", []*model.Nurse{{Name: "A"}, {Name: "B"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Validate(&ValidateRequest{
				Nurses:   tt.nurses,
				Schedule: schedule,
				Staffing: &model.Staffing{DayRequired: 1},
				Strict:   true,
			})
			if !tt.conflict {
				require.NoError(t, err)
				assert.True(t, resp.Valid)
				return
			}
			require.Error(t, err)
			assert.Equal(t, errors.CodeScheduleConflict, errors.GetCode(err))
			assert.Equal(t, http.StatusConflict, errors.GetHTTPStatus(err))
			assert.Contains(t, err.Error(), "B")
		})
	}
}

func TestScheduleService_ParseMatrix(t *testing.T) {
	svc, _ := newTestService(t)

	m, err := svc.ParseMatrix([][]string{
		{"", "A", "B"},
		{"A", "", "△"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, m.Names())
	assert.True(t, m.Avoids("B", []string{"A"}))

	_, err = svc.ParseMatrix(nil)
	assert.True(t, errors.Is(err, errors.CodeMalformedMatrix))
}
