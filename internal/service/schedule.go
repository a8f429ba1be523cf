// Package service 排班生成服务，供 HTTP 接口和命令行共用
package service

import (
	"context"
	"fmt"
	"io"
	"time"

	validation "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/paiban/nurseshift/internal/config"
	"github.com/paiban/nurseshift/internal/metrics"
	"github.com/paiban/nurseshift/internal/repository"
	"github.com/paiban/nurseshift/pkg/compat"
	"github.com/paiban/nurseshift/pkg/errors"
	"github.com/paiban/nurseshift/pkg/logger"
	"github.com/paiban/nurseshift/pkg/model"
	"github.com/paiban/nurseshift/pkg/roster"
	"github.com/paiban/nurseshift/pkg/scheduler/draft"
	"github.com/paiban/nurseshift/pkg/validator"
)

// OptionsRequest 生成参数，未填写的项使用配置中的默认值
type OptionsRequest struct {
	DayRequired      *int    `json:"day_required,omitempty" validate:"omitempty,gte=0"`
	NightRequired    *int    `json:"night_required,omitempty" validate:"omitempty,gte=0"`
	TargetWorkDays   *int    `json:"target_work_days,omitempty" validate:"omitempty,gte=0,lte=31"`
	TargetHolidays   *int    `json:"target_holidays,omitempty" validate:"omitempty,gte=0,lte=31"`
	DraftCount       *int    `json:"draft_count,omitempty" validate:"omitempty,gte=1,lte=20"`
	Seed             *uint32 `json:"seed,omitempty"`
	RefineIterations *int    `json:"refine_iterations,omitempty" validate:"omitempty,gte=0"`
}

// GenerateRequest 草案生成请求。
// Labels 为空时按 Year/Month 生成整月周期；相性表可以直接给出，也可以给原始表格。
type GenerateRequest struct {
	Year       int             `json:"year" validate:"required,gte=2000,lte=2100"`
	Month      int             `json:"month" validate:"required_without=Labels,omitempty,gte=1,lte=12"`
	Labels     []string        `json:"labels,omitempty"`
	Nurses     []*model.Nurse  `json:"nurses" validate:"dive,required"`
	Matrix     *compat.Matrix  `json:"matrix,omitempty"`
	MatrixGrid [][]string      `json:"matrix_grid,omitempty"`
	Options    *OptionsRequest `json:"options,omitempty"`
}

// ValidateRequest 排班校验请求
type ValidateRequest struct {
	Nurses     []*model.Nurse  `json:"nurses" validate:"dive,required"`
	Matrix     *compat.Matrix  `json:"matrix,omitempty"`
	MatrixGrid [][]string      `json:"matrix_grid,omitempty"`
	Schedule   *model.Schedule `json:"schedule" validate:"required"`
	Staffing   *model.Staffing `json:"staffing,omitempty"`
	Strict     bool            `json:"strict,omitempty"` // 存在错误级别冲突时返回 SCHEDULE_CONFLICT
}

// ValidateResponse 校验结果
type ValidateResponse struct {
	Valid     bool                 `json:"valid"`
	Conflicts []validator.Conflict `json:"conflicts"`
}

// ScheduleService 排班生成服务
type ScheduleService struct {
	repo     repository.DraftRepository
	cfg      config.SchedulerConfig
	metrics  *metrics.Metrics
	validate *validation.Validate
	now      func() time.Time
}

// NewScheduleService 创建排班生成服务，m 可以为 nil
func NewScheduleService(repo repository.DraftRepository, cfg config.SchedulerConfig, m *metrics.Metrics) *ScheduleService {
	return &ScheduleService{
		repo:     repo,
		cfg:      cfg,
		metrics:  m,
		validate: validation.New(),
		now:      time.Now,
	}
}

// Options 合并请求参数与配置默认值。
// 请求和配置都没有给出种子时使用当前时间。
func (s *ScheduleService) Options(req *OptionsRequest) draft.Options {
	opts := draft.Options{
		Count: s.cfg.DraftCount,
		Staffing: model.Staffing{
			DayRequired:   s.cfg.DayRequired,
			NightRequired: s.cfg.NightRequired,
		},
		TargetWorkDays:   s.cfg.TargetWorkDays,
		TargetHolidays:   s.cfg.HolidayTarget(),
		Seed:             s.cfg.Seed,
		RefineIterations: s.cfg.RefineIterations,
	}

	seeded := s.cfg.Seed != 0
	if req != nil {
		if req.DayRequired != nil {
			opts.Staffing.DayRequired = *req.DayRequired
		}
		if req.NightRequired != nil {
			opts.Staffing.NightRequired = *req.NightRequired
		}
		if req.TargetWorkDays != nil {
			opts.TargetWorkDays = *req.TargetWorkDays
		}
		if req.TargetHolidays != nil {
			v := *req.TargetHolidays
			opts.TargetHolidays = &v
		}
		if req.DraftCount != nil {
			opts.Count = *req.DraftCount
		}
		if req.Seed != nil {
			opts.Seed = *req.Seed
			seeded = true
		}
		if req.RefineIterations != nil {
			opts.RefineIterations = *req.RefineIterations
		}
	}
	if !seeded {
		opts.Seed = uint32(s.now().UnixNano())
	}
	return opts
}

// Generate 校验请求、构建输入并生成一批草案
func (s *ScheduleService) Generate(ctx context.Context, req *GenerateRequest) (*repository.Batch, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}

	horizon, err := buildHorizon(req.Year, req.Month, req.Labels)
	if err != nil {
		return nil, err
	}
	matrix, err := buildMatrix(req.Matrix, req.MatrixGrid)
	if err != nil {
		return nil, err
	}

	opts := s.Options(req.Options)
	month := req.Month
	if month == 0 && len(horizon) > 0 {
		month = int(horizon[0].Date.Month())
	}
	in := &draft.Input{Nurses: req.Nurses, Horizon: horizon, Matrix: matrix}
	return s.Run(ctx, in, opts, req.Year, month)
}

// Run 在超时控制下生成草案并保存整批结果。
// 取消时已完成的草案不保存，返回 GENERATION_CANCELLED。
func (s *ScheduleService) Run(ctx context.Context, in *draft.Input, opts draft.Options, year, month int) (*repository.Batch, error) {
	if err := s.check(opts); err != nil {
		return nil, err
	}
	if err := checkNurses(in.Nurses); err != nil {
		return nil, err
	}
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	if in.Matrix == nil {
		in.Matrix = compat.Empty()
	}

	done := s.metrics.StartGeneration()
	// 每次生成使用带请求ID的日志器，生成器本身不在请求间共享
	generated, err := draft.NewGenerator(s.cfg.Workers).
		WithLogger(logger.NewSchedulerLoggerFrom(logger.WithContext(ctx))).
		GenerateDrafts(ctx, in, opts)
	if err != nil {
		done(metrics.StatusCancelled)
		logger.WithContext(ctx).Warn().
			Err(err).
			Int("completed", len(generated.Drafts)).
			Int("requested", opts.Count).
			Msg("排班生成被取消")
		return nil, err
	}

	batch := repository.NewBatch(generated, in, opts, year, month)
	if err := s.repo.Save(ctx, batch); err != nil {
		done(metrics.StatusFailure)
		return nil, err
	}
	done(metrics.StatusSuccess)

	for _, d := range batch.Drafts {
		s.metrics.ObserveDraft(d)
	}
	logger.WithContext(logger.ContextWithBatchID(ctx, batch.ID.String())).Info().
		Int("drafts", len(batch.Drafts)).
		Int("nurses", len(in.Nurses)).
		Int("days", len(in.Horizon)).
		Uint32("seed", opts.Seed).
		Msg("排班草案已保存")
	return batch, nil
}

// GetBatch 查询草案批次
func (s *ScheduleService) GetBatch(ctx context.Context, id uuid.UUID) (*repository.Batch, error) {
	return s.repo.Get(ctx, id)
}

// ListBatches 分页查询草案批次
func (s *ScheduleService) ListBatches(ctx context.Context, filter repository.ListFilter) ([]*repository.Batch, int, error) {
	return s.repo.List(ctx, filter)
}

// SelectDraft 将批次中的某份草案标记为采用
func (s *ScheduleService) SelectDraft(ctx context.Context, batchID, draftID uuid.UUID) (*repository.Batch, error) {
	if err := s.repo.Select(ctx, batchID, draftID); err != nil {
		return nil, err
	}
	logger.WithContext(ctx).Info().
		Str("batch_id", batchID.String()).
		Str("draft_id", draftID.String()).
		Msg("已采用排班草案")
	return s.repo.Get(ctx, batchID)
}

// ExportDraft 以 CSV 格式导出草案
func (s *ScheduleService) ExportDraft(ctx context.Context, draftID uuid.UUID, w io.Writer) error {
	batch, d, err := s.repo.FindDraft(ctx, draftID)
	if err != nil {
		return err
	}
	return roster.WriteSchedule(w, batch.Nurses, d.Schedule)
}

// ExportSelected 导出批次中已选定的草案，尚未选定时返回 NOT_FOUND
func (s *ScheduleService) ExportSelected(ctx context.Context, batchID uuid.UUID, w io.Writer) (*draft.Draft, error) {
	batch, err := s.repo.Get(ctx, batchID)
	if err != nil {
		return nil, err
	}
	d := batch.Selected()
	if d == nil {
		return nil, errors.NotFound("已选定草案", batchID.String())
	}
	if err := roster.WriteSchedule(w, batch.Nurses, d.Schedule); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate 检查给定排班的冲突
func (s *ScheduleService) Validate(req *ValidateRequest) (*ValidateResponse, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	if err := checkNurses(req.Nurses); err != nil {
		return nil, err
	}
	matrix, err := buildMatrix(req.Matrix, req.MatrixGrid)
	if err != nil {
		return nil, err
	}

	cfg := validator.DefaultDetectorConfig()
	cfg.Staffing = model.Staffing{DayRequired: s.cfg.DayRequired, NightRequired: s.cfg.NightRequired}
	if req.Staffing != nil {
		cfg.Staffing = *req.Staffing
	}

	conflicts := validator.NewDetector(cfg).Detect(req.Nurses, matrix, req.Schedule)
	if conflicts == nil {
		conflicts = []validator.Conflict{}
	}
	if req.Strict {
		for _, c := range conflicts {
			if c.Severity == validator.SeverityError {
				return nil, errors.ScheduleConflict(c.Nurse, c.Day, c.Message).
					WithField("conflicts", conflicts)
			}
		}
	}
	return &ValidateResponse{
		Valid:     !validator.HasErrors(conflicts),
		Conflicts: conflicts,
	}, nil
}

// ParseMatrix 将原始表格解析为相性表
func (s *ScheduleService) ParseMatrix(grid [][]string) (*compat.Matrix, error) {
	return compat.FromGrid(grid)
}

// check 结构体校验，失败时转换为 VALIDATION_FAILED
func (s *ScheduleService) check(v interface{}) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validation.ValidationErrors)
	if !ok {
		return errors.Wrap(err, errors.CodeInvalidInput, "请求参数无效")
	}
	ve := &errors.ValidationErrors{}
	for _, fe := range fieldErrs {
		ve.Add(fe.Namespace(), fmt.Sprintf("不满足规则 %s", fe.Tag()))
	}
	return ve.ToAppError()
}

// checkNurses 同一次运行中护士姓名必须唯一，否则同一天的分配会互相覆盖
func checkNurses(nurses []*model.Nurse) error {
	seen := make(map[string]struct{}, len(nurses))
	for _, n := range nurses {
		if n == nil {
			continue
		}
		if _, ok := seen[n.Name]; ok {
			return errors.InvalidInput("nurses", fmt.Sprintf("护士姓名重复: %s", n.Name))
		}
		seen[n.Name] = struct{}{}
	}
	return nil
}

func buildHorizon(year, month int, labels []string) (model.Horizon, error) {
	if len(labels) > 0 {
		h, err := model.HorizonFromLabels(year, labels)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidInput, "日期标签无效")
		}
		return h, nil
	}
	h, err := model.MonthHorizon(year, time.Month(month))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "排班月份无效")
	}
	return h, nil
}

// buildMatrix 优先使用结构化相性表，其次是原始表格，都没有时为空表
func buildMatrix(matrix *compat.Matrix, grid [][]string) (*compat.Matrix, error) {
	if matrix != nil {
		return matrix, nil
	}
	if len(grid) > 0 {
		return compat.FromGrid(grid)
	}
	return compat.Empty(), nil
}
