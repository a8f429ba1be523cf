// Package handler 提供HTTP请求处理器
package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/paiban/nurseshift/internal/repository"
	"github.com/paiban/nurseshift/internal/service"
	"github.com/paiban/nurseshift/pkg/errors"
	"github.com/paiban/nurseshift/pkg/logger"
	"github.com/paiban/nurseshift/pkg/model"
	"github.com/paiban/nurseshift/pkg/roster"
	"github.com/paiban/nurseshift/pkg/scheduler/draft"
)

// maxBodyBytes 请求体上限
const maxBodyBytes = 10 << 20

// ScheduleHandler 排班处理器
type ScheduleHandler struct {
	service *service.ScheduleService
}

// NewScheduleHandler 创建排班处理器
func NewScheduleHandler(svc *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// SelectRequest 采用草案请求
type SelectRequest struct {
	DraftID uuid.UUID `json:"draft_id"`
}

// MatrixRequest 相性表解析请求
type MatrixRequest struct {
	Grid [][]string `json:"grid"`
}

// RosterResponse 希望表解析结果
type RosterResponse struct {
	Labels []string       `json:"labels"`
	Nurses []*model.Nurse `json:"nurses"`
}

// BatchSummary 批次列表项，不含草案明细
type BatchSummary struct {
	ID         uuid.UUID       `json:"id"`
	Year       int             `json:"year"`
	Month      int             `json:"month"`
	Range      model.DateRange `json:"range"`
	Drafts     int             `json:"drafts"`
	BestScore  float64         `json:"best_score"`
	SelectedID *uuid.UUID      `json:"selected_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ListResponse 批次列表响应
type ListResponse struct {
	Batches []BatchSummary `json:"batches"`
	Total   int            `json:"total"`
}

// GenerateDrafts 生成一批排班草案
func (h *ScheduleHandler) GenerateDrafts(w http.ResponseWriter, r *http.Request) {
	var req service.GenerateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	batch, err := h.service.Generate(r.Context(), &req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, batch)
}

// ListBatches 分页列出草案批次
func (h *ScheduleHandler) ListBatches(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	batches, total, err := h.service.ListBatches(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := ListResponse{Batches: make([]BatchSummary, 0, len(batches)), Total: total}
	for _, b := range batches {
		resp.Batches = append(resp.Batches, summarize(b))
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetBatch 查询草案批次
func (h *ScheduleHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	batch, err := h.service.GetBatch(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, batch)
}

// SelectDraft 采用批次中的一份草案
func (h *ScheduleHandler) SelectDraft(w http.ResponseWriter, r *http.Request) {
	batchID, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req SelectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.DraftID == uuid.Nil {
		respondError(w, r, errors.InvalidInput("draft_id", "不能为空"))
		return
	}

	batch, err := h.service.SelectDraft(r.Context(), batchID, req.DraftID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, batch)
}

// ExportDraft 导出草案为CSV
func (h *ScheduleHandler) ExportDraft(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	// 先写入缓冲区，出错时仍可返回JSON错误
	var buf bytes.Buffer
	if err := h.service.ExportDraft(r.Context(), id, &buf); err != nil {
		respondError(w, r, err)
		return
	}

	respondCSV(w, id, buf.Bytes())
}

// ExportSelected 导出批次中已选定的草案
func (h *ScheduleHandler) ExportSelected(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var buf bytes.Buffer
	d, err := h.service.ExportSelected(r.Context(), id, &buf)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondCSV(w, d.ID, buf.Bytes())
}

// Validate 检查排班冲突
func (h *ScheduleHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req service.ValidateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	resp, err := h.service.Validate(&req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// ParseMatrix 解析相性表
func (h *ScheduleHandler) ParseMatrix(w http.ResponseWriter, r *http.Request) {
	var req MatrixRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	m, err := h.service.ParseMatrix(req.Grid)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, m)
}

// ParseRoster 解析CSV格式的希望表，year 由查询参数给出
func (h *ScheduleHandler) ParseRoster(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 2000 || year > 2100 {
		respondError(w, r, errors.InvalidInput("year", "需要 2000-2100 之间的年份"))
		return
	}

	nurses, horizon, err := roster.ReadRequests(http.MaxBytesReader(w, r.Body, maxBodyBytes), year)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, RosterResponse{Labels: horizon.Labels(), Nurses: nurses})
}

func summarize(b *repository.Batch) BatchSummary {
	s := BatchSummary{
		ID:         b.ID,
		Year:       b.Year,
		Month:      b.Month,
		Range:      b.Range,
		Drafts:     len(b.Drafts),
		SelectedID: b.SelectedID,
		CreatedAt:  b.CreatedAt,
	}
	if best := bestDraft(b.Drafts); best != nil {
		s.BestScore = best.Score
	}
	return s
}

// bestDraft 返回得分最低的草案
func bestDraft(drafts []*draft.Draft) *draft.Draft {
	var best *draft.Draft
	for _, d := range drafts {
		if best == nil || d.Score < best.Score {
			best = d
		}
	}
	return best
}

func parseListFilter(r *http.Request) (repository.ListFilter, error) {
	filter := repository.DefaultListFilter()
	q := r.URL.Query()

	ints := map[string]int{}
	for _, key := range []string{"year", "month", "limit", "offset"} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return filter, errors.InvalidInput(key, "需要非负整数")
		}
		ints[key] = v
	}

	if v, ok := ints["limit"]; ok {
		filter = filter.WithLimit(v)
	}
	if v, ok := ints["offset"]; ok {
		filter = filter.WithOffset(v)
	}
	if ints["year"] > 0 || ints["month"] > 0 {
		filter = filter.WithPeriod(ints["year"], ints["month"])
	}
	return filter, nil
}

func pathID(r *http.Request, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, key))
	if err != nil {
		return uuid.Nil, errors.Wrap(err, errors.CodeInvalidInput, "无效的ID格式")
	}
	return id, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败")
	}
	return nil
}

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError 返回错误响应，服务端错误记录日志
func respondCSV(w http.ResponseWriter, draftID uuid.UUID, data []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="draft-%s.csv"`, draftID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := errors.From(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.WithContext(r.Context()).Error().Err(err).Msg("请求处理失败")
	}

	respondJSON(w, appErr.HTTPStatus, appErr.Body())
}
