package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/paiban/nurseshift/pkg/errors"
	"github.com/paiban/nurseshift/pkg/scheduler/draft"
)

// MemoryDraftRepository 进程内草案仓储。
// 保存的批次是快照，之后只会整体替换，不会原地修改，因此返回给调用方的批次可以在锁外读取。
type MemoryDraftRepository struct {
	mu      sync.RWMutex
	batches map[uuid.UUID]*Batch
	drafts  map[uuid.UUID]uuid.UUID // 草案ID -> 批次ID
}

// NewMemoryDraftRepository 创建内存仓储
func NewMemoryDraftRepository() *MemoryDraftRepository {
	return &MemoryDraftRepository{
		batches: make(map[uuid.UUID]*Batch),
		drafts:  make(map[uuid.UUID]uuid.UUID),
	}
}

// Save 保存批次快照，已存在时覆盖
func (r *MemoryDraftRepository) Save(ctx context.Context, batch *Batch) error {
	if batch.ID == uuid.Nil {
		batch.ID = uuid.New()
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.batches[batch.ID]; ok {
		for _, d := range old.Drafts {
			delete(r.drafts, d.ID)
		}
	}
	r.batches[batch.ID] = batch.clone()
	for _, d := range batch.Drafts {
		r.drafts[d.ID] = batch.ID
	}
	return nil
}

// Get 根据ID获取批次
func (r *MemoryDraftRepository) Get(ctx context.Context, id uuid.UUID) (*Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.batches[id]
	if !ok {
		return nil, errors.NotFound("草案批次", id.String())
	}
	return b, nil
}

// FindDraft 根据草案ID获取草案及其批次
func (r *MemoryDraftRepository) FindDraft(ctx context.Context, draftID uuid.UUID) (*Batch, *draft.Draft, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	batchID, ok := r.drafts[draftID]
	if !ok {
		return nil, nil, errors.NotFound("草案", draftID.String())
	}
	b := r.batches[batchID]
	return b, b.Draft(draftID), nil
}

// Select 选定批次中的一份草案
func (r *MemoryDraftRepository) Select(ctx context.Context, batchID, draftID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.batches[batchID]
	if !ok {
		return errors.NotFound("草案批次", batchID.String())
	}
	if b.Draft(draftID) == nil {
		return errors.NotFound("草案", draftID.String())
	}
	id := draftID
	updated := *b
	updated.SelectedID = &id
	updated.Touch()
	r.batches[batchID] = &updated
	return nil
}

// List 按创建时间倒序列出批次
func (r *MemoryDraftRepository) List(ctx context.Context, filter ListFilter) ([]*Batch, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*Batch
	for _, b := range r.batches {
		if filter.matches(b) {
			matched = append(matched, b)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	total := len(matched)
	if filter.Offset >= total {
		return []*Batch{}, total, nil
	}
	end := total
	if filter.Limit > 0 && filter.Offset+filter.Limit < end {
		end = filter.Offset + filter.Limit
	}
	return matched[filter.Offset:end], total, nil
}
