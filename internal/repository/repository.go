// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/paiban/nurseshift/pkg/compat"
	"github.com/paiban/nurseshift/pkg/model"
	"github.com/paiban/nurseshift/pkg/scheduler/draft"
)

// Batch 一次生成得到的草案批次，以及生成时使用的输入快照
type Batch struct {
	model.BaseModel
	Year       int             `json:"year"`
	Month      int             `json:"month"`
	Range      model.DateRange `json:"range"`
	Options    draft.Options   `json:"options"`
	Nurses     []*model.Nurse  `json:"nurses"`
	Matrix     *compat.Matrix  `json:"matrix,omitempty"`
	SelectedID *uuid.UUID      `json:"selected_id,omitempty"`
	Drafts     []*draft.Draft  `json:"drafts"`
}

// NewBatch 由生成结果创建批次，批次ID沿用生成时的ID
func NewBatch(generated *draft.Batch, in *draft.Input, opts draft.Options, year, month int) *Batch {
	b := &Batch{
		BaseModel: model.NewBaseModel(),
		Year:      year,
		Month:     month,
		Range:     in.Horizon.Range(),
		Options:   opts,
		Nurses:    in.Nurses,
		Matrix:    in.Matrix,
		Drafts:    generated.Drafts,
	}
	b.ID = generated.ID
	return b
}

// Draft 按ID查找批次中的草案
func (b *Batch) Draft(id uuid.UUID) *draft.Draft {
	for _, d := range b.Drafts {
		if d.ID == id {
			return d
		}
	}
	return nil
}

// Selected 返回已选定的草案
func (b *Batch) Selected() *draft.Draft {
	if b.SelectedID == nil {
		return nil
	}
	return b.Draft(*b.SelectedID)
}

// clone 复制批次并深拷贝各草案的排班表，得到与调用方互不影响的快照
func (b *Batch) clone() *Batch {
	c := *b
	if b.SelectedID != nil {
		id := *b.SelectedID
		c.SelectedID = &id
	}
	c.Drafts = make([]*draft.Draft, len(b.Drafts))
	for i, d := range b.Drafts {
		dc := *d
		if d.Schedule != nil {
			dc.Schedule = d.Schedule.Clone()
		}
		c.Drafts[i] = &dc
	}
	return &c
}

// DraftRepository 草案批次仓储接口
type DraftRepository interface {
	Save(ctx context.Context, batch *Batch) error
	Get(ctx context.Context, id uuid.UUID) (*Batch, error)
	FindDraft(ctx context.Context, draftID uuid.UUID) (*Batch, *draft.Draft, error)
	Select(ctx context.Context, batchID, draftID uuid.UUID) error
	List(ctx context.Context, filter ListFilter) ([]*Batch, int, error)
}

// ListFilter 列表查询过滤器
type ListFilter struct {
	Year   int `json:"year,omitempty"`
	Month  int `json:"month,omitempty"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// DefaultListFilter 返回默认过滤器
func DefaultListFilter() ListFilter {
	return ListFilter{
		Offset: 0,
		Limit:  20,
	}
}

// WithLimit 设置限制
func (f ListFilter) WithLimit(limit int) ListFilter {
	f.Limit = limit
	return f
}

// WithOffset 设置偏移
func (f ListFilter) WithOffset(offset int) ListFilter {
	f.Offset = offset
	return f
}

// WithPeriod 按年月过滤
func (f ListFilter) WithPeriod(year, month int) ListFilter {
	f.Year = year
	f.Month = month
	return f
}

func (f ListFilter) matches(b *Batch) bool {
	if f.Year != 0 && b.Year != f.Year {
		return false
	}
	if f.Month != 0 && b.Month != f.Month {
		return false
	}
	return true
}

// DB 数据库接口
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// TxDB 支持事务的数据库
type TxDB interface {
	DB
	Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// Scanner 行扫描接口
type Scanner interface {
	Scan(dest ...interface{}) error
}
