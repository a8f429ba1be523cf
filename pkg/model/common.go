package model

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel 基础模型（包含通用字段）
type BaseModel struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewBaseModel 创建新的基础模型
func NewBaseModel() BaseModel {
	now := time.Now()
	return BaseModel{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch 更新修改时间
func (b *BaseModel) Touch() {
	b.UpdatedAt = time.Now()
}

// DateRange 日期范围
type DateRange struct {
	StartDate string `json:"start_date"` // YYYY-MM-DD
	EndDate   string `json:"end_date"`   // YYYY-MM-DD
}

// Range 返回周期的起止日期
func (h Horizon) Range() DateRange {
	if len(h) == 0 {
		return DateRange{}
	}
	return DateRange{
		StartDate: h[0].Date.Format(time.DateOnly),
		EndDate:   h[len(h)-1].Date.Format(time.DateOnly),
	}
}
