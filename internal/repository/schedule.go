package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/nurseshift/pkg/compat"
	"github.com/paiban/nurseshift/pkg/errors"
	"github.com/paiban/nurseshift/pkg/model"
	"github.com/paiban/nurseshift/pkg/scheduler/draft"
)

// PostgresDraftRepository 草案仓储的 PostgreSQL 实现，草案内容存为 JSONB
type PostgresDraftRepository struct {
	db TxDB
}

// NewPostgresDraftRepository 创建 PostgreSQL 草案仓储
func NewPostgresDraftRepository(db TxDB) *PostgresDraftRepository {
	return &PostgresDraftRepository{db: db}
}

// Save 在一个事务中写入批次和全部草案
func (r *PostgresDraftRepository) Save(ctx context.Context, batch *Batch) error {
	if batch.ID == uuid.Nil {
		batch.ID = uuid.New()
	}
	now := time.Now()
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = now
	}
	batch.UpdatedAt = now

	optionsJSON, err := json.Marshal(batch.Options)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "序列化生成参数失败")
	}
	rosterJSON, err := json.Marshal(batch.Nurses)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "序列化护士名单失败")
	}
	var matrixJSON []byte
	if batch.Matrix != nil {
		if matrixJSON, err = json.Marshal(batch.Matrix); err != nil {
			return errors.Wrap(err, errors.CodeInternal, "序列化相性表失败")
		}
	}

	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO schedule_batches (
				id, year, month, options, roster, matrix, selected_id, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET
				options = EXCLUDED.options, roster = EXCLUDED.roster, matrix = EXCLUDED.matrix,
				selected_id = EXCLUDED.selected_id, updated_at = EXCLUDED.updated_at
		`
		if _, err := tx.ExecContext(ctx, query,
			batch.ID, batch.Year, batch.Month, optionsJSON, rosterJSON, matrixJSON,
			batch.SelectedID, batch.CreatedAt, batch.UpdatedAt,
		); err != nil {
			return errors.Wrap(err, errors.CodeDatabaseError, "保存草案批次失败")
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM schedule_drafts WHERE batch_id = $1", batch.ID); err != nil {
			return errors.Wrap(err, errors.CodeDatabaseError, "清理旧草案失败")
		}
		for _, d := range batch.Drafts {
			payload, err := json.Marshal(d)
			if err != nil {
				return errors.Wrap(err, errors.CodeInternal, "序列化草案失败")
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO schedule_drafts (id, batch_id, draft_index, seed, score, payload, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, d.ID, batch.ID, d.Index, int64(d.Seed), d.Score, payload, batch.CreatedAt); err != nil {
				return errors.Wrap(err, errors.CodeDatabaseError, "保存草案失败")
			}
		}
		return nil
	})
}

const batchColumns = `id, year, month, options, roster, matrix, selected_id, created_at, updated_at`

// Get 根据ID获取批次及其草案
func (r *PostgresDraftRepository) Get(ctx context.Context, id uuid.UUID) (*Batch, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedule_batches WHERE id = $1`, batchColumns)
	b, err := scanBatch(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("草案批次", id.String())
	}
	if err != nil {
		return nil, err
	}

	if b.Drafts, err = r.loadDrafts(ctx, id); err != nil {
		return nil, err
	}
	return b, nil
}

// FindDraft 根据草案ID获取草案及其批次
func (r *PostgresDraftRepository) FindDraft(ctx context.Context, draftID uuid.UUID) (*Batch, *draft.Draft, error) {
	var batchID uuid.UUID
	err := r.db.QueryRowContext(ctx, "SELECT batch_id FROM schedule_drafts WHERE id = $1", draftID).Scan(&batchID)
	if err == sql.ErrNoRows {
		return nil, nil, errors.NotFound("草案", draftID.String())
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeDatabaseError, "查询草案失败")
	}

	b, err := r.Get(ctx, batchID)
	if err != nil {
		return nil, nil, err
	}
	return b, b.Draft(draftID), nil
}

// Select 选定批次中的一份草案
func (r *PostgresDraftRepository) Select(ctx context.Context, batchID, draftID uuid.UUID) error {
	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		var exists bool
		err := tx.QueryRowContext(ctx,
			"SELECT EXISTS (SELECT 1 FROM schedule_drafts WHERE id = $1 AND batch_id = $2)",
			draftID, batchID,
		).Scan(&exists)
		if err != nil {
			return errors.Wrap(err, errors.CodeDatabaseError, "查询草案失败")
		}
		if !exists {
			return errors.NotFound("草案", draftID.String())
		}

		res, err := tx.ExecContext(ctx,
			"UPDATE schedule_batches SET selected_id = $2, updated_at = $3 WHERE id = $1",
			batchID, draftID, time.Now(),
		)
		if err != nil {
			return errors.Wrap(err, errors.CodeDatabaseError, "更新选定草案失败")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errors.NotFound("草案批次", batchID.String())
		}
		return nil
	})
}

// List 列出批次（不含草案内容）
func (r *PostgresDraftRepository) List(ctx context.Context, filter ListFilter) ([]*Batch, int, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.Year != 0 {
		conditions = append(conditions, fmt.Sprintf("year = $%d", argNum))
		args = append(args, filter.Year)
		argNum++
	}
	if filter.Month != 0 {
		conditions = append(conditions, fmt.Sprintf("month = $%d", argNum))
		args = append(args, filter.Month)
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// 计数
	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM schedule_batches %s", whereClause)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.CodeDatabaseError, "统计草案批次失败")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListFilter().Limit
	}
	query := fmt.Sprintf(`
		SELECT %s FROM schedule_batches %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, batchColumns, whereClause, argNum, argNum+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.CodeDatabaseError, "查询草案批次失败")
	}
	defer rows.Close()

	var batches []*Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, 0, err
		}
		batches = append(batches, b)
	}
	return batches, total, rows.Err()
}

func (r *PostgresDraftRepository) loadDrafts(ctx context.Context, batchID uuid.UUID) ([]*draft.Draft, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT payload FROM schedule_drafts WHERE batch_id = $1 ORDER BY draft_index",
		batchID,
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "查询草案失败")
	}
	defer rows.Close()

	var drafts []*draft.Draft
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "扫描草案失败")
		}
		d, err := decodeDraft(payload)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, d)
	}
	return drafts, rows.Err()
}

// scanBatch 扫描批次行，JSONB 列在此解码
func scanBatch(row Scanner) (*Batch, error) {
	b := &Batch{}
	var optionsJSON, rosterJSON, matrixJSON []byte
	var selected uuid.NullUUID

	err := row.Scan(
		&b.ID, &b.Year, &b.Month, &optionsJSON, &rosterJSON, &matrixJSON,
		&selected, &b.CreatedAt, &b.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "扫描草案批次失败")
	}
	if selected.Valid {
		id := selected.UUID
		b.SelectedID = &id
	}
	if err := decodeBatchJSON(b, optionsJSON, rosterJSON, matrixJSON); err != nil {
		return nil, err
	}
	return b, nil
}

func decodeBatchJSON(b *Batch, optionsJSON, rosterJSON, matrixJSON []byte) error {
	if len(optionsJSON) > 0 {
		if err := json.Unmarshal(optionsJSON, &b.Options); err != nil {
			return errors.Wrap(err, errors.CodeDatabaseError, "解析生成参数失败")
		}
	}
	if len(rosterJSON) > 0 {
		var nurses []*model.Nurse
		if err := json.Unmarshal(rosterJSON, &nurses); err != nil {
			return errors.Wrap(err, errors.CodeDatabaseError, "解析护士名单失败")
		}
		b.Nurses = nurses
	}
	if len(matrixJSON) > 0 {
		m := compat.Empty()
		if err := json.Unmarshal(matrixJSON, m); err != nil {
			return errors.Wrap(err, errors.CodeDatabaseError, "解析相性表失败")
		}
		b.Matrix = m
	}
	return nil
}

func decodeDraft(payload []byte) (*draft.Draft, error) {
	d := &draft.Draft{}
	if err := json.Unmarshal(payload, d); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "解析草案失败")
	}
	return d, nil
}
