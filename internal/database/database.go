// Package database 提供 PostgreSQL 连接和表结构管理
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/paiban/nurseshift/internal/config"
	"github.com/paiban/nurseshift/pkg/logger"

	_ "github.com/lib/pq" // PostgreSQL 驱动
)

// SlowQueryThreshold 超过该耗时的语句记录为慢查询
const SlowQueryThreshold = 100 * time.Millisecond

// schema 草案批次与草案表，草案内容以 JSONB 保存
var schema = []string{
	`CREATE TABLE IF NOT EXISTS schedule_batches (
		id          UUID PRIMARY KEY,
		year        INT NOT NULL,
		month       INT NOT NULL,
		options     JSONB NOT NULL DEFAULT '{}',
		roster      JSONB NOT NULL DEFAULT '[]',
		matrix      JSONB,
		selected_id UUID,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS schedule_drafts (
		id          UUID PRIMARY KEY,
		batch_id    UUID NOT NULL REFERENCES schedule_batches(id) ON DELETE CASCADE,
		draft_index INT NOT NULL,
		seed        BIGINT NOT NULL,
		score       DOUBLE PRECISION NOT NULL,
		payload     JSONB NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (batch_id, draft_index)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_schedule_drafts_batch ON schedule_drafts(batch_id)`,
}

// DB 数据库连接封装
type DB struct {
	*sql.DB
	cfg *config.DatabaseConfig
}

// New 创建新的数据库连接
func New(cfg *config.DatabaseConfig) (*DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("打开数据库连接失败: %w", err)
	}

	// 配置连接池
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Name).
		Msg("数据库连接成功")

	return &DB{DB: db, cfg: cfg}, nil
}

// Migrate 创建草案相关的表
func (db *DB) Migrate(ctx context.Context) error {
	return db.Transaction(ctx, func(tx *sql.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("创建表结构失败: %w", err)
			}
		}
		return nil
	})
}

// Close 关闭数据库连接
func (db *DB) Close() error {
	if db.DB != nil {
		logger.Info().Msg("关闭数据库连接")
		return db.DB.Close()
	}
	return nil
}

// Health 健康检查
func (db *DB) Health(ctx context.Context) error {
	return db.PingContext(ctx)
}

// Transaction 执行事务
func (db *DB) Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开始事务失败: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("事务回滚失败: %v (原始错误: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("事务提交失败: %w", err)
	}
	return nil
}

// ExecContext 执行SQL语句
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	defer logSlow(query, time.Now())
	return db.DB.ExecContext(ctx, query, args...)
}

// QueryContext 执行查询
func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	defer logSlow(query, time.Now())
	return db.DB.QueryContext(ctx, query, args...)
}

// QueryRowContext 执行单行查询
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	defer logSlow(query, time.Now())
	return db.DB.QueryRowContext(ctx, query, args...)
}

func logSlow(query string, start time.Time) {
	if d := time.Since(start); d > SlowQueryThreshold {
		logger.Warn().
			Str("query", truncateQuery(query)).
			Dur("duration", d).
			Msg("慢SQL查询")
	}
}

// truncateQuery 截断长查询
func truncateQuery(query string) string {
	if len(query) > 200 {
		return query[:200] + "..."
	}
	return query
}
