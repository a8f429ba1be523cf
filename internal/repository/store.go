package repository

import (
	"context"
	"fmt"

	"github.com/paiban/nurseshift/internal/config"
	"github.com/paiban/nurseshift/internal/database"
	"github.com/paiban/nurseshift/pkg/logger"
)

// Store 按配置选择的草案仓储及其底层连接
type Store struct {
	Repo DraftRepository
	db   *database.DB // memory 模式下为 nil
}

// Open 根据 Driver 打开仓储：memory 使用进程内存储，postgres 连接数据库并建表
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*Store, error) {
	switch cfg.Driver {
	case "", "memory":
		logger.Info().Msg("使用内存草案仓储")
		return &Store{Repo: NewMemoryDraftRepository()}, nil
	case "postgres":
		db, err := database.New(cfg)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &Store{Repo: NewPostgresDraftRepository(db), db: db}, nil
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", cfg.Driver)
	}
}

// Health 检查底层连接，内存仓储始终可用
func (s *Store) Health(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.Health(ctx)
}

// Close 关闭底层连接
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
