package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BaSui01/researchflow/internal/database"
	"github.com/BaSui01/researchflow/workflow"
)

const sqlWriteRetries = 3

// checkpointRecord 表结构，(thread_id, version) 唯一
type checkpointRecord struct {
	ID        string    `gorm:"primaryKey;size:64"`
	ThreadID  string    `gorm:"size:128;not null;uniqueIndex:idx_thread_version,priority:1"`
	Version   int       `gorm:"not null;uniqueIndex:idx_thread_version,priority:2"`
	ParentID  string    `gorm:"size:64"`
	Source    string    `gorm:"size:32"`
	Next      string    `gorm:"size:32"`
	Data      []byte    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (checkpointRecord) TableName() string { return "workflow_checkpoints" }

// SQLStore 基于 GORM 的 checkpoint 存储
type SQLStore struct {
	pool   *database.PoolManager
	logger *zap.Logger
}

// NewSQLStore 在 pool 上创建存储并迁移表结构。Close 时关闭 pool。
func NewSQLStore(ctx context.Context, pool *database.PoolManager, logger *zap.Logger) (*SQLStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := pool.DB().WithContext(ctx).AutoMigrate(&checkpointRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate checkpoint table: %w", err)
	}
	return &SQLStore{
		pool:   pool,
		logger: logger.With(zap.String("store", "sql_checkpoint")),
	}, nil
}

// Save 按 (thread_id, version) 写入或覆盖
func (s *SQLStore) Save(ctx context.Context, cp *workflow.Checkpoint) error {
	if err := validateCheckpoint(cp); err != nil {
		return err
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	rec := checkpointRecord{
		ID:        cp.ID,
		ThreadID:  cp.ThreadID,
		Version:   cp.Version,
		ParentID:  cp.ParentID,
		Source:    cp.Source,
		Next:      cp.Next.String(),
		Data:      data,
		CreatedAt: cp.CreatedAt,
	}

	err = s.pool.WithTransactionRetry(ctx, sqlWriteRetries, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "thread_id"}, {Name: "version"}},
			DoUpdates: clause.AssignmentColumns([]string{"id", "parent_id", "source", "next", "data", "created_at"}),
		}).Create(&rec).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	s.logger.Debug("checkpoint saved to database",
		zap.String("thread_id", cp.ThreadID),
		zap.Int("version", cp.Version),
	)
	return nil
}

// LoadLatest 读取版本号最大的记录
func (s *SQLStore) LoadLatest(ctx context.Context, threadID string) (*workflow.Checkpoint, error) {
	var rec checkpointRecord
	err := s.pool.DB().WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("version DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("thread %s: %w", threadID, workflow.ErrCheckpointNotFound)
	}
	if err != nil {
		return nil, err
	}
	return rec.decode()
}

// LoadVersion 读取指定版本
func (s *SQLStore) LoadVersion(ctx context.Context, threadID string, version int) (*workflow.Checkpoint, error) {
	var rec checkpointRecord
	err := s.pool.DB().WithContext(ctx).
		Where("thread_id = ? AND version = ?", threadID, version).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("thread %s version %d: %w", threadID, version, workflow.ErrCheckpointNotFound)
	}
	if err != nil {
		return nil, err
	}
	return rec.decode()
}

// ListVersions 按版本升序返回
func (s *SQLStore) ListVersions(ctx context.Context, threadID string) ([]*workflow.Checkpoint, error) {
	var recs []checkpointRecord
	err := s.pool.DB().WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("version ASC").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	out := make([]*workflow.Checkpoint, 0, len(recs))
	for i := range recs {
		cp, err := recs[i].decode()
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

// DeleteThread 删除 thread 的全部记录
func (s *SQLStore) DeleteThread(ctx context.Context, threadID string) error {
	return s.pool.WithTransaction(ctx, func(tx *gorm.DB) error {
		return tx.Where("thread_id = ?", threadID).Delete(&checkpointRecord{}).Error
	})
}

// Close 关闭连接池
func (s *SQLStore) Close() error {
	stats := s.pool.GetStats()
	s.logger.Debug("closing checkpoint database",
		zap.Int("open_connections", stats.OpenConnections),
		zap.Int64("wait_count", stats.WaitCount),
		zap.Duration("wait_duration", stats.WaitDuration),
	)
	return s.pool.Close()
}

func (r *checkpointRecord) decode() (*workflow.Checkpoint, error) {
	var cp workflow.Checkpoint
	if err := json.Unmarshal(r.Data, &cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint %s: %w", r.ID, err)
	}
	return &cp, nil
}
