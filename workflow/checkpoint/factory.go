package checkpoint

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/researchflow/config"
	"github.com/BaSui01/researchflow/internal/database"
	"github.com/BaSui01/researchflow/workflow"
)

// Store types
const (
	TypeMemory = "memory"
	TypeFile   = "file"
	TypeSQL    = "sql"
	TypeRedis  = "redis"
)

// NewStore 根据配置创建 checkpoint 后端
func NewStore(ctx context.Context, cfg config.CheckpointConfig, logger *zap.Logger) (workflow.CheckpointStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Type {
	case TypeMemory:
		return workflow.NewInMemoryCheckpointStore(), nil

	case TypeFile:
		return NewFileStore(cfg.BaseDir, logger)

	case TypeSQL, "":
		pool, err := database.Open(cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		store, err := NewSQLStore(ctx, pool, logger)
		if err != nil {
			_ = pool.Close()
			return nil, err
		}
		return store, nil

	case TypeRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return NewRedisStore(client, cfg.Redis.KeyPrefix, cfg.Redis.TTL, logger), nil

	default:
		return nil, fmt.Errorf("unsupported checkpoint type: %s (supported: memory, file, sql, redis)", cfg.Type)
	}
}
