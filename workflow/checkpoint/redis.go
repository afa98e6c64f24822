package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/researchflow/workflow"
)

const defaultRedisKeyPrefix = "researchflow:checkpoint"

// RedisStore 基于 Redis 的 checkpoint 存储。
// thread 索引为有序集合（score 为版本号），版本数据为独立的字符串 key。
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStore 在已有客户端上创建存储。ttl 为 0 表示永不过期。
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration, logger *zap.Logger) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisKeyPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger.With(zap.String("store", "redis_checkpoint")),
	}
}

// Save 写入版本数据并更新索引
func (s *RedisStore) Save(ctx context.Context, cp *workflow.Checkpoint) error {
	if err := validateCheckpoint(cp); err != nil {
		return err
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	threadKey := s.threadKey(cp.ThreadID)
	member := strconv.Itoa(cp.Version)

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.versionKey(cp.ThreadID, cp.Version), data, s.ttl)
	pipe.ZAdd(ctx, threadKey, redis.Z{Score: float64(cp.Version), Member: member})
	if s.ttl > 0 {
		pipe.Expire(ctx, threadKey, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	s.logger.Debug("checkpoint saved to redis",
		zap.String("thread_id", cp.ThreadID),
		zap.Int("version", cp.Version),
	)
	return nil
}

// LoadLatest 读取索引中分数最高的版本
func (s *RedisStore) LoadLatest(ctx context.Context, threadID string) (*workflow.Checkpoint, error) {
	members, err := s.client.ZRevRange(ctx, s.threadKey(threadID), 0, 0).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("thread %s: %w", threadID, workflow.ErrCheckpointNotFound)
	}
	version, err := strconv.Atoi(members[0])
	if err != nil {
		return nil, fmt.Errorf("corrupt version index for thread %s: %w", threadID, err)
	}
	return s.LoadVersion(ctx, threadID, version)
}

// LoadVersion 读取指定版本
func (s *RedisStore) LoadVersion(ctx context.Context, threadID string, version int) (*workflow.Checkpoint, error) {
	data, err := s.client.Get(ctx, s.versionKey(threadID, version)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("thread %s version %d: %w", threadID, version, workflow.ErrCheckpointNotFound)
	}
	if err != nil {
		return nil, err
	}
	return decodeCheckpoint(data)
}

// ListVersions 按版本升序返回，已过期的版本数据会被跳过
func (s *RedisStore) ListVersions(ctx context.Context, threadID string) ([]*workflow.Checkpoint, error) {
	members, err := s.client.ZRange(ctx, s.threadKey(threadID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*workflow.Checkpoint, 0, len(members))
	if len(members) == 0 {
		return out, nil
	}

	keys := make([]string, 0, len(members))
	for _, m := range members {
		v, err := strconv.Atoi(m)
		if err != nil {
			return nil, fmt.Errorf("corrupt version index for thread %s: %w", threadID, err)
		}
		keys = append(keys, s.versionKey(threadID, v))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			s.logger.Warn("checkpoint data missing", zap.String("key", keys[i]))
			continue
		}
		cp, err := decodeCheckpoint([]byte(str))
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

// DeleteThread 删除索引与全部版本数据
func (s *RedisStore) DeleteThread(ctx context.Context, threadID string) error {
	threadKey := s.threadKey(threadID)
	members, err := s.client.ZRange(ctx, threadKey, 0, -1).Result()
	if err != nil {
		return err
	}

	keys := []string{threadKey}
	for _, m := range members {
		if v, err := strconv.Atoi(m); err == nil {
			keys = append(keys, s.versionKey(threadID, v))
		}
	}
	return s.client.Del(ctx, keys...).Err()
}

// Close 关闭客户端
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) threadKey(threadID string) string {
	return fmt.Sprintf("%s:thread:%s", s.prefix, threadID)
}

func (s *RedisStore) versionKey(threadID string, version int) string {
	return fmt.Sprintf("%s:data:%s:%d", s.prefix, threadID, version)
}

func decodeCheckpoint(data []byte) (*workflow.Checkpoint, error) {
	var cp workflow.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}
