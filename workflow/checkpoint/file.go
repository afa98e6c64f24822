package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/researchflow/workflow"
)

const versionFileExt = ".json"

// FileStore 基于本地文件系统的 checkpoint 存储
type FileStore struct {
	baseDir string
	logger  *zap.Logger
	mu      sync.RWMutex
}

// NewFileStore 创建文件存储，目录不存在时自动创建
func NewFileStore(baseDir string, logger *zap.Logger) (*FileStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("checkpoint base dir is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &FileStore{
		baseDir: baseDir,
		logger:  logger.With(zap.String("store", "file_checkpoint")),
	}, nil
}

// Save 写入单个版本文件
func (s *FileStore) Save(ctx context.Context, cp *workflow.Checkpoint) error {
	if err := validateCheckpoint(cp); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.threadDir(cp.ThreadID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create thread directory: %w", err)
	}

	// 先写临时文件再 rename，避免读到半截文件
	path := filepath.Join(dir, versionFileName(cp.Version))
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to commit checkpoint: %w", err)
	}

	s.logger.Debug("checkpoint saved to file",
		zap.String("thread_id", cp.ThreadID),
		zap.Int("version", cp.Version),
	)
	return nil
}

// LoadLatest 读取版本号最大的文件
func (s *FileStore) LoadLatest(ctx context.Context, threadID string) (*workflow.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions, err := s.versions(threadID)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("thread %s: %w", threadID, workflow.ErrCheckpointNotFound)
	}
	return s.read(threadID, versions[len(versions)-1])
}

// LoadVersion 读取指定版本
func (s *FileStore) LoadVersion(ctx context.Context, threadID string, version int) (*workflow.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, err := s.read(threadID, version)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("thread %s version %d: %w", threadID, version, workflow.ErrCheckpointNotFound)
	}
	return cp, err
}

// ListVersions 按版本升序返回全部 checkpoint
func (s *FileStore) ListVersions(ctx context.Context, threadID string) ([]*workflow.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions, err := s.versions(threadID)
	if err != nil {
		return nil, err
	}
	out := make([]*workflow.Checkpoint, 0, len(versions))
	for _, v := range versions {
		cp, err := s.read(threadID, v)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

// DeleteThread 删除 thread 目录
func (s *FileStore) DeleteThread(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return os.RemoveAll(s.threadDir(threadID))
}

// Close 无需释放资源
func (s *FileStore) Close() error { return nil }

func (s *FileStore) threadDir(threadID string) string {
	return filepath.Join(s.baseDir, filepath.Base(threadID))
}

// versions 返回升序版本号，目录不存在时返回空
func (s *FileStore) versions(threadID string) ([]int, error) {
	entries, err := os.ReadDir(s.threadDir(threadID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read thread directory: %w", err)
	}

	var versions []int
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, versionFileExt) {
			continue
		}
		v, err := strconv.Atoi(strings.TrimSuffix(name, versionFileExt))
		if err != nil {
			continue
		}
		versions = append(versions, v)
	}
	sort.Ints(versions)
	return versions, nil
}

func (s *FileStore) read(threadID string, version int) (*workflow.Checkpoint, error) {
	data, err := os.ReadFile(filepath.Join(s.threadDir(threadID), versionFileName(version)))
	if err != nil {
		return nil, err
	}
	var cp workflow.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}

func versionFileName(version int) string {
	return fmt.Sprintf("%08d%s", version, versionFileExt)
}

func validateCheckpoint(cp *workflow.Checkpoint) error {
	if cp == nil || cp.ThreadID == "" {
		return fmt.Errorf("checkpoint thread id is required")
	}
	if cp.Version <= 0 {
		return fmt.Errorf("checkpoint version must be positive")
	}
	return nil
}
