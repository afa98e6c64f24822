package workflow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/researchflow/types"
)

// SourceInput 标记 thread 的初始 checkpoint（由输入而非节点产生）
const SourceInput = "input"

// Checkpoint 是某个 thread 在一次节点转换之后的版本化快照。
type Checkpoint struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id"`
	Version  int    `json:"version"`
	ParentID string `json:"parent_id,omitempty"`
	// Source 产生该 checkpoint 的节点名，初始 checkpoint 为 "input"
	Source string `json:"source"`
	// Next 恢复时要执行的节点
	Next      Node              `json:"next"`
	State     State             `json:"state"`
	CreatedAt time.Time         `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Clone returns a deep copy of the checkpoint.
func (c *Checkpoint) Clone() *Checkpoint {
	if c == nil {
		return nil
	}
	out := *c
	out.State = c.State.clone()
	if c.Metadata != nil {
		out.Metadata = make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

// CheckpointStore checkpoint 存储后端。
//
// LoadLatest / LoadVersion 在不存在时返回 ErrCheckpointNotFound（可包装）。
// ListVersions 按版本升序返回，thread 不存在时返回空切片。
type CheckpointStore interface {
	Save(ctx context.Context, cp *Checkpoint) error
	LoadLatest(ctx context.Context, threadID string) (*Checkpoint, error)
	LoadVersion(ctx context.Context, threadID string, version int) (*Checkpoint, error)
	ListVersions(ctx context.Context, threadID string) ([]*Checkpoint, error)
	DeleteThread(ctx context.Context, threadID string) error
	Close() error
}

// CheckpointManager 在 store 之上实现按 thread 合并写入的版本化 checkpoint。
type CheckpointManager struct {
	store  CheckpointStore
	logger *zap.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// NewCheckpointManager creates a manager over store.
func NewCheckpointManager(store CheckpointStore, logger *zap.Logger) *CheckpointManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckpointManager{
		store:  store,
		logger: logger.With(zap.String("component", "checkpoint_manager")),
		now:    time.Now,
	}
}

// Store returns the underlying backend.
func (m *CheckpointManager) Store() CheckpointStore {
	return m.store
}

// Load 返回 thread 的最新 checkpoint，不存在时返回 (nil, nil)。
func (m *CheckpointManager) Load(ctx context.Context, threadID string) (*Checkpoint, error) {
	cp, err := m.store.LoadLatest(ctx, threadID)
	if err != nil {
		if errors.Is(err, ErrCheckpointNotFound) {
			return nil, nil
		}
		return nil, checkpointError("load", threadID, err)
	}
	return cp, nil
}

// Save 把 update 合并到最新状态上，并以 next 作为恢复节点写入新版本。
func (m *CheckpointManager) Save(ctx context.Context, threadID, source string, update Update, next Node) (*Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	latest, err := m.Load(ctx, threadID)
	if err != nil {
		return nil, err
	}

	cp := &Checkpoint{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		Version:   1,
		Source:    source,
		Next:      next,
		CreatedAt: m.now().UTC(),
	}
	var base State
	if latest != nil {
		base = latest.State
		cp.Version = latest.Version + 1
		cp.ParentID = latest.ID
	}
	cp.State = Merge(base, update)

	if err := m.store.Save(ctx, cp); err != nil {
		return nil, checkpointError("save", threadID, err)
	}

	m.logger.Debug("checkpoint saved",
		zap.String("thread_id", threadID),
		zap.String("source", source),
		zap.String("next", next.String()),
		zap.Int("version", cp.Version),
	)
	return cp, nil
}

// Get 返回 thread 的最新状态。
func (m *CheckpointManager) Get(ctx context.Context, threadID string) (State, error) {
	cp, err := m.Load(ctx, threadID)
	if err != nil {
		return State{}, err
	}
	if cp == nil {
		return State{}, types.Errorf(types.ErrCheckpointFailed, "thread %s has no checkpoints", threadID).
			WithCause(ErrCheckpointNotFound)
	}
	return cp.State, nil
}

// History 按版本升序返回 thread 的全部 checkpoint。
func (m *CheckpointManager) History(ctx context.Context, threadID string) ([]*Checkpoint, error) {
	cps, err := m.store.ListVersions(ctx, threadID)
	if err != nil {
		return nil, checkpointError("list", threadID, err)
	}
	return cps, nil
}

// Rollback 以 version 的状态与恢复节点追加一个新版本，下一次运行从那里继续。
func (m *CheckpointManager) Rollback(ctx context.Context, threadID string, version int) (*Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	target, err := m.store.LoadVersion(ctx, threadID, version)
	if err != nil {
		return nil, checkpointError(fmt.Sprintf("load version %d", version), threadID, err)
	}
	latest, err := m.store.LoadLatest(ctx, threadID)
	if err != nil {
		return nil, checkpointError("load", threadID, err)
	}

	cp := target.Clone()
	cp.ID = uuid.NewString()
	cp.Version = latest.Version + 1
	cp.ParentID = latest.ID
	cp.CreatedAt = m.now().UTC()
	if cp.Metadata == nil {
		cp.Metadata = make(map[string]string)
	}
	cp.Metadata["rollback_from"] = strconv.Itoa(version)

	if err := m.store.Save(ctx, cp); err != nil {
		return nil, checkpointError("save", threadID, err)
	}

	m.logger.Info("rolled back to version",
		zap.String("thread_id", threadID),
		zap.Int("version", version),
		zap.Int("new_version", cp.Version),
	)
	return cp, nil
}

// DeleteThread 删除 thread 的全部 checkpoint。
func (m *CheckpointManager) DeleteThread(ctx context.Context, threadID string) error {
	if err := m.store.DeleteThread(ctx, threadID); err != nil {
		return checkpointError("delete", threadID, err)
	}
	m.logger.Info("thread deleted", zap.String("thread_id", threadID))
	return nil
}

func checkpointError(op, threadID string, err error) error {
	return types.Errorf(types.ErrCheckpointFailed, "checkpoint %s failed for thread %s", op, threadID).
		WithCause(err)
}
