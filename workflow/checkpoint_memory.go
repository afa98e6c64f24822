package workflow

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// InMemoryCheckpointStore 进程内 checkpoint 存储，进程退出即丢失。
type InMemoryCheckpointStore struct {
	threads map[string][]*Checkpoint
	mu      sync.RWMutex
}

// NewInMemoryCheckpointStore creates an empty store.
func NewInMemoryCheckpointStore() *InMemoryCheckpointStore {
	return &InMemoryCheckpointStore{
		threads: make(map[string][]*Checkpoint),
	}
}

func (s *InMemoryCheckpointStore) Save(ctx context.Context, cp *Checkpoint) error {
	if cp == nil || cp.ThreadID == "" {
		return fmt.Errorf("checkpoint thread id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	versions := s.threads[cp.ThreadID]
	for i, existing := range versions {
		if existing.Version == cp.Version {
			versions[i] = cp.Clone()
			return nil
		}
	}
	versions = append(versions, cp.Clone())
	sort.Slice(versions, func(i, j int) bool { return versions[i].Version < versions[j].Version })
	s.threads[cp.ThreadID] = versions
	return nil
}

func (s *InMemoryCheckpointStore) LoadLatest(ctx context.Context, threadID string) (*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.threads[threadID]
	if len(versions) == 0 {
		return nil, fmt.Errorf("thread %s: %w", threadID, ErrCheckpointNotFound)
	}
	return versions[len(versions)-1].Clone(), nil
}

func (s *InMemoryCheckpointStore) LoadVersion(ctx context.Context, threadID string, version int) (*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, cp := range s.threads[threadID] {
		if cp.Version == version {
			return cp.Clone(), nil
		}
	}
	return nil, fmt.Errorf("thread %s version %d: %w", threadID, version, ErrCheckpointNotFound)
}

func (s *InMemoryCheckpointStore) ListVersions(ctx context.Context, threadID string) ([]*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.threads[threadID]
	out := make([]*Checkpoint, 0, len(versions))
	for _, cp := range versions {
		out = append(out, cp.Clone())
	}
	return out, nil
}

func (s *InMemoryCheckpointStore) DeleteThread(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.threads, threadID)
	return nil
}

func (s *InMemoryCheckpointStore) Close() error { return nil }
