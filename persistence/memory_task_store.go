package persistence

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/Arashek/ADE-stable-1.0-sub011/task"
)

// MemoryTaskStore keeps tasks in process memory. State is lost on restart.
type MemoryTaskStore struct {
	tasks  map[string]*task.Task
	logger *zap.Logger
	mu     sync.RWMutex
	closed bool
}

// NewMemoryTaskStore creates an empty in-memory task store.
func NewMemoryTaskStore(logger *zap.Logger) *MemoryTaskStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryTaskStore{
		tasks:  make(map[string]*task.Task),
		logger: logger.With(zap.String("component", "memory_task_store")),
	}
}

func (s *MemoryTaskStore) Save(ctx context.Context, t *task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	s.tasks[t.ID] = t.Clone()
	return nil
}

func (s *MemoryTaskStore) Get(ctx context.Context, id string) (*task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t.Clone(), nil
}

func (s *MemoryTaskStore) List(ctx context.Context, filter TaskFilter) ([]*task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	matched := make([]*task.Task, 0)
	for _, t := range s.tasks {
		if filter.matches(t) {
			matched = append(matched, t)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	matched = paginate(matched, filter.Offset, filter.Limit)
	result := make([]*task.Task, len(matched))
	for i, t := range matched {
		result[i] = t.Clone()
	}
	return result, nil
}

func (s *MemoryTaskStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if _, ok := s.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *MemoryTaskStore) CountByStatus(ctx context.Context) (map[task.Status]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	counts := make(map[task.Status]int64)
	for _, t := range s.tasks {
		counts[t.Status]++
	}
	return counts, nil
}

func (s *MemoryTaskStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

func (s *MemoryTaskStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
