package tasks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process task store for local/dev use.
type InMemoryStore struct {
	mu     sync.RWMutex
	tasks  map[string]Task
	byUser map[string][]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		tasks:  make(map[string]Task),
		byUser: make(map[string][]string),
	}
}

func (s *InMemoryStore) SaveTask(_ context.Context, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	if _, exists := s.tasks[task.ID]; !exists {
		s.byUser[task.UserID] = append(s.byUser[task.UserID], task.ID)
	}
	s.tasks[task.ID] = task
	return nil
}

func (s *InMemoryStore) GetTask(_ context.Context, taskID string) (Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return Task{}, ErrStoreNotFound
	}
	return t, nil
}

func (s *InMemoryStore) ListTasksByUser(_ context.Context, userID string) ([]Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byUser[userID]
	out := make([]Task, 0, len(ids))
	for _, id := range ids {
		if t, ok := s.tasks[id]; ok {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueAt.Equal(out[j].DueAt) {
			return out[i].DueAt.Before(out[j].DueAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }
