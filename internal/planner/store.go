package planner

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var ErrPlanNotFound = errors.New("plan not found in store")

// Store persists the current weekly plan per user. Saving replaces the
// previous plan; history is not kept here.
type Store interface {
	SavePlan(ctx context.Context, plan WeeklyPlan) error
	LoadPlan(ctx context.Context, userID string) (WeeklyPlan, error)
	Close() error
}

// NewStore creates a postgres-backed store when configured, otherwise in-memory.
func NewStore(ctx context.Context, databaseURL string) (Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewInMemoryStore(), nil
	}
	return NewPostgresStore(ctx, databaseURL)
}

// InMemoryStore is a simple in-process plan store for local/dev use.
type InMemoryStore struct {
	mu    sync.RWMutex
	plans map[string]WeeklyPlan
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{plans: make(map[string]WeeklyPlan)}
}

func (s *InMemoryStore) SavePlan(_ context.Context, plan WeeklyPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[plan.UserID] = plan.Clone()
	return nil
}

func (s *InMemoryStore) LoadPlan(_ context.Context, userID string) (WeeklyPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	plan, ok := s.plans[userID]
	if !ok {
		return WeeklyPlan{}, ErrPlanNotFound
	}
	return plan.Clone(), nil
}

func (s *InMemoryStore) Close() error { return nil }
