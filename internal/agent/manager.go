package agent

import (
	"context"
	"sync"

	"studypilot/internal/decision"
)

// Manager owns one loop per user. Loops are created lazily and kept after a
// stop so history and last-known state remain queryable.
type Manager struct {
	mu       sync.RWMutex
	loops    map[string]*Loop
	settings Settings
	deps     Deps
}

func NewManager(settings Settings, deps Deps) *Manager {
	return &Manager{
		loops:    make(map[string]*Loop),
		settings: settings.normalized(),
		deps:     deps,
	}
}

func (m *Manager) loopFor(userID string) *Loop {
	m.mu.RLock()
	l, ok := m.loops[userID]
	m.mu.RUnlock()
	if ok {
		return l
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.loops[userID]; ok {
		return l
	}
	l = NewLoop(userID, m.settings, m.deps)
	m.loops[userID] = l
	return l
}

func (m *Manager) lookup(userID string) (*Loop, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.loops[userID]
	if !ok {
		return nil, ErrAgentNotFound
	}
	return l, nil
}

// Start launches (or resumes) the agent for a user. Starting twice is a
// no-op and returns the current state.
func (m *Manager) Start(userID string) State {
	l := m.loopFor(userID)
	l.Start()
	return l.State()
}

// Stop halts the agent's background cycles. The loop and its history are
// retained.
func (m *Manager) Stop(userID string) (State, error) {
	l, err := m.lookup(userID)
	if err != nil {
		return State{}, err
	}
	l.Stop()
	return l.State(), nil
}

// Status reports the agent's last-known state.
func (m *Manager) Status(userID string) (State, error) {
	l, err := m.lookup(userID)
	if err != nil {
		return State{}, err
	}
	return l.State(), nil
}

// Trigger runs one cycle immediately, outside the ticker cadence. A cycle
// already in flight makes the trigger a skip, not a queue entry.
func (m *Manager) Trigger(ctx context.Context, userID string) (CycleResult, error) {
	return m.loopFor(userID).Cycle(ctx)
}

// Actions returns the retained action history for a user. A positive limit
// keeps only the most recent entries.
func (m *Manager) Actions(userID string, limit int) ([]Action, error) {
	l, err := m.lookup(userID)
	if err != nil {
		return nil, err
	}
	return l.Actions(limit), nil
}

// Decisions returns the retained decision history for a user. A positive
// limit keeps only the most recent entries.
func (m *Manager) Decisions(userID string, limit int) ([]decision.Decision, error) {
	l, err := m.lookup(userID)
	if err != nil {
		return nil, err
	}
	return l.Decisions(limit), nil
}

// Subscribe attaches a live action feed for a user, creating the loop if
// needed.
func (m *Manager) Subscribe(userID string) (<-chan Action, func()) {
	return m.loopFor(userID).Subscribe()
}

// StopAll halts every running loop. Used during shutdown.
func (m *Manager) StopAll() {
	m.mu.RLock()
	loops := make([]*Loop, 0, len(m.loops))
	for _, l := range m.loops {
		loops = append(loops, l)
	}
	m.mu.RUnlock()
	for _, l := range loops {
		l.Stop()
	}
}
