package agent

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"studypilot/internal/decision"
	"studypilot/internal/health"
	"studypilot/internal/notify"
	"studypilot/internal/observability"
	"studypilot/internal/planner"
	"studypilot/internal/sources"
	"studypilot/internal/tasks"
	"studypilot/internal/users"
)

// Deps are the collaborators one loop needs.
type Deps struct {
	Tasks    tasks.Store
	Plans    planner.Store
	Users    *users.Registry
	Sources  *sources.Aggregator
	Notifier notify.Sender
	Metrics  *observability.Metrics
}

// Loop runs the observe-decide-act cycle for a single user. Cycles execute
// single-flight: whichever of the ticker or a manual trigger arrives while a
// cycle is executing is skipped, not queued.
type Loop struct {
	userID     string
	settings   Settings
	deps       Deps
	dispatcher *Dispatcher

	inCycle atomic.Bool

	mu          sync.RWMutex
	running     bool
	cancel      context.CancelFunc
	done        chan struct{}
	lastCheck   time.Time
	lastPlanAt  time.Time
	lastNudge   time.Time
	lastScore   health.Score
	lastSources []sources.FetchResult
	conflicts   []planner.Conflict
	cyclesRun   int
	skipped     int
	failed      int
	actions     []Action
	decisions   []decision.Decision
	subscribers map[chan Action]struct{}
}

func NewLoop(userID string, settings Settings, deps Deps) *Loop {
	settings = settings.normalized()
	return &Loop{
		userID:   userID,
		settings: settings,
		deps:     deps,
		dispatcher: &Dispatcher{
			Settings: settings,
			Notifier: deps.Notifier,
		},
		subscribers: make(map[chan Action]struct{}),
	}
}

// Start launches the background cycle ticker. Starting a running loop is a
// no-op.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.running = true
	l.cancel = cancel
	l.done = make(chan struct{})
	if l.deps.Metrics != nil {
		l.deps.Metrics.ActiveAgents.Inc()
	}
	go l.run(ctx)
}

// Stop cancels the ticker and waits for an in-flight cycle to finish.
// History and last-known state survive a stop.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	cancel, done := l.cancel, l.done
	l.cancel = nil
	if l.deps.Metrics != nil {
		l.deps.Metrics.ActiveAgents.Dec()
	}
	l.mu.Unlock()

	cancel()
	<-done
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)

	// The cancellable ctx only gates scheduling. Each cycle runs detached so
	// a stop never aborts work already in flight.
	cycleCtx := context.WithoutCancel(ctx)

	if _, err := l.Cycle(cycleCtx); err != nil && !errors.Is(err, ErrCycleInProgress) {
		log.Printf("agent %s: initial cycle failed: %v", l.userID, err)
	}

	ticker := time.NewTicker(l.settings.CycleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := l.Cycle(cycleCtx); err != nil && !errors.Is(err, ErrCycleInProgress) {
				log.Printf("agent %s: cycle failed: %v", l.userID, err)
			}
		}
	}
}

// Cycle executes one full observe-decide-act pass. It is safe to call from
// any goroutine; concurrent calls beyond the first are skipped.
func (l *Loop) Cycle(ctx context.Context) (CycleResult, error) {
	if !l.inCycle.CompareAndSwap(false, true) {
		l.mu.Lock()
		l.skipped++
		l.mu.Unlock()
		l.countCycle("skipped")
		return CycleResult{}, ErrCycleInProgress
	}
	defer l.inCycle.Store(false)

	started := time.Now()
	res, err := l.cycle(ctx)
	if l.deps.Metrics != nil {
		l.deps.Metrics.ObserveCycleDuration(time.Since(started))
	}
	if err != nil {
		failure := Action{
			ID:      uuid.NewString(),
			UserID:  l.userID,
			Type:    ActionCycleFailed,
			Outcome: OutcomeFailed,
			Detail:  err.Error(),
			At:      time.Now().UTC(),
		}
		l.mu.Lock()
		l.failed++
		l.actions = appendBounded(l.actions, []Action{failure}, l.settings.HistoryLimit)
		l.mu.Unlock()
		l.countCycle("failed")
		return CycleResult{}, err
	}
	l.countCycle("completed")
	return res, nil
}

func (l *Loop) cycle(ctx context.Context) (CycleResult, error) {
	now := time.Now().UTC()

	stored, fetches, err := l.deps.Sources.Sync(ctx, l.userID)
	if err != nil {
		return CycleResult{}, err
	}
	if l.deps.Metrics != nil {
		for _, f := range fetches {
			if f.Err != "" {
				l.deps.Metrics.SourceErrors.WithLabelValues(f.Source).Inc()
			}
		}
	}

	snap := snapshotOf(l.userID, stored, now)
	score := health.Compute(snap, now, l.settings.Health)
	if l.deps.Metrics != nil {
		l.deps.Metrics.HealthScore.WithLabelValues(l.userID).Set(float64(score.Score))
	}

	prefs := l.preferences()
	decCfg := l.settings.Decision
	if prefs.NudgeThresholdDays > 0 {
		decCfg.NudgeThresholdDays = prefs.NudgeThresholdDays
	}

	decisions, mutated := decision.Decide(&snap, now, decCfg)
	if err := l.persistMutations(ctx, snap, mutated); err != nil {
		return CycleResult{}, err
	}
	if l.deps.Metrics != nil {
		for _, d := range decisions {
			l.deps.Metrics.DecisionsTotal.WithLabelValues(string(d.Type)).Inc()
		}
	}

	plan, planChanged, err := l.currentPlan(ctx, snap, now)
	if err != nil {
		return CycleResult{}, err
	}

	actions, effects := l.dispatcher.Dispatch(ctx, DispatchInput{
		Snapshot:  snap,
		Score:     score,
		Plan:      &plan,
		Prefs:     prefs,
		LastNudge: l.lastNudgeAt(),
		Now:       now,
	})
	if l.deps.Metrics != nil {
		for _, a := range actions {
			l.deps.Metrics.ActionsTotal.WithLabelValues(string(a.Type)).Inc()
		}
	}

	if planChanged || effects.PlanChanged {
		if err := l.deps.Plans.SavePlan(ctx, plan); err != nil {
			return CycleResult{}, err
		}
	}

	l.mu.Lock()
	l.lastCheck = now
	l.lastScore = score
	l.lastSources = fetches
	l.cyclesRun++
	if planChanged || effects.PlanChanged {
		l.lastPlanAt = now
	}
	if !effects.NudgedAt.IsZero() {
		l.lastNudge = effects.NudgedAt
	}
	l.conflicts = append([]planner.Conflict(nil), plan.Conflicts...)
	l.decisions = appendBounded(l.decisions, decisions, l.settings.HistoryLimit)
	l.actions = appendBounded(l.actions, actions, l.settings.HistoryLimit)
	subs := make([]chan Action, 0, len(l.subscribers))
	for ch := range l.subscribers {
		subs = append(subs, ch)
	}
	l.mu.Unlock()

	for _, a := range actions {
		for _, ch := range subs {
			select {
			case ch <- a:
			default:
			}
		}
	}

	return CycleResult{
		UserID:    l.userID,
		RanAt:     now,
		Score:     score,
		Decisions: decisions,
		Actions:   actions,
		TaskCount: len(snap.Tasks),
	}, nil
}

// currentPlan loads the active weekly plan, rebuilding it when none exists
// or the stored one has aged past the refresh interval.
func (l *Loop) currentPlan(ctx context.Context, snap tasks.Snapshot, now time.Time) (planner.WeeklyPlan, bool, error) {
	plan, err := l.deps.Plans.LoadPlan(ctx, l.userID)
	switch {
	case errors.Is(err, planner.ErrPlanNotFound):
	case err != nil:
		return planner.WeeklyPlan{}, false, err
	case now.Sub(plan.CreatedAt) < l.settings.PlanRefreshInterval:
		return plan, false, nil
	}
	return planner.Build(snap, now, l.settings.Planner), true, nil
}

func (l *Loop) persistMutations(ctx context.Context, snap tasks.Snapshot, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	byID := make(map[string]tasks.Task, len(snap.Tasks))
	for _, t := range snap.Tasks {
		byID[t.ID] = t
	}
	for _, id := range ids {
		t, ok := byID[id]
		if !ok {
			continue
		}
		if err := l.deps.Tasks.SaveTask(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loop) preferences() users.Preferences {
	if l.deps.Users != nil {
		if u, err := l.deps.Users.Get(l.userID); err == nil {
			return u.Preferences
		}
	}
	return users.DefaultPreferences()
}

func (l *Loop) lastNudgeAt() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastNudge
}

// State returns a copy-safe view of the loop.
func (l *Loop) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	status := StatusStopped
	if l.running {
		status = StatusRunning
	}
	return State{
		UserID:        l.userID,
		Status:        status,
		LastCheck:     l.lastCheck,
		LastPlanAt:    l.lastPlanAt,
		LastScore:     l.lastScore,
		CyclesRun:     l.cyclesRun,
		CyclesSkipped: l.skipped,
		CyclesFailed:  l.failed,
		LastSources:   append([]sources.FetchResult(nil), l.lastSources...),
		Conflicts:     append([]planner.Conflict(nil), l.conflicts...),
	}
}

// Actions returns the retained action history, oldest first. A positive
// limit keeps only the most recent entries.
func (l *Loop) Actions(limit int) []Action {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return lastN(l.actions, limit)
}

// Decisions returns the retained decision history, oldest first. A positive
// limit keeps only the most recent entries.
func (l *Loop) Decisions(limit int) []decision.Decision {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return lastN(l.decisions, limit)
}

// Subscribe registers a live feed of dispatched actions. The returned cancel
// func must be called to release the subscription. Slow consumers drop
// events rather than stall the cycle.
func (l *Loop) Subscribe() (<-chan Action, func()) {
	ch := make(chan Action, 16)
	l.mu.Lock()
	l.subscribers[ch] = struct{}{}
	l.mu.Unlock()
	return ch, func() {
		l.mu.Lock()
		delete(l.subscribers, ch)
		l.mu.Unlock()
	}
}

func (l *Loop) countCycle(outcome string) {
	if l.deps.Metrics != nil {
		l.deps.Metrics.CyclesTotal.WithLabelValues(outcome).Inc()
	}
}

func lastN[T any](src []T, limit int) []T {
	if limit > 0 && len(src) > limit {
		src = src[len(src)-limit:]
	}
	return append([]T(nil), src...)
}

func appendBounded[T any](dst []T, add []T, limit int) []T {
	dst = append(dst, add...)
	if limit > 0 && len(dst) > limit {
		dst = append([]T(nil), dst[len(dst)-limit:]...)
	}
	return dst
}
