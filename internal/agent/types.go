// Package agent runs the autonomous planning loop for each user: observe
// tasks, score health, decide, plan and act on the user's behalf.
package agent

import (
	"errors"
	"time"

	"studypilot/internal/decision"
	"studypilot/internal/health"
	"studypilot/internal/planner"
	"studypilot/internal/sources"
	"studypilot/internal/tasks"
)

type Status string

const (
	StatusStopped Status = "stopped"
	StatusRunning Status = "running"
)

// ErrCycleInProgress is returned when a manual trigger lands while a cycle
// is already executing. The trigger is skipped, never queued.
var ErrCycleInProgress = errors.New("cycle already in progress")

var ErrAgentNotFound = errors.New("agent not found")

type ActionType string

const (
	ActionSendNudge       ActionType = "send_nudge"
	ActionEmergencyPlan   ActionType = "create_emergency_plan"
	ActionCreateStudyPlan ActionType = "create_study_plan"
	ActionResolveConflict ActionType = "resolve_conflict"

	// ActionCycleFailed records an aborted cycle in the same history.
	ActionCycleFailed ActionType = "cycle_failed"
)

type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
)

// Action is one thing the agent did (or tried to do) during a cycle.
type Action struct {
	ID      string     `json:"id"`
	UserID  string     `json:"user_id"`
	Type    ActionType `json:"type"`
	Message string     `json:"message,omitempty"`
	TaskID  string     `json:"task_id,omitempty"`
	Outcome Outcome    `json:"outcome"`
	Detail  string     `json:"detail,omitempty"`
	At      time.Time  `json:"at"`
}

// State is a copy-safe snapshot of one agent loop.
type State struct {
	UserID        string                `json:"user_id"`
	Status        Status                `json:"status"`
	LastCheck     time.Time             `json:"last_check,omitempty"`
	LastPlanAt    time.Time             `json:"last_plan_at,omitempty"`
	LastScore     health.Score          `json:"last_score"`
	CyclesRun     int                   `json:"cycles_run"`
	CyclesSkipped int                   `json:"cycles_skipped"`
	CyclesFailed  int                   `json:"cycles_failed"`
	LastSources   []sources.FetchResult `json:"last_sources,omitempty"`
	Conflicts     []planner.Conflict    `json:"conflicts,omitempty"`
}

// CycleResult reports what one cycle observed and did.
type CycleResult struct {
	UserID    string              `json:"user_id"`
	RanAt     time.Time           `json:"ran_at"`
	Score     health.Score        `json:"score"`
	Decisions []decision.Decision `json:"decisions"`
	Actions   []Action            `json:"actions"`
	TaskCount int                 `json:"task_count"`
}

// Settings collects the knobs a loop needs. Defaults mirror package-level
// defaults of each engine.
type Settings struct {
	CycleInterval       time.Duration
	HistoryLimit        int
	Health              health.Policy
	Decision            decision.Config
	Planner             planner.Config
	PlanRefreshInterval time.Duration
	NudgeMinInterval    time.Duration
	StudyPlanLookahead  int
}

func DefaultSettings() Settings {
	return Settings{
		CycleInterval:       15 * time.Minute,
		HistoryLimit:        100,
		Health:              health.DefaultPolicy(),
		Decision:            decision.DefaultConfig(),
		Planner:             planner.DefaultConfig(),
		PlanRefreshInterval: 24 * time.Hour,
		NudgeMinInterval:    6 * time.Hour,
		StudyPlanLookahead:  7,
	}
}

func (s Settings) normalized() Settings {
	def := DefaultSettings()
	if s.CycleInterval <= 0 {
		s.CycleInterval = def.CycleInterval
	}
	if s.HistoryLimit <= 0 {
		s.HistoryLimit = def.HistoryLimit
	}
	if s.PlanRefreshInterval <= 0 {
		s.PlanRefreshInterval = def.PlanRefreshInterval
	}
	if s.NudgeMinInterval <= 0 {
		s.NudgeMinInterval = def.NudgeMinInterval
	}
	if s.StudyPlanLookahead <= 0 {
		s.StudyPlanLookahead = def.StudyPlanLookahead
	}
	return s
}

func snapshotOf(userID string, ts []tasks.Task, now time.Time) tasks.Snapshot {
	return tasks.Snapshot{UserID: userID, TakenAt: now, Tasks: ts}
}
