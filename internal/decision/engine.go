// Package decision turns a task snapshot into an ordered list of autonomous
// decisions. The engine is deterministic: equal inputs produce an identical
// sequence, with ties broken by task ID so repeated runs are idempotent.
package decision

import (
	"fmt"
	"sort"
	"time"

	"studypilot/internal/tasks"
)

type Type string

const (
	TypeAutoPrioritize Type = "auto_prioritize"
	TypeEscalate       Type = "escalate"
	TypeSuggestSplit   Type = "suggest_split"
	TypeFlagOverload   Type = "flag_overload"
)

// Decision is an immutable, append-only history entry. One set is produced
// per cycle.
type Decision struct {
	Type      Type      `json:"type"`
	TaskID    string    `json:"task_id,omitempty"`
	TaskTitle string    `json:"task_title,omitempty"`
	Reason    string    `json:"reason"`
	Action    string    `json:"action"`
	At        time.Time `json:"at"`
}

// Config holds the engine thresholds.
type Config struct {
	NudgeThresholdDays int
	LargeTaskHours     float64
	OverloadThreshold  int
}

func DefaultConfig() Config {
	return Config{
		NudgeThresholdDays: 3,
		LargeTaskHours:     8,
		OverloadThreshold:  3,
	}
}

// urgency bands order decision types; within a band sooner-due sorts first,
// then task ID ascending.
func urgency(t Type) int {
	switch t {
	case TypeAutoPrioritize:
		return 3
	case TypeEscalate:
		return 2
	case TypeSuggestSplit:
		return 1
	default:
		return 0
	}
}

// Decide evaluates every rule independently per task, then merges and sorts by
// urgency descending. Priority mutation happens in the snapshot as an atomic
// pair with the emitted decision: the caller receives the decisions plus the
// IDs of tasks whose priority changed and is responsible for persisting them.
func Decide(snap *tasks.Snapshot, now time.Time, cfg Config) ([]Decision, []string) {
	if cfg.NudgeThresholdDays <= 0 {
		cfg.NudgeThresholdDays = 3
	}
	if cfg.LargeTaskHours <= 0 {
		cfg.LargeTaskHours = 8
	}
	if cfg.OverloadThreshold <= 0 {
		cfg.OverloadThreshold = 3
	}
	nudgeWindow := time.Duration(cfg.NudgeThresholdDays) * 24 * time.Hour

	var (
		decisions []Decision
		mutated   []string
	)

	for i := range snap.Tasks {
		t := &snap.Tasks[i]
		if !t.Pending() {
			continue
		}

		if t.Overdue(now) && t.Priority != tasks.PriorityCritical {
			t.Priority = tasks.PriorityCritical
			mutated = append(mutated, t.ID)
			decisions = append(decisions, Decision{
				Type:      TypeAutoPrioritize,
				TaskID:    t.ID,
				TaskTitle: t.Title,
				Reason:    "task is overdue",
				Action:    "set priority to CRITICAL",
				At:        now,
			})
		} else if t.DueWithin(now, nudgeWindow) && t.Priority.Rank() < tasks.PriorityHigh.Rank() {
			prev := t.Priority
			t.Priority = tasks.PriorityHigh
			mutated = append(mutated, t.ID)
			decisions = append(decisions, Decision{
				Type:      TypeEscalate,
				TaskID:    t.ID,
				TaskTitle: t.Title,
				Reason:    fmt.Sprintf("due within %d day(s)", cfg.NudgeThresholdDays),
				Action:    fmt.Sprintf("escalated from %s to %s", prev, tasks.PriorityHigh),
				At:        now,
			})
		}

		if t.EstimatedHours > cfg.LargeTaskHours {
			decisions = append(decisions, Decision{
				Type:      TypeSuggestSplit,
				TaskID:    t.ID,
				TaskTitle: t.Title,
				Reason:    fmt.Sprintf("large task (%.1fh estimated)", t.EstimatedHours),
				Action:    "consider breaking into smaller subtasks",
				At:        now,
			})
		}
	}

	dueAt := make(map[string]time.Time, len(snap.Tasks))
	for _, t := range snap.Tasks {
		dueAt[t.ID] = t.DueAt
	}
	sort.SliceStable(decisions, func(i, j int) bool {
		a, b := decisions[i], decisions[j]
		if ua, ub := urgency(a.Type), urgency(b.Type); ua != ub {
			return ua > ub
		}
		da, db := dueAt[a.TaskID], dueAt[b.TaskID]
		if !da.Equal(db) {
			return da.Before(db)
		}
		return a.TaskID < b.TaskID
	})

	// Overload is a snapshot-level condition, always appended last.
	criticalPending := 0
	for _, t := range snap.Tasks {
		if t.Pending() && t.Priority == tasks.PriorityCritical {
			criticalPending++
		}
	}
	if criticalPending > cfg.OverloadThreshold {
		decisions = append(decisions, Decision{
			Type:   TypeFlagOverload,
			Reason: fmt.Sprintf("%d critical tasks pending", criticalPending),
			Action: "consider requesting extensions or reprioritizing",
			At:     now,
		})
	}

	sort.Strings(mutated)
	return decisions, mutated
}
