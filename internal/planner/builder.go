// Package planner builds the weekly work plan and exam study schedules from a
// task snapshot. Building is pure: the same snapshot, time and config always
// produce the same plan, and the snapshot is never mutated.
package planner

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"studypilot/internal/tasks"
)

const windowDays = 7

// Config holds the per-user planning constraints.
type Config struct {
	DailyHours    float64
	CeilingFactor float64
}

func DefaultConfig() Config {
	return Config{DailyHours: 3, CeilingFactor: 1.5}
}

func (c Config) normalized() Config {
	if c.DailyHours <= 0 {
		c.DailyHours = 3
	}
	if c.CeilingFactor < 1 {
		c.CeilingFactor = 1.5
	}
	return c
}

// Build constructs the weekly plan from the snapshot. Candidates are pending
// tasks due inside the 7-day window plus overdue pending tasks. No day
// exceeds the daily cap; tasks that cannot fit before their due time are
// reported as conflicts.
func Build(snap tasks.Snapshot, now time.Time, cfg Config) WeeklyPlan {
	cfg = cfg.normalized()
	candidates := make([]tasks.Task, 0, len(snap.Tasks))
	windowEnd := now.Add(windowDays * 24 * time.Hour)
	for _, t := range snap.Tasks {
		if !t.Pending() {
			continue
		}
		if t.DueAt.After(windowEnd) {
			continue
		}
		candidates = append(candidates, t)
	}
	return distribute(snap.UserID, candidates, now, cfg, false)
}

// BuildEmergency constructs a plan holding only overdue and CRITICAL pending
// tasks, regardless of the 7-day window.
func BuildEmergency(snap tasks.Snapshot, now time.Time, cfg Config) WeeklyPlan {
	cfg = cfg.normalized()
	candidates := make([]tasks.Task, 0, len(snap.Tasks))
	for _, t := range snap.Tasks {
		if !t.Pending() {
			continue
		}
		if t.Overdue(now) || t.Priority == tasks.PriorityCritical {
			candidates = append(candidates, t)
		}
	}
	return distribute(snap.UserID, candidates, now, cfg, true)
}

func distribute(userID string, candidates []tasks.Task, now time.Time, cfg Config, emergency bool) WeeklyPlan {
	// Higher priority first, then sooner due, then ID for stable output.
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() > b.Priority.Rank()
		}
		if !a.DueAt.Equal(b.DueAt) {
			return a.DueAt.Before(b.DueAt)
		}
		return a.ID < b.ID
	})

	plan := WeeklyPlan{
		ID:         uuid.NewString(),
		UserID:     userID,
		AnchoredAt: now,
		Emergency:  emergency,
		CreatedAt:  now,
	}
	for d := 0; d < windowDays; d++ {
		date := now.Add(time.Duration(d) * 24 * time.Hour)
		plan.Days[d] = Day{Date: date, Weekday: date.Weekday().String()}
	}

	for _, t := range candidates {
		remaining := t.EffortOrDefault()
		overdue := t.Overdue(now)
		for d := 0; d < windowDays && remaining > 0; d++ {
			// A day is usable only if it starts before the task is due.
			// Overdue work has no usable day left, so it goes wherever
			// capacity remains, earliest first.
			if !overdue && !plan.Days[d].Date.Before(t.DueAt) {
				break
			}
			avail := cfg.DailyHours - plan.Days[d].Hours
			if avail <= 0 {
				continue
			}
			alloc := math.Min(avail, remaining)
			plan.Days[d].Allocations = append(plan.Days[d].Allocations, Allocation{
				TaskID:   t.ID,
				Title:    t.Title,
				Hours:    alloc,
				Priority: t.Priority,
				DueAt:    t.DueAt,
			})
			plan.Days[d].Hours += alloc
			remaining -= alloc
		}
		if remaining > 0 {
			reason := "insufficient capacity before due time"
			if overdue {
				reason = "task already past due"
			}
			plan.Conflicts = append(plan.Conflicts, Conflict{
				TaskID:        t.ID,
				Title:         t.Title,
				DueAt:         t.DueAt,
				UnplacedHours: remaining,
				Reason:        reason,
			})
		}
	}
	return plan
}

// StudyPlan spreads an exam's estimated effort across the days strictly
// before its due time. Sessions are capped at the daily preference; when the
// window is too short they compress up to CeilingFactor times the preference
// rather than spilling past the due date. A conflict is returned when even
// the compressed schedule cannot hold all hours.
func StudyPlan(exam tasks.Task, now time.Time, cfg Config) ([]StudySession, *Conflict) {
	cfg = cfg.normalized()
	total := exam.EffortOrDefault()

	days := int(exam.DueAt.Sub(now) / (24 * time.Hour))
	if days <= 0 {
		return nil, &Conflict{
			TaskID:        exam.ID,
			Title:         exam.Title,
			DueAt:         exam.DueAt,
			UnplacedHours: total,
			Reason:        "exam is due within a day; no study window remains",
		}
	}

	perSession := cfg.DailyHours
	numSessions := int(math.Ceil(total / perSession))
	var conflict *Conflict

	if numSessions > days {
		// Window too short for capped sessions: compress up to the ceiling.
		numSessions = days
		perSession = total / float64(days)
		ceiling := cfg.DailyHours * cfg.CeilingFactor
		if perSession > ceiling {
			perSession = ceiling
			unplaced := total - ceiling*float64(days)
			conflict = &Conflict{
				TaskID:        exam.ID,
				Title:         exam.Title,
				DueAt:         exam.DueAt,
				UnplacedHours: unplaced,
				Reason:        fmt.Sprintf("only %.1fh fit before the exam even at the daily ceiling", ceiling*float64(days)),
			}
		}
	}

	placeable := math.Min(total, perSession*float64(numSessions))
	sessions := make([]StudySession, 0, numSessions)
	allocated := 0.0
	for i := 0; i < numSessions; i++ {
		// Spread session days evenly across the window; integer stepping
		// keeps every date strictly before the exam day.
		offset := i * days / numSessions
		hours := math.Min(perSession, placeable-allocated)
		if hours <= 0 {
			break
		}
		sessions = append(sessions, StudySession{
			ID:     uuid.NewString(),
			TaskID: exam.ID,
			Title:  exam.Title,
			Course: exam.Course,
			Date:   now.Add(time.Duration(offset) * 24 * time.Hour),
			Hours:  hours,
		})
		allocated += hours
	}
	return sessions, conflict
}

// ResolveConflict reassigns a conflicting task's unplaced hours to the
// least-loaded day still before its due time, breaching the daily cap so
// that every task is scheduled before due when physically possible. Overdue
// tasks have no such day and stay unresolved.
func ResolveConflict(plan *WeeklyPlan, conflict Conflict) bool {
	if conflict.UnplacedHours <= 0 {
		return false
	}
	best := -1
	for d := range plan.Days {
		if !plan.Days[d].Date.Before(conflict.DueAt) {
			break
		}
		if best < 0 || plan.Days[d].Hours < plan.Days[best].Hours {
			best = d
		}
	}
	if best < 0 {
		return false
	}
	plan.Days[best].Allocations = append(plan.Days[best].Allocations, Allocation{
		TaskID:   conflict.TaskID,
		Title:    conflict.Title,
		Hours:    conflict.UnplacedHours,
		DueAt:    conflict.DueAt,
		Override: true,
	})
	plan.Days[best].Hours += conflict.UnplacedHours
	markResolved(plan, conflict.TaskID)
	return true
}

func markResolved(plan *WeeklyPlan, taskID string) {
	for i := range plan.Conflicts {
		if plan.Conflicts[i].TaskID == taskID {
			plan.Conflicts[i].Resolved = true
		}
	}
}
