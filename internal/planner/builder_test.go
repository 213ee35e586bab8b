package planner

import (
	"testing"
	"time"

	"studypilot/internal/tasks"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func snapshotOf(ts ...tasks.Task) tasks.Snapshot {
	return tasks.Snapshot{UserID: "u1", TakenAt: testNow, Tasks: ts}
}

func TestBuildRespectsDailyCap(t *testing.T) {
	snap := snapshotOf(
		tasks.Task{ID: "a", Title: "pset", Status: tasks.StatusPending, Priority: tasks.PriorityHigh, DueAt: testNow.Add(5 * 24 * time.Hour), EstimatedHours: 5},
		tasks.Task{ID: "b", Title: "essay", Status: tasks.StatusPending, Priority: tasks.PriorityMedium, DueAt: testNow.Add(6 * 24 * time.Hour), EstimatedHours: 4},
		tasks.Task{ID: "c", Title: "reading", Status: tasks.StatusPending, Priority: tasks.PriorityLow, DueAt: testNow.Add(6 * 24 * time.Hour), EstimatedHours: 2},
	)
	cfg := Config{DailyHours: 3, CeilingFactor: 1.5}
	plan := Build(snap, testNow, cfg)

	for i, day := range plan.Days {
		if day.Hours > cfg.DailyHours+1e-9 {
			t.Fatalf("day %d hours = %v, exceeds cap %v", i, day.Hours, cfg.DailyHours)
		}
	}
	if got := plan.TotalHours(); got != 11 {
		t.Fatalf("TotalHours() = %v, want 11", got)
	}
	if len(plan.Conflicts) != 0 {
		t.Fatalf("Conflicts = %v, want none", plan.Conflicts)
	}
}

func TestBuildOrdersHigherPriorityEarlier(t *testing.T) {
	snap := snapshotOf(
		tasks.Task{ID: "low", Title: "reading", Status: tasks.StatusPending, Priority: tasks.PriorityLow, DueAt: testNow.Add(6 * 24 * time.Hour), EstimatedHours: 3},
		tasks.Task{ID: "crit", Title: "midterm prep", Status: tasks.StatusPending, Priority: tasks.PriorityCritical, DueAt: testNow.Add(6 * 24 * time.Hour), EstimatedHours: 3},
	)
	plan := Build(snap, testNow, DefaultConfig())

	first := plan.Days[0].Allocations
	if len(first) == 0 || first[0].TaskID != "crit" {
		t.Fatalf("day 0 first allocation = %+v, want critical task first", first)
	}
}

func TestBuildFlagsUnfittableTaskAsConflict(t *testing.T) {
	// Due tomorrow with 10h of work against a 3h/day cap: only day 0 is
	// usable, so 7h cannot fit before due.
	snap := snapshotOf(tasks.Task{
		ID: "a", Title: "huge lab", Status: tasks.StatusPending,
		Priority: tasks.PriorityHigh, DueAt: testNow.Add(24 * time.Hour), EstimatedHours: 10,
	})
	plan := Build(snap, testNow, DefaultConfig())

	if len(plan.Conflicts) != 1 {
		t.Fatalf("Conflicts len = %d, want 1", len(plan.Conflicts))
	}
	c := plan.Conflicts[0]
	if c.TaskID != "a" || c.UnplacedHours != 7 {
		t.Fatalf("conflict = %+v, want task a with 7 unplaced hours", c)
	}
	if plan.TotalHours() != 3 {
		t.Fatalf("TotalHours() = %v, want 3 (capacity of the single usable day)", plan.TotalHours())
	}
}

func TestBuildSchedulesOverdueWorkWithoutDueConstraint(t *testing.T) {
	snap := snapshotOf(tasks.Task{
		ID: "a", Title: "late pset", Status: tasks.StatusPending,
		Priority: tasks.PriorityCritical, DueAt: testNow.Add(-24 * time.Hour), EstimatedHours: 4,
	})
	plan := Build(snap, testNow, DefaultConfig())

	if plan.TotalHours() != 4 {
		t.Fatalf("TotalHours() = %v, want 4", plan.TotalHours())
	}
	if len(plan.Conflicts) != 0 {
		t.Fatalf("Conflicts = %v, want none when capacity remains", plan.Conflicts)
	}
	if plan.Days[0].Hours != 3 || plan.Days[1].Hours != 1 {
		t.Fatalf("allocation = [%v %v], want [3 1]", plan.Days[0].Hours, plan.Days[1].Hours)
	}
}

func TestBuildEmergencyKeepsOnlyUrgentTasks(t *testing.T) {
	snap := snapshotOf(
		tasks.Task{ID: "a", Title: "late", Status: tasks.StatusPending, Priority: tasks.PriorityMedium, DueAt: testNow.Add(-2 * time.Hour), EstimatedHours: 1},
		tasks.Task{ID: "b", Title: "critical", Status: tasks.StatusPending, Priority: tasks.PriorityCritical, DueAt: testNow.Add(9 * 24 * time.Hour), EstimatedHours: 2},
		tasks.Task{ID: "c", Title: "calm", Status: tasks.StatusPending, Priority: tasks.PriorityLow, DueAt: testNow.Add(2 * 24 * time.Hour), EstimatedHours: 2},
	)
	plan := BuildEmergency(snap, testNow, DefaultConfig())

	if !plan.Emergency {
		t.Fatalf("Emergency = false, want true")
	}
	seen := map[string]bool{}
	for _, day := range plan.Days {
		for _, a := range day.Allocations {
			seen[a.TaskID] = true
		}
	}
	if !seen["a"] || !seen["b"] || seen["c"] {
		t.Fatalf("allocated tasks = %v, want only overdue and critical", seen)
	}
}

func TestBuildIgnoresDoneAndFarFutureTasks(t *testing.T) {
	snap := snapshotOf(
		tasks.Task{ID: "a", Title: "done", Status: tasks.StatusDone, DueAt: testNow.Add(24 * time.Hour), EstimatedHours: 2},
		tasks.Task{ID: "b", Title: "far", Status: tasks.StatusPending, DueAt: testNow.Add(20 * 24 * time.Hour), EstimatedHours: 2},
	)
	plan := Build(snap, testNow, DefaultConfig())
	if plan.TotalHours() != 0 {
		t.Fatalf("TotalHours() = %v, want 0", plan.TotalHours())
	}
}

func TestStudyPlanSpreadsBeforeExam(t *testing.T) {
	// Exam in 7 days, 6h effort, 3h/day preference: at least two sessions
	// summing 6 hours, none on or after the exam day.
	exam := tasks.Task{
		ID: "exam1", Title: "CS101 Midterm", Course: "CS101", Kind: tasks.KindExam,
		Status: tasks.StatusPending, Priority: tasks.PriorityHigh,
		DueAt: testNow.Add(7 * 24 * time.Hour), EstimatedHours: 6,
	}
	sessions, conflict := StudyPlan(exam, testNow, Config{DailyHours: 3, CeilingFactor: 1.5})

	if conflict != nil {
		t.Fatalf("conflict = %+v, want nil", conflict)
	}
	if len(sessions) < 2 {
		t.Fatalf("sessions = %d, want >= 2", len(sessions))
	}
	var total float64
	for _, s := range sessions {
		total += s.Hours
		if !s.Date.Before(exam.DueAt) {
			t.Fatalf("session on %v not strictly before exam %v", s.Date, exam.DueAt)
		}
		if s.Hours > 3+1e-9 {
			t.Fatalf("session hours = %v, exceeds daily preference", s.Hours)
		}
	}
	if total != 6 {
		t.Fatalf("total session hours = %v, want 6", total)
	}
}

func TestStudyPlanCompressesShortWindow(t *testing.T) {
	// 8h of studying with only 2 usable days and a 3h preference: compress
	// to 4h/day, inside the 1.5x ceiling, rather than spill past the exam.
	exam := tasks.Task{
		ID: "exam1", Title: "Final", Kind: tasks.KindExam, Status: tasks.StatusPending,
		DueAt: testNow.Add(2 * 24 * time.Hour), EstimatedHours: 8,
	}
	sessions, conflict := StudyPlan(exam, testNow, Config{DailyHours: 3, CeilingFactor: 1.5})

	if conflict != nil {
		t.Fatalf("conflict = %+v, want nil inside ceiling", conflict)
	}
	if len(sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(sessions))
	}
	var total float64
	for _, s := range sessions {
		total += s.Hours
		if s.Hours > 4.5+1e-9 {
			t.Fatalf("session hours = %v, exceeds ceiling 4.5", s.Hours)
		}
	}
	if total != 8 {
		t.Fatalf("total = %v, want 8", total)
	}
}

func TestStudyPlanConflictWhenCeilingInsufficient(t *testing.T) {
	exam := tasks.Task{
		ID: "exam1", Title: "Final", Kind: tasks.KindExam, Status: tasks.StatusPending,
		DueAt: testNow.Add(2 * 24 * time.Hour), EstimatedHours: 20,
	}
	sessions, conflict := StudyPlan(exam, testNow, Config{DailyHours: 3, CeilingFactor: 1.5})

	if conflict == nil {
		t.Fatalf("conflict = nil, want unresolved-hours conflict")
	}
	if conflict.UnplacedHours != 11 {
		t.Fatalf("UnplacedHours = %v, want 11 (20 - 2*4.5)", conflict.UnplacedHours)
	}
	var total float64
	for _, s := range sessions {
		total += s.Hours
		if !s.Date.Before(exam.DueAt) {
			t.Fatalf("session on %v not before exam", s.Date)
		}
	}
	if total != 9 {
		t.Fatalf("scheduled hours = %v, want 9", total)
	}
}

func TestStudyPlanNoWindow(t *testing.T) {
	exam := tasks.Task{
		ID: "exam1", Title: "Quiz", Kind: tasks.KindExam, Status: tasks.StatusPending,
		DueAt: testNow.Add(6 * time.Hour), EstimatedHours: 3,
	}
	sessions, conflict := StudyPlan(exam, testNow, DefaultConfig())
	if len(sessions) != 0 {
		t.Fatalf("sessions = %v, want none with no full day before exam", sessions)
	}
	if conflict == nil || conflict.UnplacedHours != 3 {
		t.Fatalf("conflict = %+v, want all hours unplaced", conflict)
	}
}

func TestResolveConflictBreachesCap(t *testing.T) {
	snap := snapshotOf(tasks.Task{
		ID: "a", Title: "huge lab", Status: tasks.StatusPending,
		Priority: tasks.PriorityHigh, DueAt: testNow.Add(24 * time.Hour), EstimatedHours: 10,
	})
	plan := Build(snap, testNow, DefaultConfig())
	if len(plan.Conflicts) != 1 {
		t.Fatalf("Conflicts len = %d, want 1", len(plan.Conflicts))
	}

	resolved := ResolveConflict(&plan, plan.Conflicts[0])
	if !resolved {
		t.Fatalf("ResolveConflict() = false, want true")
	}
	if plan.Days[0].Hours != 10 {
		t.Fatalf("day 0 hours = %v, want 10 after override", plan.Days[0].Hours)
	}
	if !plan.Conflicts[0].Resolved {
		t.Fatalf("conflict not marked resolved")
	}
	last := plan.Days[0].Allocations[len(plan.Days[0].Allocations)-1]
	if !last.Override {
		t.Fatalf("override allocation not flagged: %+v", last)
	}
}

func TestResolveConflictOverdueStaysUnresolved(t *testing.T) {
	plan := Build(snapshotOf(), testNow, DefaultConfig())
	conflict := Conflict{TaskID: "a", Title: "late", DueAt: testNow.Add(-time.Hour), UnplacedHours: 2}
	if ResolveConflict(&plan, conflict) {
		t.Fatalf("ResolveConflict() = true for overdue task, want false")
	}
}
