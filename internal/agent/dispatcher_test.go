package agent

import (
	"context"
	"testing"
	"time"

	"studypilot/internal/health"
	"studypilot/internal/notify"
	"studypilot/internal/planner"
	"studypilot/internal/tasks"
	"studypilot/internal/users"
)

func testSnapshot(now time.Time, ts ...tasks.Task) tasks.Snapshot {
	return tasks.Snapshot{UserID: "u1", TakenAt: now, Tasks: ts}
}

func pending(id, title string, kind tasks.Kind, due time.Time, hours float64) tasks.Task {
	return tasks.Task{
		ID:             id,
		UserID:         "u1",
		Title:          title,
		Course:         "CS101",
		Kind:           kind,
		DueAt:          due,
		EstimatedHours: hours,
		Priority:       tasks.PriorityMedium,
		Status:         tasks.StatusPending,
	}
}

func newDispatcher() (*Dispatcher, *notify.LogSender) {
	sender := notify.NewLogSender(10)
	return &Dispatcher{Settings: DefaultSettings(), Notifier: sender}, sender
}

func TestDispatchCriticalRebuildsPlanAndNudges(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	d, sender := newDispatcher()
	snap := testSnapshot(now,
		pending("a", "Homework 1", tasks.KindAssignment, now.Add(-48*time.Hour), 3),
		pending("b", "Homework 2", tasks.KindAssignment, now.Add(-24*time.Hour), 2),
	)
	plan := planner.Build(snap, now, planner.DefaultConfig())

	actions, effects := d.Dispatch(context.Background(), DispatchInput{
		Snapshot: snap,
		Score:    health.Score{Score: 40, Status: health.StatusCritical},
		Plan:     &plan,
		Prefs:    users.DefaultPreferences(),
		Now:      now,
	})

	if len(actions) < 2 {
		t.Fatalf("len(actions) = %d, want at least 2", len(actions))
	}
	if actions[0].Type != ActionEmergencyPlan {
		t.Fatalf("actions[0].Type = %v, want %v", actions[0].Type, ActionEmergencyPlan)
	}
	if actions[1].Type != ActionSendNudge {
		t.Fatalf("actions[1].Type = %v, want %v", actions[1].Type, ActionSendNudge)
	}
	if !plan.Emergency {
		t.Fatal("expected emergency plan")
	}
	if !effects.PlanChanged {
		t.Fatal("expected plan change")
	}
	if len(sender.History("u1")) != 1 {
		t.Fatalf("notifications = %d, want 1", len(sender.History("u1")))
	}
}

func TestDispatchCriticalNudgeBypassesRateLimit(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	d, sender := newDispatcher()
	snap := testSnapshot(now, pending("a", "Homework 1", tasks.KindAssignment, now.Add(-time.Hour), 3))
	plan := planner.Build(snap, now, planner.DefaultConfig())

	d.Dispatch(context.Background(), DispatchInput{
		Snapshot:  snap,
		Score:     health.Score{Score: 30, Status: health.StatusCritical},
		Plan:      &plan,
		Prefs:     users.DefaultPreferences(),
		LastNudge: now.Add(-time.Minute),
		Now:       now,
	})
	if len(sender.History("u1")) != 1 {
		t.Fatal("critical nudge should ignore the rate limit")
	}
}

func TestDispatchAtRiskRespectsRateLimit(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	d, sender := newDispatcher()
	snap := testSnapshot(now, pending("a", "Homework 1", tasks.KindAssignment, now.Add(5*24*time.Hour), 2))
	plan := planner.Build(snap, now, planner.DefaultConfig())

	in := DispatchInput{
		Snapshot:  snap,
		Score:     health.Score{Score: 70, Status: health.StatusAtRisk},
		Plan:      &plan,
		Prefs:     users.DefaultPreferences(),
		LastNudge: now.Add(-time.Hour),
		Now:       now,
	}
	actions, _ := d.Dispatch(context.Background(), in)
	if len(actions) != 0 {
		t.Fatalf("len(actions) = %d, want 0 inside rate-limit window", len(actions))
	}

	in.LastNudge = now.Add(-7 * time.Hour)
	actions, effects := d.Dispatch(context.Background(), in)
	if len(actions) != 1 || actions[0].Type != ActionSendNudge {
		t.Fatalf("actions = %+v, want one send_nudge", actions)
	}
	if effects.NudgedAt != now {
		t.Fatalf("NudgedAt = %v, want %v", effects.NudgedAt, now)
	}
	if len(sender.History("u1")) != 1 {
		t.Fatalf("notifications = %d, want 1", len(sender.History("u1")))
	}
}

func TestDispatchCreatesStudyPlanForUpcomingExam(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	d, _ := newDispatcher()
	exam := pending("ex", "Midterm Exam", tasks.KindExam, now.Add(4*24*time.Hour), 6)
	snap := testSnapshot(now, exam)
	plan := planner.Build(snap, now, planner.DefaultConfig())

	actions, effects := d.Dispatch(context.Background(), DispatchInput{
		Snapshot: snap,
		Score:    health.Score{Score: 95, Status: health.StatusHealthy},
		Plan:     &plan,
		Prefs:    users.DefaultPreferences(),
		Now:      now,
	})

	var sawStudyPlan bool
	for _, a := range actions {
		if a.Type == ActionCreateStudyPlan {
			sawStudyPlan = a.Outcome == OutcomeCompleted && a.TaskID == "ex"
		}
	}
	if !sawStudyPlan {
		t.Fatalf("actions = %+v, want completed create_study_plan for ex", actions)
	}
	if !effects.PlanChanged {
		t.Fatal("expected plan change")
	}
	if !plan.HasSessionsFor("ex") {
		t.Fatal("plan should carry study sessions for the exam")
	}
	for _, s := range plan.StudySessions {
		if !s.Date.Before(exam.DueAt) {
			t.Fatalf("session at %v not before exam at %v", s.Date, exam.DueAt)
		}
	}
}

func TestDispatchSkipsStudyPlanWhenDisabled(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	d, _ := newDispatcher()
	snap := testSnapshot(now, pending("ex", "Midterm Exam", tasks.KindExam, now.Add(4*24*time.Hour), 6))
	plan := planner.Build(snap, now, planner.DefaultConfig())

	prefs := users.DefaultPreferences()
	prefs.AutoCreateStudyPlans = false
	actions, _ := d.Dispatch(context.Background(), DispatchInput{
		Snapshot: snap,
		Score:    health.Score{Score: 95, Status: health.StatusHealthy},
		Plan:     &plan,
		Prefs:    prefs,
		Now:      now,
	})
	for _, a := range actions {
		if a.Type == ActionCreateStudyPlan {
			t.Fatal("study plan created despite preference")
		}
	}
}

func TestDispatchResolvesConflicts(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	d, _ := newDispatcher()
	snap := testSnapshot(now)
	plan := planner.Build(snap, now, planner.DefaultConfig())
	plan.Conflicts = append(plan.Conflicts, planner.Conflict{
		TaskID:        "c1",
		Title:         "Project 2",
		DueAt:         now.Add(5 * 24 * time.Hour),
		UnplacedHours: 2,
		Reason:        "exceeds daily capacity before due date",
	})

	actions, effects := d.Dispatch(context.Background(), DispatchInput{
		Snapshot: snap,
		Score:    health.Score{Score: 95, Status: health.StatusHealthy},
		Plan:     &plan,
		Prefs:    users.DefaultPreferences(),
		Now:      now,
	})

	var resolved bool
	for _, a := range actions {
		if a.Type == ActionResolveConflict && a.Outcome == OutcomeCompleted {
			resolved = true
		}
	}
	if !resolved {
		t.Fatalf("actions = %+v, want completed resolve_conflict", actions)
	}
	if !effects.PlanChanged {
		t.Fatal("expected plan change")
	}
	if !plan.Conflicts[0].Resolved {
		t.Fatal("conflict not marked resolved")
	}
}
