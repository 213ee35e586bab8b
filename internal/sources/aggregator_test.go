package sources

import (
	"context"
	"errors"
	"testing"
	"time"

	"studypilot/internal/tasks"
)

type stubSource struct {
	name  string
	items []tasks.Task
	err   error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(context.Context, string) ([]tasks.Task, error) {
	return s.items, s.err
}

func mkTask(id, title string, due time.Time) tasks.Task {
	return tasks.Task{
		ID:       id,
		UserID:   "u1",
		Title:    title,
		Kind:     tasks.KindAssignment,
		DueAt:    due,
		Priority: tasks.PriorityMedium,
		Status:   tasks.StatusPending,
	}
}

func TestAggregatorMergesSources(t *testing.T) {
	due := time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)
	agg := NewAggregator(tasks.NewInMemoryStore(),
		&stubSource{name: "a", items: []tasks.Task{mkTask("a-1", "Homework 1", due)}},
		&stubSource{name: "b", items: []tasks.Task{mkTask("b-1", "Quiz 2", due.Add(24*time.Hour))}},
	)

	stored, results, err := agg.Sync(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("len(stored) = %d, want 2", len(stored))
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
}

func TestAggregatorDeduplicates(t *testing.T) {
	due := time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)
	agg := NewAggregator(tasks.NewInMemoryStore(),
		&stubSource{name: "a", items: []tasks.Task{mkTask("a-1", "Homework  1", due)}},
		&stubSource{name: "b", items: []tasks.Task{mkTask("b-1", "homework 1", due.Add(2*time.Hour))}},
	)

	stored, _, err := agg.Sync(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("len(stored) = %d, want 1 after dedup", len(stored))
	}
}

func TestAggregatorDegradesOnSourceFailure(t *testing.T) {
	due := time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)
	agg := NewAggregator(tasks.NewInMemoryStore(),
		&stubSource{name: "bad", err: errors.New("upstream down")},
		&stubSource{name: "good", items: []tasks.Task{mkTask("g-1", "Lab 3", due)}},
	)

	stored, results, err := agg.Sync(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("len(stored) = %d, want 1", len(stored))
	}
	var sawFailure bool
	for _, r := range results {
		if r.Source == "bad" {
			sawFailure = r.Err != ""
		}
	}
	if !sawFailure {
		t.Fatal("expected failed source to be recorded in results")
	}
}

func TestSyncPreservesPriorityAndStatus(t *testing.T) {
	due := time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)
	store := tasks.NewInMemoryStore()
	agg := NewAggregator(store, &stubSource{name: "a", items: []tasks.Task{mkTask("a-1", "Homework 1", due)}})
	ctx := context.Background()

	if _, _, err := agg.Sync(ctx, "u1"); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	// Simulate the core escalating and the user completing the task.
	got, err := store.GetTask(ctx, "a-1")
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	got.Priority = tasks.PriorityCritical
	got.Status = tasks.StatusDone
	if err := store.SaveTask(ctx, got); err != nil {
		t.Fatalf("SaveTask() error = %v", err)
	}

	if _, _, err := agg.Sync(ctx, "u1"); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	after, err := store.GetTask(ctx, "a-1")
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if after.Priority != tasks.PriorityCritical {
		t.Fatalf("Priority = %v, want %v preserved across sync", after.Priority, tasks.PriorityCritical)
	}
	if after.Status != tasks.StatusDone {
		t.Fatalf("Status = %v, want %v preserved across sync", after.Status, tasks.StatusDone)
	}
}

func TestMockSourcesDeterministic(t *testing.T) {
	src := NewMockCoursework(42)
	first, err := src.Fetch(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	second, err := src.Fetch(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("len mismatch: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Title != second[i].Title || first[i].ID != second[i].ID {
			t.Fatalf("task %d differs between runs: %q vs %q", i, first[i].Title, second[i].Title)
		}
	}

	other, err := src.Fetch(context.Background(), "u2")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	same := len(other) == len(first)
	if same {
		for i := range first {
			if first[i].Title != other[i].Title {
				same = false
				break
			}
		}
	}
	if same {
		t.Fatal("expected different users to see different data")
	}
}
