package tasks

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryStoreSaveAndList(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	later := Task{ID: "b", UserID: "u1", Title: "essay", Kind: KindAssignment, DueAt: now.Add(48 * time.Hour), Priority: PriorityMedium, Status: StatusPending}
	sooner := Task{ID: "a", UserID: "u1", Title: "quiz", Kind: KindExam, DueAt: now.Add(24 * time.Hour), Priority: PriorityHigh, Status: StatusPending}
	other := Task{ID: "c", UserID: "u2", Title: "reading", Kind: KindReading, DueAt: now, Priority: PriorityLow, Status: StatusPending}

	for _, task := range []Task{later, sooner, other} {
		if err := s.SaveTask(ctx, task); err != nil {
			t.Fatalf("SaveTask(%s) error = %v", task.ID, err)
		}
	}

	got, err := s.ListTasksByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ListTasksByUser() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListTasksByUser() len = %d, want 2", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("ListTasksByUser() order = [%s %s], want [a b]", got[0].ID, got[1].ID)
	}
}

func TestInMemoryStoreUpdateInPlace(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	task := Task{ID: "a", UserID: "u1", Title: "lab", Kind: KindAssignment, DueAt: time.Now().UTC(), Priority: PriorityLow, Status: StatusPending}
	if err := s.SaveTask(ctx, task); err != nil {
		t.Fatalf("SaveTask() error = %v", err)
	}
	task.Priority = PriorityCritical
	if err := s.SaveTask(ctx, task); err != nil {
		t.Fatalf("SaveTask() update error = %v", err)
	}

	got, err := s.GetTask(ctx, "a")
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if got.Priority != PriorityCritical {
		t.Fatalf("GetTask().Priority = %q, want %q", got.Priority, PriorityCritical)
	}

	list, err := s.ListTasksByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ListTasksByUser() error = %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("ListTasksByUser() len = %d after update, want 1", len(list))
	}
}

func TestGetTaskNotFound(t *testing.T) {
	s := NewInMemoryStore()
	if _, err := s.GetTask(context.Background(), "missing"); err != ErrStoreNotFound {
		t.Fatalf("GetTask() error = %v, want ErrStoreNotFound", err)
	}
}
