package tasks

import (
	"context"
	"errors"
)

var ErrStoreNotFound = errors.New("task not found in store")

// Store is the durable system of record for a user's obligations. The agent
// loop reads a snapshot from it at the start of every cycle; the decision
// engine's priority mutations and user-driven completions are written back
// through it.
type Store interface {
	SaveTask(ctx context.Context, task Task) error
	GetTask(ctx context.Context, taskID string) (Task, error)
	ListTasksByUser(ctx context.Context, userID string) ([]Task, error)
	Close() error
}
