// Package sources is the boundary to the external systems that produce a
// user's obligations. Every integration implements Source; the Aggregator
// fans out to all of them, degrades per-source failures to an empty
// contribution, and syncs the deduplicated result into the task store.
package sources

import (
	"context"

	"studypilot/internal/tasks"
)

type Source interface {
	Name() string
	Fetch(ctx context.Context, userID string) ([]tasks.Task, error)
}
