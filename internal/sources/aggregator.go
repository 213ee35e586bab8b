package sources

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"studypilot/internal/tasks"
)

// FetchResult records a single source's contribution to an aggregation run.
type FetchResult struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
	Err    string `json:"error,omitempty"`
}

// Aggregator fans out to every configured source, merges the results and
// writes them through to the task store. A failing source degrades to an
// empty contribution; the run still completes with whatever the rest
// returned.
type Aggregator struct {
	sources []Source
	store   tasks.Store
}

func NewAggregator(store tasks.Store, srcs ...Source) *Aggregator {
	return &Aggregator{sources: srcs, store: store}
}

// Sync fetches from all sources concurrently, deduplicates and persists the
// merged set, then returns the stored snapshot for the user.
func (a *Aggregator) Sync(ctx context.Context, userID string) ([]tasks.Task, []FetchResult, error) {
	type contribution struct {
		source string
		items  []tasks.Task
		err    error
	}

	var mu sync.Mutex
	contributions := make([]contribution, 0, len(a.sources))

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range a.sources {
		src := src
		g.Go(func() error {
			items, err := src.Fetch(gctx, userID)
			if err != nil {
				log.Printf("source %s: fetch for user %s failed: %v", src.Name(), userID, err)
				items = nil
			}
			mu.Lock()
			contributions = append(contributions, contribution{source: src.Name(), items: items, err: err})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	sort.Slice(contributions, func(i, j int) bool { return contributions[i].source < contributions[j].source })

	merged := make([]tasks.Task, 0, 32)
	seen := make(map[string]bool)
	results := make([]FetchResult, 0, len(contributions))
	for _, c := range contributions {
		res := FetchResult{Source: c.source, Count: len(c.items)}
		if c.err != nil {
			res.Err = c.err.Error()
		}
		results = append(results, res)
		for _, t := range c.items {
			key := dedupKey(t)
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, t)
		}
	}

	for _, t := range merged {
		// Priority and completion belong to the core, not the source:
		// re-ingesting a known task must not reset them.
		if prev, err := a.store.GetTask(ctx, t.ID); err == nil {
			t.Priority = prev.Priority
			t.Status = prev.Status
			t.CreatedAt = prev.CreatedAt
		}
		if err := a.store.SaveTask(ctx, t); err != nil {
			return nil, results, fmt.Errorf("save task %s: %w", t.ID, err)
		}
	}

	stored, err := a.store.ListTasksByUser(ctx, userID)
	if err != nil {
		return nil, results, err
	}
	return stored, results, nil
}

// dedupKey folds tasks that describe the same obligation reported by more
// than one source: same normalized title on the same due date.
func dedupKey(t tasks.Task) string {
	title := strings.Join(strings.Fields(strings.ToLower(t.Title)), " ")
	return title + "|" + t.DueAt.UTC().Format(time.DateOnly)
}
