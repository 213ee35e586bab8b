// Package notify delivers agent-initiated messages to users.
package notify

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"studypilot/internal/health"
	"studypilot/internal/tasks"
)

// Priority ranks a notification for the delivery channel.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityUrgent Priority = "urgent"
)

// Notification is one delivered message.
type Notification struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	Message  string    `json:"message"`
	Priority Priority  `json:"priority"`
	SentAt   time.Time `json:"sent_at"`
}

// Sender delivers a message to a user over some channel.
type Sender interface {
	Send(ctx context.Context, userID, message string, priority Priority) error
}

// LogSender writes notifications to the process log and keeps a bounded
// in-memory history per user. It stands in for push or email delivery.
type LogSender struct {
	mu      sync.Mutex
	history map[string][]Notification
	limit   int
	seq     int
}

func NewLogSender(historyLimit int) *LogSender {
	if historyLimit <= 0 {
		historyLimit = 100
	}
	return &LogSender{history: make(map[string][]Notification), limit: historyLimit}
}

func (s *LogSender) Send(_ context.Context, userID, message string, priority Priority) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	n := Notification{
		ID:       fmt.Sprintf("n-%d", s.seq),
		UserID:   userID,
		Message:  message,
		Priority: priority,
		SentAt:   time.Now().UTC(),
	}
	hist := append(s.history[userID], n)
	if len(hist) > s.limit {
		hist = hist[len(hist)-s.limit:]
	}
	s.history[userID] = hist
	log.Printf("notify user=%s priority=%s: %s", userID, priority, message)
	return nil
}

// History returns sent notifications for a user, most recent last.
func (s *LogSender) History(userID string) []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	hist := s.history[userID]
	out := make([]Notification, len(hist))
	copy(out, hist)
	return out
}

// NudgeMessage composes a reminder for upcoming or overdue work. Tone scales
// with how close the nearest deadline is.
func NudgeMessage(pending []tasks.Task, now time.Time) (string, Priority) {
	if len(pending) == 0 {
		return "You're all caught up. Nice work!", PriorityLow
	}
	sorted := make([]tasks.Task, len(pending))
	copy(sorted, pending)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].DueAt.Before(sorted[j].DueAt) })

	nearest := sorted[0]
	var overdue int
	for _, t := range sorted {
		if t.Overdue(now) {
			overdue++
		}
	}

	switch {
	case overdue > 0:
		return fmt.Sprintf("You have %d overdue task(s). Start with %q for %s.",
			overdue, nearest.Title, nearest.Course), PriorityUrgent
	case nearest.DueAt.Sub(now) <= 24*time.Hour:
		return fmt.Sprintf("%q for %s is due in less than a day. Time to focus!",
			nearest.Title, nearest.Course), PriorityUrgent
	case nearest.DueAt.Sub(now) <= 72*time.Hour:
		return fmt.Sprintf("Heads up: %q for %s is due %s.",
			nearest.Title, nearest.Course, nearest.DueAt.Format("Mon Jan 2")), PriorityNormal
	default:
		return fmt.Sprintf("You have %d task(s) on deck. Next up: %q for %s.",
			len(sorted), nearest.Title, nearest.Course), PriorityLow
	}
}

// WeeklySummary composes a digest of workload and health for the coming week.
func WeeklySummary(snap *tasks.Snapshot, score health.Score, now time.Time) string {
	var upcoming, overdue int
	var hours float64
	for _, t := range snap.Pending() {
		if t.Overdue(now) {
			overdue++
			hours += t.EffortOrDefault()
			continue
		}
		if t.DueWithin(now, 7*24*time.Hour) {
			upcoming++
			hours += t.EffortOrDefault()
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Weekly outlook: %d task(s) due in the next 7 days (~%.1f hours of work).", upcoming, hours)
	if overdue > 0 {
		fmt.Fprintf(&b, " %d task(s) are overdue.", overdue)
	}
	fmt.Fprintf(&b, " Academic health: %d/100 (%s).", score.Score, score.Status)
	switch score.Status {
	case health.StatusCritical:
		b.WriteString(" Consider rescheduling commitments and tackling overdue work first.")
	case health.StatusAtRisk:
		b.WriteString(" A steady daily routine this week will get you back on track.")
	default:
		b.WriteString(" Keep it up!")
	}
	return b.String()
}
