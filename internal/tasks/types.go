package tasks

import "time"

type Kind string

const (
	KindAssignment Kind = "assignment"
	KindExam       Kind = "exam"
	KindEvent      Kind = "event"
	KindReading    Kind = "reading"
)

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank orders priorities for sorting; higher is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
)

type Task struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Title          string    `json:"title"`
	Course         string    `json:"course,omitempty"`
	Kind           Kind      `json:"kind"`
	DueAt          time.Time `json:"due_at"`
	EstimatedHours float64   `json:"estimated_hours"`
	Priority       Priority  `json:"priority"`
	Status         Status    `json:"status"`
	Source         string    `json:"source"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Pending reports whether the task still needs work.
func (t Task) Pending() bool {
	return t.Status == StatusPending
}

// Overdue reports whether a pending task's due time has passed.
func (t Task) Overdue(now time.Time) bool {
	return t.Pending() && !t.DueAt.After(now)
}

// DueWithin reports whether a pending task is due inside the window after now.
func (t Task) DueWithin(now time.Time, window time.Duration) bool {
	if !t.Pending() || t.DueAt.Before(now) {
		return false
	}
	return !t.DueAt.After(now.Add(window))
}

// EffortOrDefault returns the estimated effort, falling back to a nominal
// three hours when the source did not provide one.
func (t Task) EffortOrDefault() float64 {
	if t.EstimatedHours > 0 {
		return t.EstimatedHours
	}
	return 3
}

// Snapshot is the set of one user's tasks as read at one instant. Scoring,
// decision making and planning all operate on a snapshot, never on the store.
type Snapshot struct {
	UserID  string
	TakenAt time.Time
	Tasks   []Task
}

// Pending returns the pending tasks in the snapshot.
func (s Snapshot) Pending() []Task {
	out := make([]Task, 0, len(s.Tasks))
	for _, t := range s.Tasks {
		if t.Pending() {
			out = append(out, t)
		}
	}
	return out
}

// Clone returns a deep copy so callers can mutate freely.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.Tasks != nil {
		out.Tasks = make([]Task, len(s.Tasks))
		copy(out.Tasks, s.Tasks)
	}
	return out
}
