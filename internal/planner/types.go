package planner

import (
	"time"

	"studypilot/internal/tasks"
)

// Allocation assigns part of a task's effort to one day of the plan.
type Allocation struct {
	TaskID   string         `json:"task_id"`
	Title    string         `json:"title"`
	Hours    float64        `json:"hours"`
	Priority tasks.Priority `json:"priority"`
	DueAt    time.Time      `json:"due_at"`
	// Override marks hours placed above the daily cap by conflict resolution.
	Override bool `json:"override,omitempty"`
}

// Day is one slot of the 7-day window.
type Day struct {
	Date        time.Time    `json:"date"`
	Weekday     string       `json:"weekday"`
	Allocations []Allocation `json:"allocations"`
	Hours       float64      `json:"hours"`
}

// StudySession is a derived sub-entity of a plan, produced for exam tasks.
// Session dates always fall strictly before the exam's due time.
type StudySession struct {
	ID     string    `json:"id"`
	TaskID string    `json:"task_id"`
	Title  string    `json:"title"`
	Course string    `json:"course,omitempty"`
	Date   time.Time `json:"date"`
	Hours  float64   `json:"hours"`
}

// Conflict records a task that could not be fully scheduled before its due
// time under current constraints. Conflicts are reported, never silently
// dropped.
type Conflict struct {
	TaskID        string    `json:"task_id"`
	Title         string    `json:"title"`
	DueAt         time.Time `json:"due_at"`
	UnplacedHours float64   `json:"unplaced_hours"`
	Reason        string    `json:"reason"`
	Resolved      bool      `json:"resolved"`
}

// WeeklyPlan covers a fixed 7-day window anchored to the cycle's run time.
// Exactly one plan is current per user; a new plan replaces the previous one.
type WeeklyPlan struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id"`
	AnchoredAt    time.Time      `json:"anchored_at"`
	Days          [7]Day         `json:"days"`
	StudySessions []StudySession `json:"study_sessions,omitempty"`
	Conflicts     []Conflict     `json:"conflicts,omitempty"`
	Emergency     bool           `json:"emergency,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// TotalHours sums all allocated hours across the window.
func (p WeeklyPlan) TotalHours() float64 {
	var total float64
	for _, d := range p.Days {
		total += d.Hours
	}
	return total
}

// HasSessionsFor reports whether the plan carries study sessions for a task.
func (p WeeklyPlan) HasSessionsFor(taskID string) bool {
	for _, s := range p.StudySessions {
		if s.TaskID == taskID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the plan.
func (p WeeklyPlan) Clone() WeeklyPlan {
	out := p
	for i := range p.Days {
		if p.Days[i].Allocations != nil {
			out.Days[i].Allocations = make([]Allocation, len(p.Days[i].Allocations))
			copy(out.Days[i].Allocations, p.Days[i].Allocations)
		}
	}
	if p.StudySessions != nil {
		out.StudySessions = make([]StudySession, len(p.StudySessions))
		copy(out.StudySessions, p.StudySessions)
	}
	if p.Conflicts != nil {
		out.Conflicts = make([]Conflict, len(p.Conflicts))
		copy(out.Conflicts, p.Conflicts)
	}
	return out
}
