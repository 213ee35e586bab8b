// Package health computes the academic-health score for one task snapshot.
// Scoring is a pure function of (snapshot, now, policy): identical inputs
// always produce identical output, and nothing here mutates the snapshot.
package health

import (
	"time"

	"studypilot/internal/tasks"
)

type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusAtRisk   Status = "at_risk"
	StatusCritical Status = "critical"
)

// Score is a derived value, recomputed fresh every cycle and never updated
// incrementally.
type Score struct {
	Score            int     `json:"score"`
	Status           Status  `json:"status"`
	OverdueCount     int     `json:"overdue_count"`
	CriticalUpcoming int     `json:"critical_upcoming_count"`
	WeeklyHours      float64 `json:"weekly_hours"`
	DailyAverage     float64 `json:"daily_average"`
}

// Policy holds the scoring knobs; zero values mean "no penalty of that kind".
type Policy struct {
	OverduePenalty    int
	OverduePenaltyCap int
	NearDuePenalty    int
	WorkloadPenalty   int
	CriticalWindow    time.Duration
	PreferredDaily    float64
}

func DefaultPolicy() Policy {
	return Policy{
		OverduePenalty:    10,
		OverduePenaltyCap: 30,
		NearDuePenalty:    5,
		WorkloadPenalty:   15,
		CriticalWindow:    48 * time.Hour,
		PreferredDaily:    3,
	}
}

// Compute scores the snapshot. An empty snapshot yields the maximal score.
func Compute(snap tasks.Snapshot, now time.Time, policy Policy) Score {
	score := 100
	out := Score{}

	for _, t := range snap.Tasks {
		if !t.Pending() {
			continue
		}
		if t.Overdue(now) {
			out.OverdueCount++
			daysOver := int(now.Sub(t.DueAt)/(24*time.Hour)) + 1
			penalty := policy.OverduePenalty * daysOver
			if policy.OverduePenaltyCap > 0 && penalty > policy.OverduePenaltyCap {
				penalty = policy.OverduePenaltyCap
			}
			score -= penalty
			continue
		}
		if t.DueWithin(now, policy.CriticalWindow) && t.Priority.Rank() >= tasks.PriorityHigh.Rank() {
			out.CriticalUpcoming++
			score -= policy.NearDuePenalty
		}
	}

	for _, t := range snap.Tasks {
		if t.DueWithin(now, 7*24*time.Hour) {
			out.WeeklyHours += t.EffortOrDefault()
		}
	}
	out.DailyAverage = out.WeeklyHours / 7

	if policy.PreferredDaily > 0 && out.DailyAverage > policy.PreferredDaily*1.5 {
		score -= policy.WorkloadPenalty
	}

	if score < 0 {
		score = 0
	}
	out.Score = score
	out.Status = statusFor(score)
	return out
}

func statusFor(score int) Status {
	switch {
	case score >= 80:
		return StatusHealthy
	case score >= 50:
		return StatusAtRisk
	default:
		return StatusCritical
	}
}
