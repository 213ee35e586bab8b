package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"studypilot/internal/health"
	"studypilot/internal/notify"
	"studypilot/internal/planner"
	"studypilot/internal/tasks"
	"studypilot/internal/users"
)

// Dispatcher turns a scored snapshot into concrete actions: nudges,
// emergency replans, study plans and conflict resolution attempts. Every
// attempt produces an Action record, completed or failed.
type Dispatcher struct {
	Settings Settings
	Notifier notify.Sender
}

// DispatchInput carries one cycle's observations into the dispatcher. Plan
// is mutated in place when the dispatcher replans or reschedules.
type DispatchInput struct {
	Snapshot  tasks.Snapshot
	Score     health.Score
	Plan      *planner.WeeklyPlan
	Prefs     users.Preferences
	LastNudge time.Time
	Now       time.Time
}

// DispatchEffects reports side effects the loop must persist.
type DispatchEffects struct {
	PlanChanged bool
	NudgedAt    time.Time
}

func (d *Dispatcher) Dispatch(ctx context.Context, in DispatchInput) ([]Action, DispatchEffects) {
	set := d.Settings.normalized()
	var actions []Action
	var effects DispatchEffects

	record := func(a Action) {
		a.ID = uuid.NewString()
		a.UserID = in.Snapshot.UserID
		a.At = in.Now
		actions = append(actions, a)
	}

	nudge := func(force bool) {
		if !force && in.Now.Sub(in.LastNudge) < set.NudgeMinInterval {
			return
		}
		msg, prio := notify.NudgeMessage(in.Snapshot.Pending(), in.Now)
		a := Action{Type: ActionSendNudge, Message: msg, Outcome: OutcomeCompleted}
		if err := d.Notifier.Send(ctx, in.Snapshot.UserID, msg, prio); err != nil {
			a.Outcome = OutcomeFailed
			a.Detail = err.Error()
		} else {
			effects.NudgedAt = in.Now
		}
		record(a)
	}

	switch in.Score.Status {
	case health.StatusCritical:
		emergency := planner.BuildEmergency(in.Snapshot, in.Now, set.Planner)
		*in.Plan = emergency
		effects.PlanChanged = true
		record(Action{
			Type:    ActionEmergencyPlan,
			Message: fmt.Sprintf("health %d (%s): rebuilt plan around %d urgent task(s)", in.Score.Score, in.Score.Status, len(in.Snapshot.Pending())),
			Outcome: OutcomeCompleted,
		})
		nudge(true)
	case health.StatusAtRisk:
		nudge(false)
	}

	if in.Prefs.AutoCreateStudyPlans {
		d.createStudyPlans(in, record, &effects)
	}

	d.resolveConflicts(in, record, &effects)

	return actions, effects
}

// createStudyPlans schedules spaced study sessions for every exam inside the
// lookahead window that the current plan does not yet cover.
func (d *Dispatcher) createStudyPlans(in DispatchInput, record func(Action), effects *DispatchEffects) {
	set := d.Settings.normalized()
	lookahead := set.StudyPlanLookahead
	if in.Prefs.StudyPlanDaysBefore > 0 {
		lookahead = in.Prefs.StudyPlanDaysBefore
	}
	window := time.Duration(lookahead) * 24 * time.Hour

	plannerCfg := set.Planner
	if in.Prefs.PreferredStudyHours > 0 {
		plannerCfg.DailyHours = in.Prefs.PreferredStudyHours
	}

	for _, t := range in.Snapshot.Pending() {
		if t.Kind != tasks.KindExam || !t.DueAt.After(in.Now) || !t.DueWithin(in.Now, window) {
			continue
		}
		if in.Plan.HasSessionsFor(t.ID) {
			continue
		}
		sessions, conflict := planner.StudyPlan(t, in.Now, plannerCfg)
		a := Action{
			Type:   ActionCreateStudyPlan,
			TaskID: t.ID,
		}
		if len(sessions) > 0 {
			in.Plan.StudySessions = append(in.Plan.StudySessions, sessions...)
			effects.PlanChanged = true
			a.Outcome = OutcomeCompleted
			a.Message = fmt.Sprintf("scheduled %d study session(s) for %q", len(sessions), t.Title)
		} else {
			a.Outcome = OutcomeFailed
			a.Message = fmt.Sprintf("could not schedule study time for %q", t.Title)
		}
		if conflict != nil {
			in.Plan.Conflicts = append(in.Plan.Conflicts, *conflict)
			effects.PlanChanged = true
			a.Detail = conflict.Reason
		}
		record(a)
	}
}

// resolveConflicts retries every unresolved scheduling conflict against the
// plan's remaining capacity.
func (d *Dispatcher) resolveConflicts(in DispatchInput, record func(Action), effects *DispatchEffects) {
	for _, c := range in.Plan.Conflicts {
		if c.Resolved {
			continue
		}
		a := Action{
			Type:   ActionResolveConflict,
			TaskID: c.TaskID,
		}
		if planner.ResolveConflict(in.Plan, c) {
			effects.PlanChanged = true
			a.Outcome = OutcomeCompleted
			a.Message = fmt.Sprintf("rescheduled %.1fh for %q inside the week", c.UnplacedHours, c.Title)
		} else {
			a.Outcome = OutcomeFailed
			a.Message = fmt.Sprintf("no room left this week for %q", c.Title)
			a.Detail = c.Reason
		}
		record(a)
	}
}
