package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"studypilot/internal/planner"
	"studypilot/internal/tasks"
)

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.plans.LoadPlan(r.Context(), userID(r))
	if err != nil {
		if errors.Is(err, planner.ErrPlanNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "no plan for user")
			return
		}
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, plan)
}

type createPlanRequest struct {
	Emergency bool `json:"emergency"`
}

// handleCreatePlan builds a fresh weekly plan from the user's current tasks,
// replacing any stored one. Revising an existing plan is the same rebuild,
// so the revise route shares this handler.
func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	var req createPlanRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	all, err := s.tasks.ListTasksByUser(r.Context(), uid)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	now := time.Now().UTC()
	snap := tasks.Snapshot{UserID: uid, TakenAt: now, Tasks: all}

	var plan planner.WeeklyPlan
	if req.Emergency {
		plan = planner.BuildEmergency(snap, now, s.settings.Planner)
	} else {
		plan = planner.Build(snap, now, s.settings.Planner)
	}
	if err := s.plans.SavePlan(r.Context(), plan); err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, plan)
}

func (s *Server) handleListConflicts(w http.ResponseWriter, r *http.Request) {
	plan, err := s.plans.LoadPlan(r.Context(), userID(r))
	if err != nil {
		if errors.Is(err, planner.ErrPlanNotFound) {
			respondJSON(w, http.StatusOK, map[string]any{"conflicts": []planner.Conflict{}})
			return
		}
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"conflicts": plan.Conflicts})
}

func (s *Server) handleResolveConflict(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	taskID := chi.URLParam(r, "taskID")
	plan, err := s.plans.LoadPlan(r.Context(), uid)
	if err != nil {
		if errors.Is(err, planner.ErrPlanNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "no plan for user")
			return
		}
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	var target *planner.Conflict
	for i := range plan.Conflicts {
		if plan.Conflicts[i].TaskID == taskID && !plan.Conflicts[i].Resolved {
			target = &plan.Conflicts[i]
			break
		}
	}
	if target == nil {
		respondError(w, http.StatusNotFound, "not_found", "no unresolved conflict for task")
		return
	}
	if !planner.ResolveConflict(&plan, *target) {
		respondError(w, http.StatusConflict, "unresolvable", "no capacity left before the due date")
		return
	}
	if err := s.plans.SavePlan(r.Context(), plan); err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, plan)
}

type createStudyPlanRequest struct {
	TaskID string `json:"task_id"`
}

// handleAutoStudyPlans scans the lookahead window for exams the current plan
// does not cover and schedules study sessions for each.
func (s *Server) handleAutoStudyPlans(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	all, err := s.tasks.ListTasksByUser(r.Context(), uid)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	now := time.Now().UTC()
	snap := tasks.Snapshot{UserID: uid, TakenAt: now, Tasks: all}

	plan, err := s.plans.LoadPlan(r.Context(), uid)
	if errors.Is(err, planner.ErrPlanNotFound) {
		plan = planner.Build(snap, now, s.settings.Planner)
	} else if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	window := time.Duration(s.settings.StudyPlanLookahead) * 24 * time.Hour
	type planned struct {
		TaskID   string                 `json:"task_id"`
		Title    string                 `json:"title"`
		Sessions []planner.StudySession `json:"sessions"`
		Conflict *planner.Conflict      `json:"conflict,omitempty"`
	}
	var created []planned
	for _, t := range snap.Pending() {
		if t.Kind != tasks.KindExam || !t.DueAt.After(now) || !t.DueWithin(now, window) {
			continue
		}
		if plan.HasSessionsFor(t.ID) {
			continue
		}
		sessions, conflict := planner.StudyPlan(t, now, s.settings.Planner)
		plan.StudySessions = append(plan.StudySessions, sessions...)
		if conflict != nil {
			plan.Conflicts = append(plan.Conflicts, *conflict)
		}
		created = append(created, planned{TaskID: t.ID, Title: t.Title, Sessions: sessions, Conflict: conflict})
	}

	if len(created) > 0 {
		if err := s.plans.SavePlan(r.Context(), plan); err != nil {
			respondError(w, http.StatusInternalServerError, "store_error", err.Error())
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"created": created, "count": len(created)})
}

// handleCreateStudyPlan schedules spaced study sessions for one exam and
// attaches them to the weekly plan.
func (s *Server) handleCreateStudyPlan(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	var req createStudyPlanRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	exam, err := s.tasks.GetTask(r.Context(), req.TaskID)
	if err != nil || exam.UserID != uid {
		respondError(w, http.StatusNotFound, "not_found", "task not found")
		return
	}
	if exam.Kind != tasks.KindExam {
		respondError(w, http.StatusBadRequest, "not_an_exam", "study plans are built for exam tasks")
		return
	}

	now := time.Now().UTC()
	sessions, conflict := planner.StudyPlan(exam, now, s.settings.Planner)

	plan, err := s.plans.LoadPlan(r.Context(), uid)
	if errors.Is(err, planner.ErrPlanNotFound) {
		all, lerr := s.tasks.ListTasksByUser(r.Context(), uid)
		if lerr != nil {
			respondError(w, http.StatusInternalServerError, "store_error", lerr.Error())
			return
		}
		plan = planner.Build(tasks.Snapshot{UserID: uid, TakenAt: now, Tasks: all}, now, s.settings.Planner)
	} else if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	plan.StudySessions = append(plan.StudySessions, sessions...)
	if conflict != nil {
		plan.Conflicts = append(plan.Conflicts, *conflict)
	}
	if err := s.plans.SavePlan(r.Context(), plan); err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"sessions": sessions,
		"conflict": conflict,
		"plan_id":  plan.ID,
	})
}
