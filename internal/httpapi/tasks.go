package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"studypilot/internal/health"
	"studypilot/internal/tasks"
)

type createTaskRequest struct {
	Title          string  `json:"title"`
	Course         string  `json:"course"`
	Kind           string  `json:"kind"`
	DueAt          string  `json:"due_at"`
	EstimatedHours float64 `json:"estimated_hours"`
	Priority       string  `json:"priority"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		respondError(w, http.StatusBadRequest, "invalid_title", "title is required")
		return
	}
	due, err := time.Parse(time.RFC3339, req.DueAt)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_due_at", "due_at must be RFC 3339")
		return
	}
	kind := tasks.Kind(strings.TrimSpace(req.Kind))
	if kind == "" {
		kind = tasks.KindAssignment
	}
	prio := tasks.Priority(strings.TrimSpace(req.Priority))
	if prio == "" {
		prio = tasks.PriorityMedium
	}
	if !prio.Valid() {
		respondError(w, http.StatusBadRequest, "invalid_priority", "unknown priority")
		return
	}

	now := time.Now().UTC()
	t := tasks.Task{
		ID:             uuid.NewString(),
		UserID:         uid,
		Title:          strings.TrimSpace(req.Title),
		Course:         strings.TrimSpace(req.Course),
		Kind:           kind,
		DueAt:          due.UTC(),
		EstimatedHours: req.EstimatedHours,
		Priority:       prio,
		Status:         tasks.StatusPending,
		Source:         "manual",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.tasks.SaveTask(r.Context(), t); err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, t)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	all, err := s.tasks.ListTasksByUser(r.Context(), uid)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	now := time.Now().UTC()
	filter := strings.TrimSpace(r.URL.Query().Get("filter"))
	out := make([]tasks.Task, 0, len(all))
	for _, t := range all {
		switch filter {
		case "", "all":
			out = append(out, t)
		case "upcoming":
			if t.DueWithin(now, 7*24*time.Hour) {
				out = append(out, t)
			}
		case "overdue":
			if t.Overdue(now) {
				out = append(out, t)
			}
		case "pending":
			if t.Pending() {
				out = append(out, t)
			}
		default:
			respondError(w, http.StatusBadRequest, "invalid_filter", "filter must be all, upcoming, overdue or pending")
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"tasks": out, "count": len(out)})
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	taskID := chi.URLParam(r, "taskID")
	t, err := s.tasks.GetTask(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, tasks.ErrStoreNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "task not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	if t.UserID != uid {
		respondError(w, http.StatusNotFound, "not_found", "task not found")
		return
	}
	t.Status = tasks.StatusDone
	t.UpdatedAt = time.Now().UTC()
	if err := s.tasks.SaveTask(r.Context(), t); err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// handleSyncTasks pulls every configured source and returns the merged set.
func (s *Server) handleSyncTasks(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	stored, results, err := s.sources.Sync(r.Context(), uid)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "sync_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"tasks":   stored,
		"count":   len(stored),
		"sources": results,
	})
}

func (s *Server) handleHealthScore(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	all, err := s.tasks.ListTasksByUser(r.Context(), uid)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	now := time.Now().UTC()
	snap := tasks.Snapshot{UserID: uid, TakenAt: now, Tasks: all}
	score := health.Compute(snap, now, s.settings.Health)
	respondJSON(w, http.StatusOK, score)
}
