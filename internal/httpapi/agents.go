package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"studypilot/internal/agent"
	"studypilot/internal/health"
	"studypilot/internal/notify"
	"studypilot/internal/tasks"
)

func (s *Server) handleAgentStart(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if _, err := s.users.Get(uid); err != nil {
		respondError(w, http.StatusNotFound, "not_found", "user not found")
		return
	}
	respondJSON(w, http.StatusOK, s.agents.Start(uid))
}

func (s *Server) handleAgentStop(w http.ResponseWriter, r *http.Request) {
	state, err := s.agents.Stop(userID(r))
	if err != nil {
		respondError(w, http.StatusNotFound, "not_found", "agent not found")
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleAgentStatus(w http.ResponseWriter, r *http.Request) {
	state, err := s.agents.Status(userID(r))
	if err != nil {
		respondError(w, http.StatusNotFound, "not_found", "agent not found")
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleAgentActions(w http.ResponseWriter, r *http.Request) {
	actions, err := s.agents.Actions(userID(r), historyLimit(r))
	if err != nil {
		respondError(w, http.StatusNotFound, "not_found", "agent not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"actions": actions, "count": len(actions)})
}

func (s *Server) handleAgentDecisions(w http.ResponseWriter, r *http.Request) {
	decisions, err := s.agents.Decisions(userID(r), historyLimit(r))
	if err != nil {
		respondError(w, http.StatusNotFound, "not_found", "agent not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"decisions": decisions, "count": len(decisions)})
}

// historyLimit reads the ?limit= query param for history endpoints. Absent
// or malformed values fall back to the default page of 20 most recent
// entries; limit=0 returns everything retained.
func historyLimit(r *http.Request) int {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return defaultHistoryLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return defaultHistoryLimit
	}
	return n
}

const defaultHistoryLimit = 20

// handleAgentCycle triggers one cycle immediately. A cycle already in flight
// makes the trigger a recorded skip, not a queue entry and not a failure.
func (s *Server) handleAgentCycle(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if _, err := s.users.Get(uid); err != nil {
		respondError(w, http.StatusNotFound, "not_found", "user not found")
		return
	}
	// Detach from the request context so a client disconnect cannot abort
	// the cycle mid-flight.
	res, err := s.agents.Trigger(context.WithoutCancel(r.Context()), uid)
	if err != nil {
		if errors.Is(err, agent.ErrCycleInProgress) {
			respondJSON(w, http.StatusOK, map[string]any{
				"skipped": true,
				"reason":  "a cycle is already executing",
			})
			return
		}
		respondError(w, http.StatusInternalServerError, "cycle_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// handleAgentWS streams dispatched actions to the client as they happen.
func (s *Server) handleAgentWS(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	feed, cancel := s.agents.Subscribe(uid)
	defer cancel()

	// Drain client frames so pings and close frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case a, ok := <-feed:
			if !ok {
				return
			}
			if err := conn.WriteJSON(a); err != nil {
				log.Printf("agent ws %s: write failed: %v", uid, err)
				return
			}
		}
	}
}

// handleNudge sends a reminder only when the user's health warrants one; a
// healthy snapshot reports should_nudge=false without sending anything.
func (s *Server) handleNudge(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	all, err := s.tasks.ListTasksByUser(r.Context(), uid)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	now := time.Now().UTC()
	snap := tasks.Snapshot{UserID: uid, TakenAt: now, Tasks: all}
	score := health.Compute(snap, now, s.settings.Health)
	if score.Status == health.StatusHealthy {
		respondJSON(w, http.StatusOK, map[string]any{"should_nudge": false, "status": score.Status})
		return
	}
	msg, prio := notify.NudgeMessage(snap.Pending(), now)
	if err := s.sender.Send(r.Context(), uid, msg, prio); err != nil {
		respondError(w, http.StatusInternalServerError, "send_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"should_nudge": true, "message": msg, "priority": prio})
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	hist := s.sender.History(userID(r))
	respondJSON(w, http.StatusOK, map[string]any{"notifications": hist, "count": len(hist)})
}

func (s *Server) handleWeeklySummary(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	all, err := s.tasks.ListTasksByUser(r.Context(), uid)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	now := time.Now().UTC()
	snap := tasks.Snapshot{UserID: uid, TakenAt: now, Tasks: all}
	score := health.Compute(snap, now, s.settings.Health)
	summary := notify.WeeklySummary(&snap, score, now)
	if err := s.sender.Send(r.Context(), uid, summary, notify.PriorityNormal); err != nil {
		respondError(w, http.StatusInternalServerError, "send_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"summary": summary, "score": score})
}
