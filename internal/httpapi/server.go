package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"studypilot/internal/agent"
	"studypilot/internal/config"
	"studypilot/internal/notify"
	"studypilot/internal/observability"
	"studypilot/internal/planner"
	"studypilot/internal/sources"
	"studypilot/internal/tasks"
	"studypilot/internal/users"
)

// notifySender is the delivery channel plus the query surface the API
// exposes. *notify.LogSender satisfies it.
type notifySender interface {
	Send(ctx context.Context, userID, message string, priority notify.Priority) error
	History(userID string) []notify.Notification
}

type Server struct {
	cfg      config.Config
	settings agent.Settings
	users    *users.Registry
	tasks    tasks.Store
	plans    planner.Store
	agents   *agent.Manager
	sources  *sources.Aggregator
	sender   notifySender
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func New(cfg config.Config, settings agent.Settings, registry *users.Registry, taskStore tasks.Store, planStore planner.Store, agents *agent.Manager, agg *sources.Aggregator, sender notifySender, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:      cfg,
		settings: settings,
		users:    registry,
		tasks:    taskStore,
		plans:    planStore,
		agents:   agents,
		sources:  agg,
		sender:   sender,
		metrics:  metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser websocket connections from the same
				// origin unless explicitly opened up.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/users", s.handleCreateUser)
	r.Get("/v1/users/{id}", s.handleGetUser)
	r.Put("/v1/users/{id}/preferences", s.handleUpdatePreferences)

	r.Get("/v1/users/{id}/tasks", s.handleListTasks)
	r.Post("/v1/users/{id}/tasks", s.handleCreateTask)
	r.Post("/v1/users/{id}/tasks/sync", s.handleSyncTasks)
	r.Post("/v1/users/{id}/tasks/{taskID}/complete", s.handleCompleteTask)

	r.Get("/v1/users/{id}/health", s.handleHealthScore)

	r.Get("/v1/users/{id}/plan", s.handleGetPlan)
	r.Post("/v1/users/{id}/plan", s.handleCreatePlan)
	r.Post("/v1/users/{id}/plan/revise", s.handleCreatePlan)
	r.Get("/v1/users/{id}/plan/conflicts", s.handleListConflicts)
	r.Post("/v1/users/{id}/plan/conflicts/{taskID}/resolve", s.handleResolveConflict)
	r.Post("/v1/users/{id}/study-plans", s.handleCreateStudyPlan)
	r.Post("/v1/users/{id}/study-plans/auto", s.handleAutoStudyPlans)

	r.Post("/v1/users/{id}/agent/start", s.handleAgentStart)
	r.Post("/v1/users/{id}/agent/stop", s.handleAgentStop)
	r.Get("/v1/users/{id}/agent/status", s.handleAgentStatus)
	r.Get("/v1/users/{id}/agent/actions", s.handleAgentActions)
	r.Get("/v1/users/{id}/agent/decisions", s.handleAgentDecisions)
	r.Post("/v1/users/{id}/agent/cycle", s.handleAgentCycle)
	r.Get("/v1/users/{id}/agent/ws", s.handleAgentWS)

	r.Post("/v1/users/{id}/nudge", s.handleNudge)
	r.Get("/v1/users/{id}/notifications", s.handleListNotifications)
	r.Get("/v1/users/{id}/weekly-summary", s.handleWeeklySummary)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"store_mode": s.storeMode(),
	})
}

func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ready",
		"store_mode": s.storeMode(),
	})
}

func (s *Server) storeMode() string {
	if strings.TrimSpace(s.cfg.DatabaseURL) != "" {
		return "postgres"
	}
	return "in-memory"
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
