package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"studypilot/internal/users"
)

type createUserRequest struct {
	Email       string             `json:"email"`
	Name        string             `json:"name"`
	Preferences *users.Preferences `json:"preferences,omitempty"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	u, err := s.users.Create(req.Email, req.Name, req.Preferences)
	if err != nil {
		var verr *users.ValidationError
		if errors.As(err, &verr) {
			respondError(w, http.StatusBadRequest, "invalid_"+verr.Field, verr.Reason)
			return
		}
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, u)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "not_found", "user not found")
		return
	}
	respondJSON(w, http.StatusOK, u)
}

func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var prefs users.Preferences
	if err := decodeJSON(r, &prefs); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	u, err := s.users.UpdatePreferences(chi.URLParam(r, "id"), prefs)
	if err != nil {
		var verr *users.ValidationError
		switch {
		case errors.As(err, &verr):
			respondError(w, http.StatusBadRequest, "invalid_"+verr.Field, verr.Reason)
		case errors.Is(err, users.ErrNotFound):
			respondError(w, http.StatusNotFound, "not_found", "user not found")
		default:
			respondError(w, http.StatusInternalServerError, "internal", err.Error())
		}
		return
	}
	respondJSON(w, http.StatusOK, u)
}

func userID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "id"))
}
