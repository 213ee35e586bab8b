package users

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("user not found")

// ValidationError marks malformed user or preference input. The originating
// command is rejected and no state changes.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Preferences holds the per-user planning knobs.
type Preferences struct {
	NudgeThresholdDays    int     `json:"nudge_threshold_days"`
	PreferredStudyHours   float64 `json:"preferred_study_hours_per_day"`
	AutoCreateStudyPlans  bool    `json:"auto_create_study_plans"`
	StudyPlanDaysBefore   int     `json:"study_plan_days_before_exam"`
	NotificationFrequency string  `json:"notification_frequency"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		NudgeThresholdDays:    3,
		PreferredStudyHours:   3,
		AutoCreateStudyPlans:  true,
		StudyPlanDaysBefore:   7,
		NotificationFrequency: "daily",
	}
}

type User struct {
	ID          string      `json:"id"`
	Email       string      `json:"email"`
	Name        string      `json:"name"`
	Preferences Preferences `json:"preferences"`
	CreatedAt   time.Time   `json:"created_at"`
}

type Registry struct {
	mu      sync.RWMutex
	users   map[string]*User
	byEmail map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		users:   make(map[string]*User),
		byEmail: make(map[string]string),
	}
}

// Create registers a new user. Registering an email twice returns the
// existing user unchanged.
func (r *Registry) Create(email, name string, prefs *Preferences) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if email == "" || !strings.Contains(email, "@") {
		return User{}, &ValidationError{Field: "email", Reason: "must be a non-empty address"}
	}
	if name == "" {
		return User{}, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	p := DefaultPreferences()
	if prefs != nil {
		p = *prefs
		if p.PreferredStudyHours <= 0 {
			return User{}, &ValidationError{Field: "preferred_study_hours_per_day", Reason: "must be positive"}
		}
		if p.NudgeThresholdDays < 0 {
			return User{}, &ValidationError{Field: "nudge_threshold_days", Reason: "must be >= 0"}
		}
		if p.StudyPlanDaysBefore <= 0 {
			return User{}, &ValidationError{Field: "study_plan_days_before_exam", Reason: "must be positive"}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byEmail[email]; ok {
		return *r.users[id], nil
	}
	u := &User{
		ID:          uuid.NewString(),
		Email:       email,
		Name:        name,
		Preferences: p,
		CreatedAt:   time.Now().UTC(),
	}
	r.users[u.ID] = u
	r.byEmail[email] = u.ID
	return *u, nil
}

func (r *Registry) Get(userID string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[strings.TrimSpace(userID)]
	if !ok {
		return User{}, ErrNotFound
	}
	return *u, nil
}

// UpdatePreferences replaces the user's preferences after validation.
func (r *Registry) UpdatePreferences(userID string, prefs Preferences) (User, error) {
	if prefs.PreferredStudyHours <= 0 {
		return User{}, &ValidationError{Field: "preferred_study_hours_per_day", Reason: "must be positive"}
	}
	if prefs.NudgeThresholdDays < 0 {
		return User{}, &ValidationError{Field: "nudge_threshold_days", Reason: "must be >= 0"}
	}
	if prefs.StudyPlanDaysBefore <= 0 {
		return User{}, &ValidationError{Field: "study_plan_days_before_exam", Reason: "must be positive"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[strings.TrimSpace(userID)]
	if !ok {
		return User{}, ErrNotFound
	}
	u.Preferences = prefs
	return *u, nil
}
