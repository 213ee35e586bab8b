package users

import (
	"errors"
	"testing"
)

func TestRegistryCreateIsIdempotentPerEmail(t *testing.T) {
	r := NewRegistry()

	first, err := r.Create("student@example.edu", "Jordan", nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	second, err := r.Create("Student@Example.edu", "Jordan", nil)
	if err != nil {
		t.Fatalf("Create() second error = %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("second create id = %q, want %q", second.ID, first.ID)
	}
}

func TestRegistryValidation(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name  string
		email string
		user  string
		prefs *Preferences
	}{
		{"empty email", "", "Jordan", nil},
		{"no at sign", "student.example.edu", "Jordan", nil},
		{"empty name", "student@example.edu", "", nil},
		{"bad study hours", "student@example.edu", "Jordan", &Preferences{PreferredStudyHours: 0, StudyPlanDaysBefore: 7}},
		{"negative nudge days", "student@example.edu", "Jordan", &Preferences{PreferredStudyHours: 3, NudgeThresholdDays: -1, StudyPlanDaysBefore: 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Create(tt.email, tt.user, tt.prefs)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Create() error = %v, want ValidationError", err)
			}
		})
	}
}

func TestRegistryGetMissing(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestRegistryUpdatePreferences(t *testing.T) {
	r := NewRegistry()
	u, err := r.Create("student@example.edu", "Jordan", nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	prefs := u.Preferences
	prefs.PreferredStudyHours = 5
	updated, err := r.UpdatePreferences(u.ID, prefs)
	if err != nil {
		t.Fatalf("UpdatePreferences() error = %v", err)
	}
	if updated.Preferences.PreferredStudyHours != 5 {
		t.Fatalf("PreferredStudyHours = %v, want 5", updated.Preferences.PreferredStudyHours)
	}
}
