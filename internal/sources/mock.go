package sources

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"studypilot/internal/tasks"
)

var mockCourses = []string{
	"CS101 - Introduction to Computer Science",
	"MATH19A - Calculus for Science",
	"PHYS5A - Physics for Scientists",
	"CSE30 - Programming Abstractions",
	"STAT5 - Statistics",
}

// MockCoursework emulates a courseware/LMS integration: assignments, labs and
// exams with mixed due dates. Output is deterministic per (seed, user) so the
// service demos end-to-end without credentials and tests stay reproducible.
type MockCoursework struct {
	seed int64
}

func NewMockCoursework(seed int64) *MockCoursework {
	return &MockCoursework{seed: seed}
}

func (s *MockCoursework) Name() string { return "coursework" }

func (s *MockCoursework) Fetch(_ context.Context, userID string) ([]tasks.Task, error) {
	rng := rand.New(rand.NewSource(userSeed(s.seed, s.Name(), userID)))
	now := time.Now().UTC().Truncate(time.Hour)

	kinds := []struct {
		kind   tasks.Kind
		title  string
		effort float64
	}{
		{tasks.KindAssignment, "Homework %d", 3},
		{tasks.KindAssignment, "Lab %d", 2},
		{tasks.KindAssignment, "Project %d", 10},
		{tasks.KindExam, "Quiz %d", 3},
		{tasks.KindExam, "Midterm Exam", 8},
		{tasks.KindReading, "Reading Ch. %d", 1.5},
	}

	out := make([]tasks.Task, 0, 10)
	for i := 0; i < 10; i++ {
		pick := kinds[rng.Intn(len(kinds))]
		course := mockCourses[rng.Intn(len(mockCourses))]
		title := pick.title
		if n := rng.Intn(9) + 1; len(title) > 0 && title != "Midterm Exam" {
			title = fmt.Sprintf(pick.title, n)
		}
		// Some past, mostly upcoming, like a real course feed.
		daysOffset := rng.Intn(20) - 5
		due := now.Add(time.Duration(daysOffset)*24*time.Hour + time.Duration(9+rng.Intn(14))*time.Hour)

		out = append(out, tasks.Task{
			ID:             fmt.Sprintf("%s-%s-%d", s.Name(), userID, i),
			UserID:         userID,
			Title:          title,
			Course:         course,
			Kind:           pick.kind,
			DueAt:          due,
			EstimatedHours: pick.effort,
			Priority:       tasks.PriorityMedium,
			Status:         tasks.StatusPending,
			Source:         s.Name(),
		})
	}
	return out, nil
}

// MockCalendar emulates a calendar integration producing event-kind tasks
// inside the coming week.
type MockCalendar struct {
	seed int64
}

func NewMockCalendar(seed int64) *MockCalendar {
	return &MockCalendar{seed: seed}
}

func (s *MockCalendar) Name() string { return "calendar" }

func (s *MockCalendar) Fetch(_ context.Context, userID string) ([]tasks.Task, error) {
	rng := rand.New(rand.NewSource(userSeed(s.seed, s.Name(), userID)))
	now := time.Now().UTC().Truncate(time.Hour)

	events := []string{"Study Session", "Group Meeting", "Office Hours", "Review Session"}
	out := make([]tasks.Task, 0, 4)
	for i := 0; i < 4; i++ {
		name := events[rng.Intn(len(events))]
		course := mockCourses[rng.Intn(len(mockCourses))]
		start := now.Add(time.Duration(rng.Intn(7))*24*time.Hour + time.Duration(9+rng.Intn(8))*time.Hour)
		out = append(out, tasks.Task{
			ID:             fmt.Sprintf("%s-%s-%d", s.Name(), userID, i),
			UserID:         userID,
			Title:          fmt.Sprintf("%s: %s", name, course),
			Course:         course,
			Kind:           tasks.KindEvent,
			DueAt:          start,
			EstimatedHours: 1,
			Priority:       tasks.PriorityMedium,
			Status:         tasks.StatusPending,
			Source:         s.Name(),
		})
	}
	return out, nil
}

// MockAnnouncements emulates a course forum/chat integration surfacing
// deadline-bearing announcements.
type MockAnnouncements struct {
	seed int64
}

func NewMockAnnouncements(seed int64) *MockAnnouncements {
	return &MockAnnouncements{seed: seed}
}

func (s *MockAnnouncements) Name() string { return "announcements" }

func (s *MockAnnouncements) Fetch(_ context.Context, userID string) ([]tasks.Task, error) {
	rng := rand.New(rand.NewSource(userSeed(s.seed, s.Name(), userID)))
	now := time.Now().UTC().Truncate(time.Hour)

	items := []struct {
		title string
		kind  tasks.Kind
	}{
		{"Assignment 4 posted, due next week", tasks.KindAssignment},
		{"Deadline extended for Assignment 3", tasks.KindAssignment},
		{"Exam review packet released", tasks.KindReading},
	}
	out := make([]tasks.Task, 0, len(items))
	for i, item := range items {
		course := mockCourses[rng.Intn(len(mockCourses))]
		due := now.Add(time.Duration(1+rng.Intn(5)) * 24 * time.Hour)
		out = append(out, tasks.Task{
			ID:             fmt.Sprintf("%s-%s-%d", s.Name(), userID, i),
			UserID:         userID,
			Title:          item.title,
			Course:         course,
			Kind:           item.kind,
			DueAt:          due,
			EstimatedHours: 2,
			Priority:       tasks.PriorityMedium,
			Status:         tasks.StatusPending,
			Source:         s.Name(),
		})
	}
	return out, nil
}

// userSeed derives a stable per-user seed so different users see different
// but reproducible data.
func userSeed(seed int64, source, userID string) int64 {
	h := fnv.New64a()
	h.Write([]byte(source))
	h.Write([]byte("|"))
	h.Write([]byte(userID))
	return seed + int64(h.Sum64())
}
