package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the planning agent service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	DatabaseURL string

	// Agent loop cadence and history.
	CycleInterval time.Duration
	HistoryLimit  int

	// Decision engine thresholds.
	NudgeThresholdDays int
	LargeTaskHours     float64
	OverloadThreshold  int

	// Health scorer policy.
	CriticalWindow    time.Duration
	OverduePenalty    int
	OverduePenaltyCap int
	NearDuePenalty    int
	WorkloadPenalty   int

	// Planner policy.
	DailyCeilingFactor  float64
	StudyPlanLookahead  int
	PlanRefreshInterval time.Duration

	// Notification policy.
	NudgeMinInterval time.Duration

	// Mock source seeding (0 means derive per user).
	MockSourceSeed int64
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:            envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:    envOrDefault("APP_METRICS_NAMESPACE", "studypilot"),
		AllowAnyOrigin:      false,
		DatabaseURL:         stringsTrimSpace("DATABASE_URL"),
		ShutdownTimeout:     15 * time.Second,
		CycleInterval:       15 * time.Minute,
		HistoryLimit:        100,
		NudgeThresholdDays:  3,
		LargeTaskHours:      8,
		OverloadThreshold:   3,
		CriticalWindow:      48 * time.Hour,
		OverduePenalty:      10,
		OverduePenaltyCap:   30,
		NearDuePenalty:      5,
		WorkloadPenalty:     15,
		DailyCeilingFactor:  1.5,
		StudyPlanLookahead:  7,
		PlanRefreshInterval: 24 * time.Hour,
		NudgeMinInterval:    6 * time.Hour,
		MockSourceSeed:      0,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CycleInterval, err = durationFromEnv("AGENT_CYCLE_INTERVAL", cfg.CycleInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryLimit, err = intFromEnv("AGENT_HISTORY_LIMIT", cfg.HistoryLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.NudgeThresholdDays, err = intFromEnv("AGENT_NUDGE_THRESHOLD_DAYS", cfg.NudgeThresholdDays)
	if err != nil {
		return Config{}, err
	}
	cfg.LargeTaskHours, err = floatFromEnv("AGENT_LARGE_TASK_HOURS", cfg.LargeTaskHours)
	if err != nil {
		return Config{}, err
	}
	cfg.OverloadThreshold, err = intFromEnv("AGENT_OVERLOAD_THRESHOLD", cfg.OverloadThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.CriticalWindow, err = durationFromEnv("AGENT_CRITICAL_WINDOW", cfg.CriticalWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.OverduePenalty, err = intFromEnv("AGENT_OVERDUE_PENALTY", cfg.OverduePenalty)
	if err != nil {
		return Config{}, err
	}
	cfg.OverduePenaltyCap, err = intFromEnv("AGENT_OVERDUE_PENALTY_CAP", cfg.OverduePenaltyCap)
	if err != nil {
		return Config{}, err
	}
	cfg.NearDuePenalty, err = intFromEnv("AGENT_NEAR_DUE_PENALTY", cfg.NearDuePenalty)
	if err != nil {
		return Config{}, err
	}
	cfg.WorkloadPenalty, err = intFromEnv("AGENT_WORKLOAD_PENALTY", cfg.WorkloadPenalty)
	if err != nil {
		return Config{}, err
	}
	cfg.DailyCeilingFactor, err = floatFromEnv("AGENT_DAILY_CEILING_FACTOR", cfg.DailyCeilingFactor)
	if err != nil {
		return Config{}, err
	}
	cfg.StudyPlanLookahead, err = intFromEnv("AGENT_STUDY_PLAN_LOOKAHEAD_DAYS", cfg.StudyPlanLookahead)
	if err != nil {
		return Config{}, err
	}
	cfg.PlanRefreshInterval, err = durationFromEnv("AGENT_PLAN_REFRESH_INTERVAL", cfg.PlanRefreshInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.NudgeMinInterval, err = durationFromEnv("AGENT_NUDGE_MIN_INTERVAL", cfg.NudgeMinInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.MockSourceSeed, err = int64FromEnv("MOCK_SOURCE_SEED", cfg.MockSourceSeed)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.CycleInterval < time.Second {
		return Config{}, fmt.Errorf("AGENT_CYCLE_INTERVAL must be at least 1s")
	}
	if cfg.HistoryLimit <= 0 {
		return Config{}, fmt.Errorf("AGENT_HISTORY_LIMIT must be positive")
	}
	if cfg.NudgeThresholdDays < 0 {
		return Config{}, fmt.Errorf("AGENT_NUDGE_THRESHOLD_DAYS must be >= 0")
	}
	if cfg.LargeTaskHours <= 0 {
		return Config{}, fmt.Errorf("AGENT_LARGE_TASK_HOURS must be positive")
	}
	if cfg.OverloadThreshold <= 0 {
		return Config{}, fmt.Errorf("AGENT_OVERLOAD_THRESHOLD must be positive")
	}
	if cfg.OverduePenalty < 0 {
		return Config{}, fmt.Errorf("AGENT_OVERDUE_PENALTY must be >= 0")
	}
	if cfg.OverduePenaltyCap < cfg.OverduePenalty {
		return Config{}, fmt.Errorf("AGENT_OVERDUE_PENALTY_CAP must be >= AGENT_OVERDUE_PENALTY")
	}
	if cfg.DailyCeilingFactor < 1 {
		return Config{}, fmt.Errorf("AGENT_DAILY_CEILING_FACTOR must be >= 1")
	}
	if cfg.StudyPlanLookahead <= 0 {
		return Config{}, fmt.Errorf("AGENT_STUDY_PLAN_LOOKAHEAD_DAYS must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func int64FromEnv(key string, fallback int64) (int64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
