package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"studypilot/internal/agent"
	"studypilot/internal/config"
	"studypilot/internal/httpapi"
	"studypilot/internal/notify"
	"studypilot/internal/observability"
	"studypilot/internal/planner"
	"studypilot/internal/sources"
	"studypilot/internal/tasks"
	"studypilot/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	taskStore, err := tasks.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("task store init failed: %v", err)
	}
	defer taskStore.Close()

	planStore, err := planner.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("plan store init failed: %v", err)
	}
	defer planStore.Close()

	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		log.Printf("store: postgres")
	} else {
		log.Printf("store: in-memory")
	}

	seed := cfg.MockSourceSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	aggregator := sources.NewAggregator(taskStore,
		sources.NewMockCoursework(seed),
		sources.NewMockCalendar(seed),
		sources.NewMockAnnouncements(seed),
	)

	sender := notify.NewLogSender(cfg.HistoryLimit)
	registry := users.NewRegistry()

	settings := agentSettings(cfg)
	agents := agent.NewManager(settings, agent.Deps{
		Tasks:    taskStore,
		Plans:    planStore,
		Users:    registry,
		Sources:  aggregator,
		Notifier: sender,
		Metrics:  metrics,
	})

	api := httpapi.New(cfg, settings, registry, taskStore, planStore, agents, aggregator, sender, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	agents.StopAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}

func agentSettings(cfg config.Config) agent.Settings {
	s := agent.DefaultSettings()
	s.CycleInterval = cfg.CycleInterval
	s.HistoryLimit = cfg.HistoryLimit
	s.Health.OverduePenalty = cfg.OverduePenalty
	s.Health.OverduePenaltyCap = cfg.OverduePenaltyCap
	s.Health.NearDuePenalty = cfg.NearDuePenalty
	s.Health.WorkloadPenalty = cfg.WorkloadPenalty
	s.Health.CriticalWindow = cfg.CriticalWindow
	s.Decision.NudgeThresholdDays = cfg.NudgeThresholdDays
	s.Decision.LargeTaskHours = cfg.LargeTaskHours
	s.Decision.OverloadThreshold = cfg.OverloadThreshold
	s.Planner.CeilingFactor = cfg.DailyCeilingFactor
	s.PlanRefreshInterval = cfg.PlanRefreshInterval
	s.NudgeMinInterval = cfg.NudgeMinInterval
	s.StudyPlanLookahead = cfg.StudyPlanLookahead
	return s
}
