package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveAgents   prometheus.Gauge
	CyclesTotal    *prometheus.CounterVec
	DecisionsTotal *prometheus.CounterVec
	ActionsTotal   *prometheus.CounterVec
	SourceErrors   *prometheus.CounterVec
	CycleDuration  prometheus.Histogram
	HealthScore    *prometheus.GaugeVec
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveAgents: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_agents",
			Help:      "Number of running agent loops.",
		}),
		CyclesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_cycles_total",
			Help:      "Agent cycles by outcome.",
		}, []string{"outcome"}),
		DecisionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Decisions emitted by type.",
		}, []string{"type"}),
		ActionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Actions dispatched by type.",
		}, []string{"type"}),
		SourceErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_errors_total",
			Help:      "Task source fetch failures by source.",
		}, []string{"source"}),
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_ms",
			Help:      "Duration of one full agent cycle in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		}),
		HealthScore: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "health_score",
			Help:      "Latest academic health score per user.",
		}, []string{"user"}),
	}
}

func (m *Metrics) ObserveCycleDuration(d time.Duration) {
	m.CycleDuration.Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
