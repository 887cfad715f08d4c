package observability

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aretw0/sluice/pkg/domain"
)

// Registry holds the campaign collectors fed by Hooks.
type Registry struct {
	RunsStarted      *prometheus.CounterVec
	RunsCompleted    *prometheus.CounterVec
	TransitionsFired *prometheus.CounterVec
	TargetsReached   *prometheus.CounterVec
	RunEndTime       *prometheus.HistogramVec

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the process-wide metrics registry.
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a metrics registry with all collectors initialized.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	r := &Registry{
		registry: reg,
	}
	r.initCampaignMetrics()
	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry, for
// exposition handlers.
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

func (r *Registry) initCampaignMetrics() {
	r.RunsStarted = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sluice_runs_started_total",
			Help: "Total number of simulation runs started",
		},
		[]string{"system"},
	)

	r.RunsCompleted = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sluice_runs_completed_total",
			Help: "Total number of simulation runs completed",
		},
		[]string{"system", "outcome"},
	)

	r.TransitionsFired = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sluice_transitions_fired_total",
			Help: "Total number of automaton transitions fired",
		},
		[]string{"system", "component", "automaton"},
	)

	r.TargetsReached = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sluice_targets_reached_total",
			Help: "Total number of target conditions reached",
		},
		[]string{"system", "target"},
	)

	r.RunEndTime = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sluice_run_end_time",
			Help:    "Simulation clock at run end, in model time units",
			Buckets: prometheus.ExponentialBuckets(1, 10, 6),
		},
		[]string{"system"},
	)
}

// Hooks returns simulation hooks that feed the registry. Prometheus
// collectors are safe for concurrent use, so the hooks can be handed to a
// campaign running on several workers, alone or combined via Aggregate.
func (r *Registry) Hooks() domain.SimulationHooks {
	return domain.SimulationHooks{
		OnRunStart: func(_ context.Context, e *domain.RunEvent) {
			r.RunsStarted.WithLabelValues(e.System).Inc()
		},
		OnRunEnd: func(_ context.Context, e *domain.RunEvent) {
			outcome := "completed"
			if e.TargetReached {
				outcome = "target_reached"
			}
			r.RunsCompleted.WithLabelValues(e.System, outcome).Inc()
			r.RunEndTime.WithLabelValues(e.System).Observe(e.Time)
		},
		OnTransitionFired: func(_ context.Context, e *domain.TransitionEvent) {
			r.TransitionsFired.WithLabelValues(e.System, e.Fired.Component, e.Fired.Automaton).Inc()
		},
		OnTargetReached: func(_ context.Context, e *domain.TargetEvent) {
			r.TargetsReached.WithLabelValues(e.System, e.Target).Inc()
		},
	}
}
