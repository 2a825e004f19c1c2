package workflow

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects orchestrator counters on a private registry so tests
// can run orchestrators side by side without collisions.
type Metrics struct {
	registry *prometheus.Registry

	ArtifactsCreated   prometheus.Counter
	Generations        *prometheus.CounterVec
	GenerationDuration prometheus.Histogram
	Transitions        prometheus.Counter
}

// NewMetrics builds and registers the orchestrator metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		ArtifactsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "specfoundry_artifacts_created_total",
			Help: "Artifacts created across all projects.",
		}),
		Generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "specfoundry_generations_total",
			Help: "Generation calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
		GenerationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "specfoundry_generation_duration_seconds",
			Help:    "Wall time of generation calls.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		Transitions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "specfoundry_state_transitions_total",
			Help: "Successful artifact state transitions.",
		}),
	}

	registry.MustRegister(m.ArtifactsCreated, m.Generations, m.GenerationDuration, m.Transitions)
	return m
}

// Registry exposes the underlying registry for the metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
