package smpquery

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values
const (
	OutcomeFound    = "found"
	OutcomeAbsent   = "absent"
	OutcomeError    = "error"
	OutcomeNotFound = "not_found"
	OutcomeOK       = "ok"
)

// Metrics provides observability for registry probes and SMP queries. A nil
// *Metrics records nothing.
type Metrics struct {
	// Registry probes by registry and outcome
	Probes *prometheus.CounterVec

	// SMP queries by variant, operation and outcome
	Queries *prometheus.CounterVec

	// SMP query latency by variant and operation
	QueryLatency *prometheus.HistogramVec
}

// NewMetrics creates the metrics and registers them with reg. A nil reg uses
// the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Probes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "smpquery_registry_probes_total",
			Help: "Total DNS registry probes by registry and outcome",
		}, []string{"registry", "outcome"}), // outcome: "found", "absent", "error"

		Queries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "smpquery_queries_total",
			Help: "Total SMP queries by protocol variant, operation and outcome",
		}, []string{"variant", "operation", "outcome"}),

		QueryLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "smpquery_query_duration_seconds",
			Help:    "Duration of SMP queries including redirects",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"variant", "operation"}),
	}
}

// IncrementProbe records one registry probe.
func (m *Metrics) IncrementProbe(registryID, outcome string) {
	if m != nil {
		m.Probes.WithLabelValues(registryID, outcome).Inc()
	}
}

// ObserveQuery records one SMP query.
func (m *Metrics) ObserveQuery(variant, operation, outcome string, d time.Duration) {
	if m != nil {
		m.Queries.WithLabelValues(variant, operation, outcome).Inc()
		m.QueryLatency.WithLabelValues(variant, operation).Observe(d.Seconds())
	}
}
