package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the process engine.
type Metrics struct {
	// Transitions by definition, operation, and outcome.
	Transitions *prometheus.CounterVec

	// Optimistic concurrency collisions observed during Advance/Cancel.
	VersionConflicts prometheus.Counter

	// Conflicts that survived the bounded retry and reached the caller.
	RetriesExhausted prometheus.Counter

	// Advance latency including internal retries.
	AdvanceLatency prometheus.Histogram

	// Event emissions that failed at the sink boundary.
	EmitFailures prometheus.Counter
}

// New creates a Metrics instance with all engine metrics registered.
func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "caseflow_engine_transitions_total",
			Help: "Total engine operations by definition, operation, and outcome",
		}, []string{"definition", "operation", "outcome"}),

		VersionConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caseflow_engine_version_conflicts_total",
			Help: "Total optimistic concurrency collisions during instance writes",
		}),

		RetriesExhausted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caseflow_engine_retries_exhausted_total",
			Help: "Total version conflicts surfaced to callers after bounded retry",
		}),

		AdvanceLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "caseflow_engine_advance_duration_seconds",
			Help:    "Duration of Advance calls including internal retries",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		EmitFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caseflow_engine_event_emit_failures_total",
			Help: "Total event emissions that failed after a committed transition",
		}),
	}
}

// IncrementTransition records one engine operation outcome.
func (m *Metrics) IncrementTransition(definition, operation, outcome string) {
	if m != nil {
		m.Transitions.WithLabelValues(definition, operation, outcome).Inc()
	}
}

// IncrementVersionConflict records one CAS collision.
func (m *Metrics) IncrementVersionConflict() {
	if m != nil {
		m.VersionConflicts.Inc()
	}
}

// IncrementRetriesExhausted records a conflict surfaced to the caller.
func (m *Metrics) IncrementRetriesExhausted() {
	if m != nil {
		m.RetriesExhausted.Inc()
	}
}

// ObserveAdvanceLatency records the duration of one Advance call.
func (m *Metrics) ObserveAdvanceLatency(d time.Duration) {
	if m != nil {
		m.AdvanceLatency.Observe(d.Seconds())
	}
}

// IncrementEmitFailure records a failed best-effort event emission.
func (m *Metrics) IncrementEmitFailure() {
	if m != nil {
		m.EmitFailures.Inc()
	}
}
