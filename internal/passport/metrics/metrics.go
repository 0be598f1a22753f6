package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// Metrics provides observability for the passport workflow engine.
// Tracks committed transitions, review outcomes, write contention, and
// per-operation latency.
type Metrics struct {
	Transitions       *prometheus.CounterVec
	Conflicts         *prometheus.CounterVec
	AlreadyResolved   prometheus.Counter
	CASRetries        *prometheus.CounterVec
	SoftLimitExceeded *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
}

// New registers the passport metrics with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "passport_item_transitions_total",
			Help: "Committed item state transitions by kind",
		}, []string{"transition"}),
		Conflicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "passport_conflicts_total",
			Help: "Operations refused because a pending revision already exists",
		}, []string{"operation"}),
		AlreadyResolved: f.NewCounter(prometheus.CounterOpts{
			Name: "passport_review_already_resolved_total",
			Help: "Review resolutions that found the revision already resolved",
		}),
		CASRetries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "passport_cas_retries_total",
			Help: "Compare-and-swap retries after a version mismatch",
		}, []string{"record"}),
		SoftLimitExceeded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "passport_section_soft_limit_exceeded_total",
			Help: "Items added beyond a section's suggested maximum",
		}, []string{"section"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "passport_operation_duration_seconds",
			Help:    "Duration of workflow operations",
			Buckets: durationBuckets,
		}, []string{"operation", "outcome"}),
	}
}

func (m *Metrics) IncrementTransition(kind string) {
	m.Transitions.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementConflict(operation string) {
	m.Conflicts.WithLabelValues(operation).Inc()
}

func (m *Metrics) IncrementAlreadyResolved() {
	m.AlreadyResolved.Inc()
}

func (m *Metrics) IncrementCASRetry(record string) {
	m.CASRetries.WithLabelValues(record).Inc()
}

func (m *Metrics) IncrementSoftLimitExceeded(section string) {
	m.SoftLimitExceeded.WithLabelValues(section).Inc()
}

// ObserveOperation records the duration of an operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation, outcome string, start time.Time) {
	m.OperationDuration.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}
