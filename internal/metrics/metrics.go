package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the booking engine.
type Metrics struct {
	BookingsCreated      *prometheus.CounterVec
	AllocationFailures   *prometheus.CounterVec
	LifecycleTransitions *prometheus.CounterVec
	LedgerViolations     prometheus.Counter
	PenaltyCollected     prometheus.Counter
	SweepDuration        prometheus.Histogram
	SweepSkipped         prometheus.Counter
	HTTPRequestDuration  *prometheus.HistogramVec
}

// New registers the collectors on reg. Tests pass a fresh prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		BookingsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parking_bookings_created_total",
			Help: "Total number of bookings created by initial status",
		}, []string{"status"}),

		AllocationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parking_allocation_failures_total",
			Help: "Total number of failed slot allocations by reason",
		}, []string{"reason"}),

		LifecycleTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parking_lifecycle_transitions_total",
			Help: "Total number of booking status transitions",
		}, []string{"from", "to"}),

		LedgerViolations: factory.NewCounter(prometheus.CounterOpts{
			Name: "parking_ledger_invariant_violations_total",
			Help: "Total number of slot ledger updates rejected for leaving [0, total_slots]",
		}),

		PenaltyCollected: factory.NewCounter(prometheus.CounterOpts{
			Name: "parking_penalty_amount_total",
			Help: "Sum of settled overstay penalties",
		}),

		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "parking_lifecycle_sweep_duration_seconds",
			Help:    "Duration of lifecycle sweeps",
			Buckets: prometheus.DefBuckets,
		}),

		SweepSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "parking_lifecycle_sweep_skipped_total",
			Help: "Sweeps skipped because another instance held the sweep lock",
		}),

		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "parking_http_request_duration_seconds",
			Help:    "HTTP request latency by method, route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) Transition(from, to string) {
	m.LifecycleTransitions.WithLabelValues(from, to).Inc()
}
