package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the marketplace core.
type Metrics struct {
	// Counters
	Transitions       *prometheus.CounterVec
	WebhookEvents     *prometheus.CounterVec
	PaymentsInitiated *prometheus.CounterVec
	NotifyFailures    prometheus.Counter
	CacheLookups      *prometheus.CounterVec
}

// New creates and registers all metrics on the given registerer. Pass
// prometheus.DefaultRegisterer in main and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "task_transitions_total",
				Help: "Total number of task transition attempts",
			},
			[]string{"operation", "outcome"},
		),
		WebhookEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_webhook_events_total",
				Help: "Total number of processed payment webhook deliveries",
			},
			[]string{"result"},
		),
		PaymentsInitiated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payments_initiated_total",
				Help: "Total number of payment initiation attempts",
			},
			[]string{"outcome"},
		),
		NotifyFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "notification_write_failures_total",
				Help: "Total number of swallowed notification write failures",
			},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_cache_lookups_total",
				Help: "Total number of dashboard cache lookups",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(
		m.Transitions,
		m.WebhookEvents,
		m.PaymentsInitiated,
		m.NotifyFailures,
		m.CacheLookups,
	)

	return m
}
