package order

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the orchestrator's RED counters, supplied via DI so tests can
// pass a throwaway registry.
type Metrics struct {
	Placements           *prometheus.CounterVec
	PlacementDuration    prometheus.Histogram
	Cancellations        *prometheus.CounterVec
	NotificationFailures prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Placements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_placements_total",
				Help: "Total number of order placement attempts.",
			},
			[]string{"outcome"},
		),
		PlacementDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "order_placement_duration_seconds",
				Help:    "Duration of the order placement path in seconds.",
				Buckets: prometheus.DefBuckets,
			},
		),
		Cancellations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_cancellations_total",
				Help: "Total number of order cancellation attempts.",
			},
			[]string{"outcome"},
		),
		NotificationFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "order_notification_publish_failed_total",
				Help: "Count of post-commit notification publish failures.",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Placements, m.PlacementDuration, m.Cancellations, m.NotificationFailures)
	}
	return m
}

// NopMetrics returns unregistered collectors for tests and tools that do not
// scrape.
func NopMetrics() *Metrics {
	return NewMetrics(nil)
}
