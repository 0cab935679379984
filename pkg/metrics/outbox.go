package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics tracks the outbox publisher loop.
type OutboxMetrics struct {
	events    *prometheus.CounterVec
	batchSize prometheus.Histogram
	lag       prometheus.Gauge
}

// NewOutboxMetrics registers the publisher metrics on reg. A nil registerer
// returns nil; every method is a no-op on a nil receiver.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return nil
	}
	m := &OutboxMetrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outbox_events_total",
			Help: "Outbox rows handled by the publisher, by event type and outcome.",
		}, []string{"event_type", "outcome"}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "outbox_batch_size",
			Help:    "Rows claimed per publisher batch.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
		}),
		lag: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "outbox_publish_lag_seconds",
			Help: "Age of the oldest row in the last non-empty batch.",
		}),
	}
	reg.MustRegister(m.events, m.batchSize, m.lag)
	return m
}

// ObserveBatch records the claimed row count and the age of the oldest row.
func (m *OutboxMetrics) ObserveBatch(size int, oldest time.Time, now time.Time) {
	if m == nil {
		return
	}
	m.batchSize.Observe(float64(size))
	if size > 0 && !oldest.IsZero() {
		m.lag.Set(now.Sub(oldest).Seconds())
	}
}

// IncEvent counts one row outcome: published, retry, deferred or dead_lettered.
func (m *OutboxMetrics) IncEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType, outcome).Inc()
}

// Events exposes the outcome counter for tests.
func (m *OutboxMetrics) Events() *prometheus.CounterVec {
	if m == nil {
		return nil
	}
	return m.events
}
