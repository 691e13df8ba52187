package metrics

import "github.com/prometheus/client_golang/prometheus"

// Relay delivery outcomes.
const (
	RelayPublished    = "published"
	RelayRetried      = "retried"
	RelayDeadLettered = "dead_lettered"
)

// RelayMetrics counts outbox deliveries by event type and outcome.
type RelayMetrics struct {
	events *prometheus.CounterVec
	batch  prometheus.Histogram
}

func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	if reg == nil {
		return &RelayMetrics{}
	}
	m := &RelayMetrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outbox_events_relayed_total",
			Help: "Outbox events handled by the relay, by event type and outcome.",
		}, []string{"event_type", "outcome"}),
		batch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "outbox_relay_batch_size",
			Help:    "Rows claimed per relay batch.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		}),
	}
	reg.MustRegister(m.events, m.batch)
	return m
}

func (m *RelayMetrics) Inc(eventType, outcome string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(eventType), outcome).Inc()
}

func (m *RelayMetrics) ObserveBatch(n int) {
	if m == nil || m.batch == nil {
		return
	}
	m.batch.Observe(float64(n))
}

// Events exposes the counter for tests and custom collectors.
func (m *RelayMetrics) Events() *prometheus.CounterVec { return m.events }
