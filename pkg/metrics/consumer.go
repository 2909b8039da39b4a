package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ConsumerMetrics records Pub/Sub consumer outcomes per engine.
type ConsumerMetrics struct {
	duration *prometheus.HistogramVec
	acked    *prometheus.CounterVec
	nacked   *prometheus.CounterVec
	failures *prometheus.CounterVec
}

// NewConsumerMetrics registers the consumer metrics on the provided registerer.
func NewConsumerMetrics(reg prometheus.Registerer) *ConsumerMetrics {
	if reg == nil {
		return &ConsumerMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "consumer_message_duration_seconds",
		Help:    "Duration of message handling in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"consumer"})
	acked := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "consumer_messages_acked",
		Help: "Messages acknowledged by consumers.",
	}, []string{"consumer"})
	nacked := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "consumer_messages_nacked",
		Help: "Messages returned for redelivery.",
	}, []string{"consumer"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "consumer_domain_failures",
		Help: "Domain-level failures recorded by consumers.",
	}, []string{"consumer"})
	reg.MustRegister(duration, acked, nacked, failures)
	return &ConsumerMetrics{
		duration: duration,
		acked:    acked,
		nacked:   nacked,
		failures: failures,
	}
}

// ObserveDuration records handling time for the named consumer.
func (m *ConsumerMetrics) ObserveDuration(consumer string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(consumer)).Observe(duration.Seconds())
}

// IncAcked increments the ack counter for the named consumer.
func (m *ConsumerMetrics) IncAcked(consumer string) {
	if m == nil || m.acked == nil {
		return
	}
	m.acked.WithLabelValues(normalizeLabel(consumer)).Inc()
}

// IncNacked increments the nack counter for the named consumer.
func (m *ConsumerMetrics) IncNacked(consumer string) {
	if m == nil || m.nacked == nil {
		return
	}
	m.nacked.WithLabelValues(normalizeLabel(consumer)).Inc()
}

// IncFailure increments the domain failure counter for the named consumer.
func (m *ConsumerMetrics) IncFailure(consumer string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(consumer)).Inc()
}

func normalizeLabel(consumer string) string {
	if consumer == "" {
		return "unknown"
	}
	return consumer
}
