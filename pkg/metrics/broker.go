package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// BrokerMetrics records latency and outcome of print broker calls.
type BrokerMetrics struct {
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
}

// NewBrokerMetrics registers the broker metrics on the provided registerer.
func NewBrokerMetrics(reg prometheus.Registerer) *BrokerMetrics {
	if reg == nil {
		return &BrokerMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mixam_request_duration_seconds",
		Help:    "Duration of Mixam API calls in seconds.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"operation"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mixam_requests_total",
		Help: "Mixam API calls by operation and outcome.",
	}, []string{"operation", "outcome"})
	reg.MustRegister(duration, requests)
	return &BrokerMetrics{duration: duration, requests: requests}
}

// Observe records one call.
func (b *BrokerMetrics) Observe(operation string, elapsed time.Duration, err error) {
	if b == nil || b.duration == nil || b.requests == nil {
		return
	}
	op := normalizeLabel(operation)
	b.duration.WithLabelValues(op).Observe(elapsed.Seconds())
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	b.requests.WithLabelValues(op, outcome).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
