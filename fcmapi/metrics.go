package fcmapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"time"
)

// Metrics holds the request layer's Prometheus collectors. A nil *Metrics
// records nothing.
type Metrics struct {
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	fallbacks prometheus.Counter
}

// NewMetrics registers the request layer collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notifsync",
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total number of backend requests by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "notifsync",
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "Backend request duration in seconds, fallback attempts included",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		fallbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "notifsync",
				Subsystem: "api",
				Name:      "base_url_switches_total",
				Help:      "Number of times a fallback base URL became the primary",
			},
		),
	}
}

func (m *Metrics) observe(endpoint, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(endpoint, outcome).Inc()
	m.duration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func (m *Metrics) switched() {
	if m == nil {
		return
	}
	m.fallbacks.Inc()
}
