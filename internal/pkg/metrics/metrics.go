package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the instruments the checkout service records. Instruments
// are created once at startup and injected; handlers and services must not
// construct their own.
type Metrics struct {
	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
	EngineOps     *prometheus.CounterVec
	EngineOpTime  *prometheus.HistogramVec
	WebhookEvents *prometheus.CounterVec
	EventPublish  *prometheus.CounterVec
}

// New registers the checkout instruments on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		EngineOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_requests_total",
				Help: "Total number of checkout engine operations.",
			},
			[]string{"operation", "outcome"},
		),
		EngineOpTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "checkout_duration_seconds",
				Help:    "Duration of checkout engine operations in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		WebhookEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhook_events_total",
				Help: "Gateway webhook events by type and processing outcome.",
			},
			[]string{"event", "outcome"},
		),
		EventPublish: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_event_publish_failed_total",
				Help: "Count of order-event publish failures.",
			},
			[]string{"event"},
		),
	}

	reg.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.EngineOps,
		m.EngineOpTime,
		m.WebhookEvents,
		m.EventPublish,
	)
	return m
}

// NewNop returns instruments backed by a throwaway registry, for tests.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
