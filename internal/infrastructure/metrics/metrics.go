package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts HTTP requests by method, endpoint and status.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recava",
			Subsystem: "support_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration observes HTTP request latency.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "recava",
			Subsystem: "support_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	// WebhookEventsTotal counts payment webhook deliveries by type and outcome.
	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recava",
			Subsystem: "support_api",
			Name:      "webhook_events_total",
			Help:      "Total payment webhook events processed",
		},
		[]string{"event_type", "status"},
	)

	// CreditsGrantedTotal counts credits added through completed checkouts.
	CreditsGrantedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "recava",
			Subsystem: "support_api",
			Name:      "credits_granted_total",
			Help:      "Total credits granted via payment webhooks",
		},
	)
)

// RecordRequest records one completed HTTP request.
func RecordRequest(method, endpoint, status string, duration float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordWebhookEvent records one processed payment webhook event.
func RecordWebhookEvent(eventType, status string) {
	WebhookEventsTotal.WithLabelValues(eventType, status).Inc()
}
