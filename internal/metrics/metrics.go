package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	WebhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prompt_vault",
			Name:      "webhook_events_total",
			Help:      "Payment webhook deliveries by event type and outcome",
		},
		[]string{"event_type", "outcome"}, // rejected|ignored|skipped|dispatched|failed
	)

	WebhookDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "prompt_vault",
			Name:      "webhook_duration_seconds",
			Help:      "Payment webhook processing duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"event_type"},
	)

	ReconciliationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prompt_vault",
			Name:      "reconciliations_total",
			Help:      "Customer membership writes by reconciliation path and resulting membership",
		},
		[]string{"path", "membership"}, // checkout|status_change , free|pro|unmatched
	)

	GatewayBreakerRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "prompt_vault",
			Name:      "gateway_breaker_rejections_total",
			Help:      "Payment gateway calls rejected while the circuit breaker was open",
		},
	)
)

var registerOnce sync.Once

// MustRegister registers the collectors once; later calls are no-ops.
func MustRegister(r prometheus.Registerer) {
	registerOnce.Do(func() {
		r.MustRegister(
			WebhookEventsTotal,
			WebhookDuration,
			ReconciliationsTotal,
			GatewayBreakerRejections,
		)
	})
}
