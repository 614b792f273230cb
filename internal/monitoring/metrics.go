// Package monitoring exposes Prometheus metrics for the purchase
// flow. Reconciliation flags are the operator-facing signal for
// payments that were captured without stock or arrived for unknown
// or expired references.
package monitoring

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checkoutsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "checkouts_started_total",
			Help: "Checkout sessions opened against the payment gateway",
		},
	)

	webhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Verified webhook events by kind and handling outcome",
		},
		[]string{"kind", "outcome"},
	)

	webhookRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_signature_rejections_total",
			Help: "Webhook deliveries rejected for a missing or invalid signature",
		},
	)

	reconciliationFlags = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reconciliation_flags_total",
			Help: "Purchase attempts flagged for manual reconciliation",
		},
	)
)

// CheckoutStarted records one opened checkout session.
func CheckoutStarted() { checkoutsStarted.Inc() }

// WebhookEvent records the outcome of one verified webhook delivery.
func WebhookEvent(kind, outcome string) { webhookEvents.WithLabelValues(kind, outcome).Inc() }

// WebhookRejected records one delivery that failed signature
// verification.
func WebhookRejected() { webhookRejected.Inc() }

// Alerter satisfies the orchestrator's Alerter interface: it logs the
// inconsistency and bumps the reconciliation counter. Nothing is
// auto-recovered; the log line plus metric is the operational alert.
type Alerter struct{}

// Inconsistent flags a reference for manual reconciliation.
func (Alerter) Inconsistent(reference, reason string) {
	reconciliationFlags.Inc()
	log.Printf("RECONCILE reference=%s: %s", reference, reason)
}
