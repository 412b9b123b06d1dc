package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "storefront"

// StorefrontMetrics counts storefront activity for the API and workers.
type StorefrontMetrics struct {
	cartMutations *prometheus.CounterVec
	checkouts     *prometheus.CounterVec
	orders        *prometheus.CounterVec
	webhooks      *prometheus.CounterVec
	outbox        *prometheus.CounterVec
}

// NewStorefrontMetrics registers the storefront counters on the provided registerer.
func NewStorefrontMetrics(reg prometheus.Registerer) *StorefrontMetrics {
	if reg == nil {
		return &StorefrontMetrics{}
	}
	cartMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_mutations_total",
		Help:      "Cart mutations by operation.",
	}, []string{"operation"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_sessions_total",
		Help:      "Hosted checkout session attempts by outcome.",
	}, []string{"outcome"})
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_materialized_total",
		Help:      "Order materialization calls by source and outcome.",
	}, []string{"source", "outcome"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_events_total",
		Help:      "Payment webhook events by type and outcome.",
	}, []string{"type", "outcome"})
	outbox := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_publish_total",
		Help:      "Outbox publish attempts by event type and outcome.",
	}, []string{"event_type", "outcome"})
	reg.MustRegister(cartMutations, checkouts, orders, webhooks, outbox)
	return &StorefrontMetrics{
		cartMutations: cartMutations,
		checkouts:     checkouts,
		orders:        orders,
		webhooks:      webhooks,
		outbox:        outbox,
	}
}

// IncCartMutation counts one cart write.
func (m *StorefrontMetrics) IncCartMutation(operation string) {
	if m == nil || m.cartMutations == nil {
		return
	}
	m.cartMutations.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncCheckout counts a checkout attempt with outcome created or failed.
func (m *StorefrontMetrics) IncCheckout(outcome string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncOrderMaterialized counts a materialization; duplicates are reported separately.
func (m *StorefrontMetrics) IncOrderMaterialized(source string, created bool) {
	if m == nil || m.orders == nil {
		return
	}
	outcome := "duplicate"
	if created {
		outcome = "created"
	}
	m.orders.WithLabelValues(normalizeLabel(source), outcome).Inc()
}

// IncWebhookEvent counts a handled webhook event.
func (m *StorefrontMetrics) IncWebhookEvent(eventType, outcome string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// IncOutboxPublish counts an outbox publish attempt: published, retry or dead_letter.
func (m *StorefrontMetrics) IncOutboxPublish(eventType, outcome string) {
	if m == nil || m.outbox == nil {
		return
	}
	m.outbox.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
