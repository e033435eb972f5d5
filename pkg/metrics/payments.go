package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "safipay"

// PaymentMetrics records escrow transitions, callback outcomes, provider
// latency, and notification sends.
type PaymentMetrics struct {
	transitions   *prometheus.CounterVec
	callbacks     *prometheus.CounterVec
	gateway       *prometheus.HistogramVec
	notifications *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Transaction state transitions by trigger and result.",
	}, []string{"trigger", "result"})
	callbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "callbacks_total",
		Help:      "Provider callbacks by reconciliation outcome.",
	}, []string{"outcome"})
	gateway := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "gateway_request_duration_seconds",
		Help:      "Latency of M-Pesa API calls.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"operation", "outcome"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Notification sends by event and result.",
	}, []string{"event", "result"})
	reg.MustRegister(transitions, callbacks, gateway, notifications)
	return &PaymentMetrics{
		transitions:   transitions,
		callbacks:     callbacks,
		gateway:       gateway,
		notifications: notifications,
	}
}

// IncTransition counts one attempted transition.
func (m *PaymentMetrics) IncTransition(trigger, result string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(trigger), normalizeLabel(result)).Inc()
}

// IncCallback counts one reconciled callback delivery.
func (m *PaymentMetrics) IncCallback(outcome string) {
	if m == nil || m.callbacks == nil {
		return
	}
	m.callbacks.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveGatewayCall records the latency of a provider call.
func (m *PaymentMetrics) ObserveGatewayCall(operation, outcome string, duration time.Duration) {
	if m == nil || m.gateway == nil {
		return
	}
	m.gateway.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncNotification counts one notification send.
func (m *PaymentMetrics) IncNotification(event, result string) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.WithLabelValues(normalizeLabel(event), normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
