package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics tracks the ordering engine's business outcomes.
type OrderMetrics struct {
	created          *prometheus.CounterVec
	cancelled        *prometheus.CounterVec
	paymentEvents    *prometheus.CounterVec
	stockShortfalls  prometheus.Counter
	discountRejects  *prometheus.CounterVec
	refundFailures   prometheus.Counter
	gatewayLatency   *prometheus.HistogramVec
	overridesExpired prometheus.Counter
}

// NewOrderMetrics registers the order metrics on reg. A nil registerer
// returns a no-op recorder.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	m := &OrderMetrics{
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders persisted, by order type and payment method.",
		}, []string{"order_type", "payment_method"}),
		cancelled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_cancelled_total",
			Help: "Orders cancelled, by source.",
		}, []string{"source"}),
		paymentEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_payment_events_total",
			Help: "Gateway payment events applied to orders.",
		}, []string{"kind", "outcome"}),
		stockShortfalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "order_stock_shortfalls_total",
			Help: "Order attempts rejected for insufficient stock.",
		}),
		discountRejects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_discount_rejections_total",
			Help: "Discount codes rejected during validation.",
		}, []string{"reason"}),
		refundFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "order_refund_failures_total",
			Help: "Refund calls that failed at the gateway.",
		}),
		gatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "payment_gateway_request_seconds",
			Help:    "Latency of payment gateway calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "outcome"}),
		overridesExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "price_overrides_expired_total",
			Help: "Price overrides deactivated by the expiry sweep.",
		}),
	}
	reg.MustRegister(m.created, m.cancelled, m.paymentEvents, m.stockShortfalls,
		m.discountRejects, m.refundFailures, m.gatewayLatency, m.overridesExpired)
	return m
}

func (m *OrderMetrics) IncCreated(orderType, paymentMethod string) {
	if m == nil || m.created == nil {
		return
	}
	m.created.WithLabelValues(normalizeLabel(orderType), normalizeLabel(paymentMethod)).Inc()
}

func (m *OrderMetrics) IncCancelled(source string) {
	if m == nil || m.cancelled == nil {
		return
	}
	m.cancelled.WithLabelValues(normalizeLabel(source)).Inc()
}

// IncPaymentEvent counts a gateway event; outcome is "applied" or "ignored".
func (m *OrderMetrics) IncPaymentEvent(kind, outcome string) {
	if m == nil || m.paymentEvents == nil {
		return
	}
	m.paymentEvents.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

func (m *OrderMetrics) IncStockShortfall() {
	if m == nil || m.stockShortfalls == nil {
		return
	}
	m.stockShortfalls.Inc()
}

func (m *OrderMetrics) IncDiscountRejected(reason string) {
	if m == nil || m.discountRejects == nil {
		return
	}
	m.discountRejects.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *OrderMetrics) IncRefundFailure() {
	if m == nil || m.refundFailures == nil {
		return
	}
	m.refundFailures.Inc()
}

func (m *OrderMetrics) ObserveGateway(operation string, err error, d time.Duration) {
	if m == nil || m.gatewayLatency == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.gatewayLatency.WithLabelValues(normalizeLabel(operation), outcome).Observe(d.Seconds())
}

func (m *OrderMetrics) AddOverridesExpired(n int) {
	if m == nil || m.overridesExpired == nil || n <= 0 {
		return
	}
	m.overridesExpired.Add(float64(n))
}
