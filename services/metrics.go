package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CheckoutMetrics counts checkout outcomes. A nil registerer gives
// unregistered collectors, which is what tests use.
type CheckoutMetrics struct {
	GatewayOrders     prometheus.Counter
	GatewayErrors     prometheus.Counter
	SignatureFailures prometheus.Counter
	OrdersCompleted   prometheus.Counter
	RevenueMinor      *prometheus.CounterVec
}

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	factory := promauto.With(reg)
	return &CheckoutMetrics{
		GatewayOrders: factory.NewCounter(prometheus.CounterOpts{
			Name: "checkout_gateway_orders_total",
			Help: "Payment gateway orders issued",
		}),
		GatewayErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "checkout_gateway_errors_total",
			Help: "Payment gateway order creation failures",
		}),
		SignatureFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "checkout_signature_failures_total",
			Help: "Payment callbacks rejected for a bad signature",
		}),
		OrdersCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "checkout_orders_completed_total",
			Help: "Orders created from verified payments",
		}),
		RevenueMinor: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "checkout_revenue_minor_units_total",
			Help: "Verified revenue in minor currency units",
		}, []string{"currency"}),
	}
}
