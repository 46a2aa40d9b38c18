package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

func init() {
	register(
		webhooksTotal,
		purchasesTotal,
		businessFailuresTotal,
		paymentsRevenueTotal,
	)
}

var (
	webhooksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhooks_total",
			Help: "Webhook deliveries by outcome (processed/ignored/precondition/in_flight/error/rejected).",
		},
		[]string{"outcome"},
	)

	purchasesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purchases_total",
			Help: "Applied purchases by route.",
		},
		[]string{"route"},
	)

	businessFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_business_failures_total",
			Help: "Business precondition failures by reason.",
		},
		[]string{"reason"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "The total monetary value of applied payments, labeled by currency.",
		},
		[]string{"currency"},
	)
)

func IncWebhook(outcome string) {
	webhooksTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncPurchase(route string) {
	purchasesTotal.WithLabelValues(norm(route)).Inc()
}

func IncBusinessFailure(reason string) {
	businessFailuresTotal.WithLabelValues(norm(reason)).Inc()
}

func AddPaymentRevenue(currency string, amount decimal.Decimal) {
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(amount.InexactFloat64())
}
