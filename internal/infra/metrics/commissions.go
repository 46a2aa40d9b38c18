package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

func init() {
	register(commissionsHeld, commissionsReleased, partnerPromotions)
}

var (
	commissionsHeld = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "commissions_held_amount_total",
			Help: "Sum of commission amounts placed on hold.",
		},
	)

	commissionsReleased = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "commissions_released_amount_total",
			Help: "Sum of held commission amounts moved to available balances.",
		},
	)

	partnerPromotions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partner_promotions_total",
			Help: "Partner level promotions, labeled by the new level.",
		},
		[]string{"level"},
	)
)

func AddCommissionHeld(amount decimal.Decimal) {
	commissionsHeld.Add(amount.InexactFloat64())
}

func AddCommissionReleased(amount decimal.Decimal) {
	commissionsReleased.Add(amount.InexactFloat64())
}

func IncPartnerPromotion(level int) {
	partnerPromotions.WithLabelValues(strconv.Itoa(level)).Inc()
}
