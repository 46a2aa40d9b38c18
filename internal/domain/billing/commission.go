package billing

import (
	"funnel-billing/internal/domain/model"

	"github.com/shopspring/decimal"
)

var (
	// processingSurcharge is baked into every charged amount (2%).
	processingSurcharge = decimal.RequireFromString("1.02")
	hundred             = decimal.NewFromInt(100)

	tierAmounts = map[int]decimal.Decimal{
		model.PartnerLevelOne:   decimal.NewFromInt(50),
		model.PartnerLevelTwo:   decimal.NewFromInt(75),
		model.PartnerLevelThree: decimal.NewFromInt(100),
	}

	tierPercentages = map[int]decimal.Decimal{
		model.PartnerLevelTwo:   decimal.NewFromInt(10),
		model.PartnerLevelThree: decimal.NewFromInt(15),
	}
)

const (
	promoteToLevelTwoAt   = 10
	promoteToLevelThreeAt = 50
)

// BaseCommission is the flat commission a referrer earns on a plan purchase. Only AGENCY
// referrers earn, and only on BUSINESS purchases. Levels above 3 earn the level-3 amount;
// any other unknown level earns the level-1 amount.
func BaseCommission(referrerPlan model.PlanType, referrerLevel int, purchased model.PlanType) decimal.Decimal {
	if referrerPlan != model.PlanAgency || purchased != model.PlanBusiness {
		return decimal.Zero
	}
	if referrerLevel > model.PartnerLevelThree {
		referrerLevel = model.PartnerLevelThree
	}
	amt, ok := tierAmounts[referrerLevel]
	if !ok {
		return tierAmounts[model.PartnerLevelOne]
	}
	return amt
}

// AddonCommission is unitPrice * percentage / 100, rounded to cents.
func AddonCommission(unitPrice, percentage decimal.Decimal) decimal.Decimal {
	if !unitPrice.IsPositive() || !percentage.IsPositive() {
		return decimal.Zero
	}
	return unitPrice.Mul(percentage).Div(hundred).Round(2)
}

// StripProcessingFee removes the 2% surcharge from a charged amount: round(charged/1.02*100)/100.
func StripProcessingFee(charged decimal.Decimal) decimal.Decimal {
	return charged.DivRound(processingSurcharge, 8).Mul(hundred).Round(0).Div(hundred)
}

// Promotion is the outcome of evaluating partner-level thresholds.
type Promotion struct {
	Level      int
	Percentage decimal.Decimal
	Promoted   bool
}

// Promote evaluates thresholds high to low, so one call moves at most one rule's worth.
// totalSales must already include the sale being settled.
func Promote(totalSales, level int) Promotion {
	switch {
	case totalSales >= promoteToLevelThreeAt && level < model.PartnerLevelThree:
		return Promotion{Level: model.PartnerLevelThree, Percentage: tierPercentages[model.PartnerLevelThree], Promoted: true}
	case totalSales >= promoteToLevelTwoAt && level < model.PartnerLevelTwo:
		return Promotion{Level: model.PartnerLevelTwo, Percentage: tierPercentages[model.PartnerLevelTwo], Promoted: true}
	}
	return Promotion{Level: level}
}
