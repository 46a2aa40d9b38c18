package usecase

import (
	"strings"

	"funnel-billing/internal/domain/model"
)

// RouteKind names the processor a charge is dispatched to.
type RouteKind string

const (
	RouteIgnore                RouteKind = "ignore"
	RoutePartnerSignup         RouteKind = "partner_signup"
	RouteBusinessSignup        RouteKind = "business_signup"
	RoutePlanPurchase          RouteKind = "plan_purchase"
	RouteAffiliatePlanPurchase RouteKind = "affiliate_plan_purchase"
	RouteAddonPurchase         RouteKind = "addon_purchase"
	RouteMisconfiguredSignup   RouteKind = "misconfigured_signup"
)

// RouteDecision is the single outcome of classifying a validated charge.
type RouteDecision struct {
	Kind   RouteKind
	Reason string
}

// signupMarkers are the three independent signals of a payment-first signup funnel.
type signupMarkers struct {
	flag   bool
	plan   bool
	source bool
}

func (m signupMarkers) all() bool { return m.flag && m.plan && m.source }

func partnerMarkers(c *model.CustomData) signupMarkers {
	return signupMarkers{
		flag:   bool(c.IsPartnerPlan),
		plan:   strings.EqualFold(strings.TrimSpace(c.Plan), model.SignupPlanPartner),
		source: strings.EqualFold(strings.TrimSpace(c.RegistrationSource), model.RegistrationSourceAd),
	}
}

func businessMarkers(c *model.CustomData) signupMarkers {
	return signupMarkers{
		flag:   bool(c.IsBusinessPlan),
		plan:   strings.EqualFold(strings.TrimSpace(c.Plan), model.SignupPlanBusiness),
		source: strings.EqualFold(strings.TrimSpace(c.RegistrationSource), model.RegistrationSourceAd),
	}
}

// Classify picks exactly one route. Precedence: partner signup, business signup, plain plan
// purchase, affiliate plan purchase, add-on purchase. An explicit signup flag whose plan or
// source marker disagrees is a funnel misconfiguration, not a plain purchase.
func Classify(ev *model.ChargeEvent) RouteDecision {
	c := &ev.Custom
	partner, business := partnerMarkers(c), businessMarkers(c)

	switch {
	case partner.all():
		return RouteDecision{Kind: RoutePartnerSignup}
	case business.all():
		return RouteDecision{Kind: RouteBusinessSignup}
	case partner.flag:
		return RouteDecision{Kind: RouteMisconfiguredSignup, Reason: "partner flag set but plan/registration source disagree"}
	case business.flag:
		return RouteDecision{Kind: RouteMisconfiguredSignup, Reason: "business flag set but plan/registration source disagree"}
	}

	hasAffiliate := strings.TrimSpace(c.AffiliateLink) != ""
	switch c.Details.PaymentType {
	case model.CategoryPlanPurchase:
		if !hasAffiliate {
			return RouteDecision{Kind: RoutePlanPurchase}
		}
		return RouteDecision{Kind: RouteAffiliatePlanPurchase}
	case model.CategoryAddonPurchase:
		return RouteDecision{Kind: RouteAddonPurchase}
	}
	return RouteDecision{Kind: RouteIgnore, Reason: "unknown payment type"}
}
