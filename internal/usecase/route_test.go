//go:build !integration

package usecase

import (
	"testing"

	"funnel-billing/internal/domain/model"
)

func TestClassify(t *testing.T) {
	event := func(category model.PaymentCategory, mut func(c *model.CustomData)) *model.ChargeEvent {
		ev := &model.ChargeEvent{Custom: model.CustomData{Details: model.PurchaseDetails{PaymentType: category}}}
		if mut != nil {
			mut(&ev.Custom)
		}
		return ev
	}
	partner := func(c *model.CustomData) {
		c.IsPartnerPlan, c.Plan, c.RegistrationSource = true, "partner", "AD"
	}
	business := func(c *model.CustomData) {
		c.IsBusinessPlan, c.Plan, c.RegistrationSource = true, "Business", "ad"
	}

	cases := []struct {
		name string
		ev   *model.ChargeEvent
		want RouteKind
	}{
		{"plain plan purchase", event(model.CategoryPlanPurchase, nil), RoutePlanPurchase},
		{"affiliate plan purchase", event(model.CategoryPlanPurchase, func(c *model.CustomData) { c.AffiliateLink = "link-1" }), RouteAffiliatePlanPurchase},
		{"blank affiliate link is no affiliate", event(model.CategoryPlanPurchase, func(c *model.CustomData) { c.AffiliateLink = "  " }), RoutePlanPurchase},
		{"add-on purchase", event(model.CategoryAddonPurchase, nil), RouteAddonPurchase},
		{"add-on with affiliate link is still an add-on", event(model.CategoryAddonPurchase, func(c *model.CustomData) { c.AffiliateLink = "link-1" }), RouteAddonPurchase},
		{"partner signup", event(model.CategoryPlanPurchase, partner), RoutePartnerSignup},
		{"partner signup wins over affiliate link", event(model.CategoryPlanPurchase, func(c *model.CustomData) {
			partner(c)
			c.AffiliateLink = "link-1"
		}), RoutePartnerSignup},
		{"business signup", event(model.CategoryPlanPurchase, business), RouteBusinessSignup},
		{"partner flag with wrong source", event(model.CategoryPlanPurchase, func(c *model.CustomData) {
			partner(c)
			c.RegistrationSource = "ORGANIC"
		}), RouteMisconfiguredSignup},
		{"business flag with wrong plan", event(model.CategoryPlanPurchase, func(c *model.CustomData) {
			business(c)
			c.Plan = "partner"
		}), RouteMisconfiguredSignup},
		{"markers without flag are a plain purchase", event(model.CategoryPlanPurchase, func(c *model.CustomData) {
			c.Plan, c.RegistrationSource = "partner", "AD"
		}), RoutePlanPurchase},
		{"unknown payment type", event("REFUND", nil), RouteIgnore},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.ev)
			if got.Kind != tc.want {
				t.Errorf("expected %s, got %s (%s)", tc.want, got.Kind, got.Reason)
			}
			if (got.Kind == RouteIgnore || got.Kind == RouteMisconfiguredSignup) && got.Reason == "" {
				t.Error("expected a reason")
			}
		})
	}
}
