//go:build !integration

package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"funnel-billing/internal/domain"

	"github.com/shopspring/decimal"
)

// --- Account Model Tests ---

func TestNewAccount(t *testing.T) {
	t.Run("should create a free account with default economics", func(t *testing.T) {
		acct, err := NewAccount("  Dana@Example.COM ", "dana", "Dana")

		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if acct.ID == "" {
			t.Error("expected account ID to be non-empty")
		}
		if acct.Email != "dana@example.com" {
			t.Errorf("expected normalized email, but got %s", acct.Email)
		}
		if acct.Plan != PlanFree || acct.PartnerLevel != PartnerLevelOne {
			t.Errorf("expected FREE at level 1, but got %s at %d", acct.Plan, acct.PartnerLevel)
		}
		if !acct.CommissionPercentage.Equal(decimal.NewFromInt(5)) {
			t.Errorf("expected 5%% commission, but got %s", acct.CommissionPercentage)
		}
		if !acct.Balance.IsZero() || !acct.PendingBalance.IsZero() {
			t.Error("expected empty balances")
		}
	})

	t.Run("should fail with empty email or username", func(t *testing.T) {
		if _, err := NewAccount(" ", "dana", ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, but got %v", err)
		}
		if _, err := NewAccount("dana@example.com", "", ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, but got %v", err)
		}
	})
}

func TestAccount_LinkReferral(t *testing.T) {
	acct, _ := NewAccount("dana@example.com", "dana", "")

	if acct.LinkReferral("") {
		t.Error("expected empty link to be ignored")
	}
	if !acct.LinkReferral("link-1") {
		t.Fatal("expected first link to be recorded")
	}
	if acct.LinkReferral("link-2") {
		t.Error("expected the referral link to be immutable")
	}
	if *acct.ReferralLinkID != "link-1" {
		t.Errorf("expected link-1, but got %s", *acct.ReferralLinkID)
	}
}

func TestAccount_ApplyPlan(t *testing.T) {
	acct, _ := NewAccount("dana@example.com", "dana", "")
	start := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

	acct.ApplyPlan(PlanBusiness, start, nil)

	if acct.Plan != PlanBusiness || !acct.TrialStart.Equal(start) || acct.TrialEnd != nil {
		t.Errorf("unexpected plan state: %+v", acct)
	}
}

// --- Subscription Model Tests ---

func TestSubscription_IsRecurring(t *testing.T) {
	cases := []struct {
		name string
		sub  *Subscription
		want bool
	}{
		{"gateway id", &Subscription{ExternalID: "sub-ext-1"}, true},
		{"synthetic one-time id", &Subscription{ExternalID: OneTimePrefix + "01J"}, false},
		{"empty id", &Subscription{}, false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.sub.IsRecurring(); got != tc.want {
				t.Errorf("expected %v, but got %v", tc.want, got)
			}
		})
	}
}

func TestSubscription_ExtendTo(t *testing.T) {
	end := time.Date(2025, 5, 15, 0, 0, 0, 0, time.UTC)
	sub := &Subscription{EndDate: &end, Status: SubscriptionStatusExpired}

	if sub.ExtendTo(end.AddDate(0, -1, 0)) {
		t.Error("expected an earlier end to be ignored")
	}
	if !sub.EndDate.Equal(end) {
		t.Errorf("window was shortened to %s", sub.EndDate)
	}

	later := end.AddDate(0, 2, 0)
	if !sub.ExtendTo(later) {
		t.Fatal("expected a later end to extend")
	}
	if !sub.EndDate.Equal(later) || sub.Status != SubscriptionStatusActive {
		t.Errorf("unexpected state after extend: %s %s", sub.EndDate, sub.Status)
	}
}

// --- Plan & Add-on Catalog Tests ---

func TestParsePlanType(t *testing.T) {
	if p, ok := ParsePlanType(" business "); !ok || p != PlanBusiness {
		t.Errorf("expected BUSINESS, got %s %v", p, ok)
	}
	if _, ok := ParsePlanType("enterprise"); ok {
		t.Error("expected unknown plan to fail")
	}
}

func TestAddonScopes(t *testing.T) {
	cases := map[string]AddonScope{
		"extra_workspaces": AddonScopeUser,
		"WHITE_LABEL":      AddonScopeUser,
		"AI_CREDITS":       AddonScopeUser,
		"custom_domain":    AddonScopeWorkspace,
		"EXTRA_FUNNELS":    AddonScopeWorkspace,
		"EXTRA_PAGES":      AddonScopeWorkspace,
		"TEAM_SEATS":       AddonScopeWorkspace,
	}
	for raw, want := range cases {
		typ, ok := ParseAddonType(raw)
		if !ok {
			t.Errorf("%s: expected known add-on", raw)
			continue
		}
		if got, _ := AddonScopeOf(typ); got != want {
			t.Errorf("%s: expected %s, got %s", raw, want, got)
		}
	}
	if _, ok := ParseAddonType("GOLD_STAR"); ok {
		t.Error("expected unknown add-on to fail")
	}
}

// --- Event Decoding Tests ---

func TestFlexFields(t *testing.T) {
	var v struct {
		B1 FlexBool `json:"b1"`
		B2 FlexBool `json:"b2"`
		B3 FlexBool `json:"b3"`
		I1 FlexInt  `json:"i1"`
		I2 FlexInt  `json:"i2"`
		I3 FlexInt  `json:"i3"`
	}
	err := json.Unmarshal([]byte(`{"b1":true,"b2":"true","b3":null,"i1":2,"i2":"12","i3":""}`), &v)

	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !bool(v.B1) || !bool(v.B2) || bool(v.B3) {
		t.Errorf("unexpected bools %+v", v)
	}
	if v.I1 != 2 || v.I2 != 12 || v.I3 != 0 {
		t.Errorf("unexpected ints %+v", v)
	}

	var bad struct {
		I FlexInt `json:"i"`
	}
	if err := json.Unmarshal([]byte(`{"i":"twelve"}`), &bad); err == nil {
		t.Error("expected error for non-numeric string")
	}
}

func TestChargeEvent_Helpers(t *testing.T) {
	ev := &ChargeEvent{SubscriptionID: " ", Custom: CustomData{Details: PurchaseDetails{Email: " Dana@Example.com"}}}

	if ev.IsRecurring() {
		t.Error("blank subscription id is not recurring")
	}
	if ev.BuyerEmail() != "dana@example.com" {
		t.Errorf("unexpected buyer email %q", ev.BuyerEmail())
	}
}

// --- Payment Model Tests ---

func TestPayment_HasCommission(t *testing.T) {
	for status, want := range map[CommissionStatus]bool{
		CommissionNone:     false,
		CommissionHeld:     true,
		CommissionReleased: true,
	} {
		p := &Payment{CommissionStatus: status}
		if got := p.HasCommission(); got != want {
			t.Errorf("%s: expected %v, got %v", status, want, got)
		}
	}
}
