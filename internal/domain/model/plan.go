package model

import "strings"

// PlanType is the account-level product tier.
type PlanType string

const (
	PlanFree     PlanType = "FREE"
	PlanBusiness PlanType = "BUSINESS"
	PlanAgency   PlanType = "AGENCY"
)

// ParsePlanType is case-insensitive. Unknown values return ok=false.
func ParsePlanType(s string) (PlanType, bool) {
	switch PlanType(strings.ToUpper(strings.TrimSpace(s))) {
	case PlanFree:
		return PlanFree, true
	case PlanBusiness:
		return PlanBusiness, true
	case PlanAgency:
		return PlanAgency, true
	}
	return "", false
}

// PaymentCategory tells plan purchases and add-on purchases apart.
type PaymentCategory string

const (
	CategoryPlanPurchase  PaymentCategory = "PLAN_PURCHASE"
	CategoryAddonPurchase PaymentCategory = "ADDON_PURCHASE"
)

// AddonType identifies a purchasable add-on.
type AddonType string

const (
	AddonExtraWorkspaces AddonType = "EXTRA_WORKSPACES"
	AddonWhiteLabel      AddonType = "WHITE_LABEL"
	AddonAICredits       AddonType = "AI_CREDITS"
	AddonCustomDomain    AddonType = "CUSTOM_DOMAIN"
	AddonExtraFunnels    AddonType = "EXTRA_FUNNELS"
	AddonExtraPages      AddonType = "EXTRA_PAGES"
	AddonTeamSeats       AddonType = "TEAM_SEATS"
)

// AddonScope decides whether an add-on belongs to the account or to one workspace.
type AddonScope string

const (
	AddonScopeUser      AddonScope = "USER"
	AddonScopeWorkspace AddonScope = "WORKSPACE"
)

var addonScopes = map[AddonType]AddonScope{
	AddonExtraWorkspaces: AddonScopeUser,
	AddonWhiteLabel:      AddonScopeUser,
	AddonAICredits:       AddonScopeUser,
	AddonCustomDomain:    AddonScopeWorkspace,
	AddonExtraFunnels:    AddonScopeWorkspace,
	AddonExtraPages:      AddonScopeWorkspace,
	AddonTeamSeats:       AddonScopeWorkspace,
}

// ParseAddonType is case-insensitive. Unknown values return ok=false.
func ParseAddonType(s string) (AddonType, bool) {
	t := AddonType(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := addonScopes[t]
	return t, ok
}

// AddonScopeOf returns the scope of a known add-on type.
func AddonScopeOf(t AddonType) (AddonScope, bool) {
	s, ok := addonScopes[t]
	return s, ok
}
