package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type AddonStatus string

const (
	AddonStatusActive    AddonStatus = "ACTIVE"
	AddonStatusCancelled AddonStatus = "CANCELLED"
)

// AddOn is a purchased add-on. Exactly one of AccountID and WorkspaceID is set, according to Scope.
type AddOn struct {
	ID          string
	Type        AddonType
	Scope       AddonScope
	AccountID   *string
	WorkspaceID *string
	// SubscriptionID is the companion ADDON subscription carrying the validity window.
	SubscriptionID *string
	Quantity       int
	UnitPrice      decimal.Decimal // fee-stripped
	Status         AddonStatus
	BillingCycle   IntervalUnit
	StartDate      time.Time
	EndDate        *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
