package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPaid     PaymentStatus = "paid"     // captured at the gateway and applied
	PaymentStatusRefunded PaymentStatus = "refunded" // reserved for refund events
)

type CommissionStatus string

const (
	CommissionNone     CommissionStatus = "none"     // no commission owed
	CommissionHeld     CommissionStatus = "held"     // added to the referrer's pending balance
	CommissionReleased CommissionStatus = "released" // moved to the referrer's available balance
)

// Payment is one row per gateway transaction. TransactionID is the idempotency key.
type Payment struct {
	ID            string
	TransactionID string
	Amount        decimal.Decimal
	Currency      string
	Status        PaymentStatus
	Category      PaymentCategory
	ItemType      string // PlanType or AddonType
	AccountID     string

	AffiliateLinkID *string
	AddOnID         *string
	WorkspaceID     *string
	SubscriptionID  *string

	CommissionAmount    decimal.Decimal
	CommissionStatus    CommissionStatus
	CommissionPaid      bool
	CommissionReleaseAt *time.Time

	RawPayload []byte // original webhook body, kept for audit and replay

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasCommission reports whether a commission was settled against this payment.
func (p *Payment) HasCommission() bool {
	return p.CommissionStatus == CommissionHeld || p.CommissionStatus == CommissionReleased
}
