package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AffiliateLink is owned by a referrer. Totals are cumulative.
type AffiliateLink struct {
	ID              string
	OwnerID         string
	Code            string
	Clicks          int64
	TotalCommission decimal.Decimal
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type BalanceTransactionKind string

const (
	BalanceCommissionHold    BalanceTransactionKind = "COMMISSION_HOLD"
	BalanceCommissionRelease BalanceTransactionKind = "COMMISSION_RELEASE"
	BalanceAdjustment        BalanceTransactionKind = "ADJUSTMENT"
)

// BalanceTransaction is an append-only ledger row. Before/After snapshot the available
// balance; PendingBefore/PendingAfter snapshot the held balance.
type BalanceTransaction struct {
	ID            string
	AccountID     string
	PaymentID     *string
	Kind          BalanceTransactionKind
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	PendingBefore decimal.Decimal
	PendingAfter  decimal.Decimal
	ReleaseAt     *time.Time
	Description   string
	CreatedAt     time.Time
}

// Workspace is only read here, to check add-on targets.
type Workspace struct {
	ID        string
	OwnerID   string
	Name      string
	CreatedAt time.Time
}
