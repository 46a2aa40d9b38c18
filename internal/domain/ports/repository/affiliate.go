package repository

import (
	"context"

	"funnel-billing/internal/domain/model"

	"github.com/shopspring/decimal"
)

// -----------------------------
// Affiliate links & ledger
// -----------------------------

type AffiliateLinkRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.AffiliateLink, error)
	AddCommission(ctx context.Context, tx Tx, id string, amount decimal.Decimal) error
}

// BalanceTransactionRepository is append-only.
type BalanceTransactionRepository interface {
	Append(ctx context.Context, tx Tx, bt *model.BalanceTransaction) error
}
