package repository

import (
	"context"
	"time"

	"funnel-billing/internal/domain/model"

	"github.com/shopspring/decimal"
)

// -----------------------------
// Payments
// -----------------------------

type PaymentRepository interface {
	ExistsByTransactionID(ctx context.Context, tx Tx, transactionID string) (bool, error)
	FindByTransactionID(ctx context.Context, tx Tx, transactionID string) (*model.Payment, error)
	// Create returns domain.ErrDuplicateTransaction when the transaction id is already stored.
	Create(ctx context.Context, tx Tx, p *model.Payment) error
	SetAddOnID(ctx context.Context, tx Tx, paymentID, addOnID string) error
	MarkCommissionHeld(ctx context.Context, tx Tx, paymentID string, amount decimal.Decimal, releaseAt time.Time) error
	MarkCommissionReleased(ctx context.Context, tx Tx, paymentID string) error
	ListCommissionsDue(ctx context.Context, tx Tx, now time.Time, limit int) ([]*model.Payment, error)
}
