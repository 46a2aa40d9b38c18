package repository

import (
	"context"

	"funnel-billing/internal/domain/model"
)

// -----------------------------
// Accounts
// -----------------------------

// AccountRepository reads lock the row (FOR UPDATE) when called with a pgx.Tx.
type AccountRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Account, error)
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.Account, error)
	Create(ctx context.Context, tx Tx, a *model.Account) error
	// Update writes plan, verification, trial window and affiliate economics.
	// The referral link is only written while the stored value is still NULL.
	Update(ctx context.Context, tx Tx, a *model.Account) error
}
