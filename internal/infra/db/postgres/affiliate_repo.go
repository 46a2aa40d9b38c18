package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"funnel-billing/internal/domain/model"
	"funnel-billing/internal/domain/ports/repository"
)

var (
	_ repository.AffiliateLinkRepository      = (*affiliateLinkRepo)(nil)
	_ repository.BalanceTransactionRepository = (*balanceTxRepo)(nil)
)

type affiliateLinkRepo struct{ pool *pgxpool.Pool }

func NewAffiliateLinkRepo(pool *pgxpool.Pool) *affiliateLinkRepo {
	return &affiliateLinkRepo{pool: pool}
}

func (r *affiliateLinkRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.AffiliateLink, error) {
	q := `SELECT id, owner_id, code, clicks, total_commission, created_at, updated_at FROM affiliate_links WHERE id=$1` + lockClause(tx) + ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	l := &model.AffiliateLink{}
	if err := row.Scan(&l.ID, &l.OwnerID, &l.Code, &l.Clicks, &l.TotalCommission, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, readErr(err)
	}
	return l, nil
}

func (r *affiliateLinkRepo) AddCommission(ctx context.Context, tx repository.Tx, id string, amount decimal.Decimal) error {
	const q = `UPDATE affiliate_links SET total_commission=total_commission+$2, updated_at=NOW() WHERE id=$1;`
	return affected(execSQL(ctx, r.pool, tx, q, id, amount))
}

type balanceTxRepo struct{ pool *pgxpool.Pool }

func NewBalanceTransactionRepo(pool *pgxpool.Pool) *balanceTxRepo {
	return &balanceTxRepo{pool: pool}
}

func (r *balanceTxRepo) Append(ctx context.Context, tx repository.Tx, bt *model.BalanceTransaction) error {
	const q = `
INSERT INTO balance_transactions (
  id, account_id, payment_id, kind, amount, balance_before, balance_after, pending_before, pending_after,
  release_at, description, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12);`
	_, err := execSQL(ctx, r.pool, tx, q, bt.ID, bt.AccountID, bt.PaymentID, bt.Kind, bt.Amount, bt.BalanceBefore,
		bt.BalanceAfter, bt.PendingBefore, bt.PendingAfter, bt.ReleaseAt, bt.Description, bt.CreatedAt)
	return writeErr(err)
}
