package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"funnel-billing/internal/domain/model"
	"funnel-billing/internal/domain/ports/repository"
)

var _ repository.AddOnRepository = (*addonRepo)(nil)

type addonRepo struct{ pool *pgxpool.Pool }

func NewAddOnRepo(pool *pgxpool.Pool) *addonRepo {
	return &addonRepo{pool: pool}
}

const addonColumns = `id, type, scope, account_id, workspace_id, subscription_id, quantity, unit_price, status,
  billing_cycle, start_date, end_date, created_at, updated_at`

func scanAddOn(row pgx.Row) (*model.AddOn, error) {
	a := &model.AddOn{}
	err := row.Scan(&a.ID, &a.Type, &a.Scope, &a.AccountID, &a.WorkspaceID, &a.SubscriptionID, &a.Quantity,
		&a.UnitPrice, &a.Status, &a.BillingCycle, &a.StartDate, &a.EndDate, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, readErr(err)
	}
	return a, nil
}

func (r *addonRepo) Create(ctx context.Context, tx repository.Tx, a *model.AddOn) error {
	const q = `
INSERT INTO addons (` + addonColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14);`
	_, err := execSQL(ctx, r.pool, tx, q, a.ID, a.Type, a.Scope, a.AccountID, a.WorkspaceID, a.SubscriptionID,
		a.Quantity, a.UnitPrice, a.Status, a.BillingCycle, a.StartDate, a.EndDate, a.CreatedAt, a.UpdatedAt)
	return writeErr(err)
}

func (r *addonRepo) FindBySubscriptionID(ctx context.Context, tx repository.Tx, subscriptionID string) (*model.AddOn, error) {
	q := `SELECT ` + addonColumns + ` FROM addons WHERE subscription_id=$1 ORDER BY created_at LIMIT 1` + lockClause(tx) + ";"
	row, err := pickRow(ctx, r.pool, tx, q, subscriptionID)
	if err != nil {
		return nil, err
	}
	return scanAddOn(row)
}

func (r *addonRepo) UpdateEndDate(ctx context.Context, tx repository.Tx, id string, end time.Time) error {
	const q = `UPDATE addons SET end_date=$2, status=$3, updated_at=NOW() WHERE id=$1;`
	return affected(execSQL(ctx, r.pool, tx, q, id, end, model.AddonStatusActive))
}
