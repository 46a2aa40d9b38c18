package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"funnel-billing/internal/domain/model"
	"funnel-billing/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct{ pool *pgxpool.Pool }

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `id, external_id, account_id, kind, item_type, status, start_date, end_date,
  interval_unit, interval_count, subscriber_id, created_at, updated_at`

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	s := &model.Subscription{}
	err := row.Scan(&s.ID, &s.ExternalID, &s.AccountID, &s.Kind, &s.ItemType, &s.Status, &s.StartDate, &s.EndDate,
		&s.IntervalUnit, &s.IntervalCount, &s.SubscriberID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, readErr(err)
	}
	return s, nil
}

func (r *subscriptionRepo) FindByExternalID(ctx context.Context, tx repository.Tx, externalID string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE external_id=$1` + lockClause(tx) + ";"
	row, err := pickRow(ctx, r.pool, tx, q, externalID)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func (r *subscriptionRepo) Create(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (` + subscriptionColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13);`
	_, err := execSQL(ctx, r.pool, tx, q, s.ID, s.ExternalID, s.AccountID, s.Kind, s.ItemType, s.Status, s.StartDate,
		s.EndDate, s.IntervalUnit, s.IntervalCount, s.SubscriberID, s.CreatedAt, s.UpdatedAt)
	return writeErr(err)
}

func (r *subscriptionRepo) UpdateEndDate(ctx context.Context, tx repository.Tx, id string, end time.Time) error {
	const q = `UPDATE subscriptions SET end_date=$2, status=$3, updated_at=NOW() WHERE id=$1;`
	return affected(execSQL(ctx, r.pool, tx, q, id, end, model.SubscriptionStatusActive))
}

func (r *subscriptionRepo) SetSubscriberID(ctx context.Context, tx repository.Tx, id, subscriberID string) error {
	const q = `UPDATE subscriptions SET subscriber_id=$2, updated_at=NOW() WHERE id=$1;`
	return affected(execSQL(ctx, r.pool, tx, q, id, subscriberID))
}

func (r *subscriptionRepo) ListMissingSubscriber(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Subscription, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions
WHERE subscriber_id IS NULL AND created_at < $1 AND external_id NOT LIKE $2
ORDER BY created_at ASC LIMIT $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, model.OneTimePrefix+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, readErr(err)
	}
	return out, nil
}
