package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"funnel-billing/internal/domain"
	"funnel-billing/internal/domain/model"
	"funnel-billing/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

// PayloadSealer encrypts raw webhook bodies at rest.
type PayloadSealer interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

type paymentRepo struct {
	pool   *pgxpool.Pool
	sealer PayloadSealer
}

// NewPaymentRepo stores raw payloads in clear text when sealer is nil.
func NewPaymentRepo(pool *pgxpool.Pool, sealer PayloadSealer) *paymentRepo {
	return &paymentRepo{pool: pool, sealer: sealer}
}

const paymentColumns = `id, transaction_id, amount, currency, status, category, item_type, account_id,
  affiliate_link_id, addon_id, workspace_id, subscription_id,
  commission_amount, commission_status, commission_paid, commission_release_at,
  raw_payload, raw_payload_sealed, created_at, updated_at`

func (r *paymentRepo) scan(row pgx.Row) (*model.Payment, error) {
	p := &model.Payment{}
	var (
		raw    string
		sealed bool
	)
	err := row.Scan(&p.ID, &p.TransactionID, &p.Amount, &p.Currency, &p.Status, &p.Category, &p.ItemType, &p.AccountID,
		&p.AffiliateLinkID, &p.AddOnID, &p.WorkspaceID, &p.SubscriptionID,
		&p.CommissionAmount, &p.CommissionStatus, &p.CommissionPaid, &p.CommissionReleaseAt,
		&raw, &sealed, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, readErr(err)
	}
	if sealed {
		if r.sealer == nil {
			return nil, fmt.Errorf("%w: payment %s payload is sealed but no key is configured", domain.ErrReadDatabaseRow, p.ID)
		}
		if raw, err = r.sealer.Decrypt(raw); err != nil {
			return nil, fmt.Errorf("%w: unseal payload: %v", domain.ErrReadDatabaseRow, err)
		}
	}
	p.RawPayload = []byte(raw)
	return p, nil
}

func (r *paymentRepo) ExistsByTransactionID(ctx context.Context, tx repository.Tx, transactionID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM payments WHERE transaction_id=$1);`
	row, err := pickRow(ctx, r.pool, tx, q, transactionID)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := row.Scan(&ok); err != nil {
		return false, readErr(err)
	}
	return ok, nil
}

func (r *paymentRepo) FindByTransactionID(ctx context.Context, tx repository.Tx, transactionID string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE transaction_id=$1` + lockClause(tx) + ";"
	row, err := pickRow(ctx, r.pool, tx, q, transactionID)
	if err != nil {
		return nil, err
	}
	return r.scan(row)
}

func (r *paymentRepo) Create(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (` + paymentColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20);`

	raw, sealed := string(p.RawPayload), false
	if r.sealer != nil && raw != "" {
		enc, err := r.sealer.Encrypt(raw)
		if err != nil {
			return fmt.Errorf("%w: seal payload: %v", domain.ErrOperationFailed, err)
		}
		raw, sealed = enc, true
	}
	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.TransactionID, p.Amount, p.Currency, p.Status, p.Category, p.ItemType,
		p.AccountID, p.AffiliateLinkID, p.AddOnID, p.WorkspaceID, p.SubscriptionID,
		p.CommissionAmount, p.CommissionStatus, p.CommissionPaid, p.CommissionReleaseAt,
		raw, sealed, p.CreatedAt, p.UpdatedAt)
	return writeErr(err)
}

func (r *paymentRepo) SetAddOnID(ctx context.Context, tx repository.Tx, paymentID, addOnID string) error {
	const q = `UPDATE payments SET addon_id=$2, updated_at=NOW() WHERE id=$1;`
	return affected(execSQL(ctx, r.pool, tx, q, paymentID, addOnID))
}

func (r *paymentRepo) MarkCommissionHeld(ctx context.Context, tx repository.Tx, paymentID string, amount decimal.Decimal, releaseAt time.Time) error {
	const q = `
UPDATE payments SET commission_amount=$2, commission_status=$3, commission_paid=TRUE, commission_release_at=$4, updated_at=NOW()
WHERE id=$1 AND commission_status=$5;`
	return affected(execSQL(ctx, r.pool, tx, q, paymentID, amount, model.CommissionHeld, releaseAt, model.CommissionNone))
}

func (r *paymentRepo) MarkCommissionReleased(ctx context.Context, tx repository.Tx, paymentID string) error {
	const q = `UPDATE payments SET commission_status=$2, updated_at=NOW() WHERE id=$1 AND commission_status=$3;`
	return affected(execSQL(ctx, r.pool, tx, q, paymentID, model.CommissionReleased, model.CommissionHeld))
}

func (r *paymentRepo) ListCommissionsDue(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + paymentColumns + ` FROM payments
WHERE commission_status=$1 AND commission_release_at <= $2
ORDER BY commission_release_at ASC LIMIT $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, model.CommissionHeld, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, readErr(err)
	}
	return out, nil
}
