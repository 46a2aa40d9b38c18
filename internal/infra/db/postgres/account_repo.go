package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"funnel-billing/internal/domain/model"
	"funnel-billing/internal/domain/ports/repository"
)

var _ repository.AccountRepository = (*accountRepo)(nil)

type accountRepo struct{ pool *pgxpool.Pool }

func NewAccountRepo(pool *pgxpool.Pool) *accountRepo {
	return &accountRepo{pool: pool}
}

const accountColumns = `id, email, username, name, phone, password_hash, verified, plan, trial_start, trial_end,
  referral_link_id, partner_level, total_sales, balance, pending_balance, commission_percentage, created_at, updated_at`

func scanAccount(row pgx.Row) (*model.Account, error) {
	a := &model.Account{}
	err := row.Scan(&a.ID, &a.Email, &a.Username, &a.Name, &a.Phone, &a.PasswordHash, &a.Verified, &a.Plan,
		&a.TrialStart, &a.TrialEnd, &a.ReferralLinkID, &a.PartnerLevel, &a.TotalSales, &a.Balance,
		&a.PendingBalance, &a.CommissionPercentage, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, readErr(err)
	}
	return a, nil
}

func (r *accountRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE id=$1` + lockClause(tx) + ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanAccount(row)
}

func (r *accountRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE LOWER(email)=LOWER($1)` + lockClause(tx) + ";"
	row, err := pickRow(ctx, r.pool, tx, q, model.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return scanAccount(row)
}

func (r *accountRepo) Create(ctx context.Context, tx repository.Tx, a *model.Account) error {
	const q = `
INSERT INTO accounts (` + accountColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18);`
	_, err := execSQL(ctx, r.pool, tx, q, a.ID, a.Email, a.Username, a.Name, a.Phone, a.PasswordHash, a.Verified,
		a.Plan, a.TrialStart, a.TrialEnd, a.ReferralLinkID, a.PartnerLevel, a.TotalSales, a.Balance,
		a.PendingBalance, a.CommissionPercentage, a.CreatedAt, a.UpdatedAt)
	return writeErr(err)
}

func (r *accountRepo) Update(ctx context.Context, tx repository.Tx, a *model.Account) error {
	const q = `
UPDATE accounts SET
  name=$2, phone=$3, password_hash=$4, verified=$5, plan=$6, trial_start=$7, trial_end=$8,
  referral_link_id=COALESCE(referral_link_id, $9),
  partner_level=$10, total_sales=$11, balance=$12, pending_balance=$13, commission_percentage=$14, updated_at=$15
WHERE id=$1;`
	return affected(execSQL(ctx, r.pool, tx, q, a.ID, a.Name, a.Phone, a.PasswordHash, a.Verified, a.Plan,
		a.TrialStart, a.TrialEnd, a.ReferralLinkID, a.PartnerLevel, a.TotalSales, a.Balance, a.PendingBalance,
		a.CommissionPercentage, a.UpdatedAt))
}
