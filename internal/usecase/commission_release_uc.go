package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"funnel-billing/internal/domain"
	"funnel-billing/internal/domain/model"
	"funnel-billing/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ReleaseReport summarizes one release sweep.
type ReleaseReport struct {
	Released int
	Failed   int
	Amount   decimal.Decimal
}

// CommissionReleaseUseCase matures held commissions into available balance once their hold
// period has passed.
type CommissionReleaseUseCase interface {
	ReleaseDue(ctx context.Context, limit int) (*ReleaseReport, error)
}

var _ CommissionReleaseUseCase = (*commissionReleaseUC)(nil)

type commissionReleaseUC struct {
	accounts repository.AccountRepository
	payments repository.PaymentRepository
	links    repository.AffiliateLinkRepository
	ledger   repository.BalanceTransactionRepository
	tm       repository.TransactionManager
	log      *zerolog.Logger
	now      func() time.Time
}

func NewCommissionReleaseUseCase(
	accounts repository.AccountRepository,
	payments repository.PaymentRepository,
	links repository.AffiliateLinkRepository,
	ledger repository.BalanceTransactionRepository,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *commissionReleaseUC {
	l := logger.With().Str("component", "CommissionRelease").Logger()
	return &commissionReleaseUC{
		accounts: accounts,
		payments: payments,
		links:    links,
		ledger:   ledger,
		tm:       tm,
		log:      &l,
		now:      time.Now,
	}
}

// ReleaseDue releases each due payment in its own transaction so one bad row does not block the rest.
func (uc *commissionReleaseUC) ReleaseDue(ctx context.Context, limit int) (*ReleaseReport, error) {
	now := uc.now()
	due, err := uc.payments.ListCommissionsDue(ctx, repository.NoTX, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due commissions: %w", err)
	}

	rep := &ReleaseReport{Amount: decimal.Zero}
	for _, p := range due {
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		amount, err := uc.release(ctx, p.TransactionID, now)
		if err != nil {
			rep.Failed++
			uc.log.Error().Err(err).Str("payment_id", p.ID).Msg("commission release failed")
			continue
		}
		if amount.IsPositive() {
			rep.Released++
			rep.Amount = rep.Amount.Add(amount)
		}
	}
	return rep, nil
}

func (uc *commissionReleaseUC) release(ctx context.Context, transactionID string, now time.Time) (decimal.Decimal, error) {
	released := decimal.Zero
	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		pay, err := uc.payments.FindByTransactionID(ctx, tx, transactionID)
		if err != nil {
			return err
		}
		// Another sweep got here first.
		if pay.CommissionStatus != model.CommissionHeld {
			return nil
		}
		if pay.AffiliateLinkID == nil {
			return fmt.Errorf("payment %s holds commission without an affiliate link: %w", pay.ID, domain.ErrInvalidArgument)
		}
		link, err := uc.links.FindByID(ctx, tx, *pay.AffiliateLinkID)
		if err != nil {
			return fmt.Errorf("find link: %w", err)
		}
		referrer, err := uc.accounts.FindByID(ctx, tx, link.OwnerID)
		if err != nil {
			return fmt.Errorf("find referrer: %w", err)
		}

		amount := pay.CommissionAmount
		if referrer.PendingBalance.LessThan(amount) {
			return errors.New("held balance is smaller than the commission being released")
		}
		balanceBefore, pendingBefore := referrer.Balance, referrer.PendingBalance
		referrer.PendingBalance = referrer.PendingBalance.Sub(amount)
		referrer.Balance = referrer.Balance.Add(amount)
		referrer.UpdatedAt = now
		if err := uc.accounts.Update(ctx, tx, referrer); err != nil {
			return fmt.Errorf("update referrer: %w", err)
		}

		payID := pay.ID
		entry := &model.BalanceTransaction{
			ID:            ulid.Make().String(),
			AccountID:     referrer.ID,
			PaymentID:     &payID,
			Kind:          model.BalanceCommissionRelease,
			Amount:        amount,
			BalanceBefore: balanceBefore,
			BalanceAfter:  referrer.Balance,
			PendingBefore: pendingBefore,
			PendingAfter:  referrer.PendingBalance,
			ReleaseAt:     &now,
			Description:   "commission hold matured",
			CreatedAt:     now,
		}
		if err := uc.ledger.Append(ctx, tx, entry); err != nil {
			return fmt.Errorf("append ledger: %w", err)
		}
		if err := uc.payments.MarkCommissionReleased(ctx, tx, pay.ID); err != nil {
			return fmt.Errorf("mark released: %w", err)
		}
		released = amount
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return released, nil
}
