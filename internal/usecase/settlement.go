package usecase

import (
	"context"
	"fmt"
	"time"

	"funnel-billing/internal/domain/billing"
	"funnel-billing/internal/domain/model"
	"funnel-billing/internal/domain/ports/repository"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// SettlementOutcome describes a commission placed on hold.
type SettlementOutcome struct {
	Referrer  *model.Account
	Amount    decimal.Decimal
	ReleaseAt time.Time
	Promotion billing.Promotion
}

// commissionSettler places a positive commission on hold for a referrer. It must run inside the
// purchase transaction, with referrer loaded through that same transaction.
type commissionSettler struct {
	accounts repository.AccountRepository
	payments repository.PaymentRepository
	links    repository.AffiliateLinkRepository
	ledger   repository.BalanceTransactionRepository
	hold     time.Duration
	now      func() time.Time
}

func (s *commissionSettler) Settle(ctx context.Context, tx repository.Tx, referrer *model.Account, pay *model.Payment, linkID string, amount decimal.Decimal) (*SettlementOutcome, error) {
	if !amount.IsPositive() {
		return nil, nil
	}
	now := s.now()
	releaseAt := now.Add(s.hold)

	pendingBefore := referrer.PendingBalance
	referrer.PendingBalance = referrer.PendingBalance.Add(amount)
	referrer.TotalSales++

	promo := billing.Promote(referrer.TotalSales, referrer.PartnerLevel)
	if promo.Promoted {
		referrer.PartnerLevel = promo.Level
		referrer.CommissionPercentage = promo.Percentage
	}
	referrer.UpdatedAt = now
	if err := s.accounts.Update(ctx, tx, referrer); err != nil {
		return nil, fmt.Errorf("update referrer %s: %w", referrer.ID, err)
	}

	payID := pay.ID
	entry := &model.BalanceTransaction{
		ID:            ulid.Make().String(),
		AccountID:     referrer.ID,
		PaymentID:     &payID,
		Kind:          model.BalanceCommissionHold,
		Amount:        amount,
		BalanceBefore: referrer.Balance,
		BalanceAfter:  referrer.Balance,
		PendingBefore: pendingBefore,
		PendingAfter:  referrer.PendingBalance,
		Description:   fmt.Sprintf("commission on %s %s", pay.Category, pay.ItemType),
		CreatedAt:     now,
	}
	if err := s.ledger.Append(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("append ledger: %w", err)
	}

	if err := s.payments.MarkCommissionHeld(ctx, tx, pay.ID, amount, releaseAt); err != nil {
		return nil, fmt.Errorf("mark commission held: %w", err)
	}
	pay.CommissionAmount = amount
	pay.CommissionStatus = model.CommissionHeld
	pay.CommissionPaid = true
	pay.CommissionReleaseAt = &releaseAt

	if linkID != "" {
		if err := s.links.AddCommission(ctx, tx, linkID, amount); err != nil {
			return nil, fmt.Errorf("affiliate link total: %w", err)
		}
	}
	return &SettlementOutcome{Referrer: referrer, Amount: amount, ReleaseAt: releaseAt, Promotion: promo}, nil
}
