//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"funnel-billing/internal/domain"
	"funnel-billing/internal/domain/model"
	"funnel-billing/internal/domain/ports/repository"
	"funnel-billing/internal/infra/security"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/shopspring/decimal"
)

func seedAccount(t *testing.T, email string) *model.Account {
	t.Helper()
	a, _ := model.NewAccount(email, uuid.NewString()[:8], "Test")
	a.Verified = true
	if err := NewAccountRepo(testPool).Create(context.Background(), nil, a); err != nil {
		t.Fatalf("failed to create account: %v", err)
	}
	return a
}

func seedLink(t *testing.T, ownerID string) *model.AffiliateLink {
	t.Helper()
	id := uuid.NewString()
	_, err := testPool.Exec(context.Background(),
		`INSERT INTO affiliate_links (id, owner_id, code) VALUES ($1, $2, $3)`, id, ownerID, "C"+id[:6])
	if err != nil {
		t.Fatalf("failed to create link: %v", err)
	}
	return &model.AffiliateLink{ID: id, OwnerID: ownerID}
}

func newTestPayment(accountID, txnID string) *model.Payment {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &model.Payment{
		ID:               uuid.NewString(),
		TransactionID:    txnID,
		Amount:           decimal.RequireFromString("1018.98"),
		Currency:         "USD",
		Status:           model.PaymentStatusPaid,
		Category:         model.CategoryPlanPurchase,
		ItemType:         string(model.PlanBusiness),
		AccountID:        accountID,
		CommissionStatus: model.CommissionNone,
		RawPayload:       []byte(`{"id":"` + txnID + `"}`),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestAccountRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewAccountRepo(testPool)

	t.Run("should find by email case-insensitively", func(t *testing.T) {
		cleanup(t)
		a := seedAccount(t, "dana@example.com")

		found, err := repo.FindByEmail(ctx, nil, "DANA@example.com")
		if err != nil {
			t.Fatalf("FindByEmail failed: %v", err)
		}
		if found.ID != a.ID || !found.CommissionPercentage.Equal(decimal.NewFromInt(5)) {
			t.Errorf("unexpected account %+v", found)
		}
	})

	t.Run("should keep the first referral link", func(t *testing.T) {
		cleanup(t)
		ref := seedAccount(t, "ref@example.com")
		first, second := seedLink(t, ref.ID), seedLink(t, ref.ID)
		buyer := seedAccount(t, "buyer@example.com")

		buyer.ReferralLinkID = &first.ID
		if err := repo.Update(ctx, nil, buyer); err != nil {
			t.Fatalf("first update: %v", err)
		}
		buyer.ReferralLinkID = &second.ID
		if err := repo.Update(ctx, nil, buyer); err != nil {
			t.Fatalf("second update: %v", err)
		}

		got, _ := repo.FindByID(ctx, nil, buyer.ID)
		if got.ReferralLinkID == nil || *got.ReferralLinkID != first.ID {
			t.Errorf("expected referral link %s, got %v", first.ID, got.ReferralLinkID)
		}
	})

	t.Run("should return ErrNotFound", func(t *testing.T) {
		cleanup(t)
		if _, err := repo.FindByID(ctx, nil, "missing"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestPaymentRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	sealer, err := security.NewEncryptionService("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("encryption service: %v", err)
	}
	repo := NewPaymentRepo(testPool, sealer)

	t.Run("should reject a duplicate transaction id", func(t *testing.T) {
		cleanup(t)
		a := seedAccount(t, "dana@example.com")

		if err := repo.Create(ctx, nil, newTestPayment(a.ID, "txn-1")); err != nil {
			t.Fatalf("first create: %v", err)
		}
		err := repo.Create(ctx, nil, newTestPayment(a.ID, "txn-1"))

		if !errors.Is(err, domain.ErrDuplicateTransaction) {
			t.Errorf("expected ErrDuplicateTransaction, got %v", err)
		}
		exists, _ := repo.ExistsByTransactionID(ctx, nil, "txn-1")
		if !exists {
			t.Error("expected the transaction to exist")
		}
	})

	t.Run("should seal the raw payload at rest", func(t *testing.T) {
		cleanup(t)
		a := seedAccount(t, "dana@example.com")
		p := newTestPayment(a.ID, "txn-2")
		if err := repo.Create(ctx, nil, p); err != nil {
			t.Fatalf("create: %v", err)
		}

		var stored string
		if err := testPool.QueryRow(ctx, `SELECT raw_payload FROM payments WHERE id=$1`, p.ID).Scan(&stored); err != nil {
			t.Fatalf("read raw column: %v", err)
		}
		if stored == string(p.RawPayload) {
			t.Error("payload stored in clear text")
		}
		got, err := repo.FindByTransactionID(ctx, nil, "txn-2")
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if string(got.RawPayload) != string(p.RawPayload) || !got.Amount.Equal(p.Amount) {
			t.Errorf("round trip mismatch: %s %s", got.RawPayload, got.Amount)
		}
	})

	t.Run("should list held commissions once due", func(t *testing.T) {
		cleanup(t)
		ref := seedAccount(t, "ref@example.com")
		link := seedLink(t, ref.ID)
		buyer := seedAccount(t, "dana@example.com")
		p := newTestPayment(buyer.ID, "txn-3")
		p.AffiliateLinkID = &link.ID
		if err := repo.Create(ctx, nil, p); err != nil {
			t.Fatalf("create: %v", err)
		}
		releaseAt := time.Now().Add(30 * 24 * time.Hour)
		if err := repo.MarkCommissionHeld(ctx, nil, p.ID, decimal.NewFromInt(50), releaseAt); err != nil {
			t.Fatalf("mark held: %v", err)
		}

		early, _ := repo.ListCommissionsDue(ctx, nil, time.Now(), 10)
		due, _ := repo.ListCommissionsDue(ctx, nil, releaseAt.Add(time.Minute), 10)
		if len(early) != 0 || len(due) != 1 {
			t.Fatalf("expected 0 early and 1 due, got %d and %d", len(early), len(due))
		}

		if err := repo.MarkCommissionReleased(ctx, nil, p.ID); err != nil {
			t.Fatalf("release: %v", err)
		}
		if err := repo.MarkCommissionReleased(ctx, nil, p.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("second release should match no held row, got %v", err)
		}
	})
}

func TestTxManager_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	tm := NewTxManager(testPool)
	payments := NewPaymentRepo(testPool, nil)
	subs := NewSubscriptionRepo(testPool)

	t.Run("should roll back every write when the callback fails", func(t *testing.T) {
		cleanup(t)
		a := seedAccount(t, "dana@example.com")
		if err := payments.Create(ctx, nil, newTestPayment(a.ID, "txn-1")); err != nil {
			t.Fatalf("seed: %v", err)
		}

		err := tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			now := time.Now()
			sub := &model.Subscription{
				ID: uuid.NewString(), ExternalID: "sub-1", AccountID: a.ID, Kind: model.SubscriptionKindPlan,
				ItemType: "BUSINESS", Status: model.SubscriptionStatusActive, StartDate: now,
				IntervalUnit: model.IntervalMonth, IntervalCount: 1, CreatedAt: now, UpdatedAt: now,
			}
			if err := subs.Create(ctx, tx, sub); err != nil {
				return err
			}
			return payments.Create(ctx, tx, newTestPayment(a.ID, "txn-1"))
		})

		if !errors.Is(err, domain.ErrDuplicateTransaction) {
			t.Fatalf("expected ErrDuplicateTransaction, got %v", err)
		}
		if _, err := subs.FindByExternalID(ctx, nil, "sub-1"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("subscription should have been rolled back, got %v", err)
		}
	})
}
