package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"funnel-billing/internal/domain"
	"funnel-billing/internal/domain/billing"
	"funnel-billing/internal/domain/model"
	"funnel-billing/internal/domain/ports/adapter"
	"funnel-billing/internal/domain/ports/repository"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PurchaseInput is a validated charge plus the routing decision that selected the processor.
type PurchaseInput struct {
	Event    *model.ChargeEvent
	Raw      []byte
	Decision RouteDecision
}

// PurchaseResult is what a processor reports back. Route, Renewal and Commission feed
// logging and metrics; the rest is returned to the gateway.
type PurchaseResult struct {
	UserID         string `json:"userId"`
	PaymentID      string `json:"paymentId"`
	SubscriptionID string `json:"subscriptionId,omitempty"`
	AddOnID        string `json:"addonId,omitempty"`

	Route      RouteKind          `json:"-"`
	Message    string             `json:"-"`
	Renewal    bool               `json:"-"`
	Amount     decimal.Decimal    `json:"-"`
	Currency   string             `json:"-"`
	Commission *SettlementOutcome `json:"-"`
}

// PurchaseProcessor turns one validated charge into durable billing state.
type PurchaseProcessor interface {
	Process(ctx context.Context, in *PurchaseInput) (*PurchaseResult, error)
}

// SideEffects runs best-effort work after the financial transaction committed.
// Implementations detach from the request context, log failures and never retry.
type SideEffects interface {
	Dispatch(ctx context.Context, name string, fn func(ctx context.Context) error)
}

// Stores bundles the persistence ports every processor shares.
type Stores struct {
	Accounts      repository.AccountRepository
	Payments      repository.PaymentRepository
	Subscriptions repository.SubscriptionRepository
	AddOns        repository.AddOnRepository
	Links         repository.AffiliateLinkRepository
	Ledger        repository.BalanceTransactionRepository
	Workspaces    repository.WorkspaceRepository
	TxManager     repository.TransactionManager
}

// Collaborators are the outbound ports. Any of them may be nil, which disables that effect.
type Collaborators struct {
	Mailer  adapter.Mailer
	CRM     adapter.CRM
	Cloner  adapter.WorkspaceCloner
	Tokens  adapter.TokenService
	Alerter adapter.Alerter
}

// PurchaseConfig tunes the processors.
type PurchaseConfig struct {
	HoldPeriod   time.Duration // commission maturation, 30 days when zero
	PasswordCost int           // bcrypt cost for generated passwords
	Now          func() time.Time
}

const defaultHoldPeriod = 30 * 24 * time.Hour

// purchaseBase is embedded by every processor variant.
type purchaseBase struct {
	store       Stores
	ports       Collaborators
	effects     SideEffects
	settler     *commissionSettler
	provisioner *accountProvisioner
	reconciler  SubscriberReconciler
	log         *zerolog.Logger
	now         func() time.Time
}

// billingTerm is the cadence of a purchase resolved from its details.
type billingTerm struct {
	Unit  model.IntervalUnit
	Count int
	Token string
}

func termOf(d *model.PurchaseDetails) (billingTerm, error) {
	unit, err := billing.IntervalUnitFor(d.Frequency)
	if err != nil {
		return billingTerm{}, domain.Precondition(domain.ErrInvalidArgument, "%v", err)
	}
	token, err := billing.PeriodToken(d.Frequency, int(d.FrequencyInterval))
	if err != nil {
		return billingTerm{}, domain.Precondition(domain.ErrInvalidArgument, "%v", err)
	}
	count := int(d.FrequencyInterval)
	if count < 1 {
		count = 1
	}
	return billingTerm{Unit: unit, Count: count, Token: token}, nil
}

// accessEnd is the end of a fresh window: nil (lifetime) for one-time charges.
func accessEnd(ev *model.ChargeEvent, start time.Time, term billingTerm) *time.Time {
	if !ev.IsRecurring() {
		return nil
	}
	end := billing.EndDate(start, term.Token)
	return &end
}

func oneTimeExternalID() string { return model.OneTimePrefix + strings.ToLower(ulid.Make().String()) }

func newPayment(in *PurchaseInput, accountID, itemType string, now time.Time) *model.Payment {
	ev := in.Event
	return &model.Payment{
		ID:               uuid.NewString(),
		TransactionID:    ev.ID,
		Amount:           ev.Amount,
		Currency:         strings.ToUpper(ev.AmountCurrency),
		Status:           model.PaymentStatusPaid,
		Category:         ev.Custom.Details.PaymentType,
		ItemType:         itemType,
		AccountID:        accountID,
		CommissionStatus: model.CommissionNone,
		RawPayload:       in.Raw,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func newSubscription(externalID, accountID string, kind model.SubscriptionKind, itemType string, start time.Time, end *time.Time, term billingTerm) *model.Subscription {
	return &model.Subscription{
		ID:            uuid.NewString(),
		ExternalID:    externalID,
		AccountID:     accountID,
		Kind:          kind,
		ItemType:      itemType,
		Status:        model.SubscriptionStatusActive,
		StartDate:     start,
		EndDate:       end,
		IntervalUnit:  term.Unit,
		IntervalCount: term.Count,
		CreatedAt:     start,
		UpdatedAt:     start,
	}
}

// existingSubscription returns the stored subscription for a recurring charge, or nil.
func (b *purchaseBase) existingSubscription(ctx context.Context, tx repository.Tx, ev *model.ChargeEvent) (*model.Subscription, error) {
	if !ev.IsRecurring() {
		return nil, nil
	}
	sub, err := b.store.Subscriptions.FindByExternalID(ctx, tx, ev.SubscriptionID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find subscription %s: %w", ev.SubscriptionID, err)
	}
	return sub, nil
}

// extend pushes a renewed subscription's end forward from its current end, never from now.
// A lifetime subscription has nothing to extend.
func (b *purchaseBase) extend(ctx context.Context, tx repository.Tx, sub *model.Subscription, term billingTerm) error {
	if sub.EndDate == nil {
		return nil
	}
	if !sub.ExtendTo(billing.EndDate(*sub.EndDate, term.Token)) {
		return nil
	}
	return b.store.Subscriptions.UpdateEndDate(ctx, tx, sub.ID, *sub.EndDate)
}

// renewalOwner returns the account that owns an existing subscription. A renewal may be paid
// with a different email than the one that started it.
func (b *purchaseBase) renewalOwner(ctx context.Context, tx repository.Tx, buyer *model.Account, sub *model.Subscription) (*model.Account, error) {
	if buyer.ID == sub.AccountID {
		return buyer, nil
	}
	owner, err := b.store.Accounts.FindByID(ctx, tx, sub.AccountID)
	if err != nil {
		return nil, fmt.Errorf("find subscription owner %s: %w", sub.AccountID, err)
	}
	return owner, nil
}

// findBuyer resolves an existing, verified buyer by account id (cross-checked against the
// event email) or by email.
func (b *purchaseBase) findBuyer(ctx context.Context, tx repository.Tx, d *model.PurchaseDetails) (*model.Account, error) {
	email := model.NormalizeEmail(d.Email)

	var (
		acct *model.Account
		err  error
	)
	if id := strings.TrimSpace(d.UserID); id != "" {
		acct, err = b.store.Accounts.FindByID(ctx, tx, id)
		if err == nil && model.NormalizeEmail(acct.Email) != email {
			return nil, domain.Precondition(domain.ErrAccountEmailMismatch, "account %s is not %s", id, email)
		}
	} else {
		acct, err = b.store.Accounts.FindByEmail(ctx, tx, email)
	}
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Precondition(domain.ErrAccountNotFound, "no account for %s", email)
	}
	if err != nil {
		return nil, fmt.Errorf("find buyer: %w", err)
	}
	if !acct.Verified {
		return nil, domain.Precondition(domain.ErrAccountNotVerified, "account %s", acct.ID)
	}
	return acct, nil
}

// ---- post-commit effects shared by several processors ----

func (b *purchaseBase) confirmSubscription(ctx context.Context, acct *model.Account, sub *model.Subscription) {
	if b.ports.Mailer == nil || sub == nil {
		return
	}
	a, s := *acct, *sub
	b.effects.Dispatch(ctx, "email_subscription_confirmation", func(ctx context.Context) error {
		return b.ports.Mailer.SendSubscriptionConfirmation(ctx, &a, &s)
	})
}

func (b *purchaseBase) reconcileSubscriber(ctx context.Context, sub *model.Subscription) {
	if b.reconciler == nil || sub == nil || !sub.IsRecurring() {
		return
	}
	id, ext := sub.ID, sub.ExternalID
	b.effects.Dispatch(ctx, "subscriber_lookup", func(ctx context.Context) error {
		return b.reconciler.Reconcile(ctx, id, ext)
	})
}

func (b *purchaseBase) congratulate(ctx context.Context, out *SettlementOutcome, pay *model.Payment) {
	if b.ports.Mailer == nil || out == nil {
		return
	}
	ref, p := *out.Referrer, *pay
	b.effects.Dispatch(ctx, "email_affiliate_congratulations", func(ctx context.Context) error {
		return b.ports.Mailer.SendAffiliateCongratulations(ctx, &ref, &p)
	})
}
