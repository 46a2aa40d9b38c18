package usecase

import (
	"context"
	"fmt"

	"funnel-billing/internal/domain"
	"funnel-billing/internal/domain/model"
	"funnel-billing/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
)

// planPurchase applies a plan purchase by an existing, verified account with no affiliate.
type planPurchase struct {
	*purchaseBase
}

var _ PurchaseProcessor = (*planPurchase)(nil)

func (p *planPurchase) Process(ctx context.Context, in *PurchaseInput) (*PurchaseResult, error) {
	ev := in.Event
	d := &ev.Custom.Details
	plan, ok := model.ParsePlanType(d.PlanType)
	if !ok {
		return nil, domain.Precondition(domain.ErrInvalidArgument, "plan type %q", d.PlanType)
	}
	term, err := termOf(d)
	if err != nil {
		return nil, err
	}

	now := p.now()
	res := &PurchaseResult{Route: RoutePlanPurchase}
	var (
		buyer *model.Account
		sub   *model.Subscription
	)
	err = p.store.TxManager.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		buyer, err = p.findBuyer(ctx, tx, d)
		if err != nil {
			return err
		}
		pay := newPayment(in, buyer.ID, string(plan), now)

		existing, err := p.existingSubscription(ctx, tx, ev)
		if err != nil {
			return err
		}
		if existing != nil {
			if buyer, err = p.renewalOwner(ctx, tx, buyer, existing); err != nil {
				return err
			}
			pay.AccountID = buyer.ID
			pay.SubscriptionID = &existing.ID
			if err := p.store.Payments.Create(ctx, tx, pay); err != nil {
				return err
			}
			if err := p.extend(ctx, tx, existing, term); err != nil {
				return fmt.Errorf("extend subscription: %w", err)
			}
			sub = existing
			res.Renewal = true
			res.PaymentID, res.SubscriptionID = pay.ID, existing.ID
			return nil
		}

		end := accessEnd(ev, now, term)
		buyer.ApplyPlan(plan, now, end)
		if err := p.store.Accounts.Update(ctx, tx, buyer); err != nil {
			return fmt.Errorf("update buyer: %w", err)
		}
		if ev.IsRecurring() {
			sub = newSubscription(ev.SubscriptionID, buyer.ID, model.SubscriptionKindPlan, string(plan), now, end, term)
			if err := p.store.Subscriptions.Create(ctx, tx, sub); err != nil {
				return fmt.Errorf("create subscription: %w", err)
			}
			pay.SubscriptionID = &sub.ID
			res.SubscriptionID = sub.ID
		}
		if err := p.store.Payments.Create(ctx, tx, pay); err != nil {
			return err
		}
		res.PaymentID = pay.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.UserID = buyer.ID
	if res.Renewal {
		res.Message = "subscription renewed"
	} else {
		res.Message = fmt.Sprintf("plan %s applied", plan)
		p.reconcileSubscriber(ctx, sub)
	}
	p.confirmSubscription(ctx, buyer, sub)
	return res, nil
}
