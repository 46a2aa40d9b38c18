package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"funnel-billing/internal/domain"
	"funnel-billing/internal/domain/billing"
	"funnel-billing/internal/domain/model"
	"funnel-billing/internal/domain/ports/adapter"
	"funnel-billing/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
)

// affiliatePurchase applies a plan purchase that arrived through an affiliate link. The buyer
// may not exist yet; the link owner may earn a flat commission.
type affiliatePurchase struct {
	*purchaseBase
}

var _ PurchaseProcessor = (*affiliatePurchase)(nil)

func (p *affiliatePurchase) Process(ctx context.Context, in *PurchaseInput) (*PurchaseResult, error) {
	ev := in.Event
	d := &ev.Custom.Details
	linkID := strings.TrimSpace(ev.Custom.AffiliateLink)
	if linkID == "" {
		return nil, domain.Precondition(domain.ErrAffiliateLinkMissing, "transaction %s", ev.ID)
	}
	plan, ok := model.ParsePlanType(d.PlanType)
	if !ok {
		return nil, domain.Precondition(domain.ErrInvalidArgument, "plan type %q", d.PlanType)
	}
	term, err := termOf(d)
	if err != nil {
		return nil, err
	}

	now := p.now()
	res := &PurchaseResult{Route: RouteAffiliatePlanPurchase}
	var (
		buyer   *model.Account
		sub     *model.Subscription
		pay     *model.Payment
		created bool
	)
	err = p.store.TxManager.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		link, err := p.store.Links.FindByID(ctx, tx, linkID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Precondition(domain.ErrAffiliateLinkNotFound, "link %s", linkID)
		}
		if err != nil {
			return fmt.Errorf("find affiliate link: %w", err)
		}

		buyer, created, err = p.buyerOrNew(ctx, tx, ev)
		if err != nil {
			return err
		}
		pay = newPayment(in, buyer.ID, string(plan), now)
		pay.AffiliateLinkID = &link.ID

		existing, err := p.existingSubscription(ctx, tx, ev)
		if err != nil {
			return err
		}
		if existing != nil {
			// Renewals extend access; the flat commission is earned on the first sale only.
			if buyer.ID != existing.AccountID {
				created = false
			}
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
		buyer.LinkReferral(link.ID)
		if created {
			err = p.store.Accounts.Create(ctx, tx, buyer)
		} else {
			err = p.store.Accounts.Update(ctx, tx, buyer)
		}
		if err != nil {
			return fmt.Errorf("save buyer: %w", err)
		}

		externalID := ev.SubscriptionID
		if !ev.IsRecurring() {
			externalID = oneTimeExternalID()
		}
		sub = newSubscription(externalID, buyer.ID, model.SubscriptionKindPlan, string(plan), now, end, term)
		if err := p.store.Subscriptions.Create(ctx, tx, sub); err != nil {
			return fmt.Errorf("create subscription: %w", err)
		}
		pay.SubscriptionID = &sub.ID
		if err := p.store.Payments.Create(ctx, tx, pay); err != nil {
			return err
		}
		res.PaymentID, res.SubscriptionID = pay.ID, sub.ID

		if link.OwnerID == buyer.ID {
			return nil
		}
		referrer, err := p.store.Accounts.FindByID(ctx, tx, link.OwnerID)
		if err != nil {
			return fmt.Errorf("find referrer %s: %w", link.OwnerID, err)
		}
		amount := billing.BaseCommission(referrer.Plan, referrer.PartnerLevel, plan)
		res.Commission, err = p.settler.Settle(ctx, tx, referrer, pay, link.ID, amount)
		return err
	})
	if err != nil {
		return nil, err
	}

	res.UserID = buyer.ID
	switch {
	case res.Renewal:
		res.Message = "subscription renewed"
	case created:
		res.Message = fmt.Sprintf("account provisioned with plan %s", plan)
	default:
		res.Message = fmt.Sprintf("plan %s applied", plan)
	}

	if created {
		p.sendPasswordSetup(ctx, buyer)
	} else {
		p.confirmSubscription(ctx, buyer, sub)
	}
	if !res.Renewal {
		p.reconcileSubscriber(ctx, sub)
		p.cloneWorkspace(ctx, &ev.Custom, buyer.ID)
	}
	p.congratulate(ctx, res.Commission, pay)
	return res, nil
}

// buyerOrNew loads the buyer by email or builds an unsaved, verified account.
func (p *affiliatePurchase) buyerOrNew(ctx context.Context, tx repository.Tx, ev *model.ChargeEvent) (*model.Account, bool, error) {
	email := ev.BuyerEmail()
	acct, err := p.store.Accounts.FindByEmail(ctx, tx, email)
	if err == nil {
		return acct, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, fmt.Errorf("find buyer: %w", err)
	}
	// The setup email replaces the generated password.
	acct, _, err = p.provisioner.New(email, ev.Customer.Name, ev.Customer.Phone)
	if err != nil {
		return nil, false, err
	}
	return acct, true, nil
}

func (p *affiliatePurchase) sendPasswordSetup(ctx context.Context, acct *model.Account) {
	if p.ports.Mailer == nil || p.ports.Tokens == nil {
		return
	}
	a := *acct
	p.effects.Dispatch(ctx, "email_password_setup", func(ctx context.Context) error {
		token, exp, err := p.ports.Tokens.IssuePasswordSetup(a.ID, a.Email)
		if err != nil {
			return fmt.Errorf("issue setup token: %w", err)
		}
		return p.ports.Mailer.SendPasswordSetup(ctx, &a, adapter.PasswordSetup{Token: token, ExpiresAt: exp})
	})
}

// cloneWorkspace copies the funnel's template workspace to the buyer, if the checkout named one
// directly or through a clone token.
func (p *affiliatePurchase) cloneWorkspace(ctx context.Context, c *model.CustomData, ownerID string) {
	if p.ports.Cloner == nil {
		return
	}
	source, token := strings.TrimSpace(c.CloneWorkspaceID), strings.TrimSpace(c.CloneToken)
	if source == "" && (token == "" || p.ports.Tokens == nil) {
		return
	}
	p.effects.Dispatch(ctx, "workspace_clone", func(ctx context.Context) error {
		src := source
		if src == "" {
			var err error
			if src, err = p.ports.Tokens.CloneWorkspaceID(token); err != nil {
				return fmt.Errorf("decode clone token: %w", err)
			}
		}
		_, err := p.ports.Cloner.Clone(ctx, src, ownerID)
		return err
	})
}
