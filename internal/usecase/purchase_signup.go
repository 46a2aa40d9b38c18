package usecase

import (
	"context"
	"errors"
	"fmt"

	"funnel-billing/internal/domain"
	"funnel-billing/internal/domain/model"
	"funnel-billing/internal/domain/ports/adapter"
	"funnel-billing/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
)

// signupPurchase handles payment-first signups from acquisition-ad funnels: the charge usually
// arrives before the account exists, so identity comes from the gateway's customer details.
type signupPurchase struct {
	*purchaseBase
	route   RouteKind
	plan    model.PlanType
	markers func(*model.CustomData) signupMarkers
}

var _ PurchaseProcessor = (*signupPurchase)(nil)

func newPartnerSignup(b *purchaseBase) *signupPurchase {
	return &signupPurchase{purchaseBase: b, route: RoutePartnerSignup, plan: model.PlanAgency, markers: partnerMarkers}
}

func newBusinessSignup(b *purchaseBase) *signupPurchase {
	return &signupPurchase{purchaseBase: b, route: RouteBusinessSignup, plan: model.PlanBusiness, markers: businessMarkers}
}

func (p *signupPurchase) Process(ctx context.Context, in *PurchaseInput) (*PurchaseResult, error) {
	ev := in.Event
	c := &ev.Custom
	if m := p.markers(c); !m.all() {
		return nil, domain.Precondition(domain.ErrSignupMisconfigured,
			"%s: flag=%t plan=%q registrationSource=%q", p.route, m.flag, c.Plan, c.RegistrationSource)
	}
	email := model.NormalizeEmail(ev.Customer.Email)
	if email == "" {
		return nil, domain.Precondition(domain.ErrMissingField, "customer_details.email")
	}
	term, err := termOf(&c.Details)
	if err != nil {
		return nil, err
	}

	now := p.now()
	res := &PurchaseResult{Route: p.route}
	var (
		acct     *model.Account
		sub      *model.Subscription
		password string
		created  bool
	)
	err = p.store.TxManager.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		acct, err = p.store.Accounts.FindByEmail(ctx, tx, email)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			acct, password, err = p.provisioner.New(email, ev.Customer.Name, ev.Customer.Phone)
			if err != nil {
				return err
			}
			created = true
		case err != nil:
			return fmt.Errorf("find account: %w", err)
		}
		pay := newPayment(in, acct.ID, string(p.plan), now)

		existing, err := p.existingSubscription(ctx, tx, ev)
		if err != nil {
			return err
		}
		if existing != nil {
			if acct.ID != existing.AccountID {
				created, password = false, ""
			}
			if acct, err = p.renewalOwner(ctx, tx, acct, existing); err != nil {
				return err
			}
			pay.AccountID = acct.ID
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
		acct.ApplyPlan(p.plan, now, end)
		acct.Verified = true
		if created {
			err = p.store.Accounts.Create(ctx, tx, acct)
		} else {
			err = p.store.Accounts.Update(ctx, tx, acct)
		}
		if err != nil {
			return fmt.Errorf("save account: %w", err)
		}

		if ev.IsRecurring() {
			sub = newSubscription(ev.SubscriptionID, acct.ID, model.SubscriptionKindPlan, string(p.plan), now, end, term)
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

	res.UserID = acct.ID
	switch {
	case res.Renewal:
		res.Message = "subscription renewed"
	case created:
		res.Message = fmt.Sprintf("%s signup provisioned", p.plan)
	default:
		res.Message = fmt.Sprintf("%s signup applied to existing account", p.plan)
	}

	if created {
		p.sendWelcome(ctx, acct, password)
	} else {
		p.confirmSubscription(ctx, acct, sub)
	}
	if !res.Renewal {
		p.reconcileSubscriber(ctx, sub)
		p.registerLead(ctx, acct, c)
	}
	return res, nil
}

func (p *signupPurchase) sendWelcome(ctx context.Context, acct *model.Account, password string) {
	if p.ports.Mailer == nil {
		return
	}
	a := *acct
	p.effects.Dispatch(ctx, "email_welcome", func(ctx context.Context) error {
		return p.ports.Mailer.SendWelcome(ctx, &a, password)
	})
}

func (p *signupPurchase) registerLead(ctx context.Context, acct *model.Account, c *model.CustomData) {
	if p.ports.CRM == nil {
		return
	}
	lead := adapter.Lead{
		AccountID: acct.ID,
		Name:      acct.Name,
		Email:     acct.Email,
		Phone:     acct.Phone,
		Plan:      string(p.plan),
		Source:    c.RegistrationSource,
	}
	p.effects.Dispatch(ctx, "crm_register", func(ctx context.Context) error {
		return p.ports.CRM.RegisterSignup(ctx, lead)
	})
}
