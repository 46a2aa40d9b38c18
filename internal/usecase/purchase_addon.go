package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"funnel-billing/internal/domain"
	"funnel-billing/internal/domain/billing"
	"funnel-billing/internal/domain/model"
	"funnel-billing/internal/domain/ports/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/shopspring/decimal"
)

// addonPurchase applies an add-on bought by an existing, verified account. The add-on belongs
// to the account or to one of its workspaces, depending on its type.
type addonPurchase struct {
	*purchaseBase
}

var _ PurchaseProcessor = (*addonPurchase)(nil)

func (p *addonPurchase) Process(ctx context.Context, in *PurchaseInput) (*PurchaseResult, error) {
	ev := in.Event
	d := &ev.Custom.Details
	addonType, ok := model.ParseAddonType(d.AddonType)
	if !ok {
		return nil, domain.Precondition(domain.ErrInvalidArgument, "add-on type %q", d.AddonType)
	}
	scope, _ := model.AddonScopeOf(addonType)
	term, err := termOf(d)
	if err != nil {
		return nil, err
	}
	unitPrice := billing.StripProcessingFee(ev.Amount)
	quantity := int(d.Quantity)
	if quantity < 1 {
		quantity = 1
	}

	now := p.now()
	res := &PurchaseResult{Route: RouteAddonPurchase}
	var (
		buyer *model.Account
		sub   *model.Subscription
		pay   *model.Payment
	)
	err = p.store.TxManager.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		buyer, err = p.findBuyer(ctx, tx, d)
		if err != nil {
			return err
		}
		pay = newPayment(in, buyer.ID, string(addonType), now)

		existing, err := p.existingSubscription(ctx, tx, ev)
		if err != nil {
			return err
		}
		if existing != nil {
			if buyer, err = p.renewalOwner(ctx, tx, buyer, existing); err != nil {
				return err
			}
			pay.AccountID = buyer.ID
			return p.renew(ctx, tx, buyer, existing, pay, term, unitPrice, res)
		}

		var workspaceID *string
		if scope == model.AddonScopeWorkspace {
			ws, err := p.workspace(ctx, tx, d.WorkspaceID)
			if err != nil {
				return err
			}
			workspaceID = &ws.ID
		}

		link, referrer, err := p.referrerOf(ctx, tx, buyer)
		if err != nil {
			return err
		}

		externalID := ev.SubscriptionID
		if !ev.IsRecurring() {
			externalID = oneTimeExternalID()
		}
		end := accessEnd(ev, now, term)
		sub = newSubscription(externalID, buyer.ID, model.SubscriptionKindAddon, string(addonType), now, end, term)
		if err := p.store.Subscriptions.Create(ctx, tx, sub); err != nil {
			return fmt.Errorf("create subscription: %w", err)
		}

		pay.WorkspaceID = workspaceID
		pay.SubscriptionID = &sub.ID
		if link != nil {
			pay.AffiliateLinkID = &link.ID
		}
		if err := p.store.Payments.Create(ctx, tx, pay); err != nil {
			return err
		}

		addon := &model.AddOn{
			ID:             uuid.NewString(),
			Type:           addonType,
			Scope:          scope,
			WorkspaceID:    workspaceID,
			SubscriptionID: &sub.ID,
			Quantity:       quantity,
			UnitPrice:      unitPrice,
			Status:         model.AddonStatusActive,
			BillingCycle:   term.Unit,
			StartDate:      now,
			EndDate:        end,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if scope == model.AddonScopeUser {
			addon.AccountID = &buyer.ID
		}
		if err := p.store.AddOns.Create(ctx, tx, addon); err != nil {
			return fmt.Errorf("create add-on: %w", err)
		}
		if err := p.store.Payments.SetAddOnID(ctx, tx, pay.ID, addon.ID); err != nil {
			return fmt.Errorf("link add-on to payment: %w", err)
		}
		pay.AddOnID = &addon.ID
		res.PaymentID, res.SubscriptionID, res.AddOnID = pay.ID, sub.ID, addon.ID

		if referrer == nil {
			return nil
		}
		amount := billing.AddonCommission(unitPrice, referrer.CommissionPercentage)
		res.Commission, err = p.settler.Settle(ctx, tx, referrer, pay, link.ID, amount)
		return err
	})
	if err != nil {
		return nil, err
	}

	res.UserID = buyer.ID
	if res.Renewal {
		res.Message = "add-on renewed"
	} else {
		res.Message = fmt.Sprintf("add-on %s x%d applied", addonType, quantity)
		p.reconcileSubscriber(ctx, sub)
	}
	p.confirmSubscription(ctx, buyer, sub)
	p.congratulate(ctx, res.Commission, pay)
	return res, nil
}

// renew records the payment against the existing add-on and extends both windows. A referred
// owner earns the referrer the same percentage on every renewal charge.
func (p *addonPurchase) renew(ctx context.Context, tx repository.Tx, owner *model.Account, sub *model.Subscription, pay *model.Payment, term billingTerm, unitPrice decimal.Decimal, res *PurchaseResult) error {
	addon, err := p.store.AddOns.FindBySubscriptionID(ctx, tx, sub.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Precondition(domain.ErrInvalidArgument, "subscription %s does not belong to an add-on", sub.ExternalID)
	}
	if err != nil {
		return fmt.Errorf("find add-on for subscription %s: %w", sub.ID, err)
	}
	link, referrer, err := p.referrerOf(ctx, tx, owner)
	if err != nil {
		return err
	}
	pay.AddOnID = &addon.ID
	pay.WorkspaceID = addon.WorkspaceID
	pay.SubscriptionID = &sub.ID
	if link != nil {
		pay.AffiliateLinkID = &link.ID
	}
	if err := p.store.Payments.Create(ctx, tx, pay); err != nil {
		return err
	}
	if err := p.extend(ctx, tx, sub, term); err != nil {
		return fmt.Errorf("extend subscription: %w", err)
	}
	if sub.EndDate != nil {
		if err := p.store.AddOns.UpdateEndDate(ctx, tx, addon.ID, *sub.EndDate); err != nil {
			return fmt.Errorf("extend add-on: %w", err)
		}
	}
	res.Renewal = true
	res.PaymentID, res.SubscriptionID, res.AddOnID = pay.ID, sub.ID, addon.ID

	if referrer == nil {
		return nil
	}
	amount := billing.AddonCommission(unitPrice, referrer.CommissionPercentage)
	res.Commission, err = p.settler.Settle(ctx, tx, referrer, pay, link.ID, amount)
	return err
}

func (p *addonPurchase) workspace(ctx context.Context, tx repository.Tx, id string) (*model.Workspace, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.Precondition(domain.ErrWorkspaceRequired, "")
	}
	ws, err := p.store.Workspaces.FindByID(ctx, tx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Precondition(domain.ErrWorkspaceNotFound, "workspace %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("find workspace: %w", err)
	}
	return ws, nil
}

// referrerOf returns the buyer's referral link and its owner, or nils when no one earns.
func (p *addonPurchase) referrerOf(ctx context.Context, tx repository.Tx, buyer *model.Account) (*model.AffiliateLink, *model.Account, error) {
	if buyer.ReferralLinkID == nil {
		return nil, nil, nil
	}
	link, err := p.store.Links.FindByID(ctx, tx, *buyer.ReferralLinkID)
	if errors.Is(err, domain.ErrNotFound) {
		p.log.Warn().Str("account_id", buyer.ID).Str("link_id", *buyer.ReferralLinkID).Msg("referral link no longer exists")
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("find referral link: %w", err)
	}
	if link.OwnerID == buyer.ID {
		return link, nil, nil
	}
	referrer, err := p.store.Accounts.FindByID(ctx, tx, link.OwnerID)
	if err != nil {
		return nil, nil, fmt.Errorf("find referrer %s: %w", link.OwnerID, err)
	}
	return link, referrer, nil
}
