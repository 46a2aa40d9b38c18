package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"funnel-billing/internal/domain/ports/adapter"
	"funnel-billing/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

// SubscriberReconciler attaches the gateway's subscriber id to recurring subscriptions.
// Every call is best effort: a failed lookup leaves the id empty for the next backfill.
type SubscriberReconciler interface {
	Reconcile(ctx context.Context, subscriptionID, externalID string) error
	// Backfill retries subscriptions created before now-minAge that still lack a subscriber id.
	Backfill(ctx context.Context, minAge time.Duration, limit int) (int, error)
}

var _ SubscriberReconciler = (*subscriberReconciler)(nil)

type subscriberReconciler struct {
	subs     repository.SubscriptionRepository
	registry adapter.SubscriberRegistry
	log      *zerolog.Logger
	now      func() time.Time
}

func NewSubscriberReconciler(subs repository.SubscriptionRepository, registry adapter.SubscriberRegistry, logger *zerolog.Logger) *subscriberReconciler {
	l := logger.With().Str("component", "SubscriberReconciler").Logger()
	return &subscriberReconciler{subs: subs, registry: registry, log: &l, now: time.Now}
}

func (r *subscriberReconciler) Reconcile(ctx context.Context, subscriptionID, externalID string) error {
	if r.registry == nil {
		return nil
	}
	subscriberID, err := r.registry.LookupSubscriber(ctx, externalID)
	if err != nil {
		return fmt.Errorf("%s lookup %s: %w", r.registry.Name(), externalID, err)
	}
	if subscriberID == "" {
		return fmt.Errorf("%s lookup %s: %w", r.registry.Name(), externalID, adapter.ErrSubscriberUnknown)
	}
	if err := r.subs.SetSubscriberID(ctx, repository.NoTX, subscriptionID, subscriberID); err != nil {
		return fmt.Errorf("store subscriber id: %w", err)
	}
	r.log.Debug().Str("subscription_id", subscriptionID).Str("subscriber_id", subscriberID).Msg("subscriber id attached")
	return nil
}

func (r *subscriberReconciler) Backfill(ctx context.Context, minAge time.Duration, limit int) (int, error) {
	if r.registry == nil {
		return 0, nil
	}
	pending, err := r.subs.ListMissingSubscriber(ctx, repository.NoTX, r.now().Add(-minAge), limit)
	if err != nil {
		return 0, fmt.Errorf("list subscriptions without subscriber: %w", err)
	}
	n := 0
	for _, s := range pending {
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		err := r.Reconcile(ctx, s.ID, s.ExternalID)
		switch {
		case err == nil:
			n++
		case errors.Is(err, adapter.ErrSubscriberUnknown):
			r.log.Debug().Str("external_id", s.ExternalID).Msg("subscriber not registered yet")
		default:
			r.log.Warn().Err(err).Str("external_id", s.ExternalID).Msg("subscriber backfill failed")
		}
	}
	return n, nil
}
