package repository

import (
	"context"
	"time"

	"funnel-billing/internal/domain/model"
)

// SubscriptionRepository is the port for subscriptions. ExternalID is unique.
type SubscriptionRepository interface {
	FindByExternalID(ctx context.Context, tx Tx, externalID string) (*model.Subscription, error)
	Create(ctx context.Context, tx Tx, s *model.Subscription) error
	UpdateEndDate(ctx context.Context, tx Tx, id string, end time.Time) error
	SetSubscriberID(ctx context.Context, tx Tx, id, subscriberID string) error
	// ListMissingSubscriber returns recurring subscriptions created before olderThan with no subscriber id.
	ListMissingSubscriber(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Subscription, error)
}
