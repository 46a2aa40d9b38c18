package repository

import (
	"context"
	"time"

	"funnel-billing/internal/domain/model"
)

type AddOnRepository interface {
	Create(ctx context.Context, tx Tx, a *model.AddOn) error
	FindBySubscriptionID(ctx context.Context, tx Tx, subscriptionID string) (*model.AddOn, error)
	UpdateEndDate(ctx context.Context, tx Tx, id string, end time.Time) error
}
