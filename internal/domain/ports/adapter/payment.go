package adapter

import (
	"context"
	"errors"
)

// ErrSubscriberUnknown is returned by a registry that has not assigned a subscriber yet.
var ErrSubscriberUnknown = errors.New("subscriber not registered yet")

// SubscriberRegistry is the gateway's subscriber directory, keyed by external subscription id.
type SubscriberRegistry interface {
	Name() string
	LookupSubscriber(ctx context.Context, externalSubscriptionID string) (subscriberID string, err error)
}
