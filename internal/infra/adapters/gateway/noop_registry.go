package gateway

import (
	"context"

	"funnel-billing/internal/domain/ports/adapter"
)

var _ adapter.SubscriberRegistry = NoopSubscriberRegistry{}

// NoopSubscriberRegistry never knows a subscriber. Used when no gateway API is configured.
type NoopSubscriberRegistry struct{}

func (NoopSubscriberRegistry) Name() string { return "noop" }

func (NoopSubscriberRegistry) LookupSubscriber(context.Context, string) (string, error) {
	return "", adapter.ErrSubscriberUnknown
}
