package adapter

import (
	"context"
	"time"
)

// TokenService signs and reads the short-lived tokens carried in emails and checkout metadata.
type TokenService interface {
	IssuePasswordSetup(accountID, email string) (token string, expiresAt time.Time, err error)
	// CloneWorkspaceID extracts the source workspace id from a checkout clone token.
	CloneWorkspaceID(token string) (string, error)
}

// Locker guards a key for a bounded time. TryLock returns domain.ErrDeliveryInFlight when the key is held.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
