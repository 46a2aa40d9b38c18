package adapter

import (
	"context"
	"time"

	"funnel-billing/internal/domain/model"
)

// PasswordSetup is what a freshly provisioned affiliate buyer needs to pick a password.
type PasswordSetup struct {
	Token     string
	ExpiresAt time.Time
}

// Mailer delivers transactional emails. Implementations must not retry.
type Mailer interface {
	SendPasswordSetup(ctx context.Context, acct *model.Account, setup PasswordSetup) error
	SendWelcome(ctx context.Context, acct *model.Account, tempPassword string) error
	SendSubscriptionConfirmation(ctx context.Context, acct *model.Account, sub *model.Subscription) error
	SendAffiliateCongratulations(ctx context.Context, referrer *model.Account, payment *model.Payment) error
}

// Alerter notifies operators about funnel/config problems (business precondition failures).
type Alerter interface {
	Alert(ctx context.Context, text string) error
}
