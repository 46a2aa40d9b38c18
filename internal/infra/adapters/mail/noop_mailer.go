package mail

import (
	"context"

	"funnel-billing/internal/domain/model"
	"funnel-billing/internal/domain/ports/adapter"
	"funnel-billing/internal/infra/logging"

	"github.com/rs/zerolog"
)

var _ adapter.Mailer = (*NoopMailer)(nil)

// NoopMailer logs instead of sending. Used when no SMTP host is configured.
type NoopMailer struct {
	log *zerolog.Logger
	dev bool
}

// NewNoopMailer logs full recipient addresses only in dev mode.
func NewNoopMailer(logger *zerolog.Logger, dev bool) *NoopMailer {
	l := logger.With().Str("component", "NoopMailer").Logger()
	return &NoopMailer{log: &l, dev: dev}
}

func (m *NoopMailer) to(email string) string { return logging.RedactEmail(email, m.dev) }

func (m *NoopMailer) SendPasswordSetup(_ context.Context, acct *model.Account, setup adapter.PasswordSetup) error {
	m.log.Info().Str("account_id", acct.ID).Str("to", m.to(acct.Email)).Time("expires_at", setup.ExpiresAt).Msg("password setup email skipped")
	return nil
}

func (m *NoopMailer) SendWelcome(_ context.Context, acct *model.Account, _ string) error {
	m.log.Info().Str("account_id", acct.ID).Str("to", m.to(acct.Email)).Msg("welcome email skipped")
	return nil
}

func (m *NoopMailer) SendSubscriptionConfirmation(_ context.Context, acct *model.Account, sub *model.Subscription) error {
	m.log.Info().Str("account_id", acct.ID).Str("to", m.to(acct.Email)).Str("subscription_id", sub.ID).Msg("confirmation email skipped")
	return nil
}

func (m *NoopMailer) SendAffiliateCongratulations(_ context.Context, referrer *model.Account, payment *model.Payment) error {
	m.log.Info().Str("account_id", referrer.ID).Str("to", m.to(referrer.Email)).Str("payment_id", payment.ID).Msg("commission email skipped")
	return nil
}
