package telegram

import (
	"context"

	"funnel-billing/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

var _ adapter.Alerter = (*NoopAlerter)(nil)

// NoopAlerter writes alerts to the log. Used when no bot token is configured.
type NoopAlerter struct {
	log *zerolog.Logger
}

func NewNoopAlerter(logger *zerolog.Logger) *NoopAlerter {
	l := logger.With().Str("component", "NoopAlerter").Logger()
	return &NoopAlerter{log: &l}
}

func (a *NoopAlerter) Alert(_ context.Context, text string) error {
	a.log.Warn().Str("alert", text).Msg("operator alert")
	return nil
}
