package partner

import (
	"context"

	"funnel-billing/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

var (
	_ adapter.CRM             = (*NoopCRM)(nil)
	_ adapter.WorkspaceCloner = (*NoopWorkspaceCloner)(nil)
)

// NoopCRM logs leads instead of pushing them.
type NoopCRM struct{ log *zerolog.Logger }

func NewNoopCRM(logger *zerolog.Logger) *NoopCRM {
	l := logger.With().Str("component", "NoopCRM").Logger()
	return &NoopCRM{log: &l}
}

func (c *NoopCRM) RegisterSignup(_ context.Context, lead adapter.Lead) error {
	c.log.Info().Str("account_id", lead.AccountID).Str("plan", lead.Plan).Msg("crm lead skipped")
	return nil
}

// NoopWorkspaceCloner skips cloning and returns an empty workspace id.
type NoopWorkspaceCloner struct{ log *zerolog.Logger }

func NewNoopWorkspaceCloner(logger *zerolog.Logger) *NoopWorkspaceCloner {
	l := logger.With().Str("component", "NoopWorkspaceCloner").Logger()
	return &NoopWorkspaceCloner{log: &l}
}

func (w *NoopWorkspaceCloner) Clone(_ context.Context, source, owner string) (string, error) {
	w.log.Info().Str("source_workspace_id", source).Str("account_id", owner).Msg("workspace clone skipped")
	return "", nil
}
