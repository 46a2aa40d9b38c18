package partner

import (
	"context"
	"errors"
	"fmt"

	"funnel-billing/internal/config"
	"funnel-billing/internal/domain/ports/adapter"
)

var _ adapter.CRM = (*HTTPCRM)(nil)

// HTTPCRM pushes payment-first signups to the sales board as leads.
type HTTPCRM struct {
	url     string
	boardID string
	c       jsonClient
}

func NewHTTPCRM(cfg *config.CRMConfig) (*HTTPCRM, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, errors.New("crm url empty")
	}
	return &HTTPCRM{url: cfg.URL, boardID: cfg.BoardID, c: newJSONClient(cfg.APIKey, cfg.Timeout)}, nil
}

func (c *HTTPCRM) RegisterSignup(ctx context.Context, lead adapter.Lead) error {
	body := map[string]any{
		"board_id": c.boardID,
		"item": map[string]string{
			"external_id": lead.AccountID,
			"name":        lead.Name,
			"email":       lead.Email,
			"phone":       lead.Phone,
			"plan":        lead.Plan,
			"source":      lead.Source,
		},
	}
	if err := c.c.post(ctx, c.url, body, nil); err != nil {
		return fmt.Errorf("crm register %s: %w", lead.AccountID, err)
	}
	return nil
}
