package partner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"funnel-billing/internal/config"
	"funnel-billing/internal/domain/ports/adapter"
)

var _ adapter.WorkspaceCloner = (*HTTPWorkspaceCloner)(nil)

// HTTPWorkspaceCloner asks the funnel-builder service to copy a template workspace.
type HTTPWorkspaceCloner struct {
	baseURL string
	c       jsonClient
}

func NewHTTPWorkspaceCloner(cfg *config.WorkspaceConfig) (*HTTPWorkspaceCloner, error) {
	if cfg == nil || cfg.ClonerURL == "" {
		return nil, errors.New("workspace cloner url empty")
	}
	return &HTTPWorkspaceCloner{
		baseURL: strings.TrimRight(cfg.ClonerURL, "/"),
		c:       newJSONClient(cfg.APIKey, cfg.Timeout),
	}, nil
}

func (w *HTTPWorkspaceCloner) Clone(ctx context.Context, sourceWorkspaceID, ownerID string) (string, error) {
	var out struct {
		WorkspaceID string `json:"workspace_id"`
	}
	in := map[string]string{"source_workspace_id": sourceWorkspaceID, "owner_id": ownerID}
	if err := w.c.post(ctx, w.baseURL+"/workspaces/clone", in, &out); err != nil {
		return "", fmt.Errorf("clone workspace %s: %w", sourceWorkspaceID, err)
	}
	if out.WorkspaceID == "" {
		return "", errors.New("cloner returned no workspace id")
	}
	return out.WorkspaceID, nil
}
