package repository

import (
	"context"

	"funnel-billing/internal/domain/model"
)

type WorkspaceRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Workspace, error)
}
