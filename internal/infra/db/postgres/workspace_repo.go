package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"funnel-billing/internal/domain/model"
	"funnel-billing/internal/domain/ports/repository"
)

var _ repository.WorkspaceRepository = (*workspaceRepo)(nil)

type workspaceRepo struct{ pool *pgxpool.Pool }

func NewWorkspaceRepo(pool *pgxpool.Pool) *workspaceRepo {
	return &workspaceRepo{pool: pool}
}

func (r *workspaceRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Workspace, error) {
	const q = `SELECT id, owner_id, name, created_at FROM workspaces WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	w := &model.Workspace{}
	if err := row.Scan(&w.ID, &w.OwnerID, &w.Name, &w.CreatedAt); err != nil {
		return nil, readErr(err)
	}
	return w, nil
}
