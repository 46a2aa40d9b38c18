package adapter

import "context"

// Lead is a payment-first signup reported to the sales board.
type Lead struct {
	AccountID string
	Name      string
	Email     string
	Phone     string
	Plan      string
	Source    string
}

type CRM interface {
	RegisterSignup(ctx context.Context, lead Lead) error
}

// WorkspaceCloner copies a template workspace to a new owner.
type WorkspaceCloner interface {
	Clone(ctx context.Context, sourceWorkspaceID, ownerID string) (newWorkspaceID string, err error)
}
