package usecase

import (
	"context"
	"errors"
	"fmt"

	"funnel-billing/internal/domain"
	"funnel-billing/internal/domain/ports/repository"
)

// IdempotencyGate answers whether a gateway transaction was already applied. The check is
// advisory; the unique index on payments.transaction_id is what rejects a racing duplicate,
// surfacing as domain.ErrDuplicateTransaction from PaymentRepository.Create.
type IdempotencyGate struct {
	payments repository.PaymentRepository
}

func NewIdempotencyGate(payments repository.PaymentRepository) *IdempotencyGate {
	return &IdempotencyGate{payments: payments}
}

func (g *IdempotencyGate) AlreadyProcessed(ctx context.Context, transactionID string) (bool, error) {
	ok, err := g.payments.ExistsByTransactionID(ctx, repository.NoTX, transactionID)
	if err != nil {
		return false, fmt.Errorf("idempotency check: %w", err)
	}
	return ok, nil
}

// IsDuplicate reports whether err means the transaction id lost the uniqueness race. Other
// unique violations are ambiguous until the gate confirms the winner's payment is stored.
func IsDuplicate(err error) bool { return errors.Is(err, domain.ErrDuplicateTransaction) }
