package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound             = errors.New("entity not found")
	ErrAlreadyExists        = errors.New("entity already exists")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrInvalidExecContext   = errors.New("invalid execution context")
	ErrOperationFailed      = errors.New("database operation failed")
	ErrReadDatabaseRow      = errors.New("failed to read database row")
	ErrDuplicateTransaction = errors.New("transaction already processed")
	ErrDeliveryInFlight     = errors.New("delivery for this transaction is already being processed")

	// Business preconditions. These are always wrapped in a PreconditionError.
	ErrAccountNotFound       = errors.New("account not found")
	ErrAccountNotVerified    = errors.New("account is not verified")
	ErrAccountEmailMismatch  = errors.New("account id does not match event email")
	ErrAffiliateLinkMissing  = errors.New("affiliate link marker missing")
	ErrAffiliateLinkNotFound = errors.New("affiliate link not found")
	ErrWorkspaceRequired     = errors.New("workspace id required for workspace add-on")
	ErrWorkspaceNotFound     = errors.New("workspace not found")
	ErrSignupMisconfigured   = errors.New("payment-first signup markers disagree")
	ErrMissingField          = errors.New("required field missing")
)

// PreconditionError marks a failure caused by the event or by account state rather than by
// infrastructure. Redelivering the same event will fail the same way.
type PreconditionError struct {
	Err    error
	Detail string
}

func (e *PreconditionError) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Detail
}

func (e *PreconditionError) Unwrap() error { return e.Err }

// Precondition wraps a business sentinel with a formatted detail.
func Precondition(err error, format string, args ...any) error {
	return &PreconditionError{Err: err, Detail: fmt.Sprintf(format, args...)}
}

// IsPrecondition reports whether err carries a PreconditionError anywhere in its chain.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}
