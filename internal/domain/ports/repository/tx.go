package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager executes a function within a database transaction, passing the
// underlying transaction handle via `tx`.
//
// Every purchase processor applies its account, payment, subscription/add-on and ledger
// writes through one WithTx call, so a crash mid-processing leaves nothing half-written.
//
// USAGE
// tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx Tx) error {
// // call repositories with the same ctx and tx
// acct, err := accounts.FindByID(ctx, tx, id)
// ...
// return err
// })
//
// The concrete type of `tx` is infra-defined (pgx.Tx for Postgres).
// Repositories MUST gracefully accept a nil tx (non-transactional path).
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
