package repository

import "context"

// Tx is an opaque transaction handle owned by the storage backend
// (pgx.Tx for Postgres, *memory.Tx for the in-memory store).
type Tx interface{}

// NoTX runs a repository call outside any transaction.
var NoTX Tx

// TransactionManager executes fn inside a single storage transaction.
//
// Repositories accept the tx handle passed to fn and MUST also accept NoTX
// (non-transactional path). If fn returns an error or panics the transaction
// is rolled back; otherwise it is committed.
//
// USAGE
//
//	err := tm.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
//		c, err := codes.FindActiveByCodeForUpdate(ctx, tx, code)
//		...
//		return codes.MarkUsed(ctx, tx, c.Code)
//	})
type TransactionManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
