package repository

import (
	"context"

	"portrait-studio/internal/domain/model"
)

// CreditRepository is the port for the per-device credit ledger.
// Credit and debit are each a single guarded statement; implementations must
// never read-then-write.
type CreditRepository interface {
	// GetBalance returns 0 when the device has no account.
	GetBalance(ctx context.Context, tx Tx, deviceID string) (int64, error)
	// CreditAtomic upserts the account and adds amount, returning the new balance.
	CreditAtomic(ctx context.Context, tx Tx, deviceID string, amount int64) (int64, error)
	// DebitAtomic subtracts amount only if credits >= amount. Returns
	// domain.ErrInsufficientCredits when the guard fails (including no account).
	DebitAtomic(ctx context.Context, tx Tx, deviceID string, amount int64) (int64, error)
	CountAccounts(ctx context.Context, tx Tx) (int64, error)
	TopAccounts(ctx context.Context, tx Tx, limit int) ([]*model.CreditAccount, error)
}
