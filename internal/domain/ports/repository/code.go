package repository

import (
	"context"

	"portrait-studio/internal/domain/model"
)

// CodeRepository is the port for the verification code store.
type CodeRepository interface {
	// FindActiveByCodeForUpdate returns the ACTIVE code and holds a row lock on it
	// until tx ends. Returns domain.ErrNotFound when no ACTIVE row matches.
	FindActiveByCodeForUpdate(ctx context.Context, tx Tx, code string) (*model.VerificationCode, error)
	// MarkUsed flips the code to USED. Call only after the locked read within the same tx.
	MarkUsed(ctx context.Context, tx Tx, code string) error
	// Create inserts an ACTIVE code; domain.ErrAlreadyExists on duplicate.
	Create(ctx context.Context, tx Tx, code string, points int64) (*model.VerificationCode, error)
	Exists(ctx context.Context, tx Tx, code string) (bool, error)
	// Delete removes the code regardless of status and reports whether a row was removed.
	Delete(ctx context.Context, tx Tx, code string) (bool, error)
	FindByCode(ctx context.Context, tx Tx, code string) (*model.VerificationCode, error)
	FindList(ctx context.Context, tx Tx, filter model.CodeFilter) ([]*model.VerificationCode, int64, error)
	GetStats(ctx context.Context, tx Tx) (model.CodeStats, error)
}
