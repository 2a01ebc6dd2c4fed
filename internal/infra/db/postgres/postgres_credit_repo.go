package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"portrait-studio/internal/domain"
	"portrait-studio/internal/domain/model"
	"portrait-studio/internal/domain/ports/repository"
)

var _ repository.CreditRepository = (*PostgresCreditRepo)(nil)

type PostgresCreditRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresCreditRepo(pool *pgxpool.Pool) *PostgresCreditRepo {
	return &PostgresCreditRepo{pool: pool}
}

func (r *PostgresCreditRepo) GetBalance(ctx context.Context, tx repository.Tx, deviceID string) (int64, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var credits int64
	err = ex.QueryRow(ctx, `SELECT credits FROM user_credits WHERE device_id = $1;`, deviceID).Scan(&credits)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return credits, nil
}

// CreditAtomic is a single upsert so concurrent credits to one device never
// lose an update.
func (r *PostgresCreditRepo) CreditAtomic(ctx context.Context, tx repository.Tx, deviceID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO user_credits (device_id, credits, created_at, updated_at)
VALUES ($1, $2, NOW(), NOW())
ON CONFLICT (device_id) DO UPDATE SET
  credits = user_credits.credits + EXCLUDED.credits,
  updated_at = NOW()
RETURNING credits;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var credits int64
	if err := ex.QueryRow(ctx, q, deviceID, amount).Scan(&credits); err != nil {
		return 0, fmt.Errorf("credit account: %w", err)
	}
	return credits, nil
}

// DebitAtomic decrements only when the balance covers amount. The guard and
// the decrement are evaluated in one statement, so two concurrent debits on a
// balance of 1 cannot both succeed.
func (r *PostgresCreditRepo) DebitAtomic(ctx context.Context, tx repository.Tx, deviceID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidArgument
	}
	const q = `
UPDATE user_credits
   SET credits = credits - $1, updated_at = NOW()
 WHERE device_id = $2 AND credits >= $1
RETURNING credits;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var credits int64
	if err := ex.QueryRow(ctx, q, amount, deviceID).Scan(&credits); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrInsufficientCredits
		}
		return 0, fmt.Errorf("debit account: %w", err)
	}
	return credits, nil
}

func (r *PostgresCreditRepo) CountAccounts(ctx context.Context, tx repository.Tx) (int64, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := ex.QueryRow(ctx, `SELECT COUNT(*) FROM user_credits;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

func (r *PostgresCreditRepo) TopAccounts(ctx context.Context, tx repository.Tx, limit int) ([]*model.CreditAccount, error) {
	const q = `
SELECT device_id, credits, created_at, updated_at
  FROM user_credits
 ORDER BY credits DESC, updated_at DESC
 LIMIT $1;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("top accounts: %w", err)
	}
	defer rows.Close()

	var out []*model.CreditAccount
	for rows.Next() {
		var a model.CreditAccount
		if err := rows.Scan(&a.DeviceID, &a.Credits, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
