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

// Ensure implementation satisfies the interface.
var _ repository.CodeRepository = (*PostgresCodeRepo)(nil)

type PostgresCodeRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresCodeRepo(pool *pgxpool.Pool) *PostgresCodeRepo {
	return &PostgresCodeRepo{pool: pool}
}

const codeColumns = `code, points, status, created_at, used_at`

func scanCode(row pgx.Row) (*model.VerificationCode, error) {
	var c model.VerificationCode
	var status string
	if err := row.Scan(&c.Code, &c.Points, &status, &c.CreatedAt, &c.UsedAt); err != nil {
		return nil, err
	}
	c.Status = model.CodeStatus(status)
	return &c, nil
}

// FindActiveByCodeForUpdate must run inside a transaction for the lock to be
// meaningful; outside one the lock is released at statement end.
func (r *PostgresCodeRepo) FindActiveByCodeForUpdate(ctx context.Context, tx repository.Tx, code string) (*model.VerificationCode, error) {
	const q = `
SELECT ` + codeColumns + `
  FROM verification_codes
 WHERE code = $1 AND status = 'active'
 FOR UPDATE;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	c, err := scanCode(ex.QueryRow(ctx, q, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find active code: %w", err)
	}
	return c, nil
}

func (r *PostgresCodeRepo) MarkUsed(ctx context.Context, tx repository.Tx, code string) error {
	const q = `
UPDATE verification_codes
   SET status = 'used', used_at = NOW()
 WHERE code = $1 AND status = 'active';`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, q, code)
	if err != nil {
		return fmt.Errorf("mark code used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresCodeRepo) Create(ctx context.Context, tx repository.Tx, code string, points int64) (*model.VerificationCode, error) {
	const q = `
INSERT INTO verification_codes (code, points, status, created_at)
VALUES ($1, $2, 'active', NOW())
RETURNING ` + codeColumns + `;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	c, err := scanCode(ex.QueryRow(ctx, q, code, points))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("code %s: %w", code, domain.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("create code: %w", err)
	}
	return c, nil
}

func (r *PostgresCodeRepo) Exists(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM verification_codes WHERE code = $1);`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := ex.QueryRow(ctx, q, code).Scan(&ok); err != nil {
		return false, fmt.Errorf("code exists: %w", err)
	}
	return ok, nil
}

func (r *PostgresCodeRepo) Delete(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return false, err
	}
	tag, err := ex.Exec(ctx, `DELETE FROM verification_codes WHERE code = $1;`, code)
	if err != nil {
		return false, fmt.Errorf("delete code: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.VerificationCode, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	c, err := scanCode(ex.QueryRow(ctx, `SELECT `+codeColumns+` FROM verification_codes WHERE code = $1;`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find code: %w", err)
	}
	return c, nil
}

// FindList returns one page ordered newest first, plus the total number of
// rows matching the status filter.
func (r *PostgresCodeRepo) FindList(ctx context.Context, tx repository.Tx, f model.CodeFilter) ([]*model.VerificationCode, int64, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, 0, err
	}
	// $1 = '' disables the filter
	const q = `
SELECT ` + codeColumns + `
  FROM verification_codes
 WHERE ($1 = '' OR status = $1)
 ORDER BY created_at DESC, code
 LIMIT $2 OFFSET $3;`
	rows, err := ex.Query(ctx, q, string(f.Status), f.Limit, f.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list codes: %w", err)
	}
	defer rows.Close()

	out := make([]*model.VerificationCode, 0, f.Limit)
	for rows.Next() {
		c, err := scanCode(rows)
		if err != nil {
			return nil, 0, domain.ErrReadDatabaseRow
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := ex.QueryRow(ctx, `SELECT COUNT(*) FROM verification_codes WHERE ($1 = '' OR status = $1);`, string(f.Status)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count codes: %w", err)
	}
	return out, total, nil
}

func (r *PostgresCodeRepo) GetStats(ctx context.Context, tx repository.Tx) (model.CodeStats, error) {
	const q = `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE status = 'active'),
       COUNT(*) FILTER (WHERE status = 'used'),
       COALESCE(SUM(points), 0),
       COALESCE(SUM(points) FILTER (WHERE status = 'used'), 0)
  FROM verification_codes;`
	var s model.CodeStats
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return s, err
	}
	if err := ex.QueryRow(ctx, q).Scan(&s.TotalCodes, &s.ActiveCodes, &s.UsedCodes, &s.TotalPoints, &s.UsedPoints); err != nil {
		return s, fmt.Errorf("code stats: %w", err)
	}
	return s, nil
}
