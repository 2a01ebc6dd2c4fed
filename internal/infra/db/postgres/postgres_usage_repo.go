package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"portrait-studio/internal/domain"
	"portrait-studio/internal/domain/model"
	"portrait-studio/internal/domain/ports/repository"
)

var _ repository.UsageRepository = (*PostgresUsageRepo)(nil)

type PostgresUsageRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresUsageRepo(pool *pgxpool.Pool) *PostgresUsageRepo {
	return &PostgresUsageRepo{pool: pool}
}

func (r *PostgresUsageRepo) Append(ctx context.Context, tx repository.Tx, e *model.UsageLogEntry) error {
	meta, err := e.MetadataJSON()
	if err != nil {
		return fmt.Errorf("encode usage metadata: %w", err)
	}
	const q = `
INSERT INTO usage_logs (device_id, action, metadata, created_at)
VALUES ($1, $2, $3::jsonb, NOW())
RETURNING id, created_at;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	if err := ex.QueryRow(ctx, q, e.DeviceID, e.Action, string(meta)).Scan(&e.ID, &e.CreatedAt); err != nil {
		return fmt.Errorf("append usage log: %w", err)
	}
	return nil
}

func (r *PostgresUsageRepo) Recent(ctx context.Context, tx repository.Tx, limit int) ([]*model.UsageLogEntry, error) {
	const q = `
SELECT id, device_id, action, metadata, created_at
  FROM usage_logs
 ORDER BY created_at DESC, id DESC
 LIMIT $1;`
	return r.query(ctx, tx, q, limit)
}

func (r *PostgresUsageRepo) ByDevice(ctx context.Context, tx repository.Tx, deviceID string, limit int) ([]*model.UsageLogEntry, error) {
	const q = `
SELECT id, device_id, action, metadata, created_at
  FROM usage_logs
 WHERE device_id = $1
 ORDER BY created_at DESC, id DESC
 LIMIT $2;`
	return r.query(ctx, tx, q, deviceID, limit)
}

func (r *PostgresUsageRepo) query(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.UsageLogEntry, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query usage logs: %w", err)
	}
	defer rows.Close()

	var out []*model.UsageLogEntry
	for rows.Next() {
		var e model.UsageLogEntry
		var raw []byte
		if err := rows.Scan(&e.ID, &e.DeviceID, &e.Action, &raw, &e.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &e.Metadata)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
