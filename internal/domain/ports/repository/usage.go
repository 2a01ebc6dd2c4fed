package repository

import (
	"context"

	"portrait-studio/internal/domain/model"
)

// UsageRepository is the append-only audit trail.
type UsageRepository interface {
	Append(ctx context.Context, tx Tx, e *model.UsageLogEntry) error
	Recent(ctx context.Context, tx Tx, limit int) ([]*model.UsageLogEntry, error)
	ByDevice(ctx context.Context, tx Tx, deviceID string, limit int) ([]*model.UsageLogEntry, error)
}
