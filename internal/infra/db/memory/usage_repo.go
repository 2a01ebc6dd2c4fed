package memory

import (
	"context"

	"portrait-studio/internal/domain/model"
	"portrait-studio/internal/domain/ports/repository"
)

var _ repository.UsageRepository = (*UsageRepo)(nil)

type UsageRepo struct {
	s *Store
}

func NewUsageRepo(s *Store) *UsageRepo { return &UsageRepo{s: s} }

func (r *UsageRepo) Append(ctx context.Context, tx repository.Tx, e *model.UsageLogEntry) error {
	return r.s.exec(tx, func(t *Tx) error {
		r.s.nextLogID++
		e.ID = r.s.nextLogID
		e.CreatedAt = r.s.now()
		cp := *e
		r.s.logs = append(r.s.logs, &cp)
		t.onRollback(func() {
			r.s.logs = r.s.logs[:len(r.s.logs)-1]
			r.s.nextLogID--
		})
		return nil
	})
}

func (r *UsageRepo) Recent(ctx context.Context, tx repository.Tx, limit int) ([]*model.UsageLogEntry, error) {
	return r.collect(tx, limit, func(*model.UsageLogEntry) bool { return true })
}

func (r *UsageRepo) ByDevice(ctx context.Context, tx repository.Tx, deviceID string, limit int) ([]*model.UsageLogEntry, error) {
	return r.collect(tx, limit, func(e *model.UsageLogEntry) bool { return e.DeviceID == deviceID })
}

// collect walks newest first.
func (r *UsageRepo) collect(tx repository.Tx, limit int, keep func(*model.UsageLogEntry) bool) ([]*model.UsageLogEntry, error) {
	var out []*model.UsageLogEntry
	err := r.s.exec(tx, func(*Tx) error {
		for i := len(r.s.logs) - 1; i >= 0; i-- {
			if limit > 0 && len(out) >= limit {
				break
			}
			if e := r.s.logs[i]; keep(e) {
				cp := *e
				out = append(out, &cp)
			}
		}
		return nil
	})
	return out, err
}
