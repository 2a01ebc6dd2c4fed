package memory

import (
	"context"
	"sort"

	"portrait-studio/internal/domain"
	"portrait-studio/internal/domain/model"
	"portrait-studio/internal/domain/ports/repository"
)

var _ repository.CreditRepository = (*CreditRepo)(nil)

type CreditRepo struct {
	s *Store
}

func NewCreditRepo(s *Store) *CreditRepo { return &CreditRepo{s: s} }

func (r *CreditRepo) GetBalance(ctx context.Context, tx repository.Tx, deviceID string) (int64, error) {
	var n int64
	err := r.s.exec(tx, func(*Tx) error {
		if a, ok := r.s.credits[deviceID]; ok {
			n = a.Credits
		}
		return nil
	})
	return n, err
}

func (r *CreditRepo) CreditAtomic(ctx context.Context, tx repository.Tx, deviceID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidArgument
	}
	var n int64
	err := r.s.exec(tx, func(t *Tx) error {
		now := r.s.now()
		a, ok := r.s.credits[deviceID]
		if !ok {
			a = &model.CreditAccount{DeviceID: deviceID, CreatedAt: now}
			r.s.credits[deviceID] = a
			t.onRollback(func() { delete(r.s.credits, deviceID) })
		} else {
			prev := *a
			t.onRollback(func() { *a = prev })
		}
		a.Credits += amount
		a.UpdatedAt = now
		n = a.Credits
		return nil
	})
	return n, err
}

func (r *CreditRepo) DebitAtomic(ctx context.Context, tx repository.Tx, deviceID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidArgument
	}
	var n int64
	err := r.s.exec(tx, func(t *Tx) error {
		a, ok := r.s.credits[deviceID]
		if !ok || a.Credits < amount {
			return domain.ErrInsufficientCredits
		}
		prev := *a
		t.onRollback(func() { *a = prev })
		a.Credits -= amount
		a.UpdatedAt = r.s.now()
		n = a.Credits
		return nil
	})
	return n, err
}

func (r *CreditRepo) CountAccounts(ctx context.Context, tx repository.Tx) (int64, error) {
	var n int64
	err := r.s.exec(tx, func(*Tx) error {
		n = int64(len(r.s.credits))
		return nil
	})
	return n, err
}

func (r *CreditRepo) TopAccounts(ctx context.Context, tx repository.Tx, limit int) ([]*model.CreditAccount, error) {
	var out []*model.CreditAccount
	err := r.s.exec(tx, func(*Tx) error {
		for _, a := range r.s.credits {
			cp := *a
			out = append(out, &cp)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Credits != out[j].Credits {
			return out[i].Credits > out[j].Credits
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
