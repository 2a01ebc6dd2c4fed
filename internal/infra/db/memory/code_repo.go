package memory

import (
	"context"
	"fmt"
	"sort"

	"portrait-studio/internal/domain"
	"portrait-studio/internal/domain/model"
	"portrait-studio/internal/domain/ports/repository"
)

var _ repository.CodeRepository = (*CodeRepo)(nil)

type CodeRepo struct {
	s *Store
}

func NewCodeRepo(s *Store) *CodeRepo { return &CodeRepo{s: s} }

func cloneCode(c *model.VerificationCode) *model.VerificationCode {
	cp := *c
	if c.UsedAt != nil {
		t := *c.UsedAt
		cp.UsedAt = &t
	}
	return &cp
}

// FindActiveByCodeForUpdate relies on the store mutex held by the transaction
// manager in place of a row lock.
func (r *CodeRepo) FindActiveByCodeForUpdate(ctx context.Context, tx repository.Tx, code string) (*model.VerificationCode, error) {
	var out *model.VerificationCode
	err := r.s.exec(tx, func(*Tx) error {
		c, ok := r.s.codes[code]
		if !ok || !c.IsActive() {
			return domain.ErrNotFound
		}
		out = cloneCode(c)
		return nil
	})
	return out, err
}

func (r *CodeRepo) MarkUsed(ctx context.Context, tx repository.Tx, code string) error {
	return r.s.exec(tx, func(t *Tx) error {
		c, ok := r.s.codes[code]
		if !ok || !c.IsActive() {
			return domain.ErrNotFound
		}
		prev := cloneCode(c)
		now := r.s.now()
		c.Status = model.CodeStatusUsed
		c.UsedAt = &now
		t.onRollback(func() { r.s.codes[code] = prev })
		return nil
	})
}

func (r *CodeRepo) Create(ctx context.Context, tx repository.Tx, code string, points int64) (*model.VerificationCode, error) {
	var out *model.VerificationCode
	err := r.s.exec(tx, func(t *Tx) error {
		if _, ok := r.s.codes[code]; ok {
			return fmt.Errorf("code %s: %w", code, domain.ErrAlreadyExists)
		}
		c := &model.VerificationCode{
			Code:      code,
			Points:    points,
			Status:    model.CodeStatusActive,
			CreatedAt: r.s.now(),
		}
		r.s.codes[code] = c
		t.onRollback(func() { delete(r.s.codes, code) })
		out = cloneCode(c)
		return nil
	})
	return out, err
}

func (r *CodeRepo) Exists(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	var ok bool
	err := r.s.exec(tx, func(*Tx) error {
		_, ok = r.s.codes[code]
		return nil
	})
	return ok, err
}

func (r *CodeRepo) Delete(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	var removed bool
	err := r.s.exec(tx, func(t *Tx) error {
		c, ok := r.s.codes[code]
		if !ok {
			return nil
		}
		delete(r.s.codes, code)
		t.onRollback(func() { r.s.codes[code] = c })
		removed = true
		return nil
	})
	return removed, err
}

func (r *CodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.VerificationCode, error) {
	var out *model.VerificationCode
	err := r.s.exec(tx, func(*Tx) error {
		c, ok := r.s.codes[code]
		if !ok {
			return domain.ErrNotFound
		}
		out = cloneCode(c)
		return nil
	})
	return out, err
}

func (r *CodeRepo) FindList(ctx context.Context, tx repository.Tx, f model.CodeFilter) ([]*model.VerificationCode, int64, error) {
	var page []*model.VerificationCode
	var total int64
	err := r.s.exec(tx, func(*Tx) error {
		matched := make([]*model.VerificationCode, 0, len(r.s.codes))
		for _, c := range r.s.codes {
			if f.Status == "" || c.Status == f.Status {
				matched = append(matched, c)
			}
		}
		sort.Slice(matched, func(i, j int) bool {
			if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
				return matched[i].CreatedAt.After(matched[j].CreatedAt)
			}
			return matched[i].Code < matched[j].Code
		})
		total = int64(len(matched))

		start := f.Offset
		if start > len(matched) {
			start = len(matched)
		}
		end := len(matched)
		if f.Limit > 0 && start+f.Limit < end {
			end = start + f.Limit
		}
		page = make([]*model.VerificationCode, 0, end-start)
		for _, c := range matched[start:end] {
			page = append(page, cloneCode(c))
		}
		return nil
	})
	return page, total, err
}

func (r *CodeRepo) GetStats(ctx context.Context, tx repository.Tx) (model.CodeStats, error) {
	var st model.CodeStats
	err := r.s.exec(tx, func(*Tx) error {
		for _, c := range r.s.codes {
			st.TotalCodes++
			st.TotalPoints += c.Points
			if c.IsActive() {
				st.ActiveCodes++
			} else {
				st.UsedCodes++
				st.UsedPoints += c.Points
			}
		}
		return nil
	})
	return st, err
}
