//go:build !integration

package postgres

import (
	"context"
	"time"

	"portrait-studio/internal/domain/model"
	"portrait-studio/internal/domain/ports/repository"
)

// --- Mock Redis Client ---
type mockRedisClient struct {
	GetFunc func(ctx context.Context, key string) (string, error)
	SetFunc func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc func(ctx context.Context, keys ...string) error
}

func (m *mockRedisClient) Ping(ctx context.Context) error { return nil }
func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	return "", nil
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, expiration)
	}
	return nil
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc != nil {
		return m.DelFunc(ctx, keys...)
	}
	return nil
}
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) { return 0, nil }
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return nil
}
func (m *mockRedisClient) Close() error { return nil }

// --- Mock Inner Credit Repository ---
type mockInnerCreditRepo struct {
	GetBalanceFunc   func(ctx context.Context, tx repository.Tx, deviceID string) (int64, error)
	CreditAtomicFunc func(ctx context.Context, tx repository.Tx, deviceID string, amount int64) (int64, error)
	DebitAtomicFunc  func(ctx context.Context, tx repository.Tx, deviceID string, amount int64) (int64, error)
}

func (m *mockInnerCreditRepo) GetBalance(ctx context.Context, tx repository.Tx, deviceID string) (int64, error) {
	if m.GetBalanceFunc != nil {
		return m.GetBalanceFunc(ctx, tx, deviceID)
	}
	return 0, nil
}
func (m *mockInnerCreditRepo) CreditAtomic(ctx context.Context, tx repository.Tx, deviceID string, amount int64) (int64, error) {
	if m.CreditAtomicFunc != nil {
		return m.CreditAtomicFunc(ctx, tx, deviceID, amount)
	}
	return amount, nil
}
func (m *mockInnerCreditRepo) DebitAtomic(ctx context.Context, tx repository.Tx, deviceID string, amount int64) (int64, error) {
	if m.DebitAtomicFunc != nil {
		return m.DebitAtomicFunc(ctx, tx, deviceID, amount)
	}
	return 0, nil
}
func (m *mockInnerCreditRepo) CountAccounts(ctx context.Context, tx repository.Tx) (int64, error) {
	return 0, nil
}
func (m *mockInnerCreditRepo) TopAccounts(ctx context.Context, tx repository.Tx, limit int) ([]*model.CreditAccount, error) {
	return nil, nil
}
