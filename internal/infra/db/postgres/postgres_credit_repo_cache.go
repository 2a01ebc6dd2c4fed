package postgres

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"portrait-studio/internal/domain/model"
	"portrait-studio/internal/domain/ports/repository"
	"portrait-studio/internal/infra/metrics"
	red "portrait-studio/internal/infra/redis"
)

var _ repository.CreditRepository = (*creditRepoCacheDecorator)(nil)

// creditRepoCacheDecorator caches balance reads only. Debit and credit always
// go to the inner repository, so the guarded statements stay authoritative and
// the cached value is for display. Every write invalidates the key and the
// next read refills it; a reader racing a write may re-cache the old value for
// at most ttl.
type creditRepoCacheDecorator struct {
	inner repository.CreditRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewCreditRepoCacheDecorator(inner repository.CreditRepository, cache red.RedisClient, ttl time.Duration) repository.CreditRepository {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &creditRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func balanceKey(deviceID string) string { return "credits:" + deviceID }

func (d *creditRepoCacheDecorator) GetBalance(ctx context.Context, tx repository.Tx, deviceID string) (int64, error) {
	// reads inside a transaction must see the transaction's own writes
	if tx != nil {
		return d.inner.GetBalance(ctx, tx, deviceID)
	}
	key := balanceKey(deviceID)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		if n, perr := strconv.ParseInt(val, 10, 64); perr == nil {
			metrics.IncCacheRequest("credits", "hit")
			return n, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		metrics.IncCacheRequest("credits", "error")
	}

	metrics.IncCacheRequest("credits", "miss")
	n, err := d.inner.GetBalance(ctx, tx, deviceID)
	if err != nil {
		return 0, err
	}
	_ = d.cache.Set(ctx, key, strconv.FormatInt(n, 10), d.ttl)
	return n, nil
}

func (d *creditRepoCacheDecorator) CreditAtomic(ctx context.Context, tx repository.Tx, deviceID string, amount int64) (int64, error) {
	n, err := d.inner.CreditAtomic(ctx, tx, deviceID, amount)
	d.invalidate(ctx, deviceID)
	return n, err
}

func (d *creditRepoCacheDecorator) DebitAtomic(ctx context.Context, tx repository.Tx, deviceID string, amount int64) (int64, error) {
	n, err := d.inner.DebitAtomic(ctx, tx, deviceID, amount)
	d.invalidate(ctx, deviceID)
	return n, err
}

// invalidate never writes the balance a write returned: two concurrent
// writers could land their Sets out of order.
func (d *creditRepoCacheDecorator) invalidate(ctx context.Context, deviceID string) {
	if err := d.cache.Del(ctx, balanceKey(deviceID)); err != nil {
		metrics.IncCacheRequest("credits", "error")
	}
}

func (d *creditRepoCacheDecorator) CountAccounts(ctx context.Context, tx repository.Tx) (int64, error) {
	return d.inner.CountAccounts(ctx, tx)
}

func (d *creditRepoCacheDecorator) TopAccounts(ctx context.Context, tx repository.Tx, limit int) ([]*model.CreditAccount, error) {
	return d.inner.TopAccounts(ctx, tx, limit)
}
