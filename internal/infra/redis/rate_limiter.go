package redis

import (
	"context"
	"time"
)

// RateLimiter is a fixed-window counter: the first hit in a window sets the
// key's expiry, later hits only increment.
type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	if count == 1 {
		err = r.client.Expire(ctx, key, window)
		if err != nil {
			return false, err
		}
	}

	if count > int64(limit) {
		return false, nil
	}

	return true, nil
}

// ClientKey scopes a counter to one rule and one client address.
func ClientKey(scope, clientIP string) string {
	return "rate_limit:" + scope + ":" + clientIP
}
