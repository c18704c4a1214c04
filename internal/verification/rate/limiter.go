// Package rate bounds verification sends per target over a rolling window,
// independent of the per-attempt resend cooldown.
package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"yfi-bank/backend/internal/verification"
)

type Limiter struct {
	rdb         redis.UniversalClient
	window      time.Duration
	maxInWindow int
}

// NewLimiter returns a Redis-backed send limiter allowing max sends per target per window.
func NewLimiter(rdb redis.UniversalClient, window time.Duration, max int) *Limiter {
	return &Limiter{rdb: rdb, window: window, maxInWindow: max}
}

// Allow increments the windowed counter for target and returns
// verification.ErrRateLimited once the limit is exceeded. Redis failures are
// returned as-is; callers treat them as infrastructure errors, not limits.
func (l *Limiter) Allow(ctx context.Context, target string) error {
	key := "signup:sends:" + target

	cnt, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if cnt == 1 {
		_ = l.rdb.Expire(ctx, key, l.window).Err()
	}
	if int(cnt) > l.maxInWindow {
		ttl, _ := l.rdb.TTL(ctx, key).Result()
		return fmt.Errorf("%w: try again in %s", verification.ErrRateLimited, ttl.Round(time.Second))
	}
	return nil
}
