package security

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

// RateLimiter applies a fixed-window request ceiling per client IP,
// backed by Redis so limits hold across instances.
type RateLimiter struct {
	redis  *redis.Client
	limit  int64
	window time.Duration
}

func NewRateLimiter(redisClient *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		limit:  int64(limit),
		window: window,
	}
}

// Limit wraps a route handler with the window counter.
func (r *RateLimiter) Limit(name string, next func(*core.RequestEvent) error) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		key := fmt.Sprintf("ratelimit:%s:%s", name, e.RealIP())

		if !r.allow(e.Request.Context(), key) {
			return e.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "Rate limit exceeded. Please try again later.",
			})
		}

		return next(e)
	}
}

// allow counts the request against the window. ExpireNX starts the
// window on the first hit and restores a missing TTL on a counter left
// behind by a crash between the two commands, so no key can throttle an
// IP forever. Redis errors fail open: a broken limiter must not take
// registration down with it.
func (r *RateLimiter) allow(ctx context.Context, key string) bool {
	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		return true
	}

	r.redis.ExpireNX(ctx, key, r.window)

	return count <= r.limit
}
