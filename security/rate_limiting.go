package security

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	redis *redis.Client
}

func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{redis: redisClient}
}

// Limit returns a per-route middleware allowing max requests per caller in
// each window. Authenticated callers are counted per user, anonymous ones
// per IP. An unreachable Redis fails open.
func (r *RateLimiter) Limit(scope string, max int64, window time.Duration) func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		identifier := e.RealIP()
		if e.Auth != nil {
			identifier = fmt.Sprintf("user:%s", e.Auth.Id)
		}
		key := fmt.Sprintf("ratelimit:%s:%s", scope, identifier)

		count, err := r.redis.Incr(e.Request.Context(), key).Result()
		if err != nil {
			slog.Warn("rate limiter unavailable", "scope", scope, "error", err)
			return e.Next()
		}
		if count == 1 {
			r.redis.Expire(e.Request.Context(), key, window)
		}
		if count > max {
			return apis.NewApiError(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.", nil)
		}

		return e.Next()
	}
}
