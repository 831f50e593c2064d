package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"affiliate-ledger/internal/adapter/metrics"
	redisStore "affiliate-ledger/internal/adapter/storage/redis"
	"affiliate-ledger/pkg/apperror"
	"affiliate-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RejectRateLimited is the rejection reason recorded for throttled requests.
const RejectRateLimited = "rate_limited"

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// RateLimitChecker counts requests in fixed windows.
type RateLimitChecker interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*redisStore.RateLimitResult, error)
}

// RateLimiter creates a rate-limiting middleware for a given endpoint group.
// Requests are keyed by client IP and tracker id. When the store is
// unreachable the request is allowed.
func RateLimiter(store RateLimitChecker, group string, rule RateLimitRule, m *metrics.Metrics, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", group, extractIdentifier(c))

		result, err := store.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			retryAfter := result.ResetAt - time.Now().Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			m.RecordRejected(RejectRateLimited)
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		c.Next()
	}
}

// extractIdentifier determines the rate limit key source.
func extractIdentifier(c *gin.Context) string {
	if id := c.Param("tracking_id"); id != "" {
		return c.ClientIP() + ":" + id
	}
	return c.ClientIP()
}
