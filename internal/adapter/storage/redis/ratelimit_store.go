package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "ratelimit:track:"

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix seconds when the current window closes
}

// RateLimitStore counts track requests in fixed windows. Each window has
// its own key, so a counter never outlives its window by more than a second.
type RateLimitStore struct {
	client *goredis.Client
	now    func() time.Time
}

func NewRateLimitStore(client *goredis.Client) *RateLimitStore {
	return &RateLimitStore{client: client, now: time.Now}
}

// Allow counts one request for key and reports whether it fits in limit.
// The increment and the expiry go out in one MULTI/EXEC.
func (s *RateLimitStore) Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error) {
	seconds := int64(window / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	windowID := s.now().Unix() / seconds
	redisKey := fmt.Sprintf("%s%s:%d", rateLimitPrefix, key, windowID)

	var incr *goredis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.Expire(ctx, redisKey, time.Duration(seconds+1)*time.Second)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("count request %s: %w", key, err)
	}

	count := incr.Val()
	return &RateLimitResult{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: max(limit-count, 0),
		ResetAt:   (windowID + 1) * seconds,
	}, nil
}
