package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"affiliate-ledger/internal/adapter/http/middleware"
	"affiliate-ledger/internal/adapter/metrics"
	redisStore "affiliate-ledger/internal/adapter/storage/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func newStore(t *testing.T) *redisStore.RateLimitStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisStore.NewRateLimitStore(client)
}

func setupRateLimitRouter(store middleware.RateLimitChecker, m *metrics.Metrics) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	rule := middleware.RateLimitRule{Limit: 3, Window: time.Minute}
	r.POST("/track/:tracking_id", middleware.RateLimiter(store, "track", rule, m, zerolog.Nop()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func hit(router *gin.Engine, trackingID string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodPost, "/track/"+trackingID, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_AllowsWithinLimit(t *testing.T) {
	router := setupRateLimitRouter(newStore(t), nil)

	for i := 0; i < 3; i++ {
		w := hit(router, "trk-1")
		assert.Equal(t, http.StatusOK, w.Code, "request %d should succeed", i+1)
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	router := setupRateLimitRouter(newStore(t), m)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(router, "trk-1").Code)
	}

	w := hit(router, "trk-1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.InDelta(t, 1, testutil.ToFloat64(m.TrackRejectedTotal.WithLabelValues(middleware.RejectRateLimited)), 1e-9)
}

func TestRateLimiter_SeparateCountersPerTracker(t *testing.T) {
	router := setupRateLimitRouter(newStore(t), nil)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(router, "trk-a").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, hit(router, "trk-a").Code)
	assert.Equal(t, http.StatusOK, hit(router, "trk-b").Code)
}

type failingChecker struct{}

func (failingChecker) Allow(context.Context, string, int64, time.Duration) (*redisStore.RateLimitResult, error) {
	return nil, errors.New("connection refused")
}

func TestRateLimiter_DegradedModeAllows(t *testing.T) {
	router := setupRateLimitRouter(failingChecker{}, nil)

	for i := 0; i < 5; i++ {
		w := hit(router, "trk-1")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}
