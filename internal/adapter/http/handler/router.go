package handler

import (
	"time"

	"affiliate-ledger/internal/adapter/http/middleware"
	"affiliate-ledger/internal/adapter/metrics"
	"affiliate-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const maxRequestBody = 1 << 20

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	CommissionSvc   ports.CommissionService
	SignupSvc       ports.SignupService
	AccountSvc      ports.AccountService // nil = no management routes
	Notifier        ports.Notifier       // nil = no notifications
	RateStatus      ports.RateStatus
	PayoutCurrency  string
	TrackToken      string
	ManagementToken string                      // empty = no management routes
	RateLimitStore  middleware.RateLimitChecker // nil = rate limiting disabled
	RateLimit       int64                       // requests per minute, 0 = disabled
	HealthCheckers  []ports.HealthChecker
	Gatherer        prometheus.Gatherer // nil = no /metrics
	Metrics         *metrics.Metrics
	Mode            string
	Logger          zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	mode := deps.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(maxRequestBody))

	r.GET("/health", HealthCheck(deps.RateStatus, deps.HealthCheckers...))
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/api/v1")

	ratesHandler := NewRatesHandler(deps.RateStatus, deps.PayoutCurrency)
	v1.GET("/exchange/rates", ratesHandler.GetRates)

	var rl gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if deps.RateLimitStore != nil && deps.RateLimit > 0 {
		rule := middleware.RateLimitRule{Limit: deps.RateLimit, Window: time.Minute}
		rl = middleware.RateLimiter(deps.RateLimitStore, "track", rule, deps.Metrics, deps.Logger)
	}

	trackHandler := NewTrackHandler(deps.CommissionSvc, deps.SignupSvc, deps.Notifier)
	track := v1.Group("/track", middleware.TrackAuth(deps.TrackToken, deps.Logger))
	{
		track.POST("/payment/:tracking_id", rl, trackHandler.TrackPayment)
		track.POST("/signup/:tracking_id", rl, trackHandler.TrackSignup)
	}

	if deps.AccountSvc != nil && deps.ManagementToken != "" {
		managementHandler := NewManagementHandler(deps.AccountSvc)
		management := v1.Group("/management", middleware.ManagementAuth(deps.ManagementToken, deps.Logger))
		management.POST("/account", managementHandler.CreateAccount)
	}

	return r
}
