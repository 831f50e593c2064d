package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"affiliate-ledger/config"
	httpHandler "affiliate-ledger/internal/adapter/http/handler"
	"affiliate-ledger/internal/adapter/exchange"
	"affiliate-ledger/internal/adapter/kafka"
	"affiliate-ledger/internal/adapter/mail"
	"affiliate-ledger/internal/adapter/metrics"
	pgStorage "affiliate-ledger/internal/adapter/storage/postgres"
	redisStorage "affiliate-ledger/internal/adapter/storage/redis"
	"affiliate-ledger/internal/core/ports"
	"affiliate-ledger/internal/service"
	"affiliate-ledger/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	shutdownTimeout = 10 * time.Second
	notifyTimeout   = 30 * time.Second
)

func main() {
	// Optional .env, real environment wins
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("payout_currency", cfg.Payout.Currency).
		Str("provider", cfg.Exchange.Provider).
		Msg("Starting affiliate ledger")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// PostgreSQL
	if cfg.Database.Migrate {
		if err := pgStorage.RunMigrations(cfg.Database.DSN(), log); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
	}
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Redis
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Repositories
	trackerRepo := pgStorage.NewTrackerRepo(pool)
	balanceRepo := pgStorage.NewBalanceRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Exchange rates
	source, err := exchange.New(cfg.Exchange)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize rate source")
	}
	rateCache := service.NewRateCache(cfg.Payout.Currency)
	scheduler := service.NewRateScheduler(
		source,
		rateCache,
		redisStorage.NewRateSnapshotStore(rdb),
		service.RateSchedulerConfig{
			PollInterval: cfg.Exchange.PollInterval,
			RetryDelay:   cfg.Exchange.RetryDelay,
			RetryLimit:   cfg.Exchange.RetryLimit,
		},
		m,
		logger.Component(log, "rate_scheduler"),
	)
	scheduler.WarmStart(ctx)

	// Notifications
	var mailer ports.Mailer
	if cfg.Email.Enabled {
		mailer = mail.NewSMTPMailer(cfg.Email, cfg.Branding)
		log.Info().Str("smtp_host", cfg.Email.SMTPHost).Msg("Email notifications enabled")
	}
	var publisher ports.EventPublisher
	if cfg.Kafka.Enabled {
		publisher = kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Kafka events enabled")
	}
	notifier := service.NewNotificationService(mailer, publisher, notifyTimeout, m, logger.Component(log, "notifier"))

	// Core services
	commissionSvc := service.NewCommissionService(
		trackerRepo,
		balanceRepo,
		transactor,
		rateCache,
		cfg.Payout.Currency,
		m,
		logger.Component(log, "commission"),
	)
	signupSvc := service.NewSignupService(trackerRepo, m, logger.Component(log, "signup"))
	accountSvc := service.NewAccountService(pgStorage.NewAccountRepo(pool), logger.Component(log, "accounts"))
	if cfg.Management.Token == "" {
		log.Info().Msg("Management token not set, account provisioning disabled")
	}

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		CommissionSvc:   commissionSvc,
		SignupSvc:       signupSvc,
		AccountSvc:      accountSvc,
		Notifier:        notifier,
		RateStatus:      rateCache,
		PayoutCurrency:  cfg.Payout.Currency,
		TrackToken:      cfg.Track.Token,
		ManagementToken: cfg.Management.Token,
		RateLimitStore:  redisStorage.NewRateLimitStore(rdb),
		RateLimit:       cfg.Track.RateLimit,
		HealthCheckers:  []ports.HealthChecker{pgStorage.NewHealthCheck(pool), redisStorage.NewHealthCheck(rdb)},
		Gatherer:        reg,
		Metrics:         m,
		Mode:            cfg.Server.Mode,
		Logger:          logger.Component(log, "http"),
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	err = serve(ctx, srv, scheduler, func(shutdownCtx context.Context) {
		if err := notifier.Close(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Notifications still in flight at shutdown")
		}
		if publisher != nil {
			if err := publisher.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close kafka publisher")
			}
		}
	}, log)
	if err != nil {
		log.Error().Err(err).Msg("Server exited with error")
		_ = rdb.Close()
		pool.Close()
		stop()
		os.Exit(1)
	}

	log.Info().Msg("Server exited")
}
