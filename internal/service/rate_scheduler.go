package service

import (
	"context"
	"time"

	"affiliate-ledger/internal/adapter/metrics"
	"affiliate-ledger/internal/core/domain"
	"affiliate-ledger/internal/core/ports"

	"github.com/rs/zerolog"
)

// RateSchedulerConfig controls the refresh cadence.
type RateSchedulerConfig struct {
	PollInterval time.Duration
	RetryDelay   time.Duration
	RetryLimit   int // retries after the first attempt
}

// RateScheduler periodically fetches rates for the payout currency and
// publishes them into the cache. Failed cycles leave the cache untouched.
type RateScheduler struct {
	source  ports.RateSource
	cache   *RateCache
	store   ports.RateSnapshotStore // optional
	cfg     RateSchedulerConfig
	metrics *metrics.Metrics
	log     zerolog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRateScheduler creates a scheduler. store may be nil.
func NewRateScheduler(
	source ports.RateSource,
	cache *RateCache,
	store ports.RateSnapshotStore,
	cfg RateSchedulerConfig,
	m *metrics.Metrics,
	log zerolog.Logger,
) *RateScheduler {
	return &RateScheduler{
		source:  source,
		cache:   cache,
		store:   store,
		cfg:     cfg,
		metrics: m,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
		sleep:   sleepContext,
	}
}

// Run refreshes immediately, then once per poll interval, until ctx is done.
func (s *RateScheduler) Run(ctx context.Context) error {
	s.log.Info().
		Str("provider", s.source.Name()).
		Str("base", s.cache.PayoutCurrency()).
		Dur("poll_interval", s.cfg.PollInterval).
		Msg("rate scheduler started")

	for {
		s.Refresh(ctx)

		if err := s.sleep(ctx, s.cfg.PollInterval); err != nil {
			s.log.Info().Msg("rate scheduler stopped")
			return nil
		}
	}
}

// Refresh runs one fetch cycle: the first attempt plus up to RetryLimit
// retries spaced by RetryDelay. It reports whether a snapshot was published.
func (s *RateScheduler) Refresh(ctx context.Context) bool {
	base := s.cache.PayoutCurrency()

	for attempt := 0; attempt <= s.cfg.RetryLimit; attempt++ {
		if attempt > 0 {
			if err := s.sleep(ctx, s.cfg.RetryDelay); err != nil {
				return false
			}
		}

		rates, err := s.source.Fetch(ctx, base)
		if err != nil {
			s.metrics.RecordRefresh(metrics.RefreshFailed)
			s.log.Error().Err(err).
				Str("provider", s.source.Name()).
				Str("base", base).
				Int("attempt", attempt+1).
				Msg("rate fetch failed")
			if ctx.Err() != nil {
				return false
			}
			continue
		}

		snap := &domain.RateSnapshot{
			Base:      base,
			Rates:     rates,
			Provider:  s.source.Name(),
			FetchedAt: s.now(),
		}
		s.cache.Publish(snap)
		s.metrics.RecordRefresh(metrics.RefreshPublished)
		s.metrics.SetRatesCached(len(rates))

		s.log.Info().
			Str("provider", snap.Provider).
			Str("base", base).
			Int("attempt", attempt+1).
			Int("currencies", len(rates)).
			Msg("exchange rates published")

		s.persist(ctx, snap)
		return true
	}

	s.metrics.RecordRefresh(metrics.RefreshExhausted)
	s.log.Error().
		Str("provider", s.source.Name()).
		Str("base", base).
		Int("retry_limit", s.cfg.RetryLimit).
		Msg("rate refresh retries exhausted, keeping previous rates")
	return false
}

// WarmStart publishes the stored snapshot for the payout currency, if any.
func (s *RateScheduler) WarmStart(ctx context.Context) bool {
	if s.store == nil {
		return false
	}

	base := s.cache.PayoutCurrency()
	snap, err := s.store.Load(ctx, base)
	if err != nil {
		s.log.Warn().Err(err).Str("base", base).Msg("could not load stored rates")
		return false
	}
	if snap == nil || domain.NormalizeCurrency(snap.Base) != base || len(snap.Rates) == 0 {
		return false
	}

	s.cache.Publish(snap)
	s.metrics.SetRatesCached(len(snap.Rates))
	s.log.Info().
		Str("base", base).
		Str("provider", snap.Provider).
		Time("fetched_at", snap.FetchedAt).
		Msg("warm started from stored rates")
	return true
}

func (s *RateScheduler) persist(ctx context.Context, snap *domain.RateSnapshot) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(ctx, snap); err != nil {
		s.log.Warn().Err(err).Str("base", snap.Base).Msg("failed to store rate snapshot")
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
