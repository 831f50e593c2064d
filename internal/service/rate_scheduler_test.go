package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"affiliate-ledger/internal/adapter/metrics"
	"affiliate-ledger/internal/core/domain"
	"affiliate-ledger/internal/core/ports/mocks"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type schedulerTestDeps struct {
	sched   *RateScheduler
	source  *mocks.MockRateSource
	store   *mocks.MockRateSnapshotStore
	cache   *RateCache
	metrics *metrics.Metrics
	sleeps  []time.Duration
}

func setupScheduler(t *testing.T, retryLimit int) *schedulerTestDeps {
	ctrl := gomock.NewController(t)
	d := &schedulerTestDeps{
		source:  mocks.NewMockRateSource(ctrl),
		store:   mocks.NewMockRateSnapshotStore(ctrl),
		cache:   NewRateCache("EUR"),
		metrics: metrics.New(prometheus.NewRegistry()),
	}
	d.source.EXPECT().Name().Return("fixer").AnyTimes()

	d.sched = NewRateScheduler(d.source, d.cache, d.store, RateSchedulerConfig{
		PollInterval: 72 * time.Hour,
		RetryDelay:   time.Minute,
		RetryLimit:   retryLimit,
	}, d.metrics, newTestLogger())
	d.sched.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	d.sched.sleep = func(ctx context.Context, dur time.Duration) error {
		d.sleeps = append(d.sleeps, dur)
		return ctx.Err()
	}
	return d
}

var errUpstream = errors.New("upstream down")

func TestRateScheduler_Refresh_RetriesWithinBudget(t *testing.T) {
	for failures := 0; failures <= 2; failures++ {
		t.Run(fmt.Sprintf("%d failures", failures), func(t *testing.T) {
			d := setupScheduler(t, 2)
			ctx := context.Background()

			if failures > 0 {
				d.source.EXPECT().Fetch(ctx, "EUR").Return(nil, errUpstream).Times(failures)
			}
			d.source.EXPECT().Fetch(ctx, "EUR").Return(domain.RateMap{"USD": 1.1}, nil)
			d.store.EXPECT().Save(ctx, gomock.Any()).Return(nil)

			require.True(t, d.sched.Refresh(ctx))

			assert.Len(t, d.sleeps, failures, "one retry delay per failure")
			for _, s := range d.sleeps {
				assert.Equal(t, time.Minute, s)
			}

			snap := d.cache.Snapshot()
			require.NotNil(t, snap)
			assert.Equal(t, "EUR", snap.Base)
			assert.Equal(t, "fixer", snap.Provider)
			assert.InDelta(t, 1.1, snap.Rates["USD"], 1e-12)

			assert.Equal(t, float64(failures), testutil.ToFloat64(d.metrics.RateRefreshTotal.WithLabelValues(metrics.RefreshFailed)))
			assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.RateRefreshTotal.WithLabelValues(metrics.RefreshPublished)))
			assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.RatesCached))
		})
	}
}

func TestRateScheduler_Refresh_ExhaustedKeepsPreviousRates(t *testing.T) {
	d := setupScheduler(t, 2)
	ctx := context.Background()

	previous := domain.RateMap{"USD": 1.2}
	d.cache.Publish(&domain.RateSnapshot{Base: "EUR", Rates: previous, Provider: "fixer"})

	// first attempt + 2 retries, the 4th call is never made
	d.source.EXPECT().Fetch(ctx, "EUR").Return(nil, errUpstream).Times(3)

	assert.False(t, d.sched.Refresh(ctx))
	assert.Len(t, d.sleeps, 2)

	got, err := d.cache.Convert(12, "USD")
	require.NoError(t, err, "cache is never cleared on failure")
	assert.InDelta(t, 10, got, 1e-9)

	assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.RateRefreshTotal.WithLabelValues(metrics.RefreshExhausted)))
	assert.Equal(t, 0.0, testutil.ToFloat64(d.metrics.RateRefreshTotal.WithLabelValues(metrics.RefreshPublished)))
}

func TestRateScheduler_Refresh_ZeroRetryBudget(t *testing.T) {
	d := setupScheduler(t, 0)
	ctx := context.Background()

	d.source.EXPECT().Fetch(ctx, "EUR").Return(nil, errUpstream).Times(1)

	assert.False(t, d.sched.Refresh(ctx))
	assert.Empty(t, d.sleeps)
	assert.Nil(t, d.cache.Snapshot())
}

func TestRateScheduler_Refresh_StoreFailureIsIgnored(t *testing.T) {
	d := setupScheduler(t, 2)
	ctx := context.Background()

	d.source.EXPECT().Fetch(ctx, "EUR").Return(domain.RateMap{"USD": 1.1}, nil)
	d.store.EXPECT().Save(ctx, gomock.Any()).Return(errors.New("redis down"))

	assert.True(t, d.sched.Refresh(ctx))
	assert.NotNil(t, d.cache.Snapshot())
}

func TestRateScheduler_Refresh_CancelledDuringRetry(t *testing.T) {
	d := setupScheduler(t, 5)
	ctx, cancel := context.WithCancel(context.Background())

	d.source.EXPECT().Fetch(gomock.Any(), "EUR").DoAndReturn(
		func(context.Context, string) (domain.RateMap, error) {
			cancel()
			return nil, errUpstream
		},
	).Times(1)

	assert.False(t, d.sched.Refresh(ctx))
}

func TestRateScheduler_Run_StopsOnCancel(t *testing.T) {
	d := setupScheduler(t, 2)
	ctx, cancel := context.WithCancel(context.Background())

	cycles := 0
	d.sched.sleep = func(ctx context.Context, dur time.Duration) error {
		assert.Equal(t, 72*time.Hour, dur)
		cycles++
		if cycles == 2 {
			cancel()
		}
		return ctx.Err()
	}

	d.source.EXPECT().Fetch(gomock.Any(), "EUR").Return(domain.RateMap{"USD": 1.1}, nil).Times(2)
	d.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	done := make(chan error, 1)
	go func() { done <- d.sched.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, 2, cycles)
}

func TestRateScheduler_WarmStart(t *testing.T) {
	stored := &domain.RateSnapshot{
		Base:      "EUR",
		Rates:     domain.RateMap{"USD": 1.1},
		Provider:  "currencyapi",
		FetchedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name      string
		snap      *domain.RateSnapshot
		err       error
		published bool
	}{
		{"stored snapshot", stored, nil, true},
		{"nothing stored", nil, nil, false},
		{"store error", nil, errors.New("redis down"), false},
		{"other base", &domain.RateSnapshot{Base: "USD", Rates: domain.RateMap{"EUR": 0.9}}, nil, false},
		{"empty rates", &domain.RateSnapshot{Base: "EUR"}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupScheduler(t, 2)
			ctx := context.Background()
			d.store.EXPECT().Load(ctx, "EUR").Return(tt.snap, tt.err)

			assert.Equal(t, tt.published, d.sched.WarmStart(ctx))
			if tt.published {
				got, err := d.cache.Convert(11, "USD")
				require.NoError(t, err)
				assert.InDelta(t, 10, got, 1e-9)
			} else {
				assert.Nil(t, d.cache.Snapshot())
			}
		})
	}
}

func TestRateScheduler_WarmStart_NoStore(t *testing.T) {
	d := setupScheduler(t, 2)
	d.sched.store = nil
	assert.False(t, d.sched.WarmStart(context.Background()))
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
