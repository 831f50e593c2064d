package integration

import (
	"bytes"
	"context"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"testing"

	"affiliate-ledger/internal/core/domain"
	"affiliate-ledger/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConcurrentSignups_AtomicIncrement fires concurrent signups through the
// HTTP stack. Every one must be counted and each caller sees a distinct value.
func TestConcurrentSignups_AtomicIncrement(t *testing.T) {
	app := newTestApp(t, appOptions{})

	const concurrency = 100
	results := make([]int, concurrency)
	codes := make([]int, concurrency)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			req, _ := http.NewRequest(http.MethodPost, app.server.URL+"/api/v1/track/signup/"+trackerID, nil)
			req.SetBasicAuth("merchant-site", trackToken)
			resp, err := http.DefaultClient.Do(req)
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()
			codes[idx] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	for i, code := range codes {
		assert.Equal(t, http.StatusOK, code, "request %d", i)
	}
	assert.Equal(t, concurrency, app.store.signups(trackerID))

	// Same property one layer down, checking the returned counts.
	store := newInMemoryStore()
	owner := store.addAccount(ownerEmail, 0.2, false)
	store.addTracker(trackerID, owner.ID)
	svc := service.NewSignupService(&inMemoryTrackerRepo{store: store}, nil, newTestLogger("error"))

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			n, err := svc.HandleSignup(context.Background(), trackerID)
			assert.NoError(t, err)
			results[idx] = n
		}(i)
	}
	wg.Wait()

	sort.Ints(results)
	for i, n := range results {
		assert.Equal(t, i+1, n, "counts must be exactly 1..N")
	}
}

// TestConcurrentSignups_ReadModifyWriteLosesUpdates shows what the single
// statement increment prevents: callers that read before anyone writes all
// write the same value back.
func TestConcurrentSignups_ReadModifyWriteLosesUpdates(t *testing.T) {
	const concurrency = 20

	store := newInMemoryStore()
	owner := store.addAccount(ownerEmail, 0.2, false)
	store.addTracker(trackerID, owner.ID)

	readers := &sync.WaitGroup{}
	readers.Add(concurrency)
	repo := &naiveTrackerRepo{inMemoryTrackerRepo: inMemoryTrackerRepo{store: store}, readers: readers}
	svc := service.NewSignupService(repo, nil, newTestLogger("error"))

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.HandleSignup(context.Background(), trackerID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got := store.signups(trackerID)
	assert.Less(t, got, concurrency, "naive increment must under-count")
	assert.Equal(t, 1, got)
}

// TestConcurrentPayments_WithRateRefresh credits payments while the rate
// snapshot is republished. Every payment produces exactly one entry, and
// each entry is computed from one whole snapshot.
func TestConcurrentPayments_WithRateRefresh(t *testing.T) {
	app := newTestApp(t, appOptions{})

	const concurrency = 50
	codes := make([]int, concurrency)

	stop := make(chan struct{})
	var refresher sync.WaitGroup
	refresher.Add(1)
	go func() {
		defer refresher.Done()
		// Alternates between two consistent tables with the same USD rate
		// so the expected result is independent of interleaving.
		tables := []domain.RateMap{
			{"EUR": 1, "USD": 1.25, "GBP": 0.8},
			{"EUR": 1, "USD": 1.25, "GBP": 0.9},
		}
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			app.cache.Publish(&domain.RateSnapshot{Base: "EUR", Rates: tables[i%2], Provider: "test"})
			runtime.Gosched()
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			req, _ := http.NewRequest(http.MethodPost, app.server.URL+"/api/v1/track/payment/"+trackerID,
				bytes.NewBufferString(`{"amount":50,"currency":"USD"}`))
			req.Header.Set("Content-Type", "application/json")
			req.SetBasicAuth("merchant-site", trackToken)
			resp, err := http.DefaultClient.Do(req)
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()
			codes[idx] = resp.StatusCode
		}(i)
	}
	wg.Wait()
	close(stop)
	refresher.Wait()

	for i, code := range codes {
		assert.Equal(t, http.StatusOK, code, "payment %d", i)
	}

	ledger := app.store.ledger()
	require.Len(t, ledger, concurrency)
	ids := make(map[string]struct{}, len(ledger))
	for _, entry := range ledger {
		assert.Equal(t, "8.00", entry.Amount.StringFixed(2))
		ids[entry.ID.String()] = struct{}{}
	}
	assert.Len(t, ids, concurrency, "entry ids are unique")

	app.waitNotifications(t)
	assert.Len(t, app.mailer.messages(), concurrency)
}
