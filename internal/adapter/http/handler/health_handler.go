package handler

import (
	"net/http"
	"sync"
	"time"

	"affiliate-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
)

type dependencyStatus struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency"`
}

type ratesStatus struct {
	Ready     bool       `json:"ready"`
	Base      string     `json:"base,omitempty"`
	FetchedAt *time.Time `json:"fetched_at,omitempty"`
}

// HealthCheck pings all dependencies in parallel. Any failed dependency
// answers 503 "unhealthy". Healthy dependencies without published rates
// answer 200 "degraded": signups still work, payments in foreign
// currencies are refused until the first refresh.
func HealthCheck(rates ports.RateStatus, checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		deps := make(map[string]dependencyStatus, len(checkers))
		var (
			mu sync.Mutex
			wg sync.WaitGroup
		)
		for _, checker := range checkers {
			wg.Add(1)
			go func(hc ports.HealthChecker) {
				defer wg.Done()
				start := time.Now()
				err := hc.Ping(c.Request.Context())
				st := dependencyStatus{Status: "healthy", Latency: time.Since(start).Round(time.Microsecond).String()}
				if err != nil {
					st.Status = "unhealthy"
					st.Error = err.Error()
				}
				mu.Lock()
				deps[hc.Name()] = st
				mu.Unlock()
			}(checker)
		}
		wg.Wait()

		status, httpCode := "healthy", http.StatusOK
		for _, st := range deps {
			if st.Status != "healthy" {
				status, httpCode = "unhealthy", http.StatusServiceUnavailable
				break
			}
		}

		var rs ratesStatus
		if rates != nil {
			if snap := rates.Snapshot(); snap != nil {
				fetchedAt := snap.FetchedAt
				rs = ratesStatus{Ready: true, Base: snap.Base, FetchedAt: &fetchedAt}
			}
		}
		if !rs.Ready && httpCode == http.StatusOK {
			status = "degraded"
		}

		c.JSON(httpCode, gin.H{
			"status":       status,
			"dependencies": deps,
			"rates":        rs,
		})
	}
}
