package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"affiliate-ledger/config"
	"affiliate-ledger/internal/core/ports"
)

// ErrFetchFailed wraps every provider failure: transport errors, non-2xx
// statuses and undecodable or empty bodies.
var ErrFetchFailed = errors.New("exchange: fetch failed")

// maxBodySize caps how much of a provider response is read.
const maxBodySize = 4 << 20

// New returns the rate source selected by cfg.Provider.
func New(cfg config.ExchangeConfig) (ports.RateSource, error) {
	client := newHTTPClient(cfg.Timeout)

	switch cfg.Provider {
	case config.ProviderFixer:
		return NewFixer(client, cfg.Fixer.Endpoint, cfg.Fixer.APIKey), nil
	case config.ProviderCurrencyAPI:
		return NewCurrencyAPI(client, cfg.CurrencyAPI.Endpoint), nil
	default:
		return nil, fmt.Errorf("exchange: unknown provider %q", cfg.Provider)
	}
}

// newHTTPClient returns a client with a bounded timeout. The default
// transport negotiates gzip and decodes it transparently.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func fetchFailed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFetchFailed, fmt.Sprintf(format, args...))
}

// getJSON performs a GET and decodes a 2xx JSON body into out.
func getJSON(ctx context.Context, client *http.Client, url string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fetchFailed("build request: %v", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fetchFailed("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fetchFailed("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fetchFailed("read body: %v", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fetchFailed("decode body: %v", err)
	}
	return nil
}
