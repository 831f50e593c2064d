package exchange

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"affiliate-ledger/internal/core/domain"
)

// CurrencyAPI fetches the static per-currency documents published by
// fawazahmed0/exchange-api.
type CurrencyAPI struct {
	client   *http.Client
	endpoint string
}

// NewCurrencyAPI creates a CurrencyAPI source. endpoint is the document root,
// e.g. https://latest.currency-api.pages.dev/v1/.
func NewCurrencyAPI(client *http.Client, endpoint string) *CurrencyAPI {
	return &CurrencyAPI{
		client:   client,
		endpoint: strings.TrimRight(endpoint, "/"),
	}
}

func (c *CurrencyAPI) Name() string {
	return "currencyapi"
}

// Fetch requests GET {endpoint}/currencies/{base}.min.json and reads the
// object keyed by the lower-cased base. Non-numeric leaves are skipped.
func (c *CurrencyAPI) Fetch(ctx context.Context, base string) (domain.RateMap, error) {
	key := strings.ToLower(domain.NormalizeCurrency(base))
	u := c.endpoint + "/currencies/" + key + ".min.json"

	var doc map[string]json.RawMessage
	if err := getJSON(ctx, c.client, u, nil, &doc); err != nil {
		return nil, err
	}

	raw, ok := doc[key]
	if !ok {
		return nil, fetchFailed("document has no %q object", key)
	}

	var leaves map[string]any
	if err := json.Unmarshal(raw, &leaves); err != nil {
		return nil, fetchFailed("decode %q object: %v", key, err)
	}

	rates := make(domain.RateMap, len(leaves))
	for code, v := range leaves {
		if rate, ok := v.(float64); ok {
			rates[domain.NormalizeCurrency(code)] = rate
		}
	}
	if len(rates) == 0 {
		return nil, fetchFailed("document has no numeric rates")
	}
	return rates, nil
}
