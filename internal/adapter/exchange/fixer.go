package exchange

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"affiliate-ledger/internal/core/domain"
)

// Fixer fetches rates from the apilayer Fixer API.
type Fixer struct {
	client   *http.Client
	endpoint string
	apiKey   string
}

type fixerResponse struct {
	Success *bool              `json:"success"`
	Base    string             `json:"base"`
	Rates   map[string]float64 `json:"rates"`
}

// NewFixer creates a Fixer source. endpoint is the API root, e.g.
// https://api.apilayer.com/fixer.
func NewFixer(client *http.Client, endpoint, apiKey string) *Fixer {
	return &Fixer{
		client:   client,
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
	}
}

func (f *Fixer) Name() string {
	return "fixer"
}

// Fetch requests GET {endpoint}/latest?base={BASE} with the apikey header.
func (f *Fixer) Fetch(ctx context.Context, base string) (domain.RateMap, error) {
	base = domain.NormalizeCurrency(base)
	u := f.endpoint + "/latest?" + url.Values{"base": {base}}.Encode()

	header := http.Header{}
	header.Set("apikey", f.apiKey)

	var body fixerResponse
	if err := getJSON(ctx, f.client, u, header, &body); err != nil {
		return nil, err
	}
	if body.Success != nil && !*body.Success {
		return nil, fetchFailed("fixer reported success=false")
	}
	if len(body.Rates) == 0 {
		return nil, fetchFailed("fixer returned no rates")
	}

	rates := make(domain.RateMap, len(body.Rates))
	for code, rate := range body.Rates {
		rates[domain.NormalizeCurrency(code)] = rate
	}
	return rates, nil
}
