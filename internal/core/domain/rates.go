package domain

import (
	"strings"
	"time"
)

// RateMap maps an upper-case currency code to the number of units of that
// currency equal to one unit of the base currency.
type RateMap map[string]float64

// RateSnapshot is an immutable, fully fetched RateMap plus its provenance.
type RateSnapshot struct {
	Base      string    `json:"base"`
	Rates     RateMap   `json:"rates"`
	Provider  string    `json:"provider"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Rate returns the rate stored for code.
func (s *RateSnapshot) Rate(code string) (float64, bool) {
	r, ok := s.Rates[code]
	return r, ok
}

// NormalizeCurrency trims and upper-cases a currency code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
