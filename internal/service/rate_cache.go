package service

import (
	"maps"
	"sync/atomic"

	"affiliate-ledger/internal/core/domain"
	"affiliate-ledger/pkg/apperror"
)

// RateCache holds the latest published rate snapshot. One writer replaces
// the whole snapshot, any number of readers see either the old or the new
// one in full.
type RateCache struct {
	payout string
	snap   atomic.Pointer[domain.RateSnapshot]
}

// NewRateCache creates an empty cache for the given payout currency.
func NewRateCache(payoutCurrency string) *RateCache {
	return &RateCache{payout: domain.NormalizeCurrency(payoutCurrency)}
}

// PayoutCurrency returns the currency all conversions target.
func (c *RateCache) PayoutCurrency() string {
	return c.payout
}

// Publish replaces the stored snapshot. The rates are copied so later
// changes by the caller are not observed by readers.
func (c *RateCache) Publish(s *domain.RateSnapshot) {
	if s == nil {
		return
	}
	stored := *s
	stored.Base = domain.NormalizeCurrency(s.Base)
	stored.Rates = maps.Clone(s.Rates)
	c.snap.Store(&stored)
}

// Snapshot returns a copy of the current snapshot, or nil before the first
// publish.
func (c *RateCache) Snapshot() *domain.RateSnapshot {
	s := c.snap.Load()
	if s == nil {
		return nil
	}
	out := *s
	out.Rates = maps.Clone(s.Rates)
	return &out
}

// Convert expresses amount, given in currency, in the payout currency.
// The payout currency passes through without a lookup. A missing rate, a
// non-positive rate or a snapshot fetched for another base is a BadCurrency.
func (c *RateCache) Convert(amount float64, currency string) (float64, error) {
	currency = domain.NormalizeCurrency(currency)
	if currency == c.payout {
		return amount, nil
	}

	s := c.snap.Load()
	if s == nil || s.Base != c.payout {
		return 0, apperror.ErrBadCurrency(currency)
	}

	rate, ok := s.Rate(currency)
	if !ok || !(rate > 0) {
		return 0, apperror.ErrBadCurrency(currency)
	}

	return amount * (1 / rate), nil
}
