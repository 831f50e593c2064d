package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCommission is applied to accounts provisioned without an explicit rate.
const DefaultCommission = 0.20

// Account is an affiliate account that owns trackers and earns commission.
type Account struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	Commission    float64   `json:"commission"` // fraction in [0,1]
	NotifyBalance bool      `json:"notify_balance"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CommissionFor applies the account's commission rate to an amount already
// expressed in the payout currency. The product is returned unrounded.
func (a *Account) CommissionFor(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(decimal.NewFromFloat(a.Commission))
}

// Tracker is an affiliate link referenced by every incoming event.
type Tracker struct {
	ID                string    `json:"id"`
	Label             string    `json:"label"`
	StatisticsSignups int       `json:"statistics_signups"`
	AccountID         uuid.UUID `json:"account_id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
