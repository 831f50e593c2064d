package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// TrackURI binds the tracker id from the route.
type TrackURI struct {
	TrackingID string `uri:"tracking_id" binding:"required,max=64,safe_id"`
}

// TrackPaymentRequest is the request body for a tracked payment.
// Amount is a pointer so that an explicit zero passes binding.
type TrackPaymentRequest struct {
	Amount   *float64 `json:"amount" binding:"required"`
	Currency string   `json:"currency" binding:"required,currency_code"`
	Trace    *string  `json:"trace,omitempty" binding:"omitempty,max=255"`
}

// TrackPaymentResponse reports whether a ledger entry was written.
type TrackPaymentResponse struct {
	Credited bool             `json:"credited"`
	EntryID  string           `json:"entry_id,omitempty"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Currency string           `json:"currency,omitempty"`
}

// TrackSignupResponse carries the tracker's signup count after the increment.
type TrackSignupResponse struct {
	TrackingID string `json:"tracking_id"`
	Signups    int    `json:"signups"`
}

// RatesResponse describes the published rate snapshot.
type RatesResponse struct {
	Ready     bool               `json:"ready"`
	Base      string             `json:"base"`
	Provider  string             `json:"provider,omitempty"`
	FetchedAt *time.Time         `json:"fetched_at,omitempty"`
	Count     int                `json:"count"`
	Rates     map[string]float64 `json:"rates,omitempty"`
}

// CreateAccountRequest is the management body for provisioning an account.
type CreateAccountRequest struct {
	Email         string   `json:"email" binding:"required,email,max=320"`
	Commission    *float64 `json:"commission,omitempty" binding:"omitempty,gte=0,lte=1"`
	NotifyBalance *bool    `json:"notify_balance,omitempty"`
}

// AccountResponse describes a provisioned account.
type AccountResponse struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Commission    float64   `json:"commission"`
	NotifyBalance bool      `json:"notify_balance"`
	CreatedAt     time.Time `json:"created_at"`
}
