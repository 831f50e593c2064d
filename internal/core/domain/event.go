package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType names an accrual event published on the event stream.
type EventType string

const (
	EventCommissionCredited EventType = "commission.credited"
	EventSignupRecorded     EventType = "signup.recorded"
)

// AccrualEvent is the message published after a payment or signup is recorded.
type AccrualEvent struct {
	Type       EventType        `json:"type"`
	TrackerID  string           `json:"tracker_id"`
	AccountID  *uuid.UUID       `json:"account_id,omitempty"`
	EntryID    *uuid.UUID       `json:"entry_id,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	Currency   string           `json:"currency,omitempty"`
	Signups    *int             `json:"signups,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// Key returns the partition key used for the event.
func (e AccrualEvent) Key() string {
	return e.TrackerID
}

// NewCommissionEvent builds the event for a credited commission.
func NewCommissionEvent(c *CommissionCredit, at time.Time) AccrualEvent {
	amount := c.Amount
	accountID := c.AccountID
	entryID := c.EntryID
	return AccrualEvent{
		Type:       EventCommissionCredited,
		TrackerID:  c.TrackerID,
		AccountID:  &accountID,
		EntryID:    &entryID,
		Amount:     &amount,
		Currency:   c.Currency,
		OccurredAt: at,
	}
}

// NewSignupEvent builds the event for a recorded signup.
func NewSignupEvent(trackerID string, signups int, at time.Time) AccrualEvent {
	return AccrualEvent{
		Type:       EventSignupRecorded,
		TrackerID:  trackerID,
		Signups:    &signups,
		OccurredAt: at,
	}
}
