package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Balance is a single ledger entry crediting commission to an account.
// Entries are written once and never mutated by the accrual path.
type Balance struct {
	ID        uuid.UUID       `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Released  bool            `json:"released"`
	Trace     *string         `json:"trace,omitempty"`
	AccountID uuid.UUID       `json:"account_id"`
	TrackerID *string         `json:"tracker_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CommissionCredit is the result of a successfully credited payment event.
// It carries what the notification path needs, nothing more.
type CommissionCredit struct {
	EntryID     uuid.UUID       `json:"entry_id"`
	AccountID   uuid.UUID       `json:"account_id"`
	NotifyOwner bool            `json:"-"`
	Email       string          `json:"-"`
	TrackerID   string          `json:"tracker_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
}
