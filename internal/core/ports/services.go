package ports

import (
	"context"
	"errors"

	"affiliate-ledger/internal/core/domain"
)

// ErrTrackerNotFound is returned by storage adapters when no tracker matched.
var ErrTrackerNotFound = errors.New("tracker not found")

// ErrAccountExists is returned by storage adapters on a duplicate account email.
var ErrAccountExists = errors.New("account already exists")

// --- Driven ports (outbound) ---

// RateSource fetches a complete rate table relative to base.
type RateSource interface {
	Name() string
	Fetch(ctx context.Context, base string) (domain.RateMap, error)
}

// RateConverter converts an amount into the payout currency.
type RateConverter interface {
	Convert(amount float64, currency string) (float64, error)
}

// Mailer delivers a plain-text message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// EventPublisher publishes accrual events to the event stream.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.AccrualEvent) error
	Close() error
}

// --- Service Ports (Business Logic) ---

// CommissionService handles incoming payment events.
type CommissionService interface {
	// HandlePayment returns (nil, nil) when the event is a deliberate no-op:
	// a zero converted amount or a zero commission rate.
	HandlePayment(ctx context.Context, req PaymentEvent) (*domain.CommissionCredit, error)
}

// PaymentEvent holds validated input for a tracked payment.
type PaymentEvent struct {
	TrackingID string
	Amount     float64
	Currency   string
	Trace      *string
}

// SignupService handles incoming signup events.
type SignupService interface {
	HandleSignup(ctx context.Context, trackingID string) (int, error)
}

// AccountService provisions affiliate accounts on behalf of an operator.
type AccountService interface {
	CreateAccount(ctx context.Context, req NewAccount) (*domain.Account, error)
}

// NewAccount holds validated input for account provisioning. Nil fields take
// their defaults.
type NewAccount struct {
	Email         string
	Commission    *float64
	NotifyBalance *bool
}

// Notifier dispatches best-effort side effects off the request path.
type Notifier interface {
	NotifyCommission(credit *domain.CommissionCredit)
	NotifySignup(trackerID string, signups int)
}

// RateStatus exposes the currently cached rates.
type RateStatus interface {
	Snapshot() *domain.RateSnapshot
}
