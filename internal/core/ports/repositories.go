package ports

import (
	"context"
	"time"

	"affiliate-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// AccountRepository defines persistence operations for affiliate accounts.
type AccountRepository interface {
	// Create inserts a new account. Returns ErrAccountExists when the email
	// is already registered.
	Create(ctx context.Context, account *domain.Account) error
}

// TrackerRepository defines persistence operations for trackers.
type TrackerRepository interface {
	// FindWithAccount resolves a tracker and its owning account in one read
	// inside tx. Returns (nil, nil, nil) when the tracker does not exist.
	FindWithAccount(ctx context.Context, tx pgx.Tx, id string) (*domain.Tracker, *domain.Account, error)
	// IncrementSignups atomically adds one to the signup counter and returns
	// the new value. Returns ErrTrackerNotFound when no row matched.
	IncrementSignups(ctx context.Context, id string, now time.Time) (int, error)
}

// BalanceRepository defines persistence operations for ledger entries.
type BalanceRepository interface {
	Create(ctx context.Context, tx pgx.Tx, balance *domain.Balance) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// RateSnapshotStore keeps the last known-good rates across restarts.
type RateSnapshotStore interface {
	Save(ctx context.Context, snapshot *domain.RateSnapshot) error
	// Load returns (nil, nil) when nothing is stored for base.
	Load(ctx context.Context, base string) (*domain.RateSnapshot, error)
}
