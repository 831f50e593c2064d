package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"affiliate-ledger/internal/core/domain"
	"affiliate-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// TrackerRepo implements ports.TrackerRepository.
type TrackerRepo struct {
	pool Pool
}

// NewTrackerRepo creates a new TrackerRepo.
func NewTrackerRepo(pool Pool) *TrackerRepo {
	return &TrackerRepo{pool: pool}
}

// FindWithAccount fetches a tracker joined with its owning account.
// The rows are share-locked so neither can be deleted before the caller's
// transaction ends. This MUST be called within a transaction.
func (r *TrackerRepo) FindWithAccount(ctx context.Context, tx pgx.Tx, id string) (*domain.Tracker, *domain.Account, error) {
	query := `SELECT t.id, t.label, t.statistics_signups, t.account_id, t.created_at, t.updated_at,
		a.id, a.email, a.commission, a.notify_balance, a.created_at, a.updated_at
		FROM trackers t
		JOIN accounts a ON a.id = t.account_id
		WHERE t.id = $1
		FOR SHARE`

	t := &domain.Tracker{}
	a := &domain.Account{}
	err := tx.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.Label, &t.StatisticsSignups, &t.AccountID, &t.CreatedAt, &t.UpdatedAt,
		&a.ID, &a.Email, &a.Commission, &a.NotifyBalance, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("find tracker with account: %w", err)
	}
	return t, a, nil
}

// IncrementSignups bumps the signup counter in place and returns the new value.
func (r *TrackerRepo) IncrementSignups(ctx context.Context, id string, now time.Time) (int, error) {
	query := `UPDATE trackers
		SET statistics_signups = statistics_signups + 1, updated_at = $2
		WHERE id = $1
		RETURNING statistics_signups`

	var count int
	err := r.pool.QueryRow(ctx, query, id, now).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ports.ErrTrackerNotFound
		}
		return 0, fmt.Errorf("increment signups: %w", err)
	}
	return count, nil
}
