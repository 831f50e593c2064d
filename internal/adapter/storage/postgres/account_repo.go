package postgres

import (
	"context"
	"errors"
	"fmt"

	"affiliate-ledger/internal/core/domain"
	"affiliate-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// Create inserts the account unless the email is taken.
func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	query := `INSERT INTO accounts (id, email, commission, notify_balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (email) DO NOTHING
		RETURNING id`

	var id uuid.UUID
	err := r.pool.QueryRow(ctx, query,
		a.ID, a.Email, a.Commission, a.NotifyBalance, a.CreatedAt, a.UpdatedAt,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ports.ErrAccountExists
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}
