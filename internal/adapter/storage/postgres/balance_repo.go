package postgres

import (
	"context"
	"fmt"

	"affiliate-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// BalanceRepo implements ports.BalanceRepository.
type BalanceRepo struct {
	pool Pool
}

// NewBalanceRepo creates a new BalanceRepo.
func NewBalanceRepo(pool Pool) *BalanceRepo {
	return &BalanceRepo{pool: pool}
}

// Create inserts a ledger entry within a transaction.
func (r *BalanceRepo) Create(ctx context.Context, tx pgx.Tx, b *domain.Balance) error {
	query := `INSERT INTO balances (id, amount, currency, released, trace, account_id, tracker_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		b.ID, b.Amount.InexactFloat64(), b.Currency, b.Released, b.Trace,
		b.AccountID, b.TrackerID, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert balance: %w", err)
	}
	return nil
}
