package service

import (
	"context"
	"io"
	"testing"

	"affiliate-ledger/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockTx implements pgx.Tx for testing
type mockTx struct {
	pgx.Tx
	committed  bool
	commitErr  error
	rolledBack bool
}

func (m *mockTx) Rollback(_ context.Context) error {
	m.rolledBack = true
	return nil
}

func (m *mockTx) Commit(_ context.Context) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.committed = true
	return nil
}

func newTestLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func assertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, expectedCode, appErr.Code)
}
