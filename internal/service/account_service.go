package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"affiliate-ledger/internal/core/domain"
	"affiliate-ledger/internal/core/ports"
	"affiliate-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AccountServiceImpl implements ports.AccountService.
type AccountServiceImpl struct {
	accountRepo ports.AccountRepository
	log         zerolog.Logger
	now         func() time.Time
}

// NewAccountService creates a new AccountServiceImpl.
func NewAccountService(accountRepo ports.AccountRepository, log zerolog.Logger) *AccountServiceImpl {
	return &AccountServiceImpl{
		accountRepo: accountRepo,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateAccount provisions an account. The email is stored lower-cased.
func (s *AccountServiceImpl) CreateAccount(ctx context.Context, req ports.NewAccount) (*domain.Account, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, apperror.Validation("email is required")
	}

	commission := domain.DefaultCommission
	if req.Commission != nil {
		commission = *req.Commission
	}
	if commission < 0 || commission > 1 {
		return nil, apperror.Validation("commission must be between 0 and 1")
	}

	notify := true
	if req.NotifyBalance != nil {
		notify = *req.NotifyBalance
	}

	now := s.now()
	account := &domain.Account{
		ID:            uuid.New(),
		Email:         email,
		Commission:    commission,
		NotifyBalance: notify,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.accountRepo.Create(ctx, account); err != nil {
		if errors.Is(err, ports.ErrAccountExists) {
			s.log.Warn().Str("email", email).Msg("account not created: email already registered")
			return nil, apperror.ErrAccountExists()
		}
		s.log.Error().Err(err).Str("email", email).Msg("account not created: storage failure")
		return nil, apperror.ErrStorage(err)
	}

	s.log.Info().
		Str("account_id", account.ID.String()).
		Float64("commission", commission).
		Msg("account provisioned")
	return account, nil
}
