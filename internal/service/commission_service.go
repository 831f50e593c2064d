package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"affiliate-ledger/internal/adapter/metrics"
	"affiliate-ledger/internal/core/domain"
	"affiliate-ledger/internal/core/ports"
	"affiliate-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Rejection reasons recorded on affiliate_track_rejected_total.
const (
	RejectBadCurrency   = "bad_currency"
	RejectInvalidAmount = "invalid_amount"
	RejectNotFound      = "not_found"
	RejectStorage       = "storage"
)

// CommissionServiceImpl implements ports.CommissionService.
type CommissionServiceImpl struct {
	trackerRepo ports.TrackerRepository
	balanceRepo ports.BalanceRepository
	transactor  ports.DBTransactor
	rates       ports.RateConverter
	payout      string
	metrics     *metrics.Metrics
	log         zerolog.Logger
	now         func() time.Time
}

// NewCommissionService creates a new CommissionServiceImpl crediting in
// payoutCurrency.
func NewCommissionService(
	trackerRepo ports.TrackerRepository,
	balanceRepo ports.BalanceRepository,
	transactor ports.DBTransactor,
	rates ports.RateConverter,
	payoutCurrency string,
	m *metrics.Metrics,
	log zerolog.Logger,
) *CommissionServiceImpl {
	return &CommissionServiceImpl{
		trackerRepo: trackerRepo,
		balanceRepo: balanceRepo,
		transactor:  transactor,
		rates:       rates,
		payout:      domain.NormalizeCurrency(payoutCurrency),
		metrics:     m,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// HandlePayment converts the reported amount, resolves the tracker and its
// account, and writes one ledger entry for the account's commission.
func (s *CommissionServiceImpl) HandlePayment(ctx context.Context, req ports.PaymentEvent) (*domain.CommissionCredit, error) {
	amount, err := s.rates.Convert(req.Amount, req.Currency)
	if err != nil {
		s.metrics.RecordRejected(RejectBadCurrency)
		s.log.Warn().Err(err).
			Str("tracking_id", req.TrackingID).
			Str("currency", req.Currency).
			Msg("payment rejected: cannot convert currency")

		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperror.ErrBadCurrency(req.Currency)
	}

	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		s.metrics.RecordRejected(RejectInvalidAmount)
		s.log.Warn().
			Str("tracking_id", req.TrackingID).
			Float64("amount", req.Amount).
			Msg("payment rejected: invalid amount")
		return nil, apperror.ErrInvalidAmount()
	}

	if amount == 0 {
		s.log.Debug().Str("tracking_id", req.TrackingID).Msg("zero amount payment, nothing to credit")
		return nil, nil
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, s.storageError(req.TrackingID, fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	tracker, account, err := s.trackerRepo.FindWithAccount(ctx, dbTx, req.TrackingID)
	if err != nil {
		return nil, s.storageError(req.TrackingID, fmt.Errorf("find tracker: %w", err))
	}
	if tracker == nil || account == nil {
		s.metrics.RecordRejected(RejectNotFound)
		s.log.Warn().Str("tracking_id", req.TrackingID).Msg("payment rejected: tracker not found")
		return nil, apperror.ErrNotFound()
	}

	commission := account.CommissionFor(decimal.NewFromFloat(amount))
	if !commission.IsPositive() {
		s.log.Debug().
			Str("tracking_id", tracker.ID).
			Float64("commission_rate", account.Commission).
			Msg("zero commission, no entry created")
		return nil, nil
	}

	now := s.now()
	trackerID := tracker.ID
	entry := &domain.Balance{
		ID:        uuid.New(),
		Amount:    commission,
		Currency:  s.payout,
		Released:  false,
		Trace:     req.Trace,
		AccountID: account.ID,
		TrackerID: &trackerID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.balanceRepo.Create(ctx, dbTx, entry); err != nil {
		return nil, s.storageError(req.TrackingID, fmt.Errorf("create balance: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, s.storageError(req.TrackingID, fmt.Errorf("commit tx: %w", err))
	}

	s.metrics.RecordCommission(commission.InexactFloat64())
	s.log.Info().
		Str("tracking_id", tracker.ID).
		Str("account_id", account.ID.String()).
		Str("entry_id", entry.ID.String()).
		Str("amount", commission.String()).
		Str("currency", s.payout).
		Msg("commission credited")

	return &domain.CommissionCredit{
		EntryID:     entry.ID,
		AccountID:   account.ID,
		NotifyOwner: account.NotifyBalance,
		Email:       account.Email,
		TrackerID:   tracker.ID,
		Amount:      commission,
		Currency:    s.payout,
	}, nil
}

func (s *CommissionServiceImpl) storageError(trackingID string, err error) error {
	s.metrics.RecordRejected(RejectStorage)
	s.log.Error().Err(err).Str("tracking_id", trackingID).Msg("payment not processed: storage failure")
	return apperror.ErrStorage(err)
}
