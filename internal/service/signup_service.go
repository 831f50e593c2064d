package service

import (
	"context"
	"errors"
	"time"

	"affiliate-ledger/internal/adapter/metrics"
	"affiliate-ledger/internal/core/ports"
	"affiliate-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// SignupServiceImpl implements ports.SignupService.
type SignupServiceImpl struct {
	trackerRepo ports.TrackerRepository
	metrics     *metrics.Metrics
	log         zerolog.Logger
	now         func() time.Time
}

// NewSignupService creates a new SignupServiceImpl.
func NewSignupService(trackerRepo ports.TrackerRepository, m *metrics.Metrics, log zerolog.Logger) *SignupServiceImpl {
	return &SignupServiceImpl{
		trackerRepo: trackerRepo,
		metrics:     m,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// HandleSignup adds one signup to the tracker and returns the new count.
// The increment happens in a single storage statement so concurrent signups
// on the same tracker are all counted.
func (s *SignupServiceImpl) HandleSignup(ctx context.Context, trackingID string) (int, error) {
	count, err := s.trackerRepo.IncrementSignups(ctx, trackingID, s.now())
	if errors.Is(err, ports.ErrTrackerNotFound) {
		s.metrics.RecordRejected(RejectNotFound)
		s.log.Warn().Str("tracking_id", trackingID).Msg("signup rejected: tracker not found")
		return 0, apperror.ErrNotFound()
	}
	if err != nil {
		s.metrics.RecordRejected(RejectStorage)
		s.log.Error().Err(err).Str("tracking_id", trackingID).Msg("signup not recorded: storage failure")
		return 0, apperror.ErrStorage(err)
	}

	s.metrics.RecordSignup()
	s.log.Debug().Str("tracking_id", trackingID).Int("signups", count).Msg("signup recorded")
	return count, nil
}
