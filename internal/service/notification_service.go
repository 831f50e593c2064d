package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"affiliate-ledger/internal/adapter/metrics"
	"affiliate-ledger/internal/core/domain"
	"affiliate-ledger/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const commissionSubject = "You received commission money"

// NotificationService implements ports.Notifier. Every dispatch runs on its
// own goroutine; failures are logged and never reach the caller.
type NotificationService struct {
	mailer    ports.Mailer         // nil disables email
	publisher ports.EventPublisher // nil disables events
	timeout   time.Duration
	metrics   *metrics.Metrics
	log       zerolog.Logger
	now       func() time.Time

	wg sync.WaitGroup
}

// NewNotificationService creates a dispatcher. mailer and publisher may be nil.
func NewNotificationService(
	mailer ports.Mailer,
	publisher ports.EventPublisher,
	timeout time.Duration,
	m *metrics.Metrics,
	log zerolog.Logger,
) *NotificationService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NotificationService{
		mailer:    mailer,
		publisher: publisher,
		timeout:   timeout,
		metrics:   m,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// NotifyCommission publishes the credit event and, when the owner opted in,
// emails them. It returns immediately.
func (s *NotificationService) NotifyCommission(credit *domain.CommissionCredit) {
	if credit == nil {
		return
	}
	s.dispatch(func(ctx context.Context) {
		s.publish(ctx, domain.NewCommissionEvent(credit, s.now()))
		s.mailCommission(ctx, credit)
	})
}

// NotifySignup publishes the signup event. It returns immediately.
func (s *NotificationService) NotifySignup(trackerID string, signups int) {
	if s.publisher == nil {
		return
	}
	s.dispatch(func(ctx context.Context) {
		s.publish(ctx, domain.NewSignupEvent(trackerID, signups, s.now()))
	})
}

// Close waits for in-flight dispatches or until ctx is done.
func (s *NotificationService) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for notifications: %w", ctx.Err())
	}
}

func (s *NotificationService) dispatch(fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error().Interface("panic", r).Msg("notification dispatch panicked")
			}
		}()

		// Delivery must outlive the originating request.
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		fn(ctx)
	}()
}

func (s *NotificationService) publish(ctx context.Context, ev domain.AccrualEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.Warn().Err(err).
			Str("event", string(ev.Type)).
			Str("tracking_id", ev.TrackerID).
			Msg("failed to publish accrual event")
	}
}

func (s *NotificationService) mailCommission(ctx context.Context, credit *domain.CommissionCredit) {
	if s.mailer == nil || !credit.NotifyOwner || credit.Email == "" {
		s.metrics.RecordNotification(metrics.NotifySkipped)
		return
	}

	body := commissionMessage(credit.TrackerID, credit.Amount, credit.Currency)
	if err := s.mailer.Send(ctx, credit.Email, commissionSubject, body); err != nil {
		s.metrics.RecordNotification(metrics.NotifyFailed)
		s.log.Error().Err(err).
			Str("email", credit.Email).
			Str("tracking_id", credit.TrackerID).
			Msg("could not send commission notification")
		return
	}

	s.metrics.RecordNotification(metrics.NotifySent)
	s.log.Debug().Str("email", credit.Email).Msg("sent commission notification")
}

func commissionMessage(trackerID string, amount decimal.Decimal, currency string) string {
	var b strings.Builder
	b.WriteString("Hi,\n\n")
	fmt.Fprintf(&b, "You just received commission money of %s %s on your affiliates account balance.\n",
		currency, formatAmount(amount))
	fmt.Fprintf(&b, "This commission was generated by your tracker with ID: %s\n\n", trackerID)
	b.WriteString("You can request for a payout anytime on your dashboard (payouts are not automatic).")
	return b.String()
}

// formatAmount renders amount with two decimals and comma thousands
// separators, e.g. 1234567.5 -> 1,234,567.50.
func formatAmount(amount decimal.Decimal) string {
	s := amount.StringFixed(2)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + "." + frac
}
