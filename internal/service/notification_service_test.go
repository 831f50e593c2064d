package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"affiliate-ledger/internal/adapter/metrics"
	"affiliate-ledger/internal/core/domain"
	"affiliate-ledger/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type notifyTestDeps struct {
	svc       *NotificationService
	mailer    *mocks.MockMailer
	publisher *mocks.MockEventPublisher
	metrics   *metrics.Metrics
}

func setupNotificationService(t *testing.T) *notifyTestDeps {
	ctrl := gomock.NewController(t)
	d := &notifyTestDeps{
		mailer:    mocks.NewMockMailer(ctrl),
		publisher: mocks.NewMockEventPublisher(ctrl),
		metrics:   metrics.New(prometheus.NewRegistry()),
	}
	d.svc = NewNotificationService(d.mailer, d.publisher, time.Second, d.metrics, newTestLogger())
	d.svc.now = func() time.Time { return fixedNow }
	return d
}

func waitClosed(t *testing.T, svc *NotificationService) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, svc.Close(ctx))
}

func testCredit(notify bool) *domain.CommissionCredit {
	return &domain.CommissionCredit{
		EntryID:     uuid.New(),
		AccountID:   uuid.New(),
		NotifyOwner: notify,
		Email:       "owner@example.com",
		TrackerID:   "trk-1",
		Amount:      decimal.RequireFromString("1234.5"),
		Currency:    "EUR",
	}
}

func TestNotificationService_NotifyCommission_SendsMailAndEvent(t *testing.T) {
	d := setupNotificationService(t)
	credit := testCredit(true)

	d.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, ev domain.AccrualEvent) error {
			assert.Equal(t, domain.EventCommissionCredited, ev.Type)
			assert.Equal(t, "trk-1", ev.TrackerID)
			assert.Equal(t, fixedNow, ev.OccurredAt)
			return nil
		},
	)
	d.mailer.EXPECT().Send(gomock.Any(), "owner@example.com", "You received commission money", gomock.Any()).DoAndReturn(
		func(ctx context.Context, _, _, body string) error {
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			assert.Contains(t, body, "You just received commission money of EUR 1,234.50 on your affiliates account balance.")
			assert.Contains(t, body, "This commission was generated by your tracker with ID: trk-1")
			return nil
		},
	)

	d.svc.NotifyCommission(credit)
	waitClosed(t, d.svc)

	assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.NotificationsTotal.WithLabelValues(metrics.NotifySent)))
}

func TestNotificationService_NotifyCommission_OptedOut(t *testing.T) {
	d := setupNotificationService(t)

	d.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	d.svc.NotifyCommission(testCredit(false))
	waitClosed(t, d.svc)

	assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.NotificationsTotal.WithLabelValues(metrics.NotifySkipped)))
}

func TestNotificationService_NotifyCommission_FailuresAreAbsorbed(t *testing.T) {
	d := setupNotificationService(t)

	d.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker unavailable"))
	d.mailer.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("smtp timeout"))

	assert.NotPanics(t, func() { d.svc.NotifyCommission(testCredit(true)) })
	waitClosed(t, d.svc)

	assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.NotificationsTotal.WithLabelValues(metrics.NotifyFailed)))
}

func TestNotificationService_NotifyCommission_DoesNotBlockCaller(t *testing.T) {
	d := setupNotificationService(t)
	release := make(chan struct{})

	d.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)
	d.mailer.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, string, string, string) error {
			<-release
			return nil
		},
	)

	returned := make(chan struct{})
	go func() {
		d.svc.NotifyCommission(testCredit(true))
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("NotifyCommission blocked on delivery")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.svc.Close(ctx), context.DeadlineExceeded, "close waits for in-flight sends")

	close(release)
	waitClosed(t, d.svc)
}

func TestNotificationService_NilCollaborators(t *testing.T) {
	svc := NewNotificationService(nil, nil, 0, nil, newTestLogger())

	svc.NotifyCommission(testCredit(true))
	svc.NotifyCommission(nil)
	svc.NotifySignup("trk-1", 3)
	waitClosed(t, svc)
}

func TestNotificationService_NotifySignup_PublishesEvent(t *testing.T) {
	d := setupNotificationService(t)

	d.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, ev domain.AccrualEvent) error {
			assert.Equal(t, domain.EventSignupRecorded, ev.Type)
			if assert.NotNil(t, ev.Signups) {
				assert.Equal(t, 7, *ev.Signups)
			}
			return nil
		},
	)

	d.svc.NotifySignup("trk-1", 7)
	waitClosed(t, d.svc)
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0.00"},
		{"5", "5.00"},
		{"20.1", "20.10"},
		{"999.999", "1,000.00"},
		{"1234.5", "1,234.50"},
		{"1234567.891", "1,234,567.89"},
		{"-1234", "-1,234.00"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, formatAmount(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestCommissionMessage(t *testing.T) {
	msg := commissionMessage("trk-9", decimal.NewFromInt(20), "USD")

	assert.Equal(t,
		"Hi,\n\n"+
			"You just received commission money of USD 20.00 on your affiliates account balance.\n"+
			"This commission was generated by your tracker with ID: trk-9\n\n"+
			"You can request for a payout anytime on your dashboard (payouts are not automatic).",
		msg)
}
