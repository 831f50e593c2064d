package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Refresh outcomes recorded by the rate scheduler.
const (
	RefreshPublished = "published"
	RefreshFailed    = "failed"
	RefreshExhausted = "exhausted"
)

// Notification outcomes.
const (
	NotifySent    = "sent"
	NotifyFailed  = "failed"
	NotifySkipped = "skipped"
)

// Metrics holds the affiliate engine collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	RateRefreshTotal        *prometheus.CounterVec
	RatesCached             prometheus.Gauge
	CommissionCreditedTotal prometheus.Counter
	CommissionAmountTotal   prometheus.Counter
	SignupsTotal            prometheus.Counter
	TrackRejectedTotal      *prometheus.CounterVec
	NotificationsTotal      *prometheus.CounterVec
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RateRefreshTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "affiliate_rate_refresh_total",
			Help: "Exchange rate refresh attempts by result",
		}, []string{"result"}),
		RatesCached: f.NewGauge(prometheus.GaugeOpts{
			Name: "affiliate_rates_cached",
			Help: "Number of currencies in the published rate snapshot",
		}),
		CommissionCreditedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "affiliate_commission_credited_total",
			Help: "Ledger entries created for tracked payments",
		}),
		CommissionAmountTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "affiliate_commission_amount_total",
			Help: "Sum of credited commission in the payout currency",
		}),
		SignupsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "affiliate_signups_total",
			Help: "Tracked signups recorded",
		}),
		TrackRejectedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "affiliate_track_rejected_total",
			Help: "Tracked events rejected by reason",
		}, []string{"reason"}),
		NotificationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "affiliate_notifications_total",
			Help: "Commission notifications by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) RecordRefresh(result string) {
	if m == nil {
		return
	}
	m.RateRefreshTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) SetRatesCached(n int) {
	if m == nil {
		return
	}
	m.RatesCached.Set(float64(n))
}

func (m *Metrics) RecordCommission(amount float64) {
	if m == nil {
		return
	}
	m.CommissionCreditedTotal.Inc()
	m.CommissionAmountTotal.Add(amount)
}

func (m *Metrics) RecordSignup() {
	if m == nil {
		return
	}
	m.SignupsTotal.Inc()
}

func (m *Metrics) RecordRejected(reason string) {
	if m == nil {
		return
	}
	m.TrackRejectedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordNotification(result string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(result).Inc()
}
