package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"affiliate-ledger/internal/core/domain"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestNewPublisher_Writer(t *testing.T) {
	p := NewPublisher([]string{"k1:9092", "k2:9092"}, "affiliate.events")

	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "affiliate.events", w.Topic)
	assert.IsType(t, &kafka.LeastBytes{}, w.Balancer)
}

func TestPublisher_Publish(t *testing.T) {
	fw := &fakeWriter{}
	p := &Publisher{writer: fw}
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	credit := &domain.CommissionCredit{TrackerID: "trk-1", Amount: decimal.NewFromInt(20), Currency: "EUR"}
	require.NoError(t, p.Publish(context.Background(), domain.NewCommissionEvent(credit, at)))

	require.Len(t, fw.msgs, 1)
	msg := fw.msgs[0]
	assert.Equal(t, "trk-1", string(msg.Key))
	assert.Equal(t, at, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "commission.credited", string(msg.Headers[0].Value))

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "commission.credited", body["type"])
	assert.Equal(t, "20", body["amount"])
	assert.Equal(t, "EUR", body["currency"])
}

func TestPublisher_PublishError(t *testing.T) {
	p := &Publisher{writer: &fakeWriter{err: errors.New("leader not available")}}

	err := p.Publish(context.Background(), domain.NewSignupEvent("trk-1", 1, time.Now()))
	assert.ErrorContains(t, err, "write signup.recorded event")
}

func TestPublisher_Close(t *testing.T) {
	fw := &fakeWriter{}
	p := &Publisher{writer: fw}

	require.NoError(t, p.Close())
	assert.True(t, fw.closed)
}
