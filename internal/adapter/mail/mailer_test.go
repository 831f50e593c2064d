package mail

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"affiliate-ledger/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "gopkg.in/mail.v2"
)

type fakeSender struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func testConfig() (config.EmailConfig, config.BrandingConfig) {
	return config.EmailConfig{
			Enabled:      true,
			From:         "affiliates@example.com",
			SMTPHost:     "smtp.example.com",
			SMTPPort:     587,
			SMTPUsername: "user",
			SMTPPassword: "pass",
			SMTPEncrypt:  true,
			Timeout:      5 * time.Second,
		}, config.BrandingConfig{
			PageTitle: "Acme Affiliates",
			PageURL:   "https://affiliates.acme.test/",
		}
}

func TestNewSMTPMailer_Dialer(t *testing.T) {
	cfg, branding := testConfig()

	m := NewSMTPMailer(cfg, branding)
	d, ok := m.dialer.(*gomail.Dialer)
	require.True(t, ok)
	assert.Equal(t, "smtp.example.com", d.Host)
	assert.Equal(t, 587, d.Port)
	assert.Equal(t, "user", d.Username)
	assert.Equal(t, 5*time.Second, d.Timeout)
	assert.Equal(t, gomail.StartTLSPolicy(gomail.MandatoryStartTLS), d.StartTLSPolicy)

	cfg.SMTPEncrypt = false
	d = NewSMTPMailer(cfg, branding).dialer.(*gomail.Dialer)
	assert.Equal(t, gomail.StartTLSPolicy(gomail.NoStartTLS), d.StartTLSPolicy)
}

func TestSMTPMailer_Send(t *testing.T) {
	cfg, branding := testConfig()
	m := NewSMTPMailer(cfg, branding)
	fake := &fakeSender{}
	m.dialer = fake

	err := m.Send(context.Background(), "owner@example.com", "You received commission money", "Hi,\n\nbody")
	require.NoError(t, err)
	require.Len(t, fake.sent, 1)

	msg := fake.sent[0]
	assert.Equal(t, []string{"owner@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"You received commission money"}, msg.GetHeader("Subject"))
	assert.Contains(t, msg.GetHeader("From")[0], "affiliates@example.com")
	assert.Contains(t, msg.GetHeader("From")[0], "Acme Affiliates")

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Content-Type: text/plain")
}

func TestSMTPMailer_Footer(t *testing.T) {
	cfg, branding := testConfig()
	m := NewSMTPMailer(cfg, branding)

	assert.Equal(t,
		"body\n\n--\n\nYou receive this email because an event occured on your Acme Affiliates account at: https://affiliates.acme.test/",
		m.withFooter("body"))
}

func TestSMTPMailer_SendFailure(t *testing.T) {
	cfg, branding := testConfig()
	m := NewSMTPMailer(cfg, branding)
	m.dialer = &fakeSender{err: errors.New("535 authentication failed")}

	err := m.Send(context.Background(), "owner@example.com", "s", "b")
	assert.ErrorContains(t, err, "535 authentication failed")
}

func TestSMTPMailer_CancelledContext(t *testing.T) {
	cfg, branding := testConfig()
	m := NewSMTPMailer(cfg, branding)
	fake := &fakeSender{}
	m.dialer = fake

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, m.Send(ctx, "owner@example.com", "s", "b"), context.Canceled)
	assert.Empty(t, fake.sent)
}
