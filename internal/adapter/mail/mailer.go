package mail

import (
	"context"
	"fmt"
	"strings"

	"affiliate-ledger/config"

	gomail "gopkg.in/mail.v2"
)

// sender is satisfied by *gomail.Dialer.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer implements ports.Mailer over SMTP. Every message gets the
// branding footer appended to its body.
type SMTPMailer struct {
	dialer    sender
	from      string
	fromName  string
	pageTitle string
	pageURL   string
}

// NewSMTPMailer builds a mailer from the email and branding settings.
// With SMTPEncrypt set, STARTTLS is mandatory and delivery fails rather
// than falling back to plain text.
func NewSMTPMailer(cfg config.EmailConfig, branding config.BrandingConfig) *SMTPMailer {
	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	d.Timeout = cfg.Timeout
	if cfg.SMTPEncrypt {
		d.StartTLSPolicy = gomail.MandatoryStartTLS
	} else {
		d.StartTLSPolicy = gomail.NoStartTLS
	}

	return &SMTPMailer{
		dialer:    d,
		from:      cfg.From,
		fromName:  branding.PageTitle,
		pageTitle: branding.PageTitle,
		pageURL:   branding.PageURL,
	}
}

// Send delivers a plain-text message to a single recipient.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	if err := m.dialer.DialAndSend(m.buildMessage(to, subject, body)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

func (m *SMTPMailer) buildMessage(to, subject, body string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from, m.fromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", m.withFooter(body))
	return msg
}

func (m *SMTPMailer) withFooter(body string) string {
	var b strings.Builder
	b.WriteString(body)
	b.WriteString("\n\n--\n\n")
	fmt.Fprintf(&b, "You receive this email because an event occured on your %s account at: %s",
		m.pageTitle, m.pageURL)
	return b.String()
}
