package auth

import (
	"fmt"

	"github.com/pkg/errors"
	"gopkg.in/gomail.v2"

	"github.com/openshelf/prodsync/config"
)

// Mailer delivers account verification messages.
type Mailer interface {
	SendVerification(email, token string) error
}

// SmtpMailer sends verification mail through a plain SMTP relay.
type SmtpMailer struct {
	cfg config.SmtpConfig
}

func NewSmtpMailer(cfg config.SmtpConfig) *SmtpMailer {
	return &SmtpMailer{cfg: cfg}
}

func (m *SmtpMailer) SendVerification(email, token string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", "Verify your account")
	msg.SetBody("text/plain", fmt.Sprintf(
		"Open the link below to verify your account:\n\n%s/auth/verify?token=%s\n\nThe link expires in 24 hours.",
		m.cfg.VerifyURL, token))

	d := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
	if err := d.DialAndSend(msg); err != nil {
		return errors.Wrap(err, "auth: send verification mail")
	}
	return nil
}

// NopMailer drops messages; used in tests and when SMTP is not configured.
type NopMailer struct{}

func (NopMailer) SendVerification(string, string) error { return nil }
