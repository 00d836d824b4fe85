// Package mailer dispatches notification mail over SMTP. Sending is
// synchronous; callers record the outcome on the notification row and
// offer manual retry instead of backing off automatically.
package mailer

import (
	"fmt"
	"net/smtp"

	"github.com/ovalledev/sigex/internal/logger"
)

type Mailer interface {
	Send(to, subject, body string) error
}

type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)

	msg := []byte("From: " + m.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=\"utf-8\"\r\n" +
		"\r\n" +
		body + "\r\n")

	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}

	if err := smtp.SendMail(addr, auth, m.From, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}

// LogMailer is used when no SMTP host is configured: messages are
// logged instead of sent, so local environments work end to end.
type LogMailer struct {
	Logger *logger.Logger
}

func (m *LogMailer) Send(to, subject, body string) error {
	m.Logger.Info("Mailer", "mail to=%s subject=%q (%d bytes, SMTP disabled)", to, subject, len(body))
	return nil
}
