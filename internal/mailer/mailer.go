// Package mailer sends the account-lifecycle notification mails (verification
// links, approval requests). The SMTP implementation is deliberately thin;
// callers treat a failed send as a logged degradation, never a fatal error.
package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/Mb29661/LV418/internal/logger"
)

// Mailer delivers one HTML mail.
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// SMTP sends through a single configured relay using PLAIN auth over
// STARTTLS. With no credentials configured it logs what it would have sent
// and reports success, so registration keeps working in dev setups.
type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	log      *logger.Logger
}

func NewSMTP(host string, port int, username, password string, log *logger.Logger) *SMTP {
	return &SMTP{Host: host, Port: port, Username: username, Password: password, log: log}
}

var _ Mailer = (*SMTP)(nil)

func (m *SMTP) Send(to, subject, htmlBody string) error {
	if m.Username == "" || m.Password == "" {
		if m.log != nil {
			m.log.Infow("email_not_configured", "to", to, "subject", subject)
		}
		return nil
	}

	msg := strings.Join([]string{
		"From: " + m.Username,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
		"",
		htmlBody,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)
	auth := smtp.PlainAuth("", m.Username, m.Password, m.Host)
	if err := smtp.SendMail(addr, auth, m.Username, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}

	if m.log != nil {
		m.log.Infow("email_sent", "to", to, "subject", subject)
	}
	return nil
}
