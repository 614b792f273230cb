package queue

import (
	"fmt"
	"net/smtp"
	"strings"
)

// EmailSender delivers one message. The consumer depends on this
// interface so tests can capture outgoing mail.
type EmailSender interface {
	Send(to, subject, body string) error
}

// SMTPSender sends mail through a plain SMTP relay using the
// credentials from the environment.
type SMTPSender struct {
	Host string
	Port string
	User string
	Pass string
	From string
}

// Send composes a minimal text/plain message and submits it. Auth is
// skipped when no user is configured (local relays).
func (s SMTPSender) Send(to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + s.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")
	addr := fmt.Sprintf("%s:%s", s.Host, s.Port)
	var auth smtp.Auth
	if s.User != "" {
		auth = smtp.PlainAuth("", s.User, s.Pass, s.Host)
	}
	return smtp.SendMail(addr, auth, s.From, []string{to}, []byte(msg))
}
