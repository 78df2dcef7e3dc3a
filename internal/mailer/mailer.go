package mailer

import (
	"fmt"
	"net"
	"net/smtp"

	"github.com/clinicdesk/clinic-booking/internal/config"
)

// Notifier sends outbound mail. Callers treat delivery as best effort:
// failures are logged and swallowed, never surfaced as request failures.
type Notifier interface {
	Send(to, subject, body string) error
}

type SMTPMailer struct {
	addr string
	auth smtp.Auth
	from string
}

func NewSMTPMailer(cfg config.Config) *SMTPMailer {
	return &SMTPMailer{
		addr: net.JoinHostPort(cfg.SMTPHost, cfg.SMTPPort),
		auth: smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPHost),
		from: cfg.MailFrom,
	}
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", m.from, to, subject, body)

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// ReminderBody composes the booking-link reminder sent to a patient.
func ReminderBody(clinicName, link string) (subject, body string) {
	subject = fmt.Sprintf("Appointment Reminder from %s", clinicName)
	body = fmt.Sprintf(
		"Hi,\n\nThis is a reminder for your upcoming appointment at %s.\nPlease confirm your slot using this link:\n%s\n\n- %s",
		clinicName, link, clinicName,
	)
	return subject, body
}

// Discard is a no-op Notifier for tests and environments without SMTP.
type Discard struct{}

func (Discard) Send(to, subject, body string) error { return nil }
