package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

// SendMailFunc matches smtp.SendMail.
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPConfig configures the mail relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// RecipientDomain builds addresses as user{id}@domain until a user
	// directory is available.
	RecipientDomain string
}

// Mailer delivers rendered notifications over SMTP.
type Mailer struct {
	cfg      SMTPConfig
	sendMail SendMailFunc
}

// NewMailer returns a Mailer using smtp.SendMail.
func NewMailer(cfg SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg, sendMail: smtp.SendMail}
}

// Recipient maps a user id to a mailbox.
func (m *Mailer) Recipient(userID string) string {
	return fmt.Sprintf("user%s@%s", userID, m.cfg.RecipientDomain)
}

// Deliver renders msg and sends it.
func (m *Mailer) Deliver(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	email, err := Render(msg)
	if err != nil {
		return err
	}

	to := m.Recipient(msg.RecipientID)
	var raw strings.Builder
	fmt.Fprintf(&raw, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&raw, "To: %s\r\n", to)
	fmt.Fprintf(&raw, "Subject: %s\r\n", email.Subject)
	raw.WriteString("MIME-Version: 1.0\r\n")
	raw.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	raw.WriteString(strings.ReplaceAll(email.Body, "\n", "\r\n"))

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := net.JoinHostPort(m.cfg.Host, fmt.Sprint(m.cfg.Port))
	if err := m.sendMail(addr, auth, m.cfg.From, []string{to}, []byte(raw.String())); err != nil {
		return fmt.Errorf("send %s mail to %s: %w", msg.Kind, to, err)
	}
	return nil
}
