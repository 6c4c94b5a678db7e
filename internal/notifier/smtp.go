package notifier

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPConfig holds connection settings for an SMTP relay (Mailtrap, SES
// SMTP endpoint, etc).
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

// SMTPNotifier sends mail through a plain SMTP relay.
type SMTPNotifier struct {
	cfg  SMTPConfig
	addr string
}

// NewSMTPNotifier creates a notifier backed by the given SMTP relay.
func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{
		cfg:  cfg,
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
	}
}

// Name returns the name of this notifier.
func (n *SMTPNotifier) Name() string {
	return "smtp"
}

// Send delivers the message through the relay. net/smtp has no context
// support, so cancellation is checked before dialing; the send itself is
// bounded by the relay's own timeouts.
func (n *SMTPNotifier) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.cfg.Sender)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Body)
	b.WriteString("\r\n")

	auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	if err := smtp.SendMail(n.addr, auth, n.cfg.Sender, []string{msg.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}

	return nil
}
