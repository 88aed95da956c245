package smtp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/print-order-api/internal/config"
	"github.com/print-order-api/internal/domain"
	"github.com/wneessen/go-mail"
)

// Mailer delivers outbound mail over SMTP.
type Mailer struct {
	client *mail.Client
	from   string
}

func NewMailer(cfg *config.Config) (*Mailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithTimeout(30 * time.Second),
	}
	if cfg.SMTPUsername != "" && cfg.SMTPPassword != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUsername),
			mail.WithPassword(cfg.SMTPPassword),
		)
	}
	// SMTP_SSL wraps the connection in TLS from the first byte (port 465).
	// Otherwise STARTTLS is required with SMTP_TLS and attempted without it.
	switch {
	case cfg.SMTPSSL:
		opts = append(opts, mail.WithSSL())
	case cfg.SMTPTLS:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("create mail client: %w", err)
	}
	return &Mailer{client: client, from: cfg.SMTPFrom}, nil
}

// Send delivers m. An empty m.From falls back to the configured sender.
// Any failure is wrapped in domain.ErrNotification.
func (s *Mailer) Send(ctx context.Context, m domain.Mail) error {
	msg, err := buildMessage(s.from, m)
	if err != nil {
		return fmt.Errorf("build mail: %v: %w", err, domain.ErrNotification)
	}
	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %v: %w", err, domain.ErrNotification)
	}
	slog.Info("mail sent", "subject", m.Subject, "attachments", len(m.Attachments))
	return nil
}

func buildMessage(defaultFrom string, m domain.Mail) (*mail.Msg, error) {
	if m.To == "" {
		return nil, fmt.Errorf("mail requires a recipient")
	}
	from := m.From
	if from == "" {
		from = defaultFrom
	}

	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(m.To); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	if m.ReplyTo != "" {
		if err := msg.ReplyTo(m.ReplyTo); err != nil {
			return nil, fmt.Errorf("reply-to address: %w", err)
		}
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(mail.TypeTextPlain, m.Body)

	for _, a := range m.Attachments {
		ct := a.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		msg.AttachReadSeeker(a.Filename, bytes.NewReader(a.Content), mail.WithFileContentType(mail.ContentType(ct)))
	}
	return msg, nil
}
