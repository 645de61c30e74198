package notification

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/gitjobs/gitjobs/internal/config"
)

// Message is an outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers rendered notifications.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender delivers notifications over SMTP. The underlying client is
// reused across deliveries.
type SMTPSender struct {
	client      *mail.Client
	fromAddress string
	fromName    string
}

// NewSMTPSender creates a sender from the email configuration.
func NewSMTPSender(cfg config.EmailConfig) (*SMTPSender, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.SMTP.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.SMTP.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTP.Username),
			mail.WithPassword(cfg.SMTP.Password),
		)
	}

	client, err := mail.NewClient(cfg.SMTP.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating smtp client: %w", err)
	}

	return &SMTPSender{
		client:      client,
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
	}, nil
}

// Send delivers a single message.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m := mail.NewMsg()
	if err := m.FromFormat(s.fromName, s.fromAddress); err != nil {
		return fmt.Errorf("error setting sender: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("error setting recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.Body)

	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	return nil
}
