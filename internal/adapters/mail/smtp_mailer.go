package mail

import (
	"context"
	"fmt"
	"time"

	"tupad-admin/internal/config"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

const resetSubject = "TUPAD Admin password reset code"

// SMTPMailer sends reset codes over SMTP
type SMTPMailer struct {
	cfg config.MailConfig
	log *zap.Logger
}

// NewSMTPMailer creates a new SMTP mailer
func NewSMTPMailer(cfg config.MailConfig, log *zap.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, log: log.Named("mail")}
}

// SendResetCode mails a reset code to one recipient
func (m *SMTPMailer) SendResetCode(ctx context.Context, to, name, code string, ttl time.Duration) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("invalid sender %q: %w", m.cfg.From, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(resetSubject)
	msg.SetBodyString(gomail.TypeTextPlain, resetBody(name, code, ttl))

	client, err := m.client()
	if err != nil {
		return err
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}

	m.log.Debug("reset mail sent", zap.String("host", m.cfg.Host))
	return nil
}

func (m *SMTPMailer) client() (*gomail.Client, error) {
	opts := []gomail.Option{
		gomail.WithPort(m.cfg.Port),
		gomail.WithTimeout(15 * time.Second),
	}
	if m.cfg.User != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(m.cfg.User),
			gomail.WithPassword(m.cfg.Password),
		)
	}
	if m.cfg.Secure {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}

	client, err := gomail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return client, nil
}

// LogMailer writes reset codes to the log. Dev only.
type LogMailer struct {
	log *zap.Logger
}

// NewLogMailer creates a mailer for development without SMTP credentials
func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log.Named("mail")}
}

// SendResetCode logs the code instead of sending it
func (m *LogMailer) SendResetCode(_ context.Context, to, _, code string, ttl time.Duration) error {
	m.log.Warn("SMTP not configured, reset code written to log",
		zap.String("to", to),
		zap.String("code", code),
		zap.Duration("ttl", ttl),
	)
	return nil
}

func resetBody(name, code string, ttl time.Duration) string {
	return fmt.Sprintf(`Hello %s,

We received a request to reset your TUPAD Admin password.

Your reset code is: %s

The code expires in %d minutes. If you did not request a reset, you can ignore this message.
`, name, code, int(ttl.Minutes()))
}
