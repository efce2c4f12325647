// Package mail delivers transactional email over SMTP.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/dukex/shopflow/pkg/protocol"
)

const DefaultTimeout = 15 * time.Second

var ErrNoSender = errors.New("no sender address configured")

// Config describes the SMTP relay and the default sender.
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
	// TLSPolicy is one of "mandatory", "opportunistic" or "none".
	TLSPolicy string
	Timeout   time.Duration
}

// Mailer implements protocol.Mailer with go-mail.
type Mailer struct {
	config Config
	logger *slog.Logger
}

func NewMailer(config Config, logger *slog.Logger) *Mailer {
	if config.Port == 0 {
		config.Port = 587
	}

	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	return &Mailer{config: config, logger: logger.With("module", "mailer")}
}

func (m *Mailer) tlsPolicy() gomail.TLSPolicy {
	switch strings.ToLower(m.config.TLSPolicy) {
	case "mandatory":
		return gomail.TLSMandatory
	case "none":
		return gomail.NoTLS
	default:
		return gomail.TLSOpportunistic
	}
}

func (m *Mailer) client() (*gomail.Client, error) {
	opts := []gomail.Option{
		gomail.WithPort(m.config.Port),
		gomail.WithTimeout(m.config.Timeout),
		gomail.WithTLSPolicy(m.tlsPolicy()),
	}

	if m.config.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(m.config.Username),
			gomail.WithPassword(m.config.Password),
		)
	}

	client, err := gomail.NewClient(m.config.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}

	return client, nil
}

// message builds the MIME message. The sender of msg overrides the configured one.
func (m *Mailer) message(msg protocol.MailMessage) (*gomail.Msg, error) {
	fromAddress := msg.FromAddress
	fromName := msg.FromName

	if fromAddress == "" {
		fromAddress = m.config.FromAddress
	}

	if fromName == "" {
		fromName = m.config.FromName
	}

	if fromAddress == "" {
		return nil, ErrNoSender
	}

	out := gomail.NewMsg()

	var err error
	if fromName != "" {
		err = out.FromFormat(fromName, fromAddress)
	} else {
		err = out.From(fromAddress)
	}

	if err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", fromAddress, err)
	}

	if err := out.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}

	out.Subject(msg.Subject)
	out.SetBodyString(gomail.TypeTextHTML, msg.HTMLBody)

	return out, nil
}

// Send delivers msg through a fresh SMTP connection.
func (m *Mailer) Send(ctx context.Context, msg protocol.MailMessage) error {
	out, err := m.message(msg)
	if err != nil {
		return err
	}

	client, err := m.client()
	if err != nil {
		return err
	}

	err = client.DialAndSendWithContext(ctx, out)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}

	m.logger.DebugContext(ctx, "Email sent", "to", msg.To, "subject", msg.Subject)

	return nil
}
