// Package mailer delivers notifications through an SMTP relay.
//
// The dispatcher performs a single delivery attempt. Retry and user-facing
// reporting are the caller's decision.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"

	"github.com/unigest/unigest/internal/config"
)

// ErrNotConfigured is returned by New when SMTP settings are incomplete
var ErrNotConfigured = errors.New("smtp transport not configured (SMTP_HOST, SMTP_PORT, SMTP_FROM)")

const sendTimeout = 15 * time.Second

// Notification is one message to deliver
type Notification struct {
	Recipient string `json:"recipient" validate:"required,email"`
	Subject   string `json:"subject" validate:"required,max=255"`
	Body      string `json:"body" validate:"required"`
}

// DeliveryError wraps a transport failure for a given recipient
type DeliveryError struct {
	Recipient string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to deliver mail to %s: %v", e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Sender is implemented by anything able to deliver a Notification
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// Dispatcher sends notifications over SMTP
type Dispatcher struct {
	cfg      config.SMTPConfig
	validate *validator.Validate
	logger   zerolog.Logger
}

// New creates a dispatcher from externally supplied SMTP settings
func New(cfg config.SMTPConfig, log zerolog.Logger) (*Dispatcher, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}
	return &Dispatcher{
		cfg:      cfg,
		validate: validator.New(),
		logger:   log.With().Str("component", "mailer").Logger(),
	}, nil
}

// Send performs one delivery attempt. Transport failures are returned as *DeliveryError.
func (d *Dispatcher) Send(ctx context.Context, n Notification) error {
	if err := d.validate.Struct(n); err != nil {
		return fmt.Errorf("invalid notification: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(d.cfg.From); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(n.Recipient); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(n.Subject)
	msg.SetBodyString(mail.TypeTextPlain, n.Body)

	opts := []mail.Option{
		mail.WithPort(d.cfg.Port),
		mail.WithTimeout(sendTimeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if d.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(d.cfg.Username),
			mail.WithPassword(d.cfg.Password),
		)
	}

	client, err := mail.NewClient(d.cfg.Host, opts...)
	if err != nil {
		return &DeliveryError{Recipient: n.Recipient, Err: err}
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		d.logger.Warn().Err(err).Str("recipient", n.Recipient).Msg("Mail delivery failed")
		return &DeliveryError{Recipient: n.Recipient, Err: err}
	}

	d.logger.Info().Str("recipient", n.Recipient).Str("subject", n.Subject).Msg("Mail delivered")
	return nil
}
