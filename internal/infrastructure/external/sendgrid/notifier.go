// Package sendgrid delivers notifications as plain-text email through the SendGrid v3 API.
package sendgrid

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/garyjia/expense-reimbursement/internal/application/port"
	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
)

const (
	defaultHost  = "https://api.sendgrid.com"
	sendEndpoint = "/v3/mail/send"
)

// Config holds SendGrid settings
type Config struct {
	APIKey    string
	FromEmail string
	FromName  string
	Host      string // optional, for tests and regional endpoints
}

// Notifier implements port.Notifier over SendGrid
type Notifier struct {
	cfg    Config
	logger *zap.Logger
}

// NewNotifier creates a SendGrid notifier
func NewNotifier(cfg Config, logger *zap.Logger) *Notifier {
	if cfg.Host == "" {
		cfg.Host = defaultHost
	}
	return &Notifier{cfg: cfg, logger: logger}
}

var _ port.Notifier = (*Notifier)(nil)

// Channel returns the delivery channel name
func (n *Notifier) Channel() string {
	return entity.ChannelEmail
}

// Send emails msg to recipientEmail
func (n *Notifier) Send(ctx context.Context, recipientEmail string, msg port.Message) error {
	if recipientEmail == "" {
		return fmt.Errorf("recipient email cannot be empty")
	}

	from := mail.NewEmail(n.cfg.FromName, n.cfg.FromEmail)
	to := mail.NewEmail("", recipientEmail)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Body, "")

	// a client per send: the SendGrid client keeps the request body on itself
	request := sendgrid.GetRequest(n.cfg.APIKey, sendEndpoint, n.cfg.Host)
	request.Method = "POST"
	client := &sendgrid.Client{Request: request}

	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		n.logger.Error("SendGrid request failed",
			zap.String("recipient", recipientEmail),
			zap.Error(err))
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	if response.StatusCode >= 300 {
		n.logger.Error("SendGrid rejected message",
			zap.String("recipient", recipientEmail),
			zap.Int("status", response.StatusCode),
			zap.String("body", response.Body))
		return fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}

	n.logger.Info("Email notification sent",
		zap.String("kind", msg.Kind),
		zap.String("recipient", recipientEmail),
		zap.Int("status", response.StatusCode))
	return nil
}
