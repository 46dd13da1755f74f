// Package lognotifier writes notifications to the application log instead of delivering them.
package lognotifier

import (
	"context"

	"go.uber.org/zap"

	"github.com/garyjia/expense-reimbursement/internal/application/port"
	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
)

// Notifier logs every message at info level
type Notifier struct {
	logger *zap.Logger
}

// NewNotifier creates a log notifier
func NewNotifier(logger *zap.Logger) *Notifier {
	return &Notifier{logger: logger}
}

var _ port.Notifier = (*Notifier)(nil)

// Channel returns the delivery channel name
func (n *Notifier) Channel() string {
	return entity.ChannelLog
}

// Send logs the message and never fails
func (n *Notifier) Send(ctx context.Context, recipientEmail string, msg port.Message) error {
	n.logger.Info("Notification",
		zap.String("recipient", recipientEmail),
		zap.String("kind", msg.Kind),
		zap.String("subject", msg.Subject),
		zap.String("status_label", msg.StatusLabel),
		zap.String("body", msg.Body))
	return nil
}
