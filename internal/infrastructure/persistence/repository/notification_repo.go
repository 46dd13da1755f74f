package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/expense-reimbursement/internal/application/port"
	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
	"github.com/garyjia/expense-reimbursement/internal/domain/errs"
)

// NotificationRepository implements port.NotificationRepository
type NotificationRepository struct {
	base
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sql.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{
		base:   base{db: db},
		logger: logger,
	}
}

// Create creates a new delivery record
func (r *NotificationRepository) Create(ctx context.Context, n *entity.NotificationRecord) error {
	query := `
		INSERT INTO notifications (
			organization_id, expense_id, recipient_email, kind, subject, body,
			channel, status, attempts, last_error, sent_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	ts := now()
	if n.Status == "" {
		n.Status = entity.NotificationStatusPending
	}
	n.CreatedAt = ts
	n.UpdatedAt = ts

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		n.OrganizationID,
		n.ExpenseID,
		n.RecipientEmail,
		n.Kind,
		n.Subject,
		n.Body,
		n.Channel,
		n.Status,
		n.Attempts,
		n.LastError,
		nullTime(n.SentAt),
		n.CreatedAt,
		n.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create notification",
			zap.Int64("expense_id", n.ExpenseID),
			zap.String("channel", n.Channel),
			zap.Error(err))
		return fmt.Errorf("failed to create notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	n.ID = id
	return nil
}

// MarkSent records a successful delivery attempt
func (r *NotificationRepository) MarkSent(ctx context.Context, id int64, at time.Time) error {
	query := `
		UPDATE notifications
		SET status = ?, attempts = attempts + 1, sent_at = ?, last_error = '', updated_at = ?
		WHERE id = ?
	`
	return r.update(ctx, id, query, entity.NotificationStatusSent, at.UTC(), now(), id)
}

// MarkFailed records a failed delivery attempt
func (r *NotificationRepository) MarkFailed(ctx context.Context, id int64, errorMsg string) error {
	query := `
		UPDATE notifications
		SET status = ?, attempts = attempts + 1, last_error = ?, updated_at = ?
		WHERE id = ?
	`
	return r.update(ctx, id, query, entity.NotificationStatusFailed, errorMsg, now(), id)
}

func (r *NotificationRepository) update(ctx context.Context, id int64, query string, args ...interface{}) error {
	result, err := r.getExecutor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update notification", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update notification: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: notification %d", errs.ErrNotFound, id)
	}
	return nil
}

// ListRetryable returns failed records that still have attempts left, oldest first
func (r *NotificationRepository) ListRetryable(ctx context.Context, maxAttempts, limit int) ([]*entity.NotificationRecord, error) {
	query := `
		SELECT id, organization_id, expense_id, recipient_email, kind, subject, body,
			channel, status, attempts, last_error, sent_at, created_at, updated_at
		FROM notifications
		WHERE status = ? AND attempts < ?
		ORDER BY created_at ASC, id ASC
		LIMIT ?
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, entity.NotificationStatusFailed, maxAttempts, limit)
	if err != nil {
		r.logger.Error("Failed to list retryable notifications", zap.Error(err))
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var records []*entity.NotificationRecord
	for rows.Next() {
		var n entity.NotificationRecord
		var sentAt sql.NullTime
		err := rows.Scan(
			&n.ID, &n.OrganizationID, &n.ExpenseID, &n.RecipientEmail, &n.Kind, &n.Subject, &n.Body,
			&n.Channel, &n.Status, &n.Attempts, &n.LastError, &sentAt, &n.CreatedAt, &n.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.SentAt = timePtr(sentAt)
		records = append(records, &n)
	}
	return records, rows.Err()
}

// Verify interface compliance
var _ port.NotificationRepository = (*NotificationRepository)(nil)
