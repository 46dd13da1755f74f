package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/expense-reimbursement/internal/application/port"
	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
	"github.com/garyjia/expense-reimbursement/internal/domain/errs"
)

const defaultListLimit = 50

// ExpenseRepository implements port.ExpenseRepository
type ExpenseRepository struct {
	base
	logger *zap.Logger
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *sql.DB, logger *zap.Logger) port.ExpenseRepository {
	return &ExpenseRepository{base: base{db: db}, logger: logger}
}

const expenseColumns = `
	id, organization_id, creator_id, approver_id, amount, expense_type, incurred_on,
	description, receipt_ref, event_ref, status, approved_amount, rejection_reason,
	created_at, updated_at`

func scanExpense(s rowScanner) (*entity.Expense, error) {
	var e entity.Expense
	var approverID sql.NullString
	var approved sql.NullFloat64

	err := s.Scan(
		&e.ID, &e.OrganizationID, &e.CreatorID, &approverID, &e.Amount, &e.ExpenseType, &e.IncurredOn,
		&e.Description, &e.ReceiptRef, &e.EventRef, &e.Status, &approved, &e.RejectionReason,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.ApproverID = approverID.String
	e.ApprovedAmount = floatPtr(approved)
	return &e, nil
}

// Create creates a new expense
func (r *ExpenseRepository) Create(ctx context.Context, e *entity.Expense) error {
	query := `
		INSERT INTO expenses (
			organization_id, creator_id, approver_id, amount, expense_type, incurred_on,
			description, receipt_ref, event_ref, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	ts := now()
	if e.Status == "" {
		e.Status = entity.ExpenseStatusDraft
	}

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		e.OrganizationID,
		e.CreatorID,
		nullString(e.ApproverID),
		e.Amount,
		e.ExpenseType,
		e.IncurredOn.UTC(),
		e.Description,
		e.ReceiptRef,
		e.EventRef,
		e.Status,
		ts,
		ts,
	)
	if err != nil {
		r.logger.Error("Failed to create expense", zap.Int64("organization_id", e.OrganizationID), zap.Error(err))
		return fmt.Errorf("failed to create expense: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	e.ID = id
	e.CreatedAt = ts
	e.UpdatedAt = ts
	return nil
}

// GetByID retrieves an expense inside an organization
func (r *ExpenseRepository) GetByID(ctx context.Context, orgID, id int64) (*entity.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE organization_id = ? AND id = ?`

	e, err := scanExpense(r.getExecutor(ctx).QueryRowContext(ctx, query, orgID, id))
	if nf := notFound(err, "expense %d", id); nf != nil {
		return nil, nf
	}
	if err != nil {
		r.logger.Error("Failed to get expense", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return e, nil
}

func (r *ExpenseRepository) getUnscoped(ctx context.Context, id int64) (*entity.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

	e, err := scanExpense(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if nf := notFound(err, "expense %d", id); nf != nil {
		return nil, nf
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return e, nil
}

// UpdateDetails rewrites the editable fields while the expense is still in expectedStatus
func (r *ExpenseRepository) UpdateDetails(ctx context.Context, e *entity.Expense, expectedStatus string) error {
	query := `
		UPDATE expenses
		SET amount = ?, expense_type = ?, incurred_on = ?, description = ?,
			receipt_ref = ?, event_ref = ?, approver_id = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	ts := now()
	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		e.Amount,
		e.ExpenseType,
		e.IncurredOn.UTC(),
		e.Description,
		e.ReceiptRef,
		e.EventRef,
		nullString(e.ApproverID),
		ts,
		e.ID,
		expectedStatus,
	)
	if err != nil {
		r.logger.Error("Failed to update expense", zap.Int64("id", e.ID), zap.Error(err))
		return fmt.Errorf("failed to update expense: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return r.missedUpdate(ctx, e.ID, expectedStatus)
	}
	e.UpdatedAt = ts
	return nil
}

// UpdateStatus is the compare-and-set write behind every workflow transition
func (r *ExpenseRepository) UpdateStatus(ctx context.Context, id int64, expectedStatus string, u entity.ExpenseUpdate) (*entity.Expense, error) {
	query := `
		UPDATE expenses
		SET status = ?,
			approver_id = COALESCE(?, approver_id),
			approved_amount = CASE WHEN ? THEN NULL ELSE COALESCE(?, approved_amount) END,
			rejection_reason = COALESCE(?, rejection_reason),
			updated_at = ?
		WHERE id = ? AND status = ?
	`

	var approverID, reason interface{}
	if u.ApproverID != nil {
		approverID = *u.ApproverID
	}
	if u.RejectionReason != nil {
		reason = *u.RejectionReason
	}

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		u.Status,
		approverID,
		u.ClearApproved && u.ApprovedAmount == nil,
		nullFloat(u.ApprovedAmount),
		reason,
		now(),
		id,
		expectedStatus,
	)
	if err != nil {
		r.logger.Error("Failed to update expense status",
			zap.Int64("id", id),
			zap.String("expected_status", expectedStatus),
			zap.String("status", u.Status),
			zap.Error(err))
		return nil, fmt.Errorf("failed to update expense status: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return nil, r.missedUpdate(ctx, id, expectedStatus)
	}
	return r.getUnscoped(ctx, id)
}

// missedUpdate explains a zero-row guarded update: the row is gone or has moved on
func (r *ExpenseRepository) missedUpdate(ctx context.Context, id int64, expectedStatus string) error {
	var current string
	err := r.getExecutor(ctx).QueryRowContext(ctx, `SELECT status FROM expenses WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: expense %d", errs.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to read expense status: %w", err)
	}

	r.logger.Info("Expense update lost compare-and-set",
		zap.Int64("id", id),
		zap.String("expected_status", expectedStatus),
		zap.String("current_status", current))
	return fmt.Errorf("%w: expense %d is %s, expected %s", errs.ErrConflict, id, current, expectedStatus)
}

// List returns expenses matching the filter, newest first
func (r *ExpenseRepository) List(ctx context.Context, f entity.ExpenseFilter) ([]*entity.Expense, error) {
	var (
		where = []string{"organization_id = ?"}
		args  = []interface{}{f.OrganizationID}
	)

	if len(f.Statuses) > 0 {
		where = append(where, "status IN ("+placeholders(len(f.Statuses))+")")
		for _, s := range f.Statuses {
			args = append(args, s)
		}
	}
	if f.CreatorID != "" {
		where = append(where, "creator_id = ?")
		args = append(args, f.CreatorID)
	}
	if f.ApproverID != "" {
		where = append(where, "approver_id = ?")
		args = append(args, f.ApproverID)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit, f.Offset)

	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list expenses", zap.Int64("organization_id", f.OrganizationID), zap.Error(err))
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*entity.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// Verify interface compliance
var _ port.ExpenseRepository = (*ExpenseRepository)(nil)
