package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/expense-reimbursement/internal/application/port"
	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
)

// CommentRepository implements port.CommentRepository
type CommentRepository struct {
	base
	logger *zap.Logger
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *sql.DB, logger *zap.Logger) port.CommentRepository {
	return &CommentRepository{base: base{db: db}, logger: logger}
}

// Create inserts a comment
func (r *CommentRepository) Create(ctx context.Context, c *entity.Comment) error {
	query := `INSERT INTO comments (expense_id, author_id, body, created_at) VALUES (?, ?, ?, ?)`

	ts := now()
	result, err := r.getExecutor(ctx).ExecContext(ctx, query, c.ExpenseID, c.AuthorID, c.Body, ts)
	if err != nil {
		r.logger.Error("Failed to create comment", zap.Int64("expense_id", c.ExpenseID), zap.Error(err))
		return fmt.Errorf("failed to create comment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	c.ID = id
	c.CreatedAt = ts
	return nil
}

// ListByExpense returns the comments of an expense in the order they were written
func (r *CommentRepository) ListByExpense(ctx context.Context, expenseID int64) ([]*entity.Comment, error) {
	query := `
		SELECT id, expense_id, author_id, body, created_at
		FROM comments
		WHERE expense_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, expenseID)
	if err != nil {
		r.logger.Error("Failed to list comments", zap.Int64("expense_id", expenseID), zap.Error(err))
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []*entity.Comment
	for rows.Next() {
		var c entity.Comment
		if err := rows.Scan(&c.ID, &c.ExpenseID, &c.AuthorID, &c.Body, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}

// Verify interface compliance
var _ port.CommentRepository = (*CommentRepository)(nil)
