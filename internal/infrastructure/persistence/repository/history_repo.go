package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/expense-reimbursement/internal/application/port"
	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
)

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	base
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		base:   base{db: db},
		logger: logger,
	}
}

// Create creates a new history record
func (r *HistoryRepository) Create(ctx context.Context, history *entity.ExpenseHistory) error {
	query := `
		INSERT INTO expense_history (
			expense_id, actor_id, action, previous_status, new_status, note, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	ts := now()
	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		history.ExpenseID,
		history.ActorID,
		history.Action,
		history.PreviousStatus,
		history.NewStatus,
		history.Note,
		ts,
	)
	if err != nil {
		r.logger.Error("Failed to create history record", zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	history.ID = id
	history.CreatedAt = ts
	return nil
}

// ListByExpense retrieves all history records for an expense, oldest first
func (r *HistoryRepository) ListByExpense(ctx context.Context, expenseID int64) ([]*entity.ExpenseHistory, error) {
	query := `
		SELECT id, expense_id, actor_id, action, previous_status, new_status, note, created_at
		FROM expense_history
		WHERE expense_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, expenseID)
	if err != nil {
		r.logger.Error("Failed to get history by expense ID", zap.Int64("expense_id", expenseID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var records []*entity.ExpenseHistory
	for rows.Next() {
		var record entity.ExpenseHistory
		err := rows.Scan(
			&record.ID,
			&record.ExpenseID,
			&record.ActorID,
			&record.Action,
			&record.PreviousStatus,
			&record.NewStatus,
			&record.Note,
			&record.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan history record", zap.Error(err))
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
