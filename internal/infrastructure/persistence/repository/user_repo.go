package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/expense-reimbursement/internal/application/port"
	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
)

// UserRepository implements port.UserRepository
type UserRepository struct {
	base
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{base: base{db: db}, logger: logger}
}

// Upsert stores the profile of an authenticated identity. An empty name never overwrites a known one.
func (r *UserRepository) Upsert(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (id, email, full_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			full_name = CASE WHEN excluded.full_name != '' THEN excluded.full_name ELSE users.full_name END,
			updated_at = excluded.updated_at
	`

	ts := now()
	user.Email = entity.NormalizeEmail(user.Email)
	_, err := r.getExecutor(ctx).ExecContext(ctx, query, user.ID, user.Email, user.FullName, ts, ts)
	if err != nil {
		r.logger.Error("Failed to upsert user", zap.String("user_id", user.ID), zap.Error(err))
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// GetByID retrieves a user profile
func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	query := `
		SELECT id, email, full_name, created_at, updated_at
		FROM users
		WHERE id = ?
	`

	var u entity.User
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.Email, &u.FullName, &u.CreatedAt, &u.UpdatedAt,
	)
	if nf := notFound(err, "user %s", id); nf != nil {
		return nil, nf
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.String("user_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// Verify interface compliance
var _ port.UserRepository = (*UserRepository)(nil)
