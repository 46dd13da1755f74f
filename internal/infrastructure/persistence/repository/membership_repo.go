package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/expense-reimbursement/internal/application/port"
	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
	"github.com/garyjia/expense-reimbursement/internal/domain/errs"
	"github.com/garyjia/expense-reimbursement/internal/infrastructure/persistence/sqlite"
)

// MembershipRepository implements port.MembershipRepository
type MembershipRepository struct {
	base
	logger *zap.Logger
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *sql.DB, logger *zap.Logger) port.MembershipRepository {
	return &MembershipRepository{base: base{db: db}, logger: logger}
}

// Create inserts a membership. UNIQUE(organization_id, user_id) keeps it to one per user.
func (r *MembershipRepository) Create(ctx context.Context, m *entity.Membership) error {
	query := `
		INSERT INTO organization_users (organization_id, user_id, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	ts := now()
	result, err := r.getExecutor(ctx).ExecContext(ctx, query, m.OrganizationID, m.UserID, m.Role, ts, ts)
	if err != nil {
		if sqlite.IsUniqueViolation(err) {
			return fmt.Errorf("%w: user is already a member of this organization", errs.ErrDuplicate)
		}
		r.logger.Error("Failed to create membership",
			zap.Int64("organization_id", m.OrganizationID),
			zap.String("user_id", m.UserID),
			zap.Error(err))
		return fmt.Errorf("failed to create membership: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	m.ID = id
	m.CreatedAt = ts
	m.UpdatedAt = ts
	return nil
}

// GetRole returns the user's role in the organization
func (r *MembershipRepository) GetRole(ctx context.Context, orgID int64, userID string) (entity.Role, error) {
	query := `SELECT role FROM organization_users WHERE organization_id = ? AND user_id = ?`

	var role entity.Role
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, orgID, userID).Scan(&role)
	if nf := notFound(err, "membership of %s in organization %d", userID, orgID); nf != nil {
		return "", nf
	}
	if err != nil {
		r.logger.Error("Failed to get role", zap.Int64("organization_id", orgID), zap.String("user_id", userID), zap.Error(err))
		return "", fmt.Errorf("failed to get role: %w", err)
	}
	return role, nil
}

// UpdateRole changes the user's role
func (r *MembershipRepository) UpdateRole(ctx context.Context, orgID int64, userID string, role entity.Role) error {
	query := `
		UPDATE organization_users
		SET role = ?, updated_at = ?
		WHERE organization_id = ? AND user_id = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, role, now(), orgID, userID)
	if err != nil {
		r.logger.Error("Failed to update role", zap.Int64("organization_id", orgID), zap.String("user_id", userID), zap.Error(err))
		return fmt.Errorf("failed to update role: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: membership of %s in organization %d", errs.ErrNotFound, userID, orgID)
	}
	return nil
}

// ListMembers returns the organization's members with their profiles
func (r *MembershipRepository) ListMembers(ctx context.Context, orgID int64) ([]*entity.Member, error) {
	query := `
		SELECT m.id, m.organization_id, m.user_id, m.role, m.created_at, m.updated_at,
			u.email, u.full_name
		FROM organization_users m
		JOIN users u ON u.id = m.user_id
		WHERE m.organization_id = ?
		ORDER BY u.email ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, orgID)
	if err != nil {
		r.logger.Error("Failed to list members", zap.Int64("organization_id", orgID), zap.Error(err))
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*entity.Member
	for rows.Next() {
		var m entity.Member
		if err := rows.Scan(
			&m.ID, &m.OrganizationID, &m.UserID, &m.Role, &m.CreatedAt, &m.UpdatedAt,
			&m.Email, &m.FullName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}

// Verify interface compliance
var _ port.MembershipRepository = (*MembershipRepository)(nil)
