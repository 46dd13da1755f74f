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

// InviteRepository implements port.InviteRepository
type InviteRepository struct {
	base
	logger *zap.Logger
}

// NewInviteRepository creates a new invite repository
func NewInviteRepository(db *sql.DB, logger *zap.Logger) port.InviteRepository {
	return &InviteRepository{base: base{db: db}, logger: logger}
}

// Create stores a single-use invite
func (r *InviteRepository) Create(ctx context.Context, inv *entity.Invite) error {
	query := `
		INSERT INTO invites (token, organization_id, email, role, invited_by, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	ts := now()
	inv.Email = entity.NormalizeEmail(inv.Email)
	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		inv.Token, inv.OrganizationID, inv.Email, inv.Role, inv.InvitedBy, inv.ExpiresAt.UTC(), ts,
	)
	if err != nil {
		r.logger.Error("Failed to create invite", zap.Int64("organization_id", inv.OrganizationID), zap.Error(err))
		return fmt.Errorf("failed to create invite: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	inv.ID = id
	inv.CreatedAt = ts
	return nil
}

// GetByToken retrieves an invite by its secret token
func (r *InviteRepository) GetByToken(ctx context.Context, token string) (*entity.Invite, error) {
	query := `
		SELECT id, token, organization_id, email, role, invited_by, expires_at,
			accepted_at, accepted_by, created_at
		FROM invites
		WHERE token = ?
	`

	var inv entity.Invite
	var acceptedAt sql.NullTime
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, token).Scan(
		&inv.ID, &inv.Token, &inv.OrganizationID, &inv.Email, &inv.Role, &inv.InvitedBy, &inv.ExpiresAt,
		&acceptedAt, &inv.AcceptedBy, &inv.CreatedAt,
	)
	if nf := notFound(err, "invite"); nf != nil {
		return nil, nf
	}
	if err != nil {
		r.logger.Error("Failed to get invite", zap.Error(err))
		return nil, fmt.Errorf("failed to get invite: %w", err)
	}
	inv.AcceptedAt = timePtr(acceptedAt)
	return &inv, nil
}

// MarkAccepted consumes the invite exactly once
func (r *InviteRepository) MarkAccepted(ctx context.Context, id int64, userID string, at time.Time) error {
	query := `
		UPDATE invites
		SET accepted_at = ?, accepted_by = ?
		WHERE id = ? AND accepted_at IS NULL
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, at.UTC(), userID, id)
	if err != nil {
		r.logger.Error("Failed to accept invite", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to accept invite: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: invite has already been used", errs.ErrDuplicate)
	}
	return nil
}

// Verify interface compliance
var _ port.InviteRepository = (*InviteRepository)(nil)
