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
	"github.com/garyjia/expense-reimbursement/internal/infrastructure/persistence/sqlite"
)

// InviteLinkRepository implements port.InviteLinkRepository
type InviteLinkRepository struct {
	base
	logger *zap.Logger
}

// NewInviteLinkRepository creates a new invite link repository
func NewInviteLinkRepository(db *sql.DB, logger *zap.Logger) port.InviteLinkRepository {
	return &InviteLinkRepository{base: base{db: db}, logger: logger}
}

const inviteLinkColumns = `id, organization_id, role, created_by, max_uses, current_uses, expires_at, active, created_at`

func scanInviteLink(s rowScanner) (*entity.InviteLink, error) {
	var l entity.InviteLink
	var maxUses sql.NullInt64
	var expiresAt sql.NullTime
	err := s.Scan(&l.ID, &l.OrganizationID, &l.Role, &l.CreatedBy, &maxUses, &l.CurrentUses, &expiresAt, &l.Active, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	if maxUses.Valid {
		n := int(maxUses.Int64)
		l.MaxUses = &n
	}
	l.ExpiresAt = timePtr(expiresAt)
	return &l, nil
}

// Create stores a new active link
func (r *InviteLinkRepository) Create(ctx context.Context, l *entity.InviteLink) error {
	query := `
		INSERT INTO invite_links (id, organization_id, role, created_by, max_uses, current_uses, expires_at, active, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, 1, ?)
	`

	var maxUses sql.NullInt64
	if l.MaxUses != nil {
		maxUses = sql.NullInt64{Int64: int64(*l.MaxUses), Valid: true}
	}

	ts := now()
	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		l.ID, l.OrganizationID, l.Role, l.CreatedBy, maxUses, nullTime(l.ExpiresAt), ts,
	)
	if err != nil {
		r.logger.Error("Failed to create invite link", zap.Int64("organization_id", l.OrganizationID), zap.Error(err))
		return fmt.Errorf("failed to create invite link: %w", err)
	}
	l.CurrentUses = 0
	l.Active = true
	l.CreatedAt = ts
	return nil
}

// GetByID retrieves a link by its public identifier
func (r *InviteLinkRepository) GetByID(ctx context.Context, id string) (*entity.InviteLink, error) {
	query := `SELECT ` + inviteLinkColumns + ` FROM invite_links WHERE id = ?`

	l, err := scanInviteLink(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if nf := notFound(err, "invite link %s", id); nf != nil {
		return nil, nf
	}
	if err != nil {
		r.logger.Error("Failed to get invite link", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get invite link: %w", err)
	}
	return l, nil
}

// ListByOrganization returns the organization's links, newest first
func (r *InviteLinkRepository) ListByOrganization(ctx context.Context, orgID int64) ([]*entity.InviteLink, error) {
	query := `SELECT ` + inviteLinkColumns + ` FROM invite_links WHERE organization_id = ? ORDER BY created_at DESC`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, orgID)
	if err != nil {
		r.logger.Error("Failed to list invite links", zap.Int64("organization_id", orgID), zap.Error(err))
		return nil, fmt.Errorf("failed to list invite links: %w", err)
	}
	defer rows.Close()

	var links []*entity.InviteLink
	for rows.Next() {
		l, err := scanInviteLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invite link: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// Deactivate switches a link off
func (r *InviteLinkRepository) Deactivate(ctx context.Context, orgID int64, id string) error {
	query := `UPDATE invite_links SET active = 0 WHERE organization_id = ? AND id = ?`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, orgID, id)
	if err != nil {
		r.logger.Error("Failed to deactivate invite link", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to deactivate invite link: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: invite link %s", errs.ErrNotFound, id)
	}
	return nil
}

// DeactivateExpired switches off active links whose expiry has passed
func (r *InviteLinkRepository) DeactivateExpired(ctx context.Context, at time.Time) (int64, error) {
	query := `
		UPDATE invite_links
		SET active = 0
		WHERE active = 1 AND expires_at IS NOT NULL AND expires_at <= ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, at.UTC())
	if err != nil {
		r.logger.Error("Failed to deactivate expired invite links", zap.Error(err))
		return 0, fmt.Errorf("failed to deactivate expired invite links: %w", err)
	}
	return result.RowsAffected()
}

// HasUsage reports whether the email already redeemed the link
func (r *InviteLinkRepository) HasUsage(ctx context.Context, linkID, email string) (bool, error) {
	query := `SELECT COUNT(1) FROM invite_link_usages WHERE link_id = ? AND email = ?`

	var count int
	if err := r.getExecutor(ctx).QueryRowContext(ctx, query, linkID, entity.NormalizeEmail(email)).Scan(&count); err != nil {
		r.logger.Error("Failed to check invite link usage", zap.String("link_id", linkID), zap.Error(err))
		return false, fmt.Errorf("failed to check invite link usage: %w", err)
	}
	return count > 0, nil
}

// RecordUsage stores one redemption; UNIQUE(link_id, email) rejects a replay
func (r *InviteLinkRepository) RecordUsage(ctx context.Context, u *entity.InviteLinkUsage) error {
	query := `
		INSERT INTO invite_link_usages (link_id, email, user_id, created_at)
		VALUES (?, ?, ?, ?)
	`

	ts := now()
	u.Email = entity.NormalizeEmail(u.Email)
	result, err := r.getExecutor(ctx).ExecContext(ctx, query, u.LinkID, u.Email, u.UserID, ts)
	if err != nil {
		if sqlite.IsUniqueViolation(err) {
			return fmt.Errorf("%w: email has already used this invite link", errs.ErrDuplicate)
		}
		r.logger.Error("Failed to record invite link usage", zap.String("link_id", u.LinkID), zap.Error(err))
		return fmt.Errorf("failed to record invite link usage: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	u.ID = id
	u.CreatedAt = ts
	return nil
}

// IncrementUsage bumps the counter only while it is below the cap, so concurrent
// redemptions can never exceed max_uses
func (r *InviteLinkRepository) IncrementUsage(ctx context.Context, id string) error {
	query := `
		UPDATE invite_links
		SET current_uses = current_uses + 1
		WHERE id = ? AND active = 1 AND (max_uses IS NULL OR current_uses < max_uses)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to increment invite link usage", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to increment invite link usage: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: invite link is inactive or has reached its usage limit", errs.ErrLimitExceeded)
	}
	return nil
}

// Verify interface compliance
var _ port.InviteLinkRepository = (*InviteLinkRepository)(nil)
