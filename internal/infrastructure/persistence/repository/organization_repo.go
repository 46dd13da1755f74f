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

// OrganizationRepository implements port.OrganizationRepository
type OrganizationRepository struct {
	base
	logger *zap.Logger
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(db *sql.DB, logger *zap.Logger) port.OrganizationRepository {
	return &OrganizationRepository{base: base{db: db}, logger: logger}
}

const organizationColumns = `o.id, o.slug, o.name, o.created_by, o.created_at, o.updated_at`

func scanOrganization(s rowScanner, o *entity.Organization, extra ...interface{}) error {
	dest := append([]interface{}{&o.ID, &o.Slug, &o.Name, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt}, extra...)
	return s.Scan(dest...)
}

// Create inserts an organization; a taken slug is errs.ErrDuplicate
func (r *OrganizationRepository) Create(ctx context.Context, org *entity.Organization) error {
	query := `
		INSERT INTO organizations (slug, name, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	ts := now()
	result, err := r.getExecutor(ctx).ExecContext(ctx, query, org.Slug, org.Name, org.CreatedBy, ts, ts)
	if err != nil {
		if sqlite.IsUniqueViolation(err) {
			return fmt.Errorf("%w: organization slug %q is taken", errs.ErrDuplicate, org.Slug)
		}
		r.logger.Error("Failed to create organization", zap.String("slug", org.Slug), zap.Error(err))
		return fmt.Errorf("failed to create organization: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	org.ID = id
	org.CreatedAt = ts
	org.UpdatedAt = ts
	return nil
}

// GetByID retrieves an organization by ID
func (r *OrganizationRepository) GetByID(ctx context.Context, id int64) (*entity.Organization, error) {
	return r.getOne(ctx, `o.id = ?`, id)
}

// GetBySlug retrieves an organization by its routing slug
func (r *OrganizationRepository) GetBySlug(ctx context.Context, slug string) (*entity.Organization, error) {
	return r.getOne(ctx, `o.slug = ?`, slug)
}

func (r *OrganizationRepository) getOne(ctx context.Context, where string, arg interface{}) (*entity.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations o WHERE ` + where

	var org entity.Organization
	err := scanOrganization(r.getExecutor(ctx).QueryRowContext(ctx, query, arg), &org)
	if nf := notFound(err, "organization %v", arg); nf != nil {
		return nil, nf
	}
	if err != nil {
		r.logger.Error("Failed to get organization", zap.Any("key", arg), zap.Error(err))
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return &org, nil
}

// UpdateName renames an organization
func (r *OrganizationRepository) UpdateName(ctx context.Context, id int64, name string) error {
	query := `UPDATE organizations SET name = ?, updated_at = ? WHERE id = ?`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, name, now(), id)
	if err != nil {
		r.logger.Error("Failed to rename organization", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update organization: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: organization %d", errs.ErrNotFound, id)
	}
	return nil
}

// ListForUser returns every organization the user belongs to with the user's role
func (r *OrganizationRepository) ListForUser(ctx context.Context, userID string) ([]*entity.OrganizationWithRole, error) {
	query := `
		SELECT ` + organizationColumns + `, m.role
		FROM organizations o
		JOIN organization_users m ON m.organization_id = o.id
		WHERE m.user_id = ?
		ORDER BY o.name ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list organizations", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var out []*entity.OrganizationWithRole
	for rows.Next() {
		var o entity.OrganizationWithRole
		if err := scanOrganization(rows, &o.Organization, &o.Role); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}

// Verify interface compliance
var _ port.OrganizationRepository = (*OrganizationRepository)(nil)
