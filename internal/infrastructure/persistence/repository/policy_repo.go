package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/expense-reimbursement/internal/application/port"
	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
)

// PolicyRepository implements port.PolicyRepository
type PolicyRepository struct {
	base
	logger *zap.Logger
}

// NewPolicyRepository creates a new policy repository
func NewPolicyRepository(db *sql.DB, logger *zap.Logger) port.PolicyRepository {
	return &PolicyRepository{base: base{db: db}, logger: logger}
}

// ListByOrganization returns the organization's policies ordered by expense type
func (r *PolicyRepository) ListByOrganization(ctx context.Context, orgID int64) ([]*entity.Policy, error) {
	query := `
		SELECT id, organization_id, expense_type, upper_limit, eligibility,
			conditions, per_unit_cost, created_at, updated_at
		FROM policies
		WHERE organization_id = ?
		ORDER BY expense_type ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, orgID)
	if err != nil {
		r.logger.Error("Failed to list policies", zap.Int64("organization_id", orgID), zap.Error(err))
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	defer rows.Close()

	var policies []*entity.Policy
	for rows.Next() {
		var p entity.Policy
		var limit sql.NullFloat64
		if err := rows.Scan(
			&p.ID, &p.OrganizationID, &p.ExpenseType, &limit, &p.Eligibility,
			&p.Conditions, &p.PerUnitCost, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan policy: %w", err)
		}
		p.UpperLimit = floatPtr(limit)
		policies = append(policies, &p)
	}
	return policies, rows.Err()
}

// Upsert inserts the policy or replaces the one already defined for its expense type
func (r *PolicyRepository) Upsert(ctx context.Context, p *entity.Policy) error {
	query := `
		INSERT INTO policies (
			organization_id, expense_type, upper_limit, eligibility,
			conditions, per_unit_cost, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(organization_id, expense_type) DO UPDATE SET
			upper_limit = excluded.upper_limit,
			eligibility = excluded.eligibility,
			conditions = excluded.conditions,
			per_unit_cost = excluded.per_unit_cost,
			updated_at = excluded.updated_at
		RETURNING id, created_at
	`

	ts := now()
	err := r.getExecutor(ctx).QueryRowContext(ctx, query,
		p.OrganizationID,
		p.ExpenseType,
		nullFloat(p.UpperLimit),
		p.Eligibility,
		p.Conditions,
		p.PerUnitCost,
		ts,
		ts,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to upsert policy",
			zap.Int64("organization_id", p.OrganizationID),
			zap.String("expense_type", p.ExpenseType),
			zap.Error(err))
		return fmt.Errorf("failed to upsert policy: %w", err)
	}
	p.UpdatedAt = ts
	return nil
}

// Verify interface compliance
var _ port.PolicyRepository = (*PolicyRepository)(nil)
