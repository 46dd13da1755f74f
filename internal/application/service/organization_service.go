package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/expense-reimbursement/internal/application/port"
	"github.com/garyjia/expense-reimbursement/internal/application/session"
	"github.com/garyjia/expense-reimbursement/internal/domain/authz"
	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
	"github.com/garyjia/expense-reimbursement/internal/domain/errs"
	"github.com/garyjia/expense-reimbursement/pkg/utils"
)

// CreateOrganizationInput is the request to found an organization
type CreateOrganizationInput struct {
	Name string
	Slug string
}

// OrganizationService manages organizations, their policies and request sessions
type OrganizationService interface {
	Create(ctx context.Context, identity *entity.Identity, in CreateOrganizationInput) (*entity.Organization, error)
	OpenSession(ctx context.Context, identity *entity.Identity, slug string) (*session.Session, error)
	ListForUser(ctx context.Context, identity *entity.Identity) ([]*entity.OrganizationWithRole, error)
	Rename(ctx context.Context, sess *session.Session, name string) (*entity.Organization, error)
	ListPolicies(ctx context.Context, sess *session.Session) ([]*entity.Policy, error)
	UpsertPolicy(ctx context.Context, sess *session.Session, p *entity.Policy) error
}

type organizationServiceImpl struct {
	orgRepo        port.OrganizationRepository
	membershipRepo port.MembershipRepository
	policyRepo     port.PolicyRepository
	txManager      port.TransactionManager
	logger         Logger
}

// NewOrganizationService creates a new OrganizationService
func NewOrganizationService(
	orgRepo port.OrganizationRepository,
	membershipRepo port.MembershipRepository,
	policyRepo port.PolicyRepository,
	txManager port.TransactionManager,
	logger Logger,
) OrganizationService {
	return &organizationServiceImpl{
		orgRepo:        orgRepo,
		membershipRepo: membershipRepo,
		policyRepo:     policyRepo,
		txManager:      txManager,
		logger:         orNop(logger),
	}
}

// Create founds an organization. The founder becomes its owner and the default
// policy set is seeded in the same transaction.
func (s *organizationServiceImpl) Create(ctx context.Context, identity *entity.Identity, in CreateOrganizationInput) (*entity.Organization, error) {
	if identity == nil || identity.ID == "" {
		return nil, fmt.Errorf("%w: no authenticated user", errs.ErrUnauthenticated)
	}

	name := clean(in.Name)
	if name == "" {
		return nil, validationError("organization name is required")
	}
	slug := clean(in.Slug)
	if slug == "" {
		slug = utils.Slugify(name)
	}
	if err := utils.ValidateSlug(slug); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}

	org := &entity.Organization{Slug: slug, Name: name, CreatedBy: identity.ID}
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.orgRepo.Create(txCtx, org); err != nil {
			return err
		}

		owner := &entity.Membership{OrganizationID: org.ID, UserID: identity.ID, Role: entity.RoleOwner}
		if err := s.membershipRepo.Create(txCtx, owner); err != nil {
			return err
		}

		for _, p := range entity.DefaultPolicies() {
			p := p
			p.OrganizationID = org.ID
			if err := s.policyRepo.Upsert(txCtx, &p); err != nil {
				return fmt.Errorf("failed to seed policy %s: %w", p.ExpenseType, err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create organization", "slug", slug, "error", err)
		return nil, err
	}

	s.logger.Info("Organization created", "organization_id", org.ID, "slug", org.Slug, "owner_id", identity.ID)
	return org, nil
}

// OpenSession resolves the caller's role in the organization named by slug
func (s *organizationServiceImpl) OpenSession(ctx context.Context, identity *entity.Identity, slug string) (*session.Session, error) {
	if identity == nil || identity.ID == "" {
		return nil, fmt.Errorf("%w: no authenticated user", errs.ErrUnauthenticated)
	}

	org, err := s.orgRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	role, err := s.membershipRepo.GetRole(ctx, org.ID, identity.ID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("%w: you are not a member of %s", errs.ErrForbidden, slug)
		}
		return nil, err
	}

	return &session.Session{Identity: identity, Organization: org, Role: role}, nil
}

// ListForUser returns every organization the caller belongs to
func (s *organizationServiceImpl) ListForUser(ctx context.Context, identity *entity.Identity) ([]*entity.OrganizationWithRole, error) {
	if identity == nil || identity.ID == "" {
		return nil, fmt.Errorf("%w: no authenticated user", errs.ErrUnauthenticated)
	}
	return s.orgRepo.ListForUser(ctx, identity.ID)
}

// Rename changes the organization's display name; the slug is permanent
func (s *organizationServiceImpl) Rename(ctx context.Context, sess *session.Session, name string) (*entity.Organization, error) {
	if err := authorize(sess, authz.ActionManageOrganization); err != nil {
		return nil, err
	}
	name = clean(name)
	if name == "" {
		return nil, validationError("organization name is required")
	}

	if err := s.orgRepo.UpdateName(ctx, sess.OrganizationID(), name); err != nil {
		return nil, err
	}
	s.logger.Info("Organization renamed", "organization_id", sess.OrganizationID(), "actor_id", sess.UserID())
	return s.orgRepo.GetByID(ctx, sess.OrganizationID())
}

// ListPolicies returns the organization's spending policies
func (s *organizationServiceImpl) ListPolicies(ctx context.Context, sess *session.Session) ([]*entity.Policy, error) {
	if err := authorize(sess, authz.ActionViewPolicies); err != nil {
		return nil, err
	}
	return s.policyRepo.ListByOrganization(ctx, sess.OrganizationID())
}

// UpsertPolicy creates or replaces the policy for one expense type
func (s *organizationServiceImpl) UpsertPolicy(ctx context.Context, sess *session.Session, p *entity.Policy) error {
	if err := authorize(sess, authz.ActionManagePolicies); err != nil {
		return err
	}

	p.ExpenseType = clean(p.ExpenseType)
	if p.ExpenseType == "" {
		return validationError("expense type is required")
	}
	if p.UpperLimit != nil && *p.UpperLimit <= 0 {
		return validationError("upper limit must be positive")
	}
	p.OrganizationID = sess.OrganizationID()

	if err := s.policyRepo.Upsert(ctx, p); err != nil {
		return err
	}
	s.logger.Info("Policy saved", "organization_id", p.OrganizationID, "expense_type", p.ExpenseType, "actor_id", sess.UserID())
	return nil
}
