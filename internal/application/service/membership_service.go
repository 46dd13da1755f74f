package service

import (
	"context"

	"github.com/garyjia/expense-reimbursement/internal/application/port"
	"github.com/garyjia/expense-reimbursement/internal/application/session"
	"github.com/garyjia/expense-reimbursement/internal/domain/authz"
	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
)

// MembershipService manages who belongs to an organization and in which role
type MembershipService interface {
	ListMembers(ctx context.Context, sess *session.Session) ([]*entity.Member, error)
	ChangeRole(ctx context.Context, sess *session.Session, targetUserID string, newRole entity.Role) error
}

type membershipServiceImpl struct {
	membershipRepo port.MembershipRepository
	txManager      port.TransactionManager
	logger         Logger
}

// NewMembershipService creates a new MembershipService
func NewMembershipService(membershipRepo port.MembershipRepository, txManager port.TransactionManager, logger Logger) MembershipService {
	return &membershipServiceImpl{
		membershipRepo: membershipRepo,
		txManager:      txManager,
		logger:         orNop(logger),
	}
}

// ListMembers returns the organization's members with their profiles
func (s *membershipServiceImpl) ListMembers(ctx context.Context, sess *session.Session) ([]*entity.Member, error) {
	if err := authorize(sess, authz.ActionViewMembers); err != nil {
		return nil, err
	}
	return s.membershipRepo.ListMembers(ctx, sess.OrganizationID())
}

// ChangeRole moves a member to newRole. Both roles are read inside the write
// transaction so the rule check sees what is persisted, not what the caller cached.
func (s *membershipServiceImpl) ChangeRole(ctx context.Context, sess *session.Session, targetUserID string, newRole entity.Role) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	if !newRole.IsValid() {
		return validationError("unknown role %q", newRole)
	}

	orgID := sess.OrganizationID()
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		actorRole, err := s.membershipRepo.GetRole(txCtx, orgID, sess.UserID())
		if err != nil {
			return err
		}
		targetRole, err := s.membershipRepo.GetRole(txCtx, orgID, targetUserID)
		if err != nil {
			return err
		}

		if err := authz.CheckRoleChange(authz.RoleChange{
			ActorID:    sess.UserID(),
			ActorRole:  actorRole,
			TargetID:   targetUserID,
			TargetRole: targetRole,
			NewRole:    newRole,
		}); err != nil {
			return err
		}

		return s.membershipRepo.UpdateRole(txCtx, orgID, targetUserID, newRole)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Member role changed",
		"organization_id", orgID,
		"actor_id", sess.UserID(),
		"target_id", targetUserID,
		"new_role", newRole.String())
	return nil
}
