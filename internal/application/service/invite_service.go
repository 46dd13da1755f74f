package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/expense-reimbursement/internal/application/dispatcher"
	"github.com/garyjia/expense-reimbursement/internal/application/port"
	"github.com/garyjia/expense-reimbursement/internal/application/session"
	"github.com/garyjia/expense-reimbursement/internal/domain/authz"
	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
	"github.com/garyjia/expense-reimbursement/internal/domain/errs"
	"github.com/garyjia/expense-reimbursement/internal/domain/event"
	"github.com/garyjia/expense-reimbursement/pkg/utils"
)

// DefaultInviteTTL is how long a single-use invite stays valid
const DefaultInviteTTL = 7 * 24 * time.Hour

// CreateInviteInput issues a single-use invite to one email
type CreateInviteInput struct {
	Email string
	Role  entity.Role
}

// CreateLinkInput issues a shareable invite link
type CreateLinkInput struct {
	Role      entity.Role
	MaxUses   *int
	ExpiresAt *time.Time
}

// InviteService manages invites and invite links
type InviteService interface {
	CreateInvite(ctx context.Context, sess *session.Session, in CreateInviteInput) (*entity.Invite, error)
	AcceptInvite(ctx context.Context, identity *entity.Identity, token string) (*entity.Membership, error)
	CreateLink(ctx context.Context, sess *session.Session, in CreateLinkInput) (*entity.InviteLink, error)
	ListLinks(ctx context.Context, sess *session.Session) ([]*entity.InviteLink, error)
	DeactivateLink(ctx context.Context, sess *session.Session, linkID string) error
	RedeemLink(ctx context.Context, identity *entity.Identity, linkID string) (*entity.Membership, error)
	DeactivateExpiredLinks(ctx context.Context) (int64, error)
}

type inviteServiceImpl struct {
	inviteRepo     port.InviteRepository
	linkRepo       port.InviteLinkRepository
	membershipRepo port.MembershipRepository
	txManager      port.TransactionManager
	dispatcher     dispatcher.Dispatcher
	metrics        port.Metrics
	logger         Logger
	inviteTTL      time.Duration
	now            func() time.Time
}

// InviteOption configures the invite service
type InviteOption func(*inviteServiceImpl)

// WithInviteDispatcher publishes member.joined events
func WithInviteDispatcher(d dispatcher.Dispatcher) InviteOption {
	return func(s *inviteServiceImpl) { s.dispatcher = d }
}

// WithInviteMetrics counts redemption outcomes
func WithInviteMetrics(m port.Metrics) InviteOption {
	return func(s *inviteServiceImpl) { s.metrics = m }
}

// WithInviteTTL overrides DefaultInviteTTL
func WithInviteTTL(ttl time.Duration) InviteOption {
	return func(s *inviteServiceImpl) {
		if ttl > 0 {
			s.inviteTTL = ttl
		}
	}
}

// WithInviteClock overrides time.Now
func WithInviteClock(now func() time.Time) InviteOption {
	return func(s *inviteServiceImpl) { s.now = now }
}

// NewInviteService creates a new InviteService
func NewInviteService(
	inviteRepo port.InviteRepository,
	linkRepo port.InviteLinkRepository,
	membershipRepo port.MembershipRepository,
	txManager port.TransactionManager,
	logger Logger,
	opts ...InviteOption,
) InviteService {
	s := &inviteServiceImpl{
		inviteRepo:     inviteRepo,
		linkRepo:       linkRepo,
		membershipRepo: membershipRepo,
		txManager:      txManager,
		logger:         orNop(logger),
		inviteTTL:      DefaultInviteTTL,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInvite issues a single-use invite bound to an email
func (s *inviteServiceImpl) CreateInvite(ctx context.Context, sess *session.Session, in CreateInviteInput) (*entity.Invite, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if err := authz.CheckGrant(sess.Role, in.Role); err != nil {
		return nil, err
	}
	email := entity.NormalizeEmail(in.Email)
	if err := utils.ValidateEmail(email); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}

	invite := &entity.Invite{
		Token:          utils.NewToken(),
		OrganizationID: sess.OrganizationID(),
		Email:          email,
		Role:           in.Role,
		InvitedBy:      sess.UserID(),
		ExpiresAt:      s.now().UTC().Add(s.inviteTTL),
	}
	if err := s.inviteRepo.Create(ctx, invite); err != nil {
		return nil, err
	}

	s.logger.Info("Invite created",
		"organization_id", invite.OrganizationID,
		"invite_id", invite.ID,
		"role", invite.Role.String(),
		"invited_by", invite.InvitedBy)
	return invite, nil
}

// AcceptInvite consumes an invite for the caller, whose email must match it
func (s *inviteServiceImpl) AcceptInvite(ctx context.Context, identity *entity.Identity, token string) (*entity.Membership, error) {
	if identity == nil || identity.ID == "" {
		return nil, fmt.Errorf("%w: no authenticated user", errs.ErrUnauthenticated)
	}

	var membership *entity.Membership
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		invite, err := s.inviteRepo.GetByToken(txCtx, token)
		if err != nil {
			return err
		}
		now := s.now()
		if err := invite.CheckAcceptable(identity.Email, now); err != nil {
			return err
		}

		membership = &entity.Membership{OrganizationID: invite.OrganizationID, UserID: identity.ID, Role: invite.Role}
		if err := s.membershipRepo.Create(txCtx, membership); err != nil {
			return err
		}
		return s.inviteRepo.MarkAccepted(txCtx, invite.ID, identity.ID, now)
	})
	if err != nil {
		return nil, err
	}

	s.joined(ctx, membership, "invite")
	return membership, nil
}

// CreateLink issues a shareable link with an optional usage cap and expiry
func (s *inviteServiceImpl) CreateLink(ctx context.Context, sess *session.Session, in CreateLinkInput) (*entity.InviteLink, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if err := authz.CheckGrant(sess.Role, in.Role); err != nil {
		return nil, err
	}
	if in.MaxUses != nil && *in.MaxUses <= 0 {
		return nil, validationError("max uses must be positive")
	}
	if in.ExpiresAt != nil && !in.ExpiresAt.After(s.now()) {
		return nil, validationError("expiry must be in the future")
	}

	link := &entity.InviteLink{
		ID:             utils.NewToken(),
		OrganizationID: sess.OrganizationID(),
		Role:           in.Role,
		CreatedBy:      sess.UserID(),
		MaxUses:        in.MaxUses,
		ExpiresAt:      in.ExpiresAt,
	}
	if err := s.linkRepo.Create(ctx, link); err != nil {
		return nil, err
	}

	s.logger.Info("Invite link created", "organization_id", link.OrganizationID, "link_id", link.ID, "role", link.Role.String())
	return link, nil
}

// ListLinks returns the organization's invite links
func (s *inviteServiceImpl) ListLinks(ctx context.Context, sess *session.Session) ([]*entity.InviteLink, error) {
	if err := authorize(sess, authz.ActionManageInvites); err != nil {
		return nil, err
	}
	return s.linkRepo.ListByOrganization(ctx, sess.OrganizationID())
}

// DeactivateLink switches a link off for good
func (s *inviteServiceImpl) DeactivateLink(ctx context.Context, sess *session.Session, linkID string) error {
	if err := authorize(sess, authz.ActionManageInvites); err != nil {
		return err
	}
	if err := s.linkRepo.Deactivate(ctx, sess.OrganizationID(), linkID); err != nil {
		return err
	}
	s.logger.Info("Invite link deactivated", "organization_id", sess.OrganizationID(), "link_id", linkID, "actor_id", sess.UserID())
	return nil
}

// RedeemLink joins the caller to the link's organization. The checks, the usage row,
// the counter increment and the membership share one transaction, and the increment
// is conditional on the cap, so concurrent redeemers cannot overshoot max_uses.
func (s *inviteServiceImpl) RedeemLink(ctx context.Context, identity *entity.Identity, linkID string) (*entity.Membership, error) {
	membership, err := s.redeemLink(ctx, identity, linkID)
	if s.metrics != nil {
		s.metrics.InviteRedeemed(redeemOutcome(err))
	}
	if err != nil {
		s.logger.Info("Invite link redemption refused", "link_id", linkID, "error", err)
		return nil, err
	}

	s.joined(ctx, membership, "link")
	return membership, nil
}

func (s *inviteServiceImpl) redeemLink(ctx context.Context, identity *entity.Identity, linkID string) (*entity.Membership, error) {
	if identity == nil || identity.ID == "" {
		return nil, fmt.Errorf("%w: no authenticated user", errs.ErrUnauthenticated)
	}
	email := entity.NormalizeEmail(identity.Email)
	if email == "" {
		return nil, validationError("your account has no email address")
	}

	var membership *entity.Membership
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		link, err := s.linkRepo.GetByID(txCtx, linkID)
		if err != nil {
			return err
		}
		if err := link.CheckRedeemable(s.now()); err != nil {
			return err
		}

		_, err = s.membershipRepo.GetRole(txCtx, link.OrganizationID, identity.ID)
		switch {
		case err == nil:
			return fmt.Errorf("%w: you are already a member of this organization", errs.ErrDuplicate)
		case !errors.Is(err, errs.ErrNotFound):
			return err
		}

		used, err := s.linkRepo.HasUsage(txCtx, link.ID, email)
		if err != nil {
			return err
		}
		if used {
			return fmt.Errorf("%w: this email has already used the invite link", errs.ErrDuplicate)
		}

		if err := s.linkRepo.RecordUsage(txCtx, &entity.InviteLinkUsage{LinkID: link.ID, Email: email, UserID: identity.ID}); err != nil {
			return err
		}
		if err := s.linkRepo.IncrementUsage(txCtx, link.ID); err != nil {
			return err
		}

		membership = &entity.Membership{OrganizationID: link.OrganizationID, UserID: identity.ID, Role: link.Role}
		return s.membershipRepo.Create(txCtx, membership)
	})
	if err != nil {
		return nil, err
	}
	return membership, nil
}

// DeactivateExpiredLinks is the maintenance sweep behind the link expiry job
func (s *inviteServiceImpl) DeactivateExpiredLinks(ctx context.Context) (int64, error) {
	n, err := s.linkRepo.DeactivateExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("Expired invite links deactivated", "count", n)
	}
	return n, nil
}

func (s *inviteServiceImpl) joined(ctx context.Context, m *entity.Membership, via string) {
	s.logger.Info("Member joined",
		"organization_id", m.OrganizationID,
		"user_id", m.UserID,
		"role", m.Role.String(),
		"via", via)

	if s.dispatcher == nil {
		return
	}
	s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeMemberJoined, m.OrganizationID, 0, m.UserID, map[string]interface{}{
		event.KeyUserID: m.UserID,
		event.KeyRole:   m.Role.String(),
		event.KeyVia:    via,
	}))
}

func redeemOutcome(err error) string {
	switch {
	case err == nil:
		return "joined"
	case errors.Is(err, errs.ErrNotFound):
		return "not_found"
	case errors.Is(err, errs.ErrForbidden):
		return "inactive"
	case errors.Is(err, errs.ErrLimitExceeded):
		return "limit_exceeded"
	case errors.Is(err, errs.ErrDuplicate):
		return "duplicate"
	}
	return "error"
}
