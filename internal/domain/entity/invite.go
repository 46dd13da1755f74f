package entity

import (
	"fmt"
	"time"

	"github.com/garyjia/expense-reimbursement/internal/domain/errs"
)

// Invite is a single-use, email-bound capability to join an organization
type Invite struct {
	ID             int64      `json:"id"`
	Token          string     `json:"token"`
	OrganizationID int64      `json:"organization_id"`
	Email          string     `json:"email"`
	Role           Role       `json:"role"`
	InvitedBy      string     `json:"invited_by"`
	ExpiresAt      time.Time  `json:"expires_at"`
	AcceptedAt     *time.Time `json:"accepted_at,omitempty"`
	AcceptedBy     string     `json:"accepted_by,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// InviteLink is a shareable capability with optional expiry and usage cap
type InviteLink struct {
	ID             string     `json:"id"`
	OrganizationID int64      `json:"organization_id"`
	Role           Role       `json:"role"`
	CreatedBy      string     `json:"created_by"`
	MaxUses        *int       `json:"max_uses,omitempty"`
	CurrentUses    int        `json:"current_uses"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
}

// InviteLinkUsage records one redemption of a link
type InviteLinkUsage struct {
	ID        int64     `json:"id"`
	LinkID    string    `json:"link_id"`
	Email     string    `json:"email"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CheckRedeemable validates the link's own state at the given instant
func (l *InviteLink) CheckRedeemable(now time.Time) error {
	if !l.Active {
		return fmt.Errorf("%w: invite link is no longer active", errs.ErrForbidden)
	}
	if l.ExpiresAt != nil && !now.Before(*l.ExpiresAt) {
		return fmt.Errorf("%w: invite link has expired", errs.ErrForbidden)
	}
	if l.MaxUses != nil && l.CurrentUses >= *l.MaxUses {
		return fmt.Errorf("%w: invite link has reached its usage limit", errs.ErrLimitExceeded)
	}
	return nil
}

// CheckAcceptable validates a single-use invite for the given email
func (i *Invite) CheckAcceptable(email string, now time.Time) error {
	if i.AcceptedAt != nil {
		return fmt.Errorf("%w: invite has already been used", errs.ErrDuplicate)
	}
	if !now.Before(i.ExpiresAt) {
		return fmt.Errorf("%w: invite has expired", errs.ErrForbidden)
	}
	if !equalFoldEmail(i.Email, email) {
		return fmt.Errorf("%w: invite was issued to a different email", errs.ErrForbidden)
	}
	return nil
}
