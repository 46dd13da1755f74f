// Package session carries the acting user, organization and role of one request.
// Values travel through context.Context; nothing is kept in package state.
package session

import (
	"context"
	"fmt"

	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
	"github.com/garyjia/expense-reimbursement/internal/domain/errs"
)

// Session is the actor context for an organization-scoped request
type Session struct {
	Identity     *entity.Identity
	Organization *entity.Organization
	Role         entity.Role
}

// UserID returns the acting user's ID
func (s *Session) UserID() string {
	if s == nil || s.Identity == nil {
		return ""
	}
	return s.Identity.ID
}

// OrganizationID returns the scoped organization ID
func (s *Session) OrganizationID() int64 {
	if s == nil || s.Organization == nil {
		return 0
	}
	return s.Organization.ID
}

type contextKey int

const (
	identityKey contextKey = iota
	sessionKey
)

// WithIdentity stores the authenticated identity in ctx
func WithIdentity(ctx context.Context, id *entity.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// WithSession stores an organization-scoped session in ctx, along with its identity
func WithSession(ctx context.Context, s *Session) context.Context {
	ctx = WithIdentity(ctx, s.Identity)
	return context.WithValue(ctx, sessionKey, s)
}

// CurrentUser returns the authenticated identity or errs.ErrUnauthenticated
func CurrentUser(ctx context.Context) (*entity.Identity, error) {
	id, ok := ctx.Value(identityKey).(*entity.Identity)
	if !ok || id == nil || id.ID == "" {
		return nil, fmt.Errorf("%w: no authenticated user", errs.ErrUnauthenticated)
	}
	return id, nil
}

// FromContext returns the organization-scoped session
func FromContext(ctx context.Context) (*Session, error) {
	s, ok := ctx.Value(sessionKey).(*Session)
	if !ok || s == nil || s.Identity == nil {
		return nil, fmt.Errorf("%w: no organization session", errs.ErrUnauthenticated)
	}
	return s, nil
}
