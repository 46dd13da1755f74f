package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
	"github.com/garyjia/expense-reimbursement/internal/domain/errs"
)

func TestCurrentUser_Unauthenticated(t *testing.T) {
	_, err := CurrentUser(context.Background())
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)

	ctx := WithIdentity(context.Background(), &entity.Identity{})
	_, err = CurrentUser(ctx)
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)
}

func TestWithSession(t *testing.T) {
	s := &Session{
		Identity:     &entity.Identity{ID: "u-1", Email: "a@example.com"},
		Organization: &entity.Organization{ID: 9, Slug: "acme"},
		Role:         entity.RoleFinance,
	}
	ctx := WithSession(context.Background(), s)

	got, err := FromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.UserID())
	assert.Equal(t, int64(9), got.OrganizationID())
	assert.Equal(t, entity.RoleFinance, got.Role)

	id, err := CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", id.Email)
}

func TestFromContext_IdentityOnly(t *testing.T) {
	ctx := WithIdentity(context.Background(), &entity.Identity{ID: "u-1"})
	_, err := FromContext(ctx)
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)
}

func TestNilSessionAccessors(t *testing.T) {
	var s *Session
	assert.Equal(t, "", s.UserID())
	assert.Equal(t, int64(0), s.OrganizationID())
}
