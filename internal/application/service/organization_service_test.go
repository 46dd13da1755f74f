package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
	"github.com/garyjia/expense-reimbursement/internal/domain/errs"
)

var errSendFailed = errors.New("smtp: connection refused")

func TestOrganizationService_CreateSeedsOwnerAndPolicies(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	owner := st.identity(t, "u-owner", "owner@example.com", "Olive")

	org, err := st.orgService().Create(ctx, owner, CreateOrganizationInput{Name: "Acme Widgets"})
	require.NoError(t, err)
	assert.Equal(t, "acme-widgets", org.Slug)

	role, err := st.members.GetRole(ctx, org.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleOwner, role)

	policies, err := st.policies.ListByOrganization(ctx, org.ID)
	require.NoError(t, err)
	assert.Len(t, policies, len(entity.DefaultPolicies()))
}

func TestOrganizationService_CreateValidation(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	owner := st.identity(t, "u-owner", "owner@example.com", "")
	svc := st.orgService()

	_, err := svc.Create(ctx, owner, CreateOrganizationInput{Name: "  "})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = svc.Create(ctx, owner, CreateOrganizationInput{Name: "Acme", Slug: "Bad Slug!"})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = svc.Create(ctx, nil, CreateOrganizationInput{Name: "Acme"})
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)

	_, err = svc.Create(ctx, owner, CreateOrganizationInput{Name: "Acme"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, owner, CreateOrganizationInput{Name: "ACME"})
	assert.ErrorIs(t, err, errs.ErrDuplicate)
}

func TestOrganizationService_FailedSeedRollsBack(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	// the founder has no user row, so the inserts violate a foreign key
	ghost := &entity.Identity{ID: "u-ghost", Email: "ghost@example.com"}

	_, err := st.orgService().Create(ctx, ghost, CreateOrganizationInput{Name: "Haunted"})
	require.Error(t, err)

	_, err = st.orgs.GetBySlug(ctx, "haunted")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestOrganizationService_OpenSession(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	owner := st.identity(t, "u-owner", "owner@example.com", "")
	stranger := st.identity(t, "u-stranger", "stranger@example.com", "")
	ownerSess := st.organization(t, owner, "Acme")
	svc := st.orgService()

	sess, err := svc.OpenSession(ctx, owner, "acme")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleOwner, sess.Role)
	assert.Equal(t, ownerSess.OrganizationID(), sess.OrganizationID())

	_, err = svc.OpenSession(ctx, stranger, "acme")
	assert.ErrorIs(t, err, errs.ErrForbidden)

	_, err = svc.OpenSession(ctx, owner, "nope")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestOrganizationService_RenameAndPolicies(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	owner := st.identity(t, "u-owner", "owner@example.com", "")
	member := st.identity(t, "u-member", "member@example.com", "")
	ownerSess := st.organization(t, owner, "Acme")
	memberSess := st.join(t, ownerSess, member, entity.RoleMember)
	svc := st.orgService()

	_, err := svc.Rename(ctx, memberSess, "Hijacked")
	assert.ErrorIs(t, err, errs.ErrForbidden)

	org, err := svc.Rename(ctx, ownerSess, "Acme Holdings")
	require.NoError(t, err)
	assert.Equal(t, "Acme Holdings", org.Name)
	assert.Equal(t, "acme", org.Slug)

	err = svc.UpsertPolicy(ctx, memberSess, &entity.Policy{ExpenseType: "Meals", UpperLimit: amountPtr(1)})
	assert.ErrorIs(t, err, errs.ErrForbidden)

	err = svc.UpsertPolicy(ctx, ownerSess, &entity.Policy{ExpenseType: "Meals", UpperLimit: amountPtr(-5)})
	assert.ErrorIs(t, err, errs.ErrValidation)

	require.NoError(t, svc.UpsertPolicy(ctx, ownerSess, &entity.Policy{ExpenseType: "Training", UpperLimit: amountPtr(3000)}))
	policies, err := svc.ListPolicies(ctx, memberSess)
	require.NoError(t, err)
	assert.Len(t, policies, len(entity.DefaultPolicies())+1)

	orgs, err := svc.ListForUser(ctx, member)
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	assert.Equal(t, entity.RoleMember, orgs[0].Role)
}

func TestMembershipService_ChangeRole(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	owner := st.identity(t, "u-owner", "owner@example.com", "")
	admin := st.identity(t, "u-admin", "admin@example.com", "")
	member := st.identity(t, "u-member", "member@example.com", "")
	ownerSess := st.organization(t, owner, "Acme")
	adminSess := st.join(t, ownerSess, admin, entity.RoleAdmin)
	st.join(t, ownerSess, member, entity.RoleMember)
	svc := NewMembershipService(st.members, st.tx, nil)

	assert.ErrorIs(t, svc.ChangeRole(ctx, adminSess, member.ID, entity.RoleOwner), errs.ErrForbidden)
	assert.ErrorIs(t, svc.ChangeRole(ctx, adminSess, owner.ID, entity.RoleMember), errs.ErrForbidden)
	assert.ErrorIs(t, svc.ChangeRole(ctx, adminSess, admin.ID, entity.RoleManager), errs.ErrForbidden)
	assert.ErrorIs(t, svc.ChangeRole(ctx, adminSess, member.ID, entity.Role("emperor")), errs.ErrValidation)
	assert.ErrorIs(t, svc.ChangeRole(ctx, adminSess, "u-nobody", entity.RoleFinance), errs.ErrNotFound)

	require.NoError(t, svc.ChangeRole(ctx, adminSess, member.ID, entity.RoleFinance))
	role, err := st.members.GetRole(ctx, ownerSess.OrganizationID(), member.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleFinance, role)

	require.NoError(t, svc.ChangeRole(ctx, ownerSess, admin.ID, entity.RoleOwner))

	members, err := svc.ListMembers(ctx, adminSess)
	require.NoError(t, err)
	assert.Len(t, members, 3)
}

func TestMembershipService_ChangeRoleUsesPersistedActorRole(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	owner := st.identity(t, "u-owner", "owner@example.com", "")
	admin := st.identity(t, "u-admin", "admin@example.com", "")
	member := st.identity(t, "u-member", "member@example.com", "")
	ownerSess := st.organization(t, owner, "Acme")
	adminSess := st.join(t, ownerSess, admin, entity.RoleAdmin)
	st.join(t, ownerSess, member, entity.RoleMember)
	svc := NewMembershipService(st.members, st.tx, nil)

	// demoted after the session was opened
	require.NoError(t, svc.ChangeRole(ctx, ownerSess, admin.ID, entity.RoleMember))

	assert.ErrorIs(t, svc.ChangeRole(ctx, adminSess, member.ID, entity.RoleFinance), errs.ErrForbidden)
}
