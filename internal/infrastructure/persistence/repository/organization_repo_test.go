package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
	"github.com/garyjia/expense-reimbursement/internal/domain/errs"
)

func TestOrganizationRepository_CreateAndLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "u-owner", "Owner@Example.com", "Olive Owner")

	org := f.org(t, "acme", owner)

	bySlug, err := f.orgs.GetBySlug(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, org.ID, bySlug.ID)

	require.NoError(t, f.orgs.UpdateName(ctx, org.ID, "Acme Ltd"))
	byID, err := f.orgs.GetByID(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Ltd", byID.Name)

	_, err = f.orgs.GetBySlug(ctx, "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestOrganizationRepository_DuplicateSlug(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "u-owner", "owner@example.com", "")
	f.org(t, "acme", owner)

	err := f.orgs.Create(context.Background(), &entity.Organization{Slug: "acme", Name: "Other", CreatedBy: owner.ID})
	assert.ErrorIs(t, err, errs.ErrDuplicate)
}

func TestOrganizationRepository_ListForUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "u-owner", "owner@example.com", "")
	member := f.user(t, "u-member", "member@example.com", "")

	acme := f.org(t, "acme", owner)
	f.org(t, "globex", owner)
	require.NoError(t, f.members.Create(ctx, &entity.Membership{OrganizationID: acme.ID, UserID: member.ID, Role: entity.RoleFinance}))

	orgs, err := f.orgs.ListForUser(ctx, member.ID)
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	assert.Equal(t, "acme", orgs[0].Slug)
	assert.Equal(t, entity.RoleFinance, orgs[0].Role)

	orgs, err = f.orgs.ListForUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, orgs, 2)
}

func TestMembershipRepository_Roles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "u-owner", "owner@example.com", "Olive")
	member := f.user(t, "u-member", "member@example.com", "Max")
	org := f.org(t, "acme", owner)

	require.NoError(t, f.members.Create(ctx, &entity.Membership{OrganizationID: org.ID, UserID: member.ID, Role: entity.RoleMember}))
	err := f.members.Create(ctx, &entity.Membership{OrganizationID: org.ID, UserID: member.ID, Role: entity.RoleAdmin})
	assert.ErrorIs(t, err, errs.ErrDuplicate)

	require.NoError(t, f.members.UpdateRole(ctx, org.ID, member.ID, entity.RoleManager))
	role, err := f.members.GetRole(ctx, org.ID, member.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleManager, role)

	_, err = f.members.GetRole(ctx, org.ID, "stranger")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.ErrorIs(t, f.members.UpdateRole(ctx, org.ID, "stranger", entity.RoleAdmin), errs.ErrNotFound)

	members, err := f.members.ListMembers(ctx, org.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	emails := []string{members[0].Email, members[1].Email}
	assert.ElementsMatch(t, []string{"owner@example.com", "member@example.com"}, emails)
}

func TestUserRepository_UpsertKeepsKnownName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "u-1", "Someone@Example.com", "Sam Someone")

	require.NoError(t, f.users.Upsert(ctx, &entity.User{ID: "u-1", Email: "someone@example.com"}))

	u, err := f.users.GetByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "Sam Someone", u.FullName)
	assert.Equal(t, "someone@example.com", u.Email)

	_, err = f.users.GetByID(ctx, "nobody")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
