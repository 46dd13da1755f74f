package authz

import (
	"fmt"

	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
	"github.com/garyjia/expense-reimbursement/internal/domain/errs"
)

// RoleChange is a request to move a member to a new role
type RoleChange struct {
	ActorID    string
	ActorRole  entity.Role
	TargetID   string
	TargetRole entity.Role
	NewRole    entity.Role
}

type roleChangeRule struct {
	name     string
	violated func(c RoleChange) bool
	message  string
}

// roleChangeRules run in order; the first violated rule wins.
var roleChangeRules = []roleChangeRule{
	{
		name:     "actor_is_org_admin",
		violated: func(c RoleChange) bool { return !c.ActorRole.IsOrgAdmin() },
		message:  "only owners and admins can change member roles",
	},
	{
		name:     "not_self",
		violated: func(c RoleChange) bool { return c.ActorID == c.TargetID },
		message:  "you cannot change your own role",
	},
	{
		name:     "owner_target_needs_owner",
		violated: func(c RoleChange) bool { return c.TargetRole == entity.RoleOwner && c.ActorRole != entity.RoleOwner },
		message:  "only an owner can change another owner's role",
	},
	{
		name:     "admin_cannot_grant_owner",
		violated: func(c RoleChange) bool { return c.ActorRole == entity.RoleAdmin && c.NewRole == entity.RoleOwner },
		message:  "admins cannot grant the owner role",
	},
}

// CheckRoleChange returns errs.ErrForbidden naming the first violated rule
func CheckRoleChange(c RoleChange) error {
	for _, rule := range roleChangeRules {
		if rule.violated(c) {
			return fmt.Errorf("%w: %s", errs.ErrForbidden, rule.message)
		}
	}
	return nil
}

// CheckGrant validates that actorRole may hand out role through an invite or link
func CheckGrant(actorRole, role entity.Role) error {
	if !role.IsValid() {
		return fmt.Errorf("%w: unknown role %q", errs.ErrValidation, role)
	}
	if !actorRole.IsOrgAdmin() {
		return fmt.Errorf("%w: only owners and admins can invite members", errs.ErrForbidden)
	}
	if actorRole == entity.RoleAdmin && role == entity.RoleOwner {
		return fmt.Errorf("%w: admins cannot grant the owner role", errs.ErrForbidden)
	}
	return nil
}
