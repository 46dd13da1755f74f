package entity

import "fmt"

// Role is the single role a user holds inside one organization
type Role string

const (
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleMember  Role = "member"
	RoleFinance Role = "finance"
)

var validRoles = map[Role]bool{
	RoleOwner:   true,
	RoleAdmin:   true,
	RoleManager: true,
	RoleMember:  true,
	RoleFinance: true,
}

// IsValid returns true if the role is one of the known roles
func (r Role) IsValid() bool {
	return validRoles[r]
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// IsOrgAdmin reports whether the role may administer the organization
func (r Role) IsOrgAdmin() bool {
	return r == RoleOwner || r == RoleAdmin
}

// ParseRole converts user input into a Role
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}
