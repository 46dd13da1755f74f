package entity

import "time"

// Organization is the tenant boundary. All other records are scoped by its ID.
type Organization struct {
	ID        int64     `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Membership ties a user to an organization with exactly one role
type Membership struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	UserID         string    `json:"user_id"`
	Role           Role      `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Member is a membership joined with the user's profile
type Member struct {
	Membership
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// OrganizationWithRole is an organization as seen by one of its members
type OrganizationWithRole struct {
	Organization
	Role Role `json:"role"`
}
