package port

import (
	"context"
	"time"

	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
)

// OrganizationRepository defines persistence operations for Organization
type OrganizationRepository interface {
	Create(ctx context.Context, org *entity.Organization) error
	GetByID(ctx context.Context, id int64) (*entity.Organization, error)
	GetBySlug(ctx context.Context, slug string) (*entity.Organization, error)
	UpdateName(ctx context.Context, id int64, name string) error
	ListForUser(ctx context.Context, userID string) ([]*entity.OrganizationWithRole, error)
}

// UserRepository defines persistence operations for the local user profile cache
type UserRepository interface {
	Upsert(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
}

// MembershipRepository defines persistence operations for Membership
type MembershipRepository interface {
	// Create inserts a membership; a second membership for the same user returns errs.ErrDuplicate
	Create(ctx context.Context, m *entity.Membership) error

	// GetRole returns the user's role in the organization or errs.ErrNotFound
	GetRole(ctx context.Context, orgID int64, userID string) (entity.Role, error)

	UpdateRole(ctx context.Context, orgID int64, userID string, role entity.Role) error
	ListMembers(ctx context.Context, orgID int64) ([]*entity.Member, error)
}

// ExpenseRepository defines persistence operations for Expense
type ExpenseRepository interface {
	Create(ctx context.Context, expense *entity.Expense) error

	// GetByID loads an expense inside one organization; other tenants' rows are errs.ErrNotFound
	GetByID(ctx context.Context, orgID, id int64) (*entity.Expense, error)

	// UpdateDetails rewrites the creator-editable fields while the status still equals expectedStatus
	UpdateDetails(ctx context.Context, expense *entity.Expense, expectedStatus string) error

	// UpdateStatus applies a transition only if the row is still in expectedStatus.
	// A moved row yields errs.ErrConflict; a missing row errs.ErrNotFound.
	UpdateStatus(ctx context.Context, id int64, expectedStatus string, update entity.ExpenseUpdate) (*entity.Expense, error)

	List(ctx context.Context, filter entity.ExpenseFilter) ([]*entity.Expense, error)
}

// PolicyRepository defines persistence operations for Policy
type PolicyRepository interface {
	ListByOrganization(ctx context.Context, orgID int64) ([]*entity.Policy, error)

	// Upsert inserts or replaces the policy for (organization, expense type)
	Upsert(ctx context.Context, policy *entity.Policy) error
}

// VoucherRepository defines persistence operations for Voucher
type VoucherRepository interface {
	// Create inserts a voucher; a second voucher for the same expense returns errs.ErrDuplicate
	Create(ctx context.Context, voucher *entity.Voucher) error
	GetByID(ctx context.Context, id int64) (*entity.Voucher, error)
	GetByExpenseID(ctx context.Context, expenseID int64) (*entity.Voucher, error)
	// UpdateProjection rewrites the fields derived from the expense
	UpdateProjection(ctx context.Context, voucher *entity.Voucher) error
	UpdateDocument(ctx context.Context, id int64, pdfPath, previewPath string, generatedAt time.Time) error
}

// InviteRepository defines persistence operations for single-use email invites
type InviteRepository interface {
	Create(ctx context.Context, invite *entity.Invite) error
	GetByToken(ctx context.Context, token string) (*entity.Invite, error)

	// MarkAccepted consumes the invite; an already consumed invite returns errs.ErrDuplicate
	MarkAccepted(ctx context.Context, id int64, userID string, at time.Time) error
}

// InviteLinkRepository defines persistence operations for multi-use invite links
type InviteLinkRepository interface {
	Create(ctx context.Context, link *entity.InviteLink) error
	GetByID(ctx context.Context, id string) (*entity.InviteLink, error)
	ListByOrganization(ctx context.Context, orgID int64) ([]*entity.InviteLink, error)
	Deactivate(ctx context.Context, orgID int64, id string) error

	// DeactivateExpired switches off links whose expiry has passed and returns how many changed
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)

	// HasUsage reports whether the email already redeemed the link
	HasUsage(ctx context.Context, linkID, email string) (bool, error)

	// RecordUsage stores a redemption; a replay for the same email returns errs.ErrDuplicate
	RecordUsage(ctx context.Context, usage *entity.InviteLinkUsage) error

	// IncrementUsage bumps current_uses only while it is below max_uses, else errs.ErrLimitExceeded
	IncrementUsage(ctx context.Context, id string) error
}

// CommentRepository defines persistence operations for Comment
type CommentRepository interface {
	Create(ctx context.Context, comment *entity.Comment) error
	ListByExpense(ctx context.Context, expenseID int64) ([]*entity.Comment, error)
}

// HistoryRepository defines persistence operations for ExpenseHistory
type HistoryRepository interface {
	Create(ctx context.Context, history *entity.ExpenseHistory) error
	ListByExpense(ctx context.Context, expenseID int64) ([]*entity.ExpenseHistory, error)
}

// NotificationRepository defines persistence operations for the notification delivery log
type NotificationRepository interface {
	Create(ctx context.Context, record *entity.NotificationRecord) error
	MarkSent(ctx context.Context, id int64, at time.Time) error
	MarkFailed(ctx context.Context, id int64, errorMsg string) error

	// ListRetryable returns FAILED records with fewer than maxAttempts attempts, oldest first
	ListRetryable(ctx context.Context, maxAttempts, limit int) ([]*entity.NotificationRecord, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
