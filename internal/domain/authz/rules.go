// Package authz holds the ordered authorization rule tables. Every role check in the
// service goes through Authorize, CheckRoleChange or CheckGrant so handler checks and
// engine checks cannot drift apart.
package authz

import (
	"fmt"

	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
	"github.com/garyjia/expense-reimbursement/internal/domain/errs"
	"github.com/garyjia/expense-reimbursement/internal/domain/workflow"
)

// Action names an operation guarded by the rule table
type Action string

// Expense transitions share their names with workflow actions
const (
	ActionSubmit         = Action(workflow.ActionSubmit)
	ActionResubmit       = Action(workflow.ActionResubmit)
	ActionManagerApprove = Action(workflow.ActionManagerApprove)
	ActionManagerReject  = Action(workflow.ActionManagerReject)
	ActionFinanceApprove = Action(workflow.ActionFinanceApprove)
	ActionFinanceReject  = Action(workflow.ActionFinanceReject)
	ActionMarkPaid       = Action(workflow.ActionMarkPaid)
	ActionMarkNotPaid    = Action(workflow.ActionMarkNotPaid)
)

// Non-transition operations
const (
	ActionViewExpense        Action = "view_expense"
	ActionEditExpense        Action = "edit_expense"
	ActionComment            Action = "comment"
	ActionCreateVoucher      Action = "create_voucher"
	ActionGenerateVoucherPDF Action = "generate_voucher_pdf"
	ActionViewPolicies       Action = "view_policies"
	ActionManagePolicies     Action = "manage_policies"
	ActionManageInvites      Action = "manage_invites"
	ActionViewMembers        Action = "view_members"
	ActionManageOrganization Action = "manage_organization"
	ActionExportPayments     Action = "export_payments"
	ActionReviewQueue        Action = "review_queue"
	ActionFinanceQueue       Action = "finance_queue"
)

// ForTransition maps a workflow action onto the rule table
func ForTransition(a workflow.Action) Action {
	return Action(a)
}

// Grant names the relation between actor and resource that satisfies a rule
type Grant string

const (
	GrantCreator          Grant = "creator"
	GrantAssignedApprover Grant = "assigned_approver"
	GrantRole             Grant = "role"
)

// Subject is the actor and, for expense-scoped actions, the expense parties
type Subject struct {
	ActorID    string
	ActorRole  entity.Role
	CreatorID  string
	ApproverID string
}

// Rule grants Action when its relation holds
type Rule struct {
	Action Action
	Grant  Grant
	Roles  []entity.Role
}

var (
	orgAdmins     = []entity.Role{entity.RoleOwner, entity.RoleAdmin}
	financeOnly   = []entity.Role{entity.RoleFinance}
	financeAdmins = []entity.Role{entity.RoleFinance, entity.RoleOwner, entity.RoleAdmin}
	everyone      = []entity.Role{entity.RoleOwner, entity.RoleAdmin, entity.RoleManager, entity.RoleMember, entity.RoleFinance}
)

// Rules is evaluated top to bottom; the first rule that holds grants the action.
var Rules = []Rule{
	{Action: ActionSubmit, Grant: GrantCreator},
	{Action: ActionResubmit, Grant: GrantCreator},
	{Action: ActionEditExpense, Grant: GrantCreator},

	{Action: ActionManagerApprove, Grant: GrantAssignedApprover},
	{Action: ActionManagerApprove, Grant: GrantRole, Roles: orgAdmins},
	{Action: ActionManagerReject, Grant: GrantAssignedApprover},
	{Action: ActionManagerReject, Grant: GrantRole, Roles: orgAdmins},

	{Action: ActionFinanceApprove, Grant: GrantRole, Roles: financeOnly},
	{Action: ActionFinanceReject, Grant: GrantRole, Roles: financeOnly},
	{Action: ActionMarkPaid, Grant: GrantRole, Roles: financeOnly},
	{Action: ActionMarkNotPaid, Grant: GrantRole, Roles: financeOnly},

	{Action: ActionViewExpense, Grant: GrantCreator},
	{Action: ActionViewExpense, Grant: GrantAssignedApprover},
	{Action: ActionViewExpense, Grant: GrantRole, Roles: financeAdmins},
	{Action: ActionComment, Grant: GrantCreator},
	{Action: ActionComment, Grant: GrantAssignedApprover},
	{Action: ActionComment, Grant: GrantRole, Roles: financeAdmins},

	{Action: ActionCreateVoucher, Grant: GrantRole, Roles: financeAdmins},
	{Action: ActionGenerateVoucherPDF, Grant: GrantRole, Roles: financeAdmins},
	{Action: ActionExportPayments, Grant: GrantRole, Roles: financeAdmins},
	{Action: ActionFinanceQueue, Grant: GrantRole, Roles: financeAdmins},
	{Action: ActionReviewQueue, Grant: GrantRole, Roles: []entity.Role{entity.RoleOwner, entity.RoleAdmin, entity.RoleManager}},

	{Action: ActionViewPolicies, Grant: GrantRole, Roles: everyone},
	{Action: ActionViewMembers, Grant: GrantRole, Roles: everyone},
	{Action: ActionManagePolicies, Grant: GrantRole, Roles: orgAdmins},
	{Action: ActionManageInvites, Grant: GrantRole, Roles: orgAdmins},
	{Action: ActionManageOrganization, Grant: GrantRole, Roles: orgAdmins},
}

func (r Rule) holds(s Subject) bool {
	switch r.Grant {
	case GrantCreator:
		return s.ActorID != "" && s.ActorID == s.CreatorID
	case GrantAssignedApprover:
		return s.ActorID != "" && s.ApproverID != "" && s.ActorID == s.ApproverID
	case GrantRole:
		for _, role := range r.Roles {
			if s.ActorRole == role {
				return true
			}
		}
	}
	return false
}

// Match returns the first rule granting action to s
func Match(action Action, s Subject) (Rule, bool) {
	for _, rule := range Rules {
		if rule.Action == action && rule.holds(s) {
			return rule, true
		}
	}
	return Rule{}, false
}

// Authorize returns errs.ErrForbidden unless some rule grants action to s
func Authorize(action Action, s Subject) error {
	if _, ok := Match(action, s); ok {
		return nil
	}
	return fmt.Errorf("%w: %s is not allowed for this user", errs.ErrForbidden, action)
}
