package workflow

import (
	"context"

	"github.com/garyjia/expense-reimbursement/internal/application/dispatcher"
	"github.com/garyjia/expense-reimbursement/internal/application/session"
	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
	"github.com/garyjia/expense-reimbursement/internal/domain/policy"
	domainwf "github.com/garyjia/expense-reimbursement/internal/domain/workflow"
)

// TransitionRequest asks the engine to apply one action to an expense
type TransitionRequest struct {
	ExpenseID      int64
	Action         domainwf.Action
	ApprovedAmount *float64
	Reason         string
}

// TransitionResult is the committed outcome of a transition.
// SideEffects reports notification and voucher work separately from the transition itself.
type TransitionResult struct {
	Expense       *entity.Expense
	PolicyWarning *policy.Warning
	CustomAmount  bool
	SideEffects   *dispatcher.Receipt
}

// Engine runs the expense approval workflow
type Engine interface {
	// Transition validates and applies an action on behalf of the session's actor
	Transition(ctx context.Context, sess *session.Session, req TransitionRequest) (*TransitionResult, error)

	// AvailableActions lists the actions the session's actor may take on the expense right now
	AvailableActions(sess *session.Session, expense *entity.Expense) []domainwf.Action
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}
