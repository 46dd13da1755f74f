package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/expense-reimbursement/internal/application/dispatcher"
	"github.com/garyjia/expense-reimbursement/internal/application/port"
	"github.com/garyjia/expense-reimbursement/internal/application/session"
	"github.com/garyjia/expense-reimbursement/internal/domain/authz"
	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
	"github.com/garyjia/expense-reimbursement/internal/domain/errs"
	"github.com/garyjia/expense-reimbursement/internal/domain/event"
	"github.com/garyjia/expense-reimbursement/internal/domain/policy"
	domainwf "github.com/garyjia/expense-reimbursement/internal/domain/workflow"
)

// engineImpl is the concrete implementation of Engine. It keeps no per-expense
// state: every call rebuilds the machine from the status it just read.
type engineImpl struct {
	expenseRepo port.ExpenseRepository
	historyRepo port.HistoryRepository
	policyRepo  port.PolicyRepository
	txManager   port.TransactionManager
	dispatcher  dispatcher.Dispatcher
	metrics     port.Metrics
	logger      Logger
	now         func() time.Time
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for side effects
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithMetrics records transition outcomes
func WithMetrics(m port.Metrics) EngineOption {
	return func(e *engineImpl) {
		e.metrics = m
	}
}

// WithLogger sets the engine logger
func WithLogger(l Logger) EngineOption {
	return func(e *engineImpl) {
		e.logger = l
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// NewEngine creates a new workflow engine
func NewEngine(
	expenseRepo port.ExpenseRepository,
	historyRepo port.HistoryRepository,
	policyRepo port.PolicyRepository,
	txManager port.TransactionManager,
	opts ...EngineOption,
) Engine {
	e := &engineImpl{
		expenseRepo: expenseRepo,
		historyRepo: historyRepo,
		policyRepo:  policyRepo,
		txManager:   txManager,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *engineImpl) Transition(ctx context.Context, sess *session.Session, req TransitionRequest) (*TransitionResult, error) {
	start := e.now()
	result, err := e.transition(ctx, sess, req)
	if e.metrics != nil {
		e.metrics.ObserveTransition(req.Action.String(), outcome(err), e.now().Sub(start))
	}
	return result, err
}

func (e *engineImpl) transition(ctx context.Context, sess *session.Session, req TransitionRequest) (*TransitionResult, error) {
	if sess == nil || sess.Identity == nil {
		return nil, fmt.Errorf("%w: no actor for transition", errs.ErrUnauthenticated)
	}
	if !req.Action.IsValid() {
		return nil, fmt.Errorf("%w: unknown action %q", errs.ErrValidation, req.Action)
	}

	expense, err := e.expenseRepo.GetByID(ctx, sess.OrganizationID(), req.ExpenseID)
	if err != nil {
		return nil, err
	}

	if err := authz.Authorize(authz.ForTransition(req.Action), subjectFor(sess, expense)); err != nil {
		return nil, err
	}

	previous := domainwf.State(expense.Status)
	if !previous.IsValid() {
		return nil, fmt.Errorf("%w: expense %d has unknown status %q", domainwf.ErrInvalidState, expense.ID, expense.Status)
	}
	target, err := BuildExpenseStateMachine(previous).Target(ctx, req.Action)
	if err != nil {
		return nil, err
	}

	update, custom, err := buildUpdate(sess, expense, req, target)
	if err != nil {
		return nil, err
	}

	var updated *entity.Expense
	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		updated, err = e.expenseRepo.UpdateStatus(txCtx, expense.ID, expense.Status, update)
		if err != nil {
			return err
		}

		history := &entity.ExpenseHistory{
			ExpenseID:      expense.ID,
			ActorID:        sess.UserID(),
			Action:         req.Action.String(),
			PreviousStatus: previous.String(),
			NewStatus:      target.String(),
			Note:           historyNote(req, custom),
			CreatedAt:      e.now().UTC(),
		}
		if err := e.historyRepo.Create(txCtx, history); err != nil {
			return fmt.Errorf("failed to create history record: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errs.ErrConflict) {
			return nil, fmt.Errorf("%w: expense %d changed while you were acting on it, refresh and retry", err, expense.ID)
		}
		return nil, err
	}

	e.info("Expense transitioned",
		"expense_id", expense.ID,
		"action", req.Action.String(),
		"from", previous.String(),
		"to", target.String(),
		"actor_id", sess.UserID(),
	)

	result := &TransitionResult{
		Expense:      updated,
		CustomAmount: custom,
	}
	if warnsOnPolicy(req.Action) {
		result.PolicyWarning = e.policyWarning(ctx, updated)
	}

	if e.dispatcher != nil {
		evt := event.NewEvent(event.TypeExpenseTransitioned, updated.OrganizationID, updated.ID, sess.UserID(), map[string]interface{}{
			event.KeyAction:         req.Action.String(),
			event.KeyPreviousStatus: previous.String(),
			event.KeyNewStatus:      target.String(),
			event.KeyActorRole:      sess.Role.String(),
			event.KeyCustomAmount:   custom,
			event.KeyReason:         strings.TrimSpace(req.Reason),
		})
		if updated.ApprovedAmount != nil {
			evt = evt.WithPayload(event.KeyApprovedAmount, *updated.ApprovedAmount)
		}
		result.SideEffects = e.dispatcher.DispatchAsync(ctx, evt)
	}

	return result, nil
}

// buildUpdate validates the action payload and derives the columns to write
func buildUpdate(sess *session.Session, expense *entity.Expense, req TransitionRequest, target domainwf.State) (entity.ExpenseUpdate, bool, error) {
	update := entity.ExpenseUpdate{Status: target.String()}
	custom := false

	switch {
	case req.Action.IsRejection():
		reason := strings.TrimSpace(req.Reason)
		if reason == "" {
			return update, false, fmt.Errorf("%w: rejection reason required", errs.ErrValidation)
		}
		update.RejectionReason = &reason

	case req.Action.IsApproval():
		if req.ApprovedAmount != nil {
			if *req.ApprovedAmount <= 0 {
				return update, false, fmt.Errorf("%w: approved amount must be positive", errs.ErrValidation)
			}
			amount := *req.ApprovedAmount
			update.ApprovedAmount = &amount
			custom = !entity.SameAmount(amount, expense.Amount)
		}

	case req.Action == domainwf.ActionResubmit:
		empty := ""
		update.RejectionReason = &empty
		update.ClearApproved = true
	}

	if req.Action.Stage() == domainwf.StageManager && !expense.HasApprover() {
		actor := sess.UserID()
		update.ApproverID = &actor
	}

	return update, custom, nil
}

func historyNote(req TransitionRequest, custom bool) string {
	switch {
	case req.Action.IsRejection():
		return strings.TrimSpace(req.Reason)
	case custom:
		return fmt.Sprintf("approved amount %s", policy.FormatAmount(*req.ApprovedAmount))
	}
	return ""
}

func warnsOnPolicy(a domainwf.Action) bool {
	switch a {
	case domainwf.ActionSubmit, domainwf.ActionResubmit, domainwf.ActionManagerApprove, domainwf.ActionManagerReject:
		return true
	}
	return false
}

// policyWarning is advisory; a lookup failure only loses the warning
func (e *engineImpl) policyWarning(ctx context.Context, expense *entity.Expense) *policy.Warning {
	if e.policyRepo == nil {
		return nil
	}
	policies, err := e.policyRepo.ListByOrganization(ctx, expense.OrganizationID)
	if err != nil {
		e.error("Failed to load policies for warning", "expense_id", expense.ID, "error", err)
		return nil
	}
	return policy.EvaluateExpense(expense, policies)
}

func (e *engineImpl) AvailableActions(sess *session.Session, expense *entity.Expense) []domainwf.Action {
	if sess == nil || expense == nil {
		return nil
	}
	machine := BuildExpenseStateMachine(domainwf.State(expense.Status))
	subject := subjectFor(sess, expense)

	var actions []domainwf.Action
	for _, a := range machine.PermittedActions() {
		if authz.Authorize(authz.ForTransition(a), subject) == nil {
			actions = append(actions, a)
		}
	}
	return actions
}

func subjectFor(sess *session.Session, expense *entity.Expense) authz.Subject {
	return authz.Subject{
		ActorID:    sess.UserID(),
		ActorRole:  sess.Role,
		CreatorID:  expense.CreatorID,
		ApproverID: expense.ApproverID,
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errs.ErrNotFound):
		return "not_found"
	case errors.Is(err, errs.ErrForbidden):
		return "forbidden"
	case errors.Is(err, errs.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, errs.ErrValidation):
		return "validation"
	case errors.Is(err, errs.ErrConflict):
		return "conflict"
	}
	return "error"
}

func (e *engineImpl) info(msg string, kv ...interface{}) {
	if e.logger != nil {
		e.logger.Info(msg, kv...)
	}
}

func (e *engineImpl) error(msg string, kv ...interface{}) {
	if e.logger != nil {
		e.logger.Error(msg, kv...)
	}
}
