package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/expense-reimbursement/internal/application/port"
	"github.com/garyjia/expense-reimbursement/internal/application/session"
	"github.com/garyjia/expense-reimbursement/internal/application/workflow"
	"github.com/garyjia/expense-reimbursement/internal/domain/authz"
	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
	"github.com/garyjia/expense-reimbursement/internal/domain/errs"
	"github.com/garyjia/expense-reimbursement/internal/domain/policy"
	domainwf "github.com/garyjia/expense-reimbursement/internal/domain/workflow"
	"github.com/garyjia/expense-reimbursement/pkg/utils"
)

// Expense list queues
const (
	QueueAll      = ""
	QueueMine     = "mine"
	QueueToReview = "to_review"
	QueueFinance  = "finance"
)

const maxDescriptionLength = 2000

// ExpenseInput carries the creator-editable fields of an expense
type ExpenseInput struct {
	Amount      float64
	ExpenseType string
	IncurredOn  time.Time
	Description string
	ReceiptRef  string
	EventRef    string
	ApproverID  string
}

// CreateExpenseInput creates a draft, optionally submitting it straight away
type CreateExpenseInput struct {
	ExpenseInput
	Submit bool
}

// ListExpensesInput selects a queue and optional status filter
type ListExpensesInput struct {
	Queue    string
	Statuses []string
	Limit    int
	Offset   int
}

// ExpenseView is an expense as presented to one actor
type ExpenseView struct {
	Expense          *entity.Expense   `json:"expense"`
	PolicyWarning    *policy.Warning   `json:"policy_warning,omitempty"`
	AvailableActions []domainwf.Action `json:"available_actions"`
	Voucher          *entity.Voucher   `json:"voucher,omitempty"`
}

// ExpenseService manages expenses and routes status changes through the workflow engine
type ExpenseService interface {
	Create(ctx context.Context, sess *session.Session, in CreateExpenseInput) (*ExpenseView, error)
	Update(ctx context.Context, sess *session.Session, id int64, in ExpenseInput) (*ExpenseView, error)
	Get(ctx context.Context, sess *session.Session, id int64) (*ExpenseView, error)
	List(ctx context.Context, sess *session.Session, in ListExpensesInput) ([]*entity.Expense, error)
	Transition(ctx context.Context, sess *session.Session, req workflow.TransitionRequest) (*workflow.TransitionResult, error)
	History(ctx context.Context, sess *session.Session, id int64) ([]*entity.ExpenseHistory, error)
}

type expenseServiceImpl struct {
	expenseRepo    port.ExpenseRepository
	historyRepo    port.HistoryRepository
	policyRepo     port.PolicyRepository
	membershipRepo port.MembershipRepository
	voucherRepo    port.VoucherRepository
	engine         workflow.Engine
	logger         Logger
}

// NewExpenseService creates a new ExpenseService
func NewExpenseService(
	expenseRepo port.ExpenseRepository,
	historyRepo port.HistoryRepository,
	policyRepo port.PolicyRepository,
	membershipRepo port.MembershipRepository,
	voucherRepo port.VoucherRepository,
	engine workflow.Engine,
	logger Logger,
) ExpenseService {
	return &expenseServiceImpl{
		expenseRepo:    expenseRepo,
		historyRepo:    historyRepo,
		policyRepo:     policyRepo,
		membershipRepo: membershipRepo,
		voucherRepo:    voucherRepo,
		engine:         engine,
		logger:         orNop(logger),
	}
}

// Create stores a draft expense for the caller and submits it when asked to
func (s *expenseServiceImpl) Create(ctx context.Context, sess *session.Session, in CreateExpenseInput) (*ExpenseView, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}

	expense := &entity.Expense{
		OrganizationID: sess.OrganizationID(),
		CreatorID:      sess.UserID(),
		Status:         entity.ExpenseStatusDraft,
	}
	if err := s.apply(ctx, sess, expense, in.ExpenseInput); err != nil {
		return nil, err
	}

	if err := s.expenseRepo.Create(ctx, expense); err != nil {
		return nil, err
	}
	s.logger.Info("Expense created",
		"expense_id", expense.ID,
		"organization_id", expense.OrganizationID,
		"creator_id", expense.CreatorID,
		"amount", expense.Amount)

	if !in.Submit {
		return s.view(ctx, sess, expense), nil
	}

	result, err := s.engine.Transition(ctx, sess, workflow.TransitionRequest{
		ExpenseID: expense.ID,
		Action:    domainwf.ActionSubmit,
	})
	if err != nil {
		return nil, fmt.Errorf("expense %d saved as draft but not submitted: %w", expense.ID, err)
	}
	return s.view(ctx, sess, result.Expense), nil
}

// Update rewrites an expense the creator may still edit
func (s *expenseServiceImpl) Update(ctx context.Context, sess *session.Session, id int64, in ExpenseInput) (*ExpenseView, error) {
	expense, err := s.load(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeExpense(sess, authz.ActionEditExpense, expense); err != nil {
		return nil, err
	}
	if !expense.IsEditable() {
		return nil, fmt.Errorf("%w: expense in status %s can no longer be edited", errs.ErrInvalidTransition, expense.Status)
	}

	expectedStatus := expense.Status
	if err := s.apply(ctx, sess, expense, in); err != nil {
		return nil, err
	}
	if err := s.expenseRepo.UpdateDetails(ctx, expense, expectedStatus); err != nil {
		if errors.Is(err, errs.ErrConflict) {
			return nil, fmt.Errorf("%w: expense changed while you were editing it, refresh and retry", err)
		}
		return nil, err
	}

	s.logger.Info("Expense updated", "expense_id", expense.ID, "actor_id", sess.UserID())
	return s.view(ctx, sess, expense), nil
}

// Get returns one expense with its policy warning and the caller's available actions
func (s *expenseServiceImpl) Get(ctx context.Context, sess *session.Session, id int64) (*ExpenseView, error) {
	expense, err := s.load(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeExpense(sess, authz.ActionViewExpense, expense); err != nil {
		return nil, err
	}

	view := s.view(ctx, sess, expense)
	if s.voucherRepo != nil {
		voucher, err := s.voucherRepo.GetByExpenseID(ctx, expense.ID)
		switch {
		case err == nil:
			view.Voucher = voucher
		case !errors.Is(err, errs.ErrNotFound):
			return nil, err
		}
	}
	return view, nil
}

// List returns the expenses of one queue. Without a queue, finance and admins see the
// whole organization and everyone else sees their own.
func (s *expenseServiceImpl) List(ctx context.Context, sess *session.Session, in ListExpensesInput) ([]*entity.Expense, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}

	for _, st := range in.Statuses {
		if !domainwf.State(st).IsValid() {
			return nil, validationError("unknown status %q", st)
		}
	}

	filter := entity.ExpenseFilter{
		OrganizationID: sess.OrganizationID(),
		Statuses:       in.Statuses,
		Limit:          in.Limit,
		Offset:         in.Offset,
	}

	switch in.Queue {
	case QueueMine:
		filter.CreatorID = sess.UserID()

	case QueueToReview:
		if err := authorize(sess, authz.ActionReviewQueue); err != nil {
			return nil, err
		}
		filter.Statuses = []string{entity.ExpenseStatusSubmitted}
		if !sess.Role.IsOrgAdmin() {
			filter.ApproverID = sess.UserID()
		}

	case QueueFinance:
		if err := authorize(sess, authz.ActionFinanceQueue); err != nil {
			return nil, err
		}
		if len(filter.Statuses) == 0 {
			filter.Statuses = []string{entity.ExpenseStatusApproved, entity.ExpenseStatusFinanceApproved}
		}

	case QueueAll:
		if authorize(sess, authz.ActionFinanceQueue) != nil {
			filter.CreatorID = sess.UserID()
		}

	default:
		return nil, validationError("unknown queue %q", in.Queue)
	}

	return s.expenseRepo.List(ctx, filter)
}

// Transition applies a workflow action
func (s *expenseServiceImpl) Transition(ctx context.Context, sess *session.Session, req workflow.TransitionRequest) (*workflow.TransitionResult, error) {
	return s.engine.Transition(ctx, sess, req)
}

// History returns the audited status changes of an expense
func (s *expenseServiceImpl) History(ctx context.Context, sess *session.Session, id int64) ([]*entity.ExpenseHistory, error) {
	expense, err := s.load(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeExpense(sess, authz.ActionViewExpense, expense); err != nil {
		return nil, err
	}
	return s.historyRepo.ListByExpense(ctx, expense.ID)
}

func (s *expenseServiceImpl) load(ctx context.Context, sess *session.Session, id int64) (*entity.Expense, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	return s.expenseRepo.GetByID(ctx, sess.OrganizationID(), id)
}

// apply validates in and copies it onto expense
func (s *expenseServiceImpl) apply(ctx context.Context, sess *session.Session, expense *entity.Expense, in ExpenseInput) error {
	if err := utils.ValidateAmount(in.Amount); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	expenseType := clean(in.ExpenseType)
	if expenseType == "" {
		return validationError("expense type is required")
	}
	if in.IncurredOn.IsZero() {
		return validationError("expense date is required")
	}
	description := clean(in.Description)
	if len(description) > maxDescriptionLength {
		return validationError("description must be at most %d characters", maxDescriptionLength)
	}

	approverID := clean(in.ApproverID)
	if approverID != "" && approverID != expense.ApproverID {
		if err := s.checkApprover(ctx, sess, approverID); err != nil {
			return err
		}
	}

	expense.Amount = in.Amount
	expense.ExpenseType = expenseType
	expense.IncurredOn = in.IncurredOn.UTC()
	expense.Description = description
	expense.ReceiptRef = clean(in.ReceiptRef)
	expense.EventRef = clean(in.EventRef)
	if approverID != "" {
		expense.ApproverID = approverID
	}
	return nil
}

// checkApprover requires a reviewing member other than the creator
func (s *expenseServiceImpl) checkApprover(ctx context.Context, sess *session.Session, approverID string) error {
	if approverID == sess.UserID() {
		return validationError("you cannot approve your own expense")
	}
	role, err := s.membershipRepo.GetRole(ctx, sess.OrganizationID(), approverID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return validationError("approver is not a member of this organization")
		}
		return err
	}
	if _, ok := authz.Match(authz.ActionReviewQueue, authz.Subject{ActorID: approverID, ActorRole: role}); !ok {
		return validationError("approver must be a manager, admin or owner")
	}
	return nil
}

// view attaches the advisory policy warning and the caller's actions
func (s *expenseServiceImpl) view(ctx context.Context, sess *session.Session, expense *entity.Expense) *ExpenseView {
	view := &ExpenseView{
		Expense:          expense,
		AvailableActions: s.engine.AvailableActions(sess, expense),
	}
	if s.policyRepo == nil {
		return view
	}

	policies, err := s.policyRepo.ListByOrganization(ctx, expense.OrganizationID)
	if err != nil {
		s.logger.Error("Failed to load policies for warning", "expense_id", expense.ID, "error", err)
		return view
	}
	view.PolicyWarning = policy.EvaluateExpense(expense, policies)
	return view
}
