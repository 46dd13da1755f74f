package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/expense-reimbursement/internal/application/service"
	"github.com/garyjia/expense-reimbursement/internal/application/workflow"
	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
	"github.com/garyjia/expense-reimbursement/internal/domain/errs"
	"github.com/garyjia/expense-reimbursement/internal/domain/policy"
	domainwf "github.com/garyjia/expense-reimbursement/internal/domain/workflow"
)

const dateLayout = "2006-01-02"

// ExpenseRequest is the body of POST and PATCH /orgs/:slug/expenses
type ExpenseRequest struct {
	Amount      float64 `json:"amount"`
	ExpenseType string  `json:"expense_type" binding:"max=80"`
	IncurredOn  string  `json:"incurred_on"`
	Description string  `json:"description" binding:"max=2000"`
	ReceiptRef  string  `json:"receipt_ref" binding:"max=500"`
	EventRef    string  `json:"event_ref" binding:"max=200"`
	ApproverID  string  `json:"approver_id"`
	Submit      bool    `json:"submit"`
}

// ListExpensesQuery is the query of GET /orgs/:slug/expenses
type ListExpensesQuery struct {
	Status string `form:"status"`
	Queue  string `form:"queue"`
	Limit  int    `form:"limit" binding:"omitempty,gte=1,max=200"`
	Offset int    `form:"offset" binding:"omitempty,gte=0"`
}

// TransitionRequest is the body of POST /orgs/:slug/expenses/:id/transitions
type TransitionRequest struct {
	Action         string   `json:"action" binding:"required"`
	ApprovedAmount *float64 `json:"approved_amount"`
	Reason         string   `json:"reason" binding:"max=1000"`
}

// CommentRequest is the body of POST /orgs/:slug/expenses/:id/comments
type CommentRequest struct {
	Body string `json:"body" binding:"required"`
}

// TransitionResponse reports the committed transition
type TransitionResponse struct {
	Expense       *entity.Expense `json:"expense"`
	PolicyWarning *policy.Warning `json:"policy_warning,omitempty"`
	CustomAmount  bool            `json:"custom_amount"`
}

func (r ExpenseRequest) input() (service.ExpenseInput, error) {
	in := service.ExpenseInput{
		Amount:      r.Amount,
		ExpenseType: r.ExpenseType,
		Description: r.Description,
		ReceiptRef:  r.ReceiptRef,
		EventRef:    r.EventRef,
		ApproverID:  r.ApproverID,
	}
	if r.IncurredOn != "" {
		d, err := time.Parse(dateLayout, r.IncurredOn)
		if err != nil {
			return in, fmt.Errorf("%w: incurred_on must be YYYY-MM-DD", errs.ErrValidation)
		}
		in.IncurredOn = d
	}
	return in, nil
}

// CreateExpense handles POST /api/v1/orgs/:slug/expenses
func (h *Handlers) CreateExpense(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}

	var req ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	in, err := req.input()
	if err != nil {
		h.fail(c, err)
		return
	}

	view, err := h.deps.Services.Expense.Create(c.Request.Context(), sess, service.CreateExpenseInput{
		ExpenseInput: in,
		Submit:       req.Submit,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, view)
}

// ListExpenses handles GET /api/v1/orgs/:slug/expenses
func (h *Handlers) ListExpenses(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}

	var q ListExpensesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.badRequest(c, err)
		return
	}

	in := service.ListExpensesInput{Queue: q.Queue, Limit: q.Limit, Offset: q.Offset}
	for _, s := range strings.Split(q.Status, ",") {
		if s = strings.TrimSpace(s); s != "" {
			in.Statuses = append(in.Statuses, s)
		}
	}

	expenses, err := h.deps.Services.Expense.List(c.Request.Context(), sess, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, expenses)
}

// GetExpense handles GET /api/v1/orgs/:slug/expenses/:id
func (h *Handlers) GetExpense(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}

	view, err := h.deps.Services.Expense.Get(c.Request.Context(), sess, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, view)
}

// UpdateExpense handles PATCH /api/v1/orgs/:slug/expenses/:id
func (h *Handlers) UpdateExpense(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}

	var req ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	in, err := req.input()
	if err != nil {
		h.fail(c, err)
		return
	}

	view, err := h.deps.Services.Expense.Update(c.Request.Context(), sess, id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, view)
}

// TransitionExpense handles POST /api/v1/orgs/:slug/expenses/:id/transitions.
// The response is sent once the transition commits; notifications continue in the background.
func (h *Handlers) TransitionExpense(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	result, err := h.deps.Services.Expense.Transition(c.Request.Context(), sess, workflow.TransitionRequest{
		ExpenseID:      id,
		Action:         domainwf.Action(req.Action),
		ApprovedAmount: req.ApprovedAmount,
		Reason:         req.Reason,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	respond(c, http.StatusOK, TransitionResponse{
		Expense:       result.Expense,
		PolicyWarning: result.PolicyWarning,
		CustomAmount:  result.CustomAmount,
	})
}

// ExpenseHistory handles GET /api/v1/orgs/:slug/expenses/:id/history
func (h *Handlers) ExpenseHistory(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}

	history, err := h.deps.Services.Expense.History(c.Request.Context(), sess, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, history)
}

// ListComments handles GET /api/v1/orgs/:slug/expenses/:id/comments
func (h *Handlers) ListComments(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}

	comments, err := h.deps.Services.Comment.List(c.Request.Context(), sess, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, comments)
}

// AddComment handles POST /api/v1/orgs/:slug/expenses/:id/comments
func (h *Handlers) AddComment(c *gin.Context) {
	sess, ok := h.currentSession(c)
	if !ok {
		return
	}
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}

	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	result, err := h.deps.Services.Comment.Add(c.Request.Context(), sess, id, req.Body)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, result.Comment)
}
