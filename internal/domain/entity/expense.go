package entity

import (
	"math"
	"time"
)

// Expense is a reimbursement request moving through the approval workflow
type Expense struct {
	ID              int64     `json:"id"`
	OrganizationID  int64     `json:"organization_id"`
	CreatorID       string    `json:"creator_id"`
	ApproverID      string    `json:"approver_id,omitempty"`
	Amount          float64   `json:"amount"`
	ExpenseType     string    `json:"expense_type"`
	IncurredOn      time.Time `json:"incurred_on"`
	Description     string    `json:"description"`
	ReceiptRef      string    `json:"receipt_ref,omitempty"`
	EventRef        string    `json:"event_ref,omitempty"`
	Status          string    `json:"status"`
	ApprovedAmount  *float64  `json:"approved_amount,omitempty"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// HasApprover returns true when a manager has been assigned
func (e *Expense) HasApprover() bool {
	return e.ApproverID != ""
}

// PayableAmount is the approved amount when one was set, otherwise the requested amount
func (e *Expense) PayableAmount() float64 {
	if e.ApprovedAmount != nil {
		return *e.ApprovedAmount
	}
	return e.Amount
}

// IsEditable returns true while the creator may still change the request
func (e *Expense) IsEditable() bool {
	switch e.Status {
	case ExpenseStatusDraft, ExpenseStatusManagerRejected, ExpenseStatusFinanceRejected:
		return true
	}
	return false
}

// SameAmount compares two monetary amounts at cent precision
func SameAmount(a, b float64) bool {
	return math.Round(a*100) == math.Round(b*100)
}

// ExpenseUpdate carries the fields written by a status transition.
// Nil pointers leave the column unchanged.
type ExpenseUpdate struct {
	Status          string
	ApproverID      *string
	ApprovedAmount  *float64
	ClearApproved   bool
	RejectionReason *string
}

// ExpenseFilter narrows expense listings
type ExpenseFilter struct {
	OrganizationID int64
	Statuses       []string
	CreatorID      string
	ApproverID     string
	Limit          int
	Offset         int
}

// Comment is a free-text note on an expense
type Comment struct {
	ID        int64     `json:"id"`
	ExpenseID int64     `json:"expense_id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
