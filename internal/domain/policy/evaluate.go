// Package policy evaluates expenses against organization spending limits.
package policy

import (
	"fmt"

	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
)

// Warning is advisory decision support shown to reviewers. It never blocks a transition.
type Warning struct {
	ExpenseType string  `json:"expense_type"`
	Amount      float64 `json:"amount"`
	Limit       float64 `json:"limit"`
	Excess      float64 `json:"excess"`
	Eligibility string  `json:"eligibility,omitempty"`
	Message     string  `json:"message"`
}

// Evaluate finds the policy for expenseType (exact, case-sensitive) and reports a
// warning when amount exceeds its upper limit. The result depends only on its inputs.
func Evaluate(expenseType string, amount float64, policies []*entity.Policy) *Warning {
	p := find(expenseType, policies)
	if p == nil || p.UpperLimit == nil {
		return nil
	}

	limit := *p.UpperLimit
	if amount <= limit {
		return nil
	}

	return &Warning{
		ExpenseType: expenseType,
		Amount:      amount,
		Limit:       limit,
		Excess:      amount - limit,
		Eligibility: p.Eligibility,
		Message: fmt.Sprintf("%s expense of %s exceeds the policy limit of %s by %s",
			expenseType, FormatAmount(amount), FormatAmount(limit), FormatAmount(amount-limit)),
	}
}

// EvaluateExpense is Evaluate over an expense's requested amount
func EvaluateExpense(e *entity.Expense, policies []*entity.Policy) *Warning {
	if e == nil {
		return nil
	}
	return Evaluate(e.ExpenseType, e.Amount, policies)
}

func find(expenseType string, policies []*entity.Policy) *entity.Policy {
	for _, p := range policies {
		if p != nil && p.ExpenseType == expenseType {
			return p
		}
	}
	return nil
}

// FormatAmount renders an amount without trailing zero cents
func FormatAmount(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
