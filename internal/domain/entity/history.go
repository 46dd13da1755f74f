package entity

import "time"

// ExpenseHistory is one audited status change of an expense
type ExpenseHistory struct {
	ID             int64     `json:"id"`
	ExpenseID      int64     `json:"expense_id"`
	ActorID        string    `json:"actor_id"`
	Action         string    `json:"action"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	Note           string    `json:"note,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
