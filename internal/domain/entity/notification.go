package entity

import "time"

// NotificationRecord is the delivery log of one message to one recipient
type NotificationRecord struct {
	ID             int64      `json:"id"`
	OrganizationID int64      `json:"organization_id"`
	ExpenseID      int64      `json:"expense_id"`
	RecipientEmail string     `json:"recipient_email"`
	Kind           string     `json:"kind"`
	Subject        string     `json:"subject"`
	Body           string     `json:"body"`
	Channel        string     `json:"channel"`
	Status         string     `json:"status"`
	Attempts       int        `json:"attempts"`
	LastError      string     `json:"last_error,omitempty"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
