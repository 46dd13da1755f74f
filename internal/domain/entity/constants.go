package entity

// Expense status values persisted in expenses.status
const (
	ExpenseStatusDraft               = "draft"
	ExpenseStatusSubmitted           = "submitted"
	ExpenseStatusApproved            = "approved"
	ExpenseStatusManagerRejected     = "manager_rejected"
	ExpenseStatusFinanceApproved     = "finance_approved"
	ExpenseStatusFinanceRejected     = "finance_rejected"
	ExpenseStatusPaymentProcessed    = "payment_processed"
	ExpenseStatusPaymentNotProcessed = "payment_not_processed"
)

// Notification delivery status constants
const (
	NotificationStatusPending = "PENDING"
	NotificationStatusSent    = "SENT"
	NotificationStatusFailed  = "FAILED"
)

// Notification channels
const (
	ChannelEmail = "email"
	ChannelLark  = "lark"
	ChannelLog   = "log"
)
