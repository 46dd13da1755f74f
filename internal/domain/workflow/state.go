package workflow

// State is an expense status in the approval lifecycle
type State string

const (
	StateDraft               State = "draft"
	StateSubmitted           State = "submitted"
	StateApproved            State = "approved"
	StateManagerRejected     State = "manager_rejected"
	StateFinanceApproved     State = "finance_approved"
	StateFinanceRejected     State = "finance_rejected"
	StatePaymentProcessed    State = "payment_processed"
	StatePaymentNotProcessed State = "payment_not_processed"
)

var validStates = map[State]bool{
	StateDraft:               true,
	StateSubmitted:           true,
	StateApproved:            true,
	StateManagerRejected:     true,
	StateFinanceApproved:     true,
	StateFinanceRejected:     true,
	StatePaymentProcessed:    true,
	StatePaymentNotProcessed: true,
}

var terminalStates = map[State]bool{
	StatePaymentProcessed:    true,
	StatePaymentNotProcessed: true,
}

// IsTerminal returns true if no action may leave the state
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// IsRejected returns true for the states a creator may resubmit from
func (s State) IsRejected() bool {
	return s == StateManagerRejected || s == StateFinanceRejected
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known expense status
func (s State) IsValid() bool {
	return validStates[s]
}
