package workflow

import (
	domainwf "github.com/garyjia/expense-reimbursement/internal/domain/workflow"
)

// BuildExpenseStateMachine creates a machine for the expense approval lifecycle positioned at initialState
func BuildExpenseStateMachine(initialState domainwf.State) domainwf.StateMachine {
	builder := domainwf.NewBuilder()

	builder.Configure(domainwf.StateDraft).
		Permit(domainwf.ActionSubmit, domainwf.StateSubmitted)

	// Manager review
	builder.Configure(domainwf.StateSubmitted).
		Permit(domainwf.ActionManagerApprove, domainwf.StateApproved).
		Permit(domainwf.ActionManagerReject, domainwf.StateManagerRejected)

	// Finance review
	builder.Configure(domainwf.StateApproved).
		Permit(domainwf.ActionFinanceApprove, domainwf.StateFinanceApproved).
		Permit(domainwf.ActionFinanceReject, domainwf.StateFinanceRejected)

	// Payment
	builder.Configure(domainwf.StateFinanceApproved).
		Permit(domainwf.ActionMarkPaid, domainwf.StatePaymentProcessed).
		Permit(domainwf.ActionMarkNotPaid, domainwf.StatePaymentNotProcessed)

	// Rejected expenses go back to the manager once the creator resubmits
	builder.Configure(domainwf.StateManagerRejected).
		Permit(domainwf.ActionResubmit, domainwf.StateSubmitted)
	builder.Configure(domainwf.StateFinanceRejected).
		Permit(domainwf.ActionResubmit, domainwf.StateSubmitted)

	// PAYMENT_PROCESSED and PAYMENT_NOT_PROCESSED are terminal

	return builder.Build(initialState)
}
