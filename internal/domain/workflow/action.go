package workflow

// Action is a user intent that may move an expense to another state
type Action string

const (
	ActionSubmit         Action = "submit"
	ActionResubmit       Action = "resubmit"
	ActionManagerApprove Action = "manager_approve"
	ActionManagerReject  Action = "manager_reject"
	ActionFinanceApprove Action = "finance_approve"
	ActionFinanceReject  Action = "finance_reject"
	ActionMarkPaid       Action = "mark_paid"
	ActionMarkNotPaid    Action = "mark_not_paid"
)

// Stage groups actions by who decides
type Stage string

const (
	StageSubmission Stage = "submission"
	StageManager    Stage = "manager"
	StageFinance    Stage = "finance"
	StagePayment    Stage = "payment"
)

var actionStages = map[Action]Stage{
	ActionSubmit:         StageSubmission,
	ActionResubmit:       StageSubmission,
	ActionManagerApprove: StageManager,
	ActionManagerReject:  StageManager,
	ActionFinanceApprove: StageFinance,
	ActionFinanceReject:  StageFinance,
	ActionMarkPaid:       StagePayment,
	ActionMarkNotPaid:    StagePayment,
}

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}

// IsValid returns true if the action is known
func (a Action) IsValid() bool {
	_, ok := actionStages[a]
	return ok
}

// Stage returns the decision stage the action belongs to
func (a Action) Stage() Stage {
	return actionStages[a]
}

// IsApproval returns true for actions that may carry an approved amount
func (a Action) IsApproval() bool {
	return a == ActionManagerApprove || a == ActionFinanceApprove
}

// IsRejection returns true for actions that require a reason
func (a Action) IsRejection() bool {
	return a == ActionManagerReject || a == ActionFinanceReject || a == ActionMarkNotPaid
}

// IsPositive returns true when the action moves the expense forward rather than back
func (a Action) IsPositive() bool {
	return !a.IsRejection()
}
