package workflow

import (
	"errors"

	"github.com/garyjia/expense-reimbursement/internal/domain/errs"
)

var (
	// ErrInvalidTransition is returned when an action is not allowed from the current state
	ErrInvalidTransition = errs.ErrInvalidTransition

	// ErrInvalidState is returned when a state is not valid
	ErrInvalidState = errors.New("invalid state")

	// ErrGuardFailed is returned when every candidate transition was vetoed by its guard
	ErrGuardFailed = errors.New("guard condition failed")
)
