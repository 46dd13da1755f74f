package workflow

import "context"

// StateMachine tracks the current state of one expense and validates actions against it
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if any edge is configured for action from the current state
	CanFire(action Action) bool

	// Target resolves the destination of action without moving the machine
	Target(ctx context.Context, action Action) (State, error)

	// Fire moves the machine along the edge selected by action
	Fire(ctx context.Context, action Action) error

	// PermittedActions lists actions configured for the current state, sorted
	PermittedActions() []Action

	// Edges lists every configured edge of the machine
	Edges() []Edge
}
