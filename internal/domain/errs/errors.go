// Package errs defines the error taxonomy shared by every layer.
// Callers wrap these sentinels with fmt.Errorf("%w: ...") and match with errors.Is.
package errs

import "errors"

var (
	// ErrNotFound is returned when an entity does not exist in the caller's organization
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the actor lacks the role or ownership for an action
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidTransition is returned when an action is illegal from the current status
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrValidation is returned when a required field is missing or malformed
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned when a compare-and-set guard trips on a concurrent write
	ErrConflict = errors.New("conflict")

	// ErrDuplicate is returned when a uniqueness rule would be violated
	ErrDuplicate = errors.New("duplicate")

	// ErrLimitExceeded is returned when a usage cap has been reached
	ErrLimitExceeded = errors.New("limit exceeded")

	// ErrExternalService marks failures of notification, document or storage collaborators.
	// It never aborts a state transition.
	ErrExternalService = errors.New("external service error")

	// ErrUnauthenticated is returned when no verified identity is present
	ErrUnauthenticated = errors.New("unauthenticated")
)

// IsClientError reports whether err belongs to the taxonomy that surfaces to the caller
// with a user-renderable message.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrNotFound, ErrForbidden, ErrInvalidTransition, ErrValidation,
		ErrConflict, ErrDuplicate, ErrLimitExceeded, ErrUnauthenticated,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
