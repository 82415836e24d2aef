package domain

import "errors"

var (
	// ErrJobNotFound is returned when a job cannot be found in the store
	ErrJobNotFound = errors.New("job not found")

	// ErrTranslatorNotFound is returned when a translator profile cannot be found
	ErrTranslatorNotFound = errors.New("translator not found")

	// ErrCustomerNotFound is returned when a requester cannot be found
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrAssignmentExists is returned when a job already has an open assignment
	ErrAssignmentExists = errors.New("job already has an open assignment")

	// ErrAssignmentNotFound is returned when an assignment id does not exist
	ErrAssignmentNotFound = errors.New("assignment not found")

	// ErrUnknownStatus is returned for status strings outside the state machine
	ErrUnknownStatus = errors.New("unknown job status")

	// ErrUnknownRole is returned for unrecognized role strings
	ErrUnknownRole = errors.New("unknown role")

	// ErrInvalidEvent is returned when an event message cannot be handled
	ErrInvalidEvent = errors.New("invalid event")
)

// RetryableError wraps transient errors that should trigger a requeue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}
