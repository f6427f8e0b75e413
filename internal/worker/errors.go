package worker

import "errors"

// ErrInvalidEnvelope is returned when an envelope cannot be delivered as
// written, for example an SMS without a phone number
var ErrInvalidEnvelope = errors.New("invalid notification envelope")

// ErrRequeuesExhausted is returned when a narrowed broadcast fails again
// after its last requeue
var ErrRequeuesExhausted = errors.New("broadcast requeues exhausted")

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
