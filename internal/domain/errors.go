package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound is returned when a job cannot be found in the store
	ErrJobNotFound = errors.New("job not found")

	// ErrUserNotFound is returned when a user id or email does not resolve
	ErrUserNotFound = errors.New("user not found")

	// ErrStatusChanged is returned by a store when a guarded write observes a
	// status other than the one the caller read
	ErrStatusChanged = errors.New("job status changed concurrently")

	// ErrActiveRelationExists is returned when opening a second active relation for a job
	ErrActiveRelationExists = errors.New("job already has an active translator")
)

// Message codes shared by errors, results and the message catalog
const (
	CodeFieldsRequired         = "fields_required"
	CodeNotCustomer            = "translator_cannot_create_booking"
	CodePastDueDate            = "past_due_date"
	CodeInvalidDueDate         = "invalid_due_date"
	CodeTranslatorBooked       = "translator_already_booked"
	CodeAlreadyAccepted        = "already_accepted"
	CodeAccepted               = "job_accepted"
	CodeCancelByPhone          = "cancel_by_phone"
	CodeCommentRequired        = "comment_required"
	CodeSessionTimeRequired    = "session_time_required"
	CodeTransitionNotAllowed   = "transition_not_allowed"
	CodeNotAssignedTranslator  = "not_assigned_translator"
	CodeNotCancellable         = "not_cancellable"
	CodeReopened               = "reopened"
	CodeReopenFailed           = "reopen_failed"
	CodeFlagCommentRequired    = "flag_comment_required"
	CodeAdminFieldsUpdated     = "admin_fields_updated"
	CodeNoActiveTranslator     = "no_active_translator"
	CodeNotificationsResent    = "notifications_resent"
	CodeSMSNotificationsResent = "sms_notifications_resent"
	CodeForbidden              = "forbidden"
	CodeJobChanged             = "job_changed"
)

// ValidationError reports a missing or invalid caller-supplied field
type ValidationError struct {
	Field string
	Code  string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Code
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Code)
}

// NewValidationError creates a ValidationError
func NewValidationError(field, code string) error {
	return &ValidationError{Field: field, Code: code}
}

// ConflictError reports a lost race or a scheduling clash. Args feed the
// localized message.
type ConflictError struct {
	Code string
	Args map[string]string
	Err  error
}

func (e *ConflictError) Error() string {
	if e.Err != nil {
		return "conflict: " + e.Code + ": " + e.Err.Error()
	}
	return "conflict: " + e.Code
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// NotFoundError reports an unresolved job or user id
type NotFoundError struct {
	Entity string
	ID     string
	Err    error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// IllegalTransitionError describes a status change rejected for the current
// state. The engine returns it inside a result, not as an error.
type IllegalTransitionError struct {
	From Status
	To   Status
	Code string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("transition %s -> %s rejected: %s", e.From, e.To, e.Code)
}

// DependencyError wraps a store or gateway failure
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return "failed to " + e.Op + ": " + e.Err.Error()
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

// NewDependencyError wraps err unless it already carries a more specific kind
func NewDependencyError(op string, err error) error {
	var (
		nf *NotFoundError
		cf *ConflictError
		ve *ValidationError
	)
	if errors.As(err, &nf) || errors.As(err, &cf) || errors.As(err, &ve) {
		return err
	}
	return &DependencyError{Op: op, Err: err}
}
