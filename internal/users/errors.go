package users

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Violation is a single field-level validation failure
type Violation struct {
	Field   string
	Message string
}

func (v Violation) String() string {
	return v.Field + ": " + v.Message
}

// ValidationError collects every violation found in a request
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Messages(), "; "))
}

// Messages returns the violations formatted as "field: message"
func (e *ValidationError) Messages() []string {
	messages := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		messages = append(messages, v.String())
	}
	return messages
}

// HasField reports whether any violation concerns field
func (e *ValidationError) HasField(field string) bool {
	for _, v := range e.Violations {
		if v.Field == field {
			return true
		}
	}
	return false
}

// NewValidationError returns nil when there are no violations
func NewValidationError(violations []Violation) error {
	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}

// NotFoundError reports that no active user has the requested id
type NotFoundError struct {
	ID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Can't find user with id %s", e.ID)
}

// NewNotFoundError creates an error for a missing or soft-deleted user
func NewNotFoundError(id uuid.UUID) *NotFoundError {
	return &NotFoundError{ID: id}
}

// Conflict messages surfaced to clients
const (
	ConflictMessageEmail     = "Email must be unique, the provided email is already in use."
	ConflictMessageDuplicate = "Duplicate entry, data already exists."
)

// ConflictError reports a uniqueness violation detected at persistence time
type ConflictError struct {
	Constraint string
	Message    string
	Cause      error
}

func (e *ConflictError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("conflict on %s: %s (caused by: %v)", e.Constraint, e.Message, e.Cause)
	}
	return fmt.Sprintf("conflict on %s: %s", e.Constraint, e.Message)
}

func (e *ConflictError) Unwrap() error {
	return e.Cause
}

// NewConflictError picks the client message from the violated constraint
func NewConflictError(constraint string, cause error) *ConflictError {
	message := ConflictMessageDuplicate
	if constraint == EmailUniqueConstraint {
		message = ConflictMessageEmail
	}
	return &ConflictError{
		Constraint: constraint,
		Message:    message,
		Cause:      cause,
	}
}

// IsNotFound reports whether err is or wraps a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConflict reports whether err is or wraps a ConflictError
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsValidation reports whether err is or wraps a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
