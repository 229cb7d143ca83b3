// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError is a caller mistake caught before any optimistic mutation
// (malformed date, unknown campaign type, missing title). Never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidation builds a ValidationError for a field.
func NewValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError marks expected absence: a command or request referenced an
// id that does not exist. Distinct from TransientIOError so callers never
// confuse "no such row" with "the store is down".
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func NewEventNotFound(id string) error {
	return &NotFoundError{Kind: "event", ID: id}
}

func NewClientNotFound(id string) error {
	return &NotFoundError{Kind: "client", ID: id}
}

func NewGoalNotFound(clientID string, year, month int) error {
	return &NotFoundError{Kind: "goal", ID: fmt.Sprintf("%s/%d-%02d", clientID, year, month)}
}

// TransientIOError is an unexpected failure talking to the remote store or
// the assistant. Surfaced once, never auto-retried for single writes.
type TransientIOError struct {
	Op  string
	Err error
}

func (e *TransientIOError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *TransientIOError) Unwrap() error { return e.Err }

func NewTransientIO(op string, err error) error {
	return &TransientIOError{Op: op, Err: err}
}

// PartialBulkFailure reports the ids whose deletes did not confirm during a
// bulk operation. Local state keeps the removal intent; the mismatch is
// surfaced instead of guessed at.
type PartialBulkFailure struct {
	FailedIDs []string
}

func (e *PartialBulkFailure) Error() string {
	return fmt.Sprintf("bulk delete incomplete, unconfirmed ids: %s", strings.Join(e.FailedIDs, ", "))
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
