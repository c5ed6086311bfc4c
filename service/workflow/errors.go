package workflow

import (
	"errors"
	"fmt"

	"github.com/justy6674/comply/model"
)

// ErrMaxLevel indicates an escalation was requested on a request already at
// the highest approval level.
var ErrMaxLevel = errors.New("workflow: already at highest approval level")

// ValidationError rejects malformed content or a submission lacking required
// consent before it enters the workflow.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// ConflictError signals a concurrent claim or a stale-version transition
// attempt. The caller re-reads the request and retries explicitly; the
// engine never retries writes on its own.
type ConflictError struct {
	RequestID string
	Reason    string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on request %s: %s", e.RequestID, e.Reason)
}

// NotFoundError signals an unknown request or content id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// InvalidTransitionError signals an action attempted from a state that does
// not permit it; the request is left unchanged.
type InvalidTransitionError struct {
	RequestID string
	From      model.State
	Action    string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s request %s in state %s", e.Action, e.RequestID, e.From)
}

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict)
}

// IsInvalidTransition reports whether err is (or wraps) an
// InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var invalid *InvalidTransitionError
	return errors.As(err, &invalid)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var validation *ValidationError
	return errors.As(err, &validation)
}
