package room

import (
	"errors"
	"fmt"
)

var (
	ErrNotAllowed    = errors.New("operation not allowed for this role")
	ErrGameCompleted = errors.New("game already completed")
	ErrUnknownPath   = errors.New("unknown field path")
)

// ValidationError reports bad user input at an entry point.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Message
}

// DuplicateNameError reports a guest name that is already registered in
// the locally loaded document.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("guest name %q is already taken", e.Name)
}

// MalformedStateError reports a persisted document that could not be
// deserialized at all.
type MalformedStateError struct {
	Err error
}

func (e *MalformedStateError) Error() string {
	return "malformed room document: " + e.Err.Error()
}

func (e *MalformedStateError) Unwrap() error {
	return e.Err
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
