package models

import (
	"errors"
	"fmt"
)

// ValidationError reports a malformed or missing field.
type ValidationError struct {
	Field string `json:"field"`
	Msg   string `json:"message"`
}

func (e *ValidationError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Msg) }

// StateError reports an operation that the current lifecycle state does not allow.
type StateError struct {
	Op    string `json:"op"`
	State string `json:"state"`
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s not allowed in state %s", e.Op, e.State)
}

// ConflictError reports a uniqueness violation.
type ConflictError struct {
	What  string `json:"what"`
	Value string `json:"value"`
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already in use: %s", e.What, e.Value)
}

// NotFoundError reports a reference to an id that does not exist.
type NotFoundError struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func invalid(field, msg string) error { return &ValidationError{Field: field, Msg: msg} }

func notAllowed(op string, state fmt.Stringer) error {
	return &StateError{Op: op, State: state.String()}
}

// IsValidation reports whether err wraps a *ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsState reports whether err wraps a *StateError.
func IsState(err error) bool {
	var target *StateError
	return errors.As(err, &target)
}

// IsConflict reports whether err wraps a *ConflictError.
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// IsNotFound reports whether err wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}
