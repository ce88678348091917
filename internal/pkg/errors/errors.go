package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConflict marks a write rejected by a uniqueness or state rule.
	ErrConflict = errors.New("conflict")
	// ErrNoActiveWindow is returned when no election window configuration is active.
	ErrNoActiveWindow = errors.New("no active election window")
	// ErrOutsideWindow is returned when an operation is attempted outside its window.
	ErrOutsideWindow = errors.New("outside election window")
)
