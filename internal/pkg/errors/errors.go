package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrSessionUnresolved is returned by gated operations invoked before
	// session resolution has completed.
	ErrSessionUnresolved = errors.New("session unresolved")
	// ErrStaleRequest marks a superseded in-flight request whose result was
	// discarded. Callers drop it silently.
	ErrStaleRequest = errors.New("stale request")
)
