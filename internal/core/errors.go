package core

import "errors"

// Sentinel errors classify every failure the services return. The HTTP layer
// maps them to status codes; everything else wraps them with %w.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrDependency   = errors.New("dependency unavailable")
)
