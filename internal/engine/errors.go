package engine

import "errors"

// Failure kinds callers match with errors.Is to pick a status code.
// ErrNotFound covers both absent tasks and tasks outside the actor's
// visibility, so unauthorized callers cannot probe for existence.
var (
	ErrNotFound   = errors.New("task not found")
	ErrConflict   = errors.New("task is not in the required state")
	ErrForbidden  = errors.New("operation not permitted")
	ErrValidation = errors.New("invalid input")
)
