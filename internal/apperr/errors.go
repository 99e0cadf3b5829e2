package apperr

import "errors"

var (
	// ErrValidation marks a malformed request (bad limit, bad target,
	// bad sort key). Raised before evaluation begins.
	ErrValidation = errors.New("validation failed")
	// ErrBadQuery marks a filter clause that cannot be meaningfully
	// parsed, e.g. a property filter missing '='.
	ErrBadQuery = errors.New("bad query")
	// ErrProvider marks a failed corpus fetch.
	ErrProvider = errors.New("provider failure")
	ErrNotFound = errors.New("not found")
)
