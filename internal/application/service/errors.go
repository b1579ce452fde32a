package service

import "errors"

// Domain error taxonomy. Handlers map these onto HTTP error codes;
// everything else is an internal error.
var (
	// ErrValidation rejects malformed ranges or ids before any read.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound reports an absent record or group reference.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyMatched reports an attempt to match a record that is
	// already matched to a different counterpart.
	ErrAlreadyMatched = errors.New("record already matched to a different counterpart")
)
