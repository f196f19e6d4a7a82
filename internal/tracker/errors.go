package tracker

import "errors"

// Failure kinds returned by the tracker. Callers match them with errors.Is;
// the wrapped message is safe to show to clients.
var (
	ErrInvalidValue  = errors.New("invalid value")
	ErrInvalidDate   = errors.New("date must be YYYY-MM-DD")
	ErrOutOfRange    = errors.New("value outside allowed range")
	ErrInvalidAction = errors.New("unsupported action")
	ErrNotFound      = errors.New("trackable not found")
	ErrConflict      = errors.New("trackable key already in use")
)
