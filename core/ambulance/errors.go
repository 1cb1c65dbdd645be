package ambulance

import "errors"

var (
	// ErrRequestCancelled is returned when the caller's context ends while the
	// request is blocked. The returned error also wraps the context error.
	ErrRequestCancelled = errors.New("ambulance: request cancelled")
	// ErrClosed is returned to requests issued or blocked after Close.
	ErrClosed = errors.New("ambulance: machine closed")
)
