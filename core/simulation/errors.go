package simulation

import "errors"

var (
	// ErrNotIdle is returned by Start while a run is in progress.
	ErrNotIdle = errors.New("simulation: not idle")
	// ErrNotRunning is returned by Stop when no run is in progress.
	ErrNotRunning = errors.New("simulation: not running")
	// ErrShutdownTimeout reports workers still alive after the forced wait.
	ErrShutdownTimeout = errors.New("simulation: shutdown timed out")
	// ErrInvalidConfig wraps configuration and argument errors.
	ErrInvalidConfig = errors.New("simulation: invalid config")
)
