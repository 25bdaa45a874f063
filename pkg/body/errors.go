package body

import "errors"

var (
	// ErrUnknownAction is returned for action codes or names outside the table.
	ErrUnknownAction = errors.New("body: unknown action")

	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("body: dispatcher closed")

	// ErrNotStarted is returned by Submit before Begin.
	ErrNotStarted = errors.New("body: dispatcher not started")

	// ErrAlreadyStarted is returned by a second Begin.
	ErrAlreadyStarted = errors.New("body: dispatcher already started")
)
