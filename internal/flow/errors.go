package flow

import "errors"

var (
	// ErrCancelled means the user sent the cancel token.
	ErrCancelled = errors.New("flow cancelled by user")
	// ErrTimeout means no reply arrived within the wait window.
	ErrTimeout = errors.New("timed out waiting for reply")
	// ErrUnreachable means the user's private channel could not be messaged.
	ErrUnreachable = errors.New("user unreachable")
)
