package session

import "errors"

var (
	// ErrReplaced is the cause when a user starts a new session over an old one.
	ErrReplaced = errors.New("session replaced")
	// ErrEnded is the cause when a session is removed explicitly.
	ErrEnded = errors.New("session ended")
	// ErrShutdown is the cause when the tracker is closed.
	ErrShutdown = errors.New("tracker shut down")
)
