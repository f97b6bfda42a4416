package domain

import "errors"

// ErrUnknownState is returned when a definition references a state that was
// never declared.
var ErrUnknownState = errors.New("unknown state")

// ErrUnknownEvent is returned when a definition references an event outside
// the machine's event set.
var ErrUnknownEvent = errors.New("unknown event")

// ErrNoInitialState is returned when a definition declares no initial state.
var ErrNoInitialState = errors.New("no initial state")

// ErrDuplicateState is returned when a state ID is declared twice.
var ErrDuplicateState = errors.New("duplicate state")

// ErrDuplicateToken is returned when two tokens share the same input key.
var ErrDuplicateToken = errors.New("duplicate token")

// ErrSessionNotFound is returned when a session ID cannot be found in a
// snapshot store.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionLocked is returned when a session lock is already held.
var ErrSessionLocked = errors.New("session locked")
