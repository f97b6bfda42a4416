package ports

import (
	"context"
	"time"
)

// UnlockFunc is a function that releases a session lock.
type UnlockFunc func(ctx context.Context) error

// SessionLocker defines the interface for concurrency control over sessions.
// Dispatching is strictly sequential per session; the locker coordinates
// access when multiple instances (replicas) serve the same backend.
type SessionLocker interface {
	// Lock attempts to acquire a lock for the given key (e.g., session ID).
	// It blocks until the lock is acquired, the context is canceled, or the TTL expires (implementation specific).
	// Returns an UnlockFunc that MUST be called to release the lock.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
