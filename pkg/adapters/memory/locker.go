package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/signalbox/pkg/ports"
)

// Locker implements ports.SessionLocker with process-local mutexes.
// The TTL is ignored: a process-local lock cannot outlive its holder,
// so it is released only by the returned UnlockFunc.
type Locker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewLocker creates a new in-process locker.
func NewLocker() *Locker {
	return &Locker{
		locks: make(map[string]chan struct{}),
	}
}

// Lock acquires the lock for key, waiting for the current holder if
// necessary.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	for {
		l.mu.Lock()
		holder, held := l.locks[key]
		if !held {
			release := make(chan struct{})
			l.locks[key] = release
			l.mu.Unlock()

			return func(ctx context.Context) error {
				l.mu.Lock()
				delete(l.locks, key)
				l.mu.Unlock()
				close(release)
				return nil
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-holder:
			// Holder released, try again.
		}
	}
}
