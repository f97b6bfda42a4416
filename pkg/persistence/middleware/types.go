// Package middleware wraps a SnapshotStore with cross-cutting behavior.
// Middlewares compose: the first one in a chain sees the call first.
package middleware

import "github.com/aretw0/signalbox/pkg/ports"

// Middleware allows wrapping a SnapshotStore to add behavior.
type Middleware func(ports.SnapshotStore) ports.SnapshotStore

// Chain applies the middlewares to store, outermost first.
func Chain(store ports.SnapshotStore, mws ...Middleware) ports.SnapshotStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
