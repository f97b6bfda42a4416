package ports

import (
	"context"

	"github.com/aretw0/signalbox/pkg/domain"
)

// Dispatcher defines the interface for dispatch cores that keep no
// mutable cell of their own. This is the primary interface used by
// adapters (e.g., HTTP, MCP) that manage state externally or per-request.
type Dispatcher interface {
	// Resolve answers what an event would do without executing anything.
	Resolve(state domain.State, event domain.Event) domain.Outcome

	// Start runs boot and initial entry actions against fx and returns
	// the initial state.
	Start(ctx context.Context, fx domain.Effects) domain.State

	// Post dispatches one event and returns the resulting state.
	// Dispatch is total and never fails.
	Post(ctx context.Context, state domain.State, event domain.Event, fx domain.Effects) domain.State

	// Machine returns the definition being dispatched, for introspection
	// and visualization.
	Machine() *domain.Machine
}
