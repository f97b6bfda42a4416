package ports

import (
	"context"

	"github.com/aretw0/signalbox/pkg/domain"
)

// MachineLoader defines how the engine retrieves machine definitions.
// This allows the definition source (files, Loam, memory) to be decoupled.
type MachineLoader interface {
	// LoadMachine retrieves a built machine definition by name.
	// It returns domain.ErrUnknownState-wrapped build errors as-is and a
	// plain not-found error for unknown names.
	LoadMachine(ctx context.Context, name string) (*domain.Machine, error)

	// ListMachines returns the names of all definitions available.
	// This is used for introspection and visualization tools (e.g. 'signalbox graph').
	ListMachines(ctx context.Context) ([]string, error)
}

// Watchable defines an interface for loaders that can notify about backend changes.
// This is typically used for hot-reload or dev-mode functionality.
type Watchable interface {
	// Watch returns a channel that is signaled when an underlying definition changes.
	// It abstracts away the specific event details, signaling only that a reload is required.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
