package ports

import (
	"context"

	"github.com/aretw0/signalbox/pkg/domain"
)

// SnapshotStore defines the interface for persisting session snapshots.
// This allows for durable execution, enabling "Stop & Resume" workflows.
type SnapshotStore interface {
	// Save persists the snapshot under its session ID.
	Save(ctx context.Context, snapshot domain.Snapshot) error

	// Load retrieves the snapshot for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (domain.Snapshot, error)

	// Delete removes the snapshot for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the session IDs of every stored snapshot.
	List(ctx context.Context) ([]string, error)
}
