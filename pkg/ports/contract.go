package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/signalbox/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSnapshotStoreContract runs a suite of tests to verify that a
// SnapshotStore implementation adheres to the defined interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		snapshot := domain.Snapshot{
			SessionID: sessionID,
			Machine:   "traffic",
			State:     "Green",
			Countdown: domain.ArmedCountdown(5 * time.Second),
			UpdatedAt: time.Now().UTC().Truncate(time.Millisecond),
		}

		err := store.Save(ctx, snapshot)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, snapshot.State, loaded.State)
		assert.Equal(t, snapshot.Machine, loaded.Machine)

		remaining, armed := loaded.Countdown.Remaining()
		require.True(t, armed, "armed countdown must survive the round trip")
		assert.Equal(t, 5*time.Second, remaining)
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		first := domain.Snapshot{SessionID: sessionID, Machine: "traffic", State: "Green"}
		second := domain.Snapshot{SessionID: sessionID, Machine: "traffic", State: "Broken"}

		require.NoError(t, store.Save(ctx, first))
		require.NoError(t, store.Save(ctx, second))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, domain.State("Broken"), loaded.State)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, domain.Snapshot{SessionID: sessionID, Machine: "traffic", State: "Green"})
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, domain.Snapshot{SessionID: id1, Machine: "traffic", State: "Green"})
		_ = store.Save(ctx, domain.Snapshot{SessionID: id2, Machine: "traffic", State: "Yellow"})

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
