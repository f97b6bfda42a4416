package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/signalbox/pkg/adapters/sqlite"
	"github.com/aretw0/signalbox/pkg/domain"
	"github.com/aretw0/signalbox/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_Contract(t *testing.T) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ports.RunSnapshotStoreContract(t, store)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	ctx := context.Background()

	store, err := sqlite.New(path)
	require.NoError(t, err)

	snapshot := domain.Snapshot{
		SessionID: "durable",
		Machine:   "traffic",
		State:     "Yellow",
		Countdown: domain.ArmedCountdown(750 * time.Millisecond),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.Save(ctx, snapshot))
	require.NoError(t, store.Close())

	// Reopen the same file and verify the snapshot survived.
	reopened, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	loaded, err := reopened.Load(ctx, "durable")
	require.NoError(t, err)
	assert.Equal(t, domain.State("Yellow"), loaded.State)

	remaining, armed := loaded.Countdown.Remaining()
	require.True(t, armed)
	assert.Equal(t, 750*time.Millisecond, remaining)
}

func TestSQLiteStore_UnarmedCountdown(t *testing.T) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domain.Snapshot{
		SessionID: "broken",
		Machine:   "traffic",
		State:     "Broken",
	}))

	loaded, err := store.Load(ctx, "broken")
	require.NoError(t, err)
	assert.False(t, loaded.Countdown.Armed(), "unarmed must not come back as armed-zero")
}
