package cli

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/signalbox/pkg/adapters/sqlite"
	"github.com/aretw0/signalbox/pkg/domain"
)

func seedSQLiteSession(t *testing.T) StoreOptions {
	t.Helper()
	opts := StoreOptions{
		Kind:       "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "sessions.db"),
	}

	store, err := sqlite.New(opts.SQLitePath)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(context.Background(), domain.Snapshot{
		SessionID: "crossing-1",
		Machine:   "traffic",
		State:     "Green",
		Countdown: domain.ArmedCountdown(5 * time.Second),
		UpdatedAt: time.Now().UTC(),
	}))
	return opts
}

func TestSessionList(t *testing.T) {
	opts := seedSQLiteSession(t)

	var out strings.Builder
	require.NoError(t, SessionList(context.Background(), opts, &out))

	text := out.String()
	assert.Contains(t, text, "SESSION")
	assert.Contains(t, text, "crossing-1")
	assert.Contains(t, text, "traffic")
	assert.Contains(t, text, "Green")
	assert.Contains(t, text, "5s")
}

func TestSessionList_Empty(t *testing.T) {
	opts := StoreOptions{
		Kind:       "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "sessions.db"),
	}

	var out strings.Builder
	require.NoError(t, SessionList(context.Background(), opts, &out))
	assert.Contains(t, out.String(), "No sessions found.")
}

func TestSessionShowAndReset(t *testing.T) {
	opts := seedSQLiteSession(t)
	ctx := context.Background()

	var out strings.Builder
	require.NoError(t, SessionShow(ctx, opts, "crossing-1", &out))
	assert.Contains(t, out.String(), `"machine": "traffic"`)
	assert.Contains(t, out.String(), `"state": "Green"`)

	require.NoError(t, SessionReset(ctx, opts, "crossing-1"))

	err := SessionShow(ctx, opts, "crossing-1", &out)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionShow_UnknownStore(t *testing.T) {
	err := SessionShow(context.Background(), StoreOptions{Kind: "mongodb"}, "x", &strings.Builder{})
	assert.ErrorContains(t, err, "unknown store kind")
}
