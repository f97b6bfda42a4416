package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/signalbox/internal/logging"
)

const gateYAML = `machine: gate
initial: closed
states:
  - id: closed
    entry: [arm_timer(2000)]
    transitions:
      - {on: Open, to: open}
  - id: open
    entry: [stop_timer]
    transitions:
      - {on: Close, to: closed}
tokens:
  - {key: o, event: Open}
`

func writeDefinition(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBuildEngine_Demo(t *testing.T) {
	eng, err := BuildEngine(SourceOptions{Demo: true}, logging.NewNop())
	require.NoError(t, err)

	names, err := eng.Machines(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"traffic"}, names)
}

func TestBuildEngine_DemoIsDefault(t *testing.T) {
	eng, err := BuildEngine(SourceOptions{}, logging.NewNop())
	require.NoError(t, err)

	machine, err := eng.Machine(context.Background(), "traffic")
	require.NoError(t, err)
	assert.Equal(t, "traffic", machine.Name())
}

func TestBuildEngine_File(t *testing.T) {
	path := writeDefinition(t, "gate.yaml", gateYAML)

	eng, err := BuildEngine(SourceOptions{File: path}, logging.NewNop())
	require.NoError(t, err)

	names, err := eng.Machines(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gate"}, names)

	machine, err := eng.Machine(context.Background(), "gate")
	require.NoError(t, err)
	assert.True(t, machine.HasState("closed"))
}

func TestBuildEngine_FileMissing(t *testing.T) {
	_, err := BuildEngine(SourceOptions{File: "/does/not/exist.yaml"}, logging.NewNop())
	assert.Error(t, err)
}

func TestFileLoader_UnknownMachine(t *testing.T) {
	path := writeDefinition(t, "gate.yaml", gateYAML)

	loader, err := newFileLoader(path)
	require.NoError(t, err)

	_, err = loader.LoadMachine(context.Background(), "other")
	assert.ErrorContains(t, err, "not found")
}

func TestFileLoader_WatchSignalsOnChange(t *testing.T) {
	path := writeDefinition(t, "gate.yaml", gateYAML)

	loader, err := newFileLoader(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := loader.Watch(ctx)
	require.NoError(t, err)

	// Backdating is as much a change as editing; it avoids racing the
	// filesystem clock granularity.
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, past, past))

	select {
	case _, ok := <-ch:
		assert.True(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("no change signal within 3s")
	}

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should close when polling stops")
	case <-time.After(3 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestSelectMachine(t *testing.T) {
	eng, err := BuildEngine(SourceOptions{Demo: true}, logging.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	name, err := selectMachine(ctx, eng, "")
	require.NoError(t, err)
	assert.Equal(t, "traffic", name)

	name, err = selectMachine(ctx, eng, "traffic")
	require.NoError(t, err)
	assert.Equal(t, "traffic", name)

	_, err = selectMachine(ctx, eng, "nope")
	assert.ErrorContains(t, err, "not found")
}
