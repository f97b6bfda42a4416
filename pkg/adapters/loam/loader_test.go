package loam

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/signalbox/internal/testutils"
	"github.com/aretw0/signalbox/pkg/domain"
	"github.com/aretw0/signalbox/pkg/ports/tests"
	"github.com/aretw0/signalbox/pkg/registry"
)

// seedTraffic saves a traffic-light machine, one document per state.
func seedTraffic(t *testing.T, repo core.Repository) {
	t.Helper()
	ctx := context.Background()

	docs := []core.Document{
		{
			ID: "traffic/red_only.md",
			Content: `---
initial: true
label: Red
color: "#ff0000"
entry:
  - arm_timer(2000)
transitions:
  - on: Timeout
    to: red_yellow
  - on: LightsBroken
    to: broken
tokens:
  - key: b
    event: LightsBroken
    notice: "--- Broke the lights and generated the LightsBroken event"
  - key: r
    event: LightsRepaired
    notice: "--- Repaired the lights and generated the LightsRepaired event"
---
A timed traffic light with a failure mode.`,
		},
		{
			ID: "traffic/red_yellow.md",
			Content: `---
label: Red and Yellow
entry:
  - arm_timer(1000)
transitions:
  - on: Timeout
    to: green
  - on: LightsBroken
    to: broken
---
Brief handover phase before green.`,
		},
		{
			ID: "traffic/green.md",
			Content: `---
label: Green
color: "#00ff00"
entry:
  - arm_timer(5000)
transitions:
  - on: Timeout
    to: yellow
  - on: LightsBroken
    to: broken
---`,
		},
		{
			ID: "traffic/yellow.md",
			Content: `---
label: Yellow
entry:
  - arm_timer(1000)
transitions:
  - on: Timeout
    to: red_only
  - on: LightsBroken
    to: broken
---`,
		},
		{
			ID: "traffic/broken.md",
			Content: `---
label: Broken
entry:
  - stop_timer
transitions:
  - on: LightsRepaired
    to: red_only
---`,
		},
	}

	for _, doc := range docs {
		require.NoError(t, repo.Save(ctx, doc), "seeding %s", doc.ID)
	}
}

// seedBlinker saves a two-state machine as flat files that rely on the
// "machine" frontmatter key instead of a directory.
func seedBlinker(t *testing.T, repo core.Repository) {
	t.Helper()
	ctx := context.Background()

	docs := []core.Document{
		{
			ID: "blinker_on.md",
			Content: `---
machine: blinker
id: on
initial: true
entry:
  - arm_timer(500)
transitions:
  - on: Timeout
    to: off
---
A light that blinks forever.`,
		},
		{
			ID: "blinker_off.md",
			Content: `---
machine: blinker
id: off
entry:
  - arm_timer(500)
transitions:
  - on: Timeout
    to: on
---`,
		},
	}

	for _, doc := range docs {
		require.NoError(t, repo.Save(ctx, doc), "seeding %s", doc.ID)
	}
}

func newLoader(t *testing.T, opts ...Option) (*Loader, core.Repository) {
	t.Helper()
	_, repo := testutils.SetupTestRepo(t)
	return New(loam.NewTypedRepository[StateMetadata](repo), opts...), repo
}

func TestLoader_Contract(t *testing.T) {
	loader, repo := newLoader(t)
	seedTraffic(t, repo)
	seedBlinker(t, repo)

	tests.MachineLoaderContractTest(t, loader, []string{"blinker", "traffic"})
}

func TestLoader_LoadMachine_BuildsTraffic(t *testing.T) {
	loader, repo := newLoader(t)
	seedTraffic(t, repo)

	m, err := loader.LoadMachine(context.Background(), "traffic")
	require.NoError(t, err)

	initial, boot := m.Initial()
	assert.Equal(t, domain.State("red_only"), initial)
	assert.Empty(t, boot)
	assert.Len(t, m.States(), 5)
	assert.Equal(t, "A timed traffic light with a failure mode.", m.Description())
	assert.Equal(t, "Red and Yellow", m.Label("red_yellow"))
	assert.Equal(t, "#00ff00", m.Color("green"))
	assert.Equal(t, []string{"arm_timer(2000)"}, domain.ActionNames(m.EntryActions("red_only")))
	assert.Equal(t, []string{"stop_timer"}, domain.ActionNames(m.EntryActions("broken")))

	// Transitions must actually resolve.
	out := m.Resolve("green", domain.Timeout)
	assert.True(t, out.Matched)
	assert.Equal(t, domain.State("yellow"), out.To)

	token, ok := m.Token('b')
	require.True(t, ok)
	assert.Equal(t, domain.Event("LightsBroken"), token.Event)
	assert.Equal(t, "--- Broke the lights and generated the LightsBroken event", token.Notice)
}

func TestLoader_LoadMachine_MachineKeyOverridesPath(t *testing.T) {
	loader, repo := newLoader(t)
	seedBlinker(t, repo)

	m, err := loader.LoadMachine(context.Background(), "blinker")
	require.NoError(t, err)

	initial, _ := m.Initial()
	assert.Equal(t, domain.State("on"), initial)
	assert.Len(t, m.States(), 2)
}

func TestLoader_ListMachines_SkipsRootDocuments(t *testing.T) {
	loader, repo := newLoader(t)
	seedTraffic(t, repo)

	// A README without a machine key is not a state document.
	err := repo.Save(context.Background(), core.Document{
		ID:      "README.md",
		Content: "Definitions for the signal box.",
	})
	require.NoError(t, err)

	names, err := loader.ListMachines(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"traffic"}, names)
}

func TestLoader_LoadMachine_NoInitial(t *testing.T) {
	loader, repo := newLoader(t)

	err := repo.Save(context.Background(), core.Document{
		ID: "lamp/on.md",
		Content: `---
transitions:
  - on: Toggle
    to: on
---`,
	})
	require.NoError(t, err)

	_, err = loader.LoadMachine(context.Background(), "lamp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no state is marked initial")
}

func TestLoader_LoadMachine_DuplicateInitial(t *testing.T) {
	loader, repo := newLoader(t)
	ctx := context.Background()

	for _, id := range []string{"lamp/on.md", "lamp/off.md"} {
		err := repo.Save(ctx, core.Document{
			ID: id,
			Content: `---
initial: true
---`,
		})
		require.NoError(t, err)
	}

	_, err := loader.LoadMachine(ctx, "lamp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "marked initial")
}

func TestLoader_LoadMachine_DetectsCollisions(t *testing.T) {
	loader, repo := newLoader(t)
	ctx := context.Background()

	// Two documents resolving to the same state ID.
	err := repo.Save(ctx, core.Document{
		ID: "lamp/on.md",
		Content: `---
initial: true
---`,
	})
	require.NoError(t, err)
	err = repo.Save(ctx, core.Document{
		ID: "lamp/other.md",
		Content: `---
id: on
---`,
	})
	require.NoError(t, err)

	_, err = loader.LoadMachine(ctx, "lamp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collision detected")
}

func TestLoader_LoadMachine_UnknownActionExpression(t *testing.T) {
	loader, repo := newLoader(t)

	err := repo.Save(context.Background(), core.Document{
		ID: "lamp/on.md",
		Content: `---
initial: true
entry:
  - explode(now)
---`,
	})
	require.NoError(t, err)

	_, err = loader.LoadMachine(context.Background(), "lamp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "action not found: explode")
}

func TestLoader_LoadMachine_CustomRegistry(t *testing.T) {
	reg := registry.New()
	reg.RegisterGuard("always", func(domain.Event) bool { return true })

	loader, repo := newLoader(t, WithRegistry(reg))

	err := repo.Save(context.Background(), core.Document{
		ID: "lamp/on.md",
		Content: `---
initial: true
transitions:
  - on: Toggle
    to: on
    guard: always
    internal: true
---`,
	})
	require.NoError(t, err)

	m, err := loader.LoadMachine(context.Background(), "lamp")
	require.NoError(t, err)

	out := m.Resolve("on", "Toggle")
	assert.True(t, out.Matched)
	assert.True(t, out.Internal)
}

func TestLoader_LoadMachine_JSONDocuments(t *testing.T) {
	// Loam reads JSON documents with the same metadata shape, so a
	// machine can mix formats.
	tmpDir, repo := testutils.SetupTestRepo(t)
	loader := New(loam.NewTypedRepository[StateMetadata](repo))

	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "lamp"), 0o755))
	content := `{
  "initial": true,
  "label": "On",
  "transitions": [{"on": "Toggle", "to": "on", "internal": true}]
}`
	err := os.WriteFile(filepath.Join(tmpDir, "lamp", "on.json"), []byte(content), 0o644)
	require.NoError(t, err)

	m, err := loader.LoadMachine(context.Background(), "lamp")
	require.NoError(t, err)

	initial, _ := m.Initial()
	assert.Equal(t, domain.State("on"), initial)
	assert.Equal(t, "On", m.Label("on"))
}
