package mcp

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/signalbox/internal/runtime"
	"github.com/aretw0/signalbox/pkg/adapters/memory"
	"github.com/aretw0/signalbox/pkg/domain"
	"github.com/aretw0/signalbox/pkg/dsl"
	"github.com/aretw0/signalbox/pkg/ports"
	"github.com/aretw0/signalbox/pkg/session"
)

type fakeEngine struct {
	machine *domain.Machine
}

func (f *fakeEngine) Machines(ctx context.Context) ([]string, error) {
	return []string{f.machine.Name()}, nil
}

func (f *fakeEngine) Machine(ctx context.Context, name string) (*domain.Machine, error) {
	if name != f.machine.Name() {
		return nil, fmt.Errorf("machine not found: %s", name)
	}
	return f.machine, nil
}

func (f *fakeEngine) Dispatcher(ctx context.Context, name string) (ports.Dispatcher, error) {
	if name != f.machine.Name() {
		return nil, fmt.Errorf("machine not found: %s", name)
	}
	return runtime.NewEngine(f.machine), nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	b := dsl.New("gate")
	b.Initial("closed")
	b.State("closed").
		Entry(domain.ArmTimer(2 * time.Second)).
		On("Open").Do(domain.Notify("opening")).To("open")
	b.State("open").
		Entry(domain.StopTimer()).
		On("Close").To("closed")
	b.Token('o', "Open", "--- lever pulled")
	m, err := b.Build()
	require.NoError(t, err)

	srv, err := NewServer(context.Background(), &fakeEngine{machine: m},
		"test", WithSessions(session.NewManager(memory.NewStore())))
	require.NoError(t, err)
	return srv
}

func TestHandleMachineInfo(t *testing.T) {
	srv := newTestServer(t)

	info, err := srv.handleMachineInfo(context.Background(), mcp.CallToolRequest{},
		map[string]interface{}{"machine": "gate"})
	require.NoError(t, err)
	assert.Equal(t, "gate", info.Name)
	assert.Equal(t, "closed", info.Initial)
	require.Len(t, info.States, 2)
	assert.Equal(t, []string{"arm_timer(2000)"}, info.States[0].Entry)

	_, err = srv.handleMachineInfo(context.Background(), mcp.CallToolRequest{},
		map[string]interface{}{"machine": "nope"})
	assert.Error(t, err)
}

func TestHandleMachineGraph(t *testing.T) {
	srv := newTestServer(t)

	resp, err := srv.handleMachineGraph(context.Background(), mcp.CallToolRequest{},
		map[string]interface{}{"machine": "gate"})
	require.NoError(t, err)
	assert.Equal(t, "mermaid", resp.Format)
	assert.Contains(t, resp.Source, "stateDiagram-v2")

	resp, err = srv.handleMachineGraph(context.Background(), mcp.CallToolRequest{},
		map[string]interface{}{"machine": "gate", "format": "plantuml"})
	require.NoError(t, err)
	assert.Contains(t, resp.Source, "@startuml")

	_, err = srv.handleMachineGraph(context.Background(), mcp.CallToolRequest{},
		map[string]interface{}{"machine": "gate", "format": "dot"})
	assert.Error(t, err)
}

func TestHandleResolveEvent(t *testing.T) {
	srv := newTestServer(t)

	out, err := srv.handleResolveEvent(context.Background(), mcp.CallToolRequest{},
		map[string]interface{}{"machine": "gate", "state": "closed", "event": "Open"})
	require.NoError(t, err)
	assert.True(t, out.Matched)
	assert.Equal(t, "open", out.To)

	// Unknown events resolve to the identity outcome.
	out, err = srv.handleResolveEvent(context.Background(), mcp.CallToolRequest{},
		map[string]interface{}{"machine": "gate", "state": "closed", "event": "Bogus"})
	require.NoError(t, err)
	assert.False(t, out.Matched)
	assert.Equal(t, "closed", out.To)

	_, err = srv.handleResolveEvent(context.Background(), mcp.CallToolRequest{},
		map[string]interface{}{"machine": "gate", "state": "nope", "event": "Open"})
	assert.Error(t, err)
}

func TestSessionTools(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	resp, err := srv.handleStartSession(ctx, mcp.CallToolRequest{},
		map[string]interface{}{"machine": "gate", "session_id": "sess-1"})
	require.NoError(t, err)
	assert.True(t, resp.Created)
	assert.Equal(t, "closed", resp.Session.State)
	assert.Equal(t, "2s", resp.Session.Countdown)
	assert.NotEmpty(t, resp.Session.Deadline)

	// Starting again resumes.
	resp, err = srv.handleStartSession(ctx, mcp.CallToolRequest{},
		map[string]interface{}{"machine": "gate", "session_id": "sess-1"})
	require.NoError(t, err)
	assert.False(t, resp.Created)

	resp, err = srv.handlePostEvent(ctx, mcp.CallToolRequest{},
		map[string]interface{}{"session_id": "sess-1", "event": "Open"})
	require.NoError(t, err)
	require.NotNil(t, resp.Outcome)
	assert.True(t, resp.Outcome.Matched)
	assert.Equal(t, "open", resp.Session.State)
	assert.Equal(t, "unarmed", resp.Session.Countdown)
	assert.Contains(t, resp.Notices, "opening")

	// Unrecognized tokens drop silently.
	resp, err = srv.handlePostEvent(ctx, mcp.CallToolRequest{},
		map[string]interface{}{"session_id": "sess-1", "token": "x"})
	require.NoError(t, err)
	assert.True(t, resp.Dropped)
	assert.Equal(t, "open", resp.Session.State)

	resp, err = srv.handleSessionState(ctx, mcp.CallToolRequest{},
		map[string]interface{}{"session_id": "sess-1"})
	require.NoError(t, err)
	assert.Equal(t, "open", resp.Session.State)

	_, err = srv.handlePostEvent(ctx, mcp.CallToolRequest{},
		map[string]interface{}{"session_id": "sess-1"})
	assert.Error(t, err, "event or token is required")
}

func TestSessionToolsWithoutStore(t *testing.T) {
	b := dsl.New("gate")
	b.Initial("idle")
	b.State("idle")
	m, err := b.Build()
	require.NoError(t, err)

	srv, err := NewServer(context.Background(), &fakeEngine{machine: m}, "test")
	require.NoError(t, err)

	_, err = srv.handleStartSession(context.Background(), mcp.CallToolRequest{},
		map[string]interface{}{"machine": "gate"})
	assert.ErrorContains(t, err, "session store not configured")
}
