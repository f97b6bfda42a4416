package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/signalbox/internal/runtime"
	"github.com/aretw0/signalbox/pkg/adapters/memory"
	"github.com/aretw0/signalbox/pkg/domain"
	"github.com/aretw0/signalbox/pkg/dsl"
	"github.com/aretw0/signalbox/pkg/ports"
	"github.com/aretw0/signalbox/pkg/session"
)

// fakeEngine serves one machine and lets tests inject a watch channel.
type fakeEngine struct {
	machine   *domain.Machine
	watchFunc func(ctx context.Context) (<-chan struct{}, error)
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

func (f *fakeEngine) Watch(ctx context.Context) (<-chan struct{}, error) {
	if f.watchFunc != nil {
		return f.watchFunc(ctx)
	}
	ch := make(chan struct{})
	close(ch)
	return ch, nil
}

func gateMachine(t *testing.T) *domain.Machine {
	t.Helper()

	b := dsl.New("gate")
	b.Initial("closed")
	b.State("closed").
		Label("Closed").
		Color("#ff0000").
		Entry(domain.ArmTimer(2 * time.Second)).
		On("Open").Do(domain.Notify("opening")).To("open")
	b.State("open").
		Label("Open").
		Color("#00ff00").
		Entry(domain.StopTimer()).
		On("Close").To("closed")
	b.Token('o', "Open", "--- lever pulled")

	m, err := b.Build()
	require.NoError(t, err)
	return m
}

func newTestHandler(t *testing.T) (http.Handler, *fakeEngine) {
	t.Helper()
	eng := &fakeEngine{machine: gateMachine(t)}
	mgr := session.NewManager(memory.NewStore())
	return NewHandler(eng, WithSessions(mgr), WithVersion("test")), eng
}

func TestListMachines(t *testing.T) {
	handler, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/machines", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var names []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &names))
	assert.Equal(t, []string{"gate"}, names)
}

func TestGetMachine(t *testing.T) {
	handler, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/machines/gate", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var view MachineView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "gate", view.Name)
	assert.Equal(t, "closed", view.Initial)
	require.Len(t, view.States, 2)
	assert.Equal(t, []string{"arm_timer(2000)"}, view.States[0].Entry)
	require.Len(t, view.Tokens, 1)
	assert.Equal(t, "o", view.Tokens[0].Key)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/machines/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetMachineGraph(t *testing.T) {
	handler, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/machines/gate/graph", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "stateDiagram-v2")

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/machines/gate/graph?format=plantuml", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "@startuml")

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/machines/gate/graph?format=dot", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResolveEvent(t *testing.T) {
	handler, _ := newTestHandler(t)

	resolve := func(state, event string) *httptest.ResponseRecorder {
		body, _ := json.Marshal(ResolveRequest{State: state, Event: event})
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("POST", "/machines/gate/resolve", bytes.NewReader(body)))
		return w
	}

	w := resolve("closed", "Open")
	require.Equal(t, http.StatusOK, w.Code)
	var out OutcomeView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.True(t, out.Matched)
	assert.Equal(t, "open", out.To)

	// An unknown event resolves to the identity outcome.
	w = resolve("closed", "Bogus")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.False(t, out.Matched)
	assert.Equal(t, "closed", out.To)

	w = resolve("nope", "Open")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestSessionLifecycle(t *testing.T) {
	handler, _ := newTestHandler(t)

	post := func(path string, payload any) *httptest.ResponseRecorder {
		body, _ := json.Marshal(payload)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("POST", path, bytes.NewReader(body)))
		return w
	}

	// Start a fresh session: boot runs, entry arms the countdown.
	w := post("/sessions", StartSessionRequest{Machine: "gate", SessionID: "sess-1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var res DispatchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "sess-1", res.Session.SessionID)
	assert.Equal(t, "closed", res.Session.State)
	assert.True(t, res.Session.Countdown.Armed())
	assert.NotNil(t, res.Session.Deadline)

	// Starting again resumes instead of resetting.
	w = post("/sessions", StartSessionRequest{Machine: "gate", SessionID: "sess-1"})
	require.Equal(t, http.StatusOK, w.Code)

	// Dispatch a matched event.
	w = post("/sessions/sess-1/events", PostEventRequest{Event: "Open"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.NotNil(t, res.Outcome)
	assert.True(t, res.Outcome.Matched)
	assert.Equal(t, "open", res.Session.State)
	assert.False(t, res.Session.Countdown.Armed())
	assert.Contains(t, res.Notices, "opening")

	// Unrecognized tokens are dropped without touching the session.
	w = post("/sessions/sess-1/events", PostEventRequest{Token: "x"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Dropped)
	assert.Equal(t, "open", res.Session.State)

	// Snapshot survives independently of dispatches.
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, httptest.NewRequest("GET", "/sessions/sess-1", nil))
	require.Equal(t, http.StatusOK, w2.Code)
	var view SessionView
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &view))
	assert.Equal(t, "open", view.State)

	w2 = httptest.NewRecorder()
	handler.ServeHTTP(w2, httptest.NewRequest("DELETE", "/sessions/sess-1", nil))
	assert.Equal(t, http.StatusNoContent, w2.Code)

	w2 = httptest.NewRecorder()
	handler.ServeHTTP(w2, httptest.NewRequest("GET", "/sessions/sess-1", nil))
	assert.Equal(t, http.StatusNotFound, w2.Code)
}

func TestStartSession_UnknownMachine(t *testing.T) {
	handler, _ := newTestHandler(t)

	body, _ := json.Marshal(StartSessionRequest{Machine: "nope"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/sessions", bytes.NewReader(body)))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostEvent_RequiresEventOrToken(t *testing.T) {
	handler, _ := newTestHandler(t)

	for _, payload := range []PostEventRequest{
		{},
		{Event: "Open", Token: "o"},
	} {
		body, _ := json.Marshal(payload)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("POST", "/sessions/sess-1/events", bytes.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
}

func TestSessionEndpointsWithoutStore(t *testing.T) {
	eng := &fakeEngine{machine: gateMachine(t)}
	handler := NewHandler(eng)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/sessions", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	body, _ := json.Marshal(StartSessionRequest{Machine: "gate"})
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/sessions", bytes.NewReader(body)))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetInfo(t *testing.T) {
	handler, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/info", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var info map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "signalbox-http", info["app"])
	assert.Equal(t, "test", info["version"])
	assert.Equal(t, "0.1.0", info["api_version"])
}

func TestSubscribeEvents_Global(t *testing.T) {
	eng := &fakeEngine{
		machine: gateMachine(t),
		watchFunc: func(ctx context.Context) (<-chan struct{}, error) {
			ch := make(chan struct{}, 1)
			ch <- struct{}{}
			close(ch)
			return ch, nil
		},
	}
	handler := NewHandler(eng)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/events", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "event: ping")
	assert.Contains(t, body, "data: reload")
}

func TestSubscribeEvents_Session(t *testing.T) {
	handler, _ := newTestHandler(t)

	body, _ := json.Marshal(StartSessionRequest{Machine: "gate", SessionID: "sess-sse"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/sessions", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, w.Code)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wSub := httptest.NewRecorder()
	reqSub := httptest.NewRequest("GET", "/events?session_id=sess-sse", nil).WithContext(ctx)

	done := make(chan struct{})
	go func() {
		handler.ServeHTTP(wSub, reqSub)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond) // let the subscription register

	body, _ = json.Marshal(PostEventRequest{Event: "Open"})
	wEv := httptest.NewRecorder()
	handler.ServeHTTP(wEv, httptest.NewRequest("POST", "/sessions/sess-sse/events", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, wEv.Code, wEv.Body.String())

	cancel()
	<-done

	output := wSub.Body.String()
	assert.Contains(t, output, "event: ping")
	assert.Contains(t, output, `"state":"open"`)
}

func TestDiffMatches(t *testing.T) {
	state := domain.State("open")
	diff := domain.SnapshotDiff{SessionID: "s", State: &state}
	payload, err := json.Marshal(diff)
	require.NoError(t, err)

	assert.True(t, diffMatches(string(payload), []string{"state"}))
	assert.False(t, diffMatches(string(payload), []string{"countdown"}))
	assert.True(t, diffMatches(string(payload), []string{"countdown", " state"}))
}
