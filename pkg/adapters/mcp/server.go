// Package mcp exposes the signalbox engine to language-model agents
// over the Model Context Protocol. Machines surface as tools and
// resources; sessions advance one event per tool call, with the
// countdown reported back so the agent decides when to post Timeout.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/signalbox/internal/logging"
	"github.com/aretw0/signalbox/internal/presentation/graph"
	"github.com/aretw0/signalbox/pkg/domain"
	"github.com/aretw0/signalbox/pkg/ports"
	"github.com/aretw0/signalbox/pkg/runner"
	"github.com/aretw0/signalbox/pkg/session"
)

// Engine is the slice of the signalbox facade the MCP surface needs.
type Engine interface {
	Machines(ctx context.Context) ([]string, error)
	Machine(ctx context.Context, name string) (*domain.Machine, error)
	Dispatcher(ctx context.Context, name string) (ports.Dispatcher, error)
}

// SessionState is the session snapshot as reported to agents. Durations
// and instants are strings so the output schema stays self-describing.
type SessionState struct {
	SessionID string `json:"session_id" jsonschema_description:"Identifier of the session"`
	Machine   string `json:"machine" jsonschema_description:"Machine the session runs"`
	State     string `json:"state" jsonschema_description:"Current state"`
	Countdown string `json:"countdown" jsonschema_description:"Remaining timeout duration, or 'unarmed'"`
	Deadline  string `json:"deadline,omitempty" jsonschema_description:"RFC3339 instant the countdown elapses; post a Timeout event then"`
	UpdatedAt string `json:"updated_at" jsonschema_description:"RFC3339 instant of the last dispatch"`
}

// OutcomeInfo describes one resolved dispatch.
type OutcomeInfo struct {
	From     string   `json:"from"`
	On       string   `json:"on"`
	To       string   `json:"to"`
	Actions  []string `json:"actions,omitempty"`
	Matched  bool     `json:"matched" jsonschema_description:"False when no rule matched and the machine stayed put"`
	Internal bool     `json:"internal,omitempty"`
}

// DispatchResponse aligns with the HTTP adapter's dispatch result so
// both surfaces report sessions the same way.
type DispatchResponse struct {
	Session SessionState `json:"session"`
	Outcome *OutcomeInfo `json:"outcome,omitempty"`
	Dropped bool         `json:"dropped" jsonschema_description:"True when an unrecognized token was silently dropped"`
	Notices []string     `json:"notices,omitempty" jsonschema_description:"Diagnostic notices emitted by actions"`
	Created bool         `json:"created" jsonschema_description:"True when start_session created a fresh session"`
}

// Server wraps the signalbox engine and exposes it as an MCP server.
type Server struct {
	engine    Engine
	sessions  *session.Manager
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithSessions enables the session tools backed by the manager.
func WithSessions(mgr *session.Manager) Option {
	return func(s *Server) { s.sessions = mgr }
}

// WithLogger sets the server logger. Defaults to a no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new MCP server instance. The context is used to
// enumerate machines for resource registration.
func NewServer(ctx context.Context, engine Engine, version string, opts ...Option) (*Server, error) {
	s := &Server{
		engine:    engine,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("signalbox-mcp", version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	if err := s.registerResources(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// ServeStdio starts the server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE transport.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("mcp server listening (sse)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutdown signal received, stopping mcp server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: list_machines
	s.mcpServer.AddTool(mcp.NewTool("list_machines",
		mcp.WithDescription("List the names of every loaded state machine."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		names, err := s.engine.Machines(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list machines failed: %v", err)), nil
		}
		payload, _ := json.Marshal(names)
		return mcp.NewToolResultText(string(payload)), nil
	})

	// TOOL: machine_info
	infoTool := mcp.NewTool("machine_info",
		mcp.WithDescription("Describe one machine: states, events, transitions and input tokens."),
		mcp.WithString("machine", mcp.Required(), mcp.Description("Machine name")),
		mcp.WithOutputSchema[MachineInfo](),
	)
	s.mcpServer.AddTool(infoTool, mcp.NewStructuredToolHandler(s.handleMachineInfo))

	// TOOL: machine_graph
	graphTool := mcp.NewTool("machine_graph",
		mcp.WithDescription("Render a machine as diagram source."),
		mcp.WithString("machine", mcp.Required(), mcp.Description("Machine name")),
		mcp.WithString("format", mcp.Description("Diagram format: mermaid (default) or plantuml")),
		mcp.WithOutputSchema[GraphResponse](),
	)
	s.mcpServer.AddTool(graphTool, mcp.NewStructuredToolHandler(s.handleMachineGraph))

	// TOOL: resolve_event
	resolveTool := mcp.NewTool("resolve_event",
		mcp.WithDescription("Resolve an event against a state without running actions. Unknown events resolve to the identity outcome."),
		mcp.WithString("machine", mcp.Required(), mcp.Description("Machine name")),
		mcp.WithString("state", mcp.Required(), mcp.Description("Current state")),
		mcp.WithString("event", mcp.Required(), mcp.Description("Event to resolve")),
		mcp.WithOutputSchema[OutcomeInfo](),
	)
	s.mcpServer.AddTool(resolveTool, mcp.NewStructuredToolHandler(s.handleResolveEvent))

	// TOOL: start_session
	startTool := mcp.NewTool("start_session",
		mcp.WithDescription("Start a durable session at the machine's initial state, or resume it when the session already exists."),
		mcp.WithString("machine", mcp.Required(), mcp.Description("Machine name")),
		mcp.WithString("session_id", mcp.Description("Session identifier; generated when omitted")),
		mcp.WithOutputSchema[DispatchResponse](),
	)
	s.mcpServer.AddTool(startTool, mcp.NewStructuredToolHandler(s.handleStartSession))

	// TOOL: post_event
	postTool := mcp.NewTool("post_event",
		mcp.WithDescription("Dispatch an event or a single-character token to a session. Post 'Timeout' once the reported deadline passes."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithString("event", mcp.Description("Event name; mutually exclusive with token")),
		mcp.WithString("token", mcp.Description("Input token character; mutually exclusive with event")),
		mcp.WithOutputSchema[DispatchResponse](),
	)
	s.mcpServer.AddTool(postTool, mcp.NewStructuredToolHandler(s.handlePostEvent))

	// TOOL: session_state
	stateTool := mcp.NewTool("session_state",
		mcp.WithDescription("Fetch the current snapshot of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithOutputSchema[DispatchResponse](),
	)
	s.mcpServer.AddTool(stateTool, mcp.NewStructuredToolHandler(s.handleSessionState))
}

// Handler methods for structured tools

func (s *Server) handleMachineInfo(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (MachineInfo, error) {
	name, _ := args["machine"].(string)
	m, err := s.engine.Machine(ctx, name)
	if err != nil {
		return MachineInfo{}, fmt.Errorf("machine %q: %w", name, err)
	}
	return machineInfo(m), nil
}

func (s *Server) handleMachineGraph(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (GraphResponse, error) {
	name, _ := args["machine"].(string)
	format, _ := args["format"].(string)
	if format == "" {
		format = "mermaid"
	}

	m, err := s.engine.Machine(ctx, name)
	if err != nil {
		return GraphResponse{}, fmt.Errorf("machine %q: %w", name, err)
	}

	switch format {
	case "mermaid":
		return GraphResponse{Format: format, Source: graph.GenerateMermaid(m, nil)}, nil
	case "plantuml":
		return GraphResponse{Format: format, Source: graph.GeneratePlantUML(m)}, nil
	default:
		return GraphResponse{}, fmt.Errorf("unsupported format %q, use mermaid or plantuml", format)
	}
}

func (s *Server) handleResolveEvent(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (OutcomeInfo, error) {
	name, _ := args["machine"].(string)
	state, _ := args["state"].(string)
	event, _ := args["event"].(string)

	m, err := s.engine.Machine(ctx, name)
	if err != nil {
		return OutcomeInfo{}, fmt.Errorf("machine %q: %w", name, err)
	}
	if !m.HasState(domain.State(state)) {
		return OutcomeInfo{}, fmt.Errorf("unknown state %q", state)
	}

	return outcomeInfo(m.Resolve(domain.State(state), domain.Event(event))), nil
}

func (s *Server) handleStartSession(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (DispatchResponse, error) {
	if s.sessions == nil {
		return DispatchResponse{}, errors.New("session store not configured")
	}
	name, _ := args["machine"].(string)
	sessionID, _ := args["session_id"].(string)

	disp, err := s.engine.Dispatcher(ctx, name)
	if err != nil {
		return DispatchResponse{}, fmt.Errorf("machine %q: %w", name, err)
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	fresh, notices := runner.StartSnapshot(ctx, disp, sessionID)
	snap, created, err := s.sessions.LoadOrStart(ctx, sessionID, fresh)
	if err != nil {
		return DispatchResponse{}, fmt.Errorf("start session: %w", err)
	}
	if !created && snap.Machine != name {
		return DispatchResponse{}, fmt.Errorf("session %q belongs to machine %q", sessionID, snap.Machine)
	}

	resp := DispatchResponse{
		Session: sessionState(snap),
		Created: created,
	}
	if created {
		resp.Notices = notices
		s.logger.Info("session started", "session_id", sessionID, "machine", name, "state", snap.State)
	}
	return resp, nil
}

func (s *Server) handlePostEvent(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (DispatchResponse, error) {
	if s.sessions == nil {
		return DispatchResponse{}, errors.New("session store not configured")
	}
	sessionID, _ := args["session_id"].(string)
	event, _ := args["event"].(string)
	token, _ := args["token"].(string)

	if (event == "") == (token == "") {
		return DispatchResponse{}, errors.New("exactly one of event or token must be set")
	}

	var result *runner.PostResult
	err := s.sessions.WithLock(ctx, sessionID, func(ctx context.Context) error {
		// Direct store access; the manager methods would re-take the
		// session lock.
		before, err := s.sessions.Store().Load(ctx, sessionID)
		if err != nil {
			return err
		}
		disp, err := s.engine.Dispatcher(ctx, before.Machine)
		if err != nil {
			return fmt.Errorf("machine %q: %w", before.Machine, err)
		}

		if event != "" {
			result = runner.ApplyEvent(ctx, disp, before, domain.Event(event))
		} else {
			result = runner.ApplyToken(ctx, disp, before, token)
		}
		if result.Dropped {
			return nil
		}
		return s.sessions.Store().Save(ctx, result.Snapshot)
	})
	if err != nil {
		return DispatchResponse{}, fmt.Errorf("dispatch to session %q: %w", sessionID, err)
	}

	resp := DispatchResponse{
		Session: sessionState(result.Snapshot),
		Dropped: result.Dropped,
		Notices: result.Notices,
	}
	if !result.Dropped {
		oi := outcomeInfo(result.Outcome)
		resp.Outcome = &oi
	}
	return resp, nil
}

func (s *Server) handleSessionState(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (DispatchResponse, error) {
	if s.sessions == nil {
		return DispatchResponse{}, errors.New("session store not configured")
	}
	sessionID, _ := args["session_id"].(string)

	snap, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return DispatchResponse{}, fmt.Errorf("session %q: %w", sessionID, err)
	}
	return DispatchResponse{Session: sessionState(snap)}, nil
}

func (s *Server) registerResources(ctx context.Context) error {
	// EXPOSE: signalbox://machines
	s.mcpServer.AddResource(mcp.NewResource("signalbox://machines", "Loaded Machines",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		names, err := s.engine.Machines(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list machines: %w", err)
		}
		payload, _ := json.Marshal(names)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "signalbox://machines",
				MIMEType: "application/json",
				Text:     string(payload),
			},
		}, nil
	})

	// EXPOSE: signalbox://machines/<name>/graph, one per machine
	names, err := s.engine.Machines(ctx)
	if err != nil {
		return fmt.Errorf("failed to list machines for resources: %w", err)
	}
	for _, name := range names {
		uri := fmt.Sprintf("signalbox://machines/%s/graph", name)
		s.mcpServer.AddResource(mcp.NewResource(uri, fmt.Sprintf("%s Diagram", name),
			mcp.WithMIMEType("text/plain"),
		), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			m, err := s.engine.Machine(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("machine %q: %w", name, err)
			}
			return []mcp.ResourceContents{
				mcp.TextResourceContents{
					URI:      uri,
					MIMEType: "text/plain",
					Text:     graph.GenerateMermaid(m, nil),
				},
			}, nil
		})
	}
	return nil
}

// -- Helpers --

// MachineInfo is the machine definition as reported to agents.
type MachineInfo struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Initial     string      `json:"initial"`
	States      []StateInfo `json:"states"`
	Events      []string    `json:"events,omitempty"`
	Tokens      []TokenInfo `json:"tokens,omitempty"`
}

// GraphResponse carries rendered diagram source.
type GraphResponse struct {
	Format string `json:"format"`
	Source string `json:"source" jsonschema_description:"Diagram source text"`
}

// StateInfo describes one state and its outgoing transitions.
type StateInfo struct {
	ID          string           `json:"id"`
	Label       string           `json:"label,omitempty"`
	Entry       []string         `json:"entry,omitempty"`
	Exit        []string         `json:"exit,omitempty"`
	Transitions []TransitionInfo `json:"transitions,omitempty"`
}

// TransitionInfo describes one transition rule.
type TransitionInfo struct {
	On       string   `json:"on"`
	To       string   `json:"to"`
	Guard    string   `json:"guard,omitempty"`
	Internal bool     `json:"internal,omitempty"`
	Actions  []string `json:"actions,omitempty"`
}

// TokenInfo describes one input token binding.
type TokenInfo struct {
	Key    string `json:"key"`
	Event  string `json:"event"`
	Notice string `json:"notice,omitempty"`
}

func machineInfo(m *domain.Machine) MachineInfo {
	initial, _ := m.Initial()
	info := MachineInfo{
		Name:        m.Name(),
		Description: m.Description(),
		Initial:     string(initial),
	}

	byState := make(map[domain.State][]TransitionInfo)
	for _, t := range m.Transitions() {
		byState[t.From] = append(byState[t.From], TransitionInfo{
			On:       string(t.On),
			To:       string(t.To),
			Guard:    t.Guard.Name,
			Internal: t.Internal,
			Actions:  domain.ActionNames(t.Actions),
		})
	}
	for _, def := range m.States() {
		info.States = append(info.States, StateInfo{
			ID:          string(def.ID),
			Label:       def.Label,
			Entry:       domain.ActionNames(def.Entry),
			Exit:        domain.ActionNames(def.Exit),
			Transitions: byState[def.ID],
		})
	}
	for _, ev := range m.Events() {
		info.Events = append(info.Events, string(ev))
	}
	for _, tok := range m.Tokens() {
		info.Tokens = append(info.Tokens, TokenInfo{
			Key:    string(tok.Key),
			Event:  string(tok.Event),
			Notice: tok.Notice,
		})
	}
	return info
}

func outcomeInfo(o domain.Outcome) OutcomeInfo {
	return OutcomeInfo{
		From:     string(o.From),
		On:       string(o.On),
		To:       string(o.To),
		Actions:  domain.ActionNames(o.Actions),
		Matched:  o.Matched,
		Internal: o.Internal,
	}
}

func sessionState(snap domain.Snapshot) SessionState {
	st := SessionState{
		SessionID: snap.SessionID,
		Machine:   snap.Machine,
		State:     string(snap.State),
		Countdown: snap.Countdown.String(),
		UpdatedAt: snap.UpdatedAt.Format(time.RFC3339Nano),
	}
	if deadline, ok := snap.Deadline(); ok {
		st.Deadline = deadline.Format(time.RFC3339Nano)
	}
	return st
}
