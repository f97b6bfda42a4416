// Package http exposes the signalbox engine over a REST surface with
// an SSE stream for session updates. Timers never fire here: every
// response carries the countdown and deadline so the client decides
// when to post Timeout.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/signalbox/api"
	"github.com/aretw0/signalbox/internal/logging"
	"github.com/aretw0/signalbox/internal/presentation/graph"
	"github.com/aretw0/signalbox/pkg/domain"
	"github.com/aretw0/signalbox/pkg/ports"
	"github.com/aretw0/signalbox/pkg/runner"
	"github.com/aretw0/signalbox/pkg/session"
)

// Engine is the slice of the signalbox facade the HTTP surface needs.
type Engine interface {
	Machines(ctx context.Context) ([]string, error)
	Machine(ctx context.Context, name string) (*domain.Machine, error)
	Dispatcher(ctx context.Context, name string) (ports.Dispatcher, error)
	Watch(ctx context.Context) (<-chan struct{}, error)
}

// Server holds the handler state. Session endpoints answer 503 when no
// session manager is configured.
type Server struct {
	engine   Engine
	sessions *session.Manager
	streams  *StreamManager
	logger   *slog.Logger
	version  string
}

// Option configures the Server.
type Option func(*Server)

// WithSessions enables the /sessions endpoints backed by the manager.
func WithSessions(mgr *session.Manager) Option {
	return func(s *Server) { s.sessions = mgr }
}

// WithLogger sets the request logger. Defaults to a no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithVersion sets the build version reported by /info.
func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		engine:  engine,
		logger:  logging.NewNop(),
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.streams = NewStreamManager(s.logger)

	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(api.Raw())
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})

	r.Get("/health", s.getHealth)
	r.Get("/info", s.getInfo)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Get("/machines", s.listMachines)
	r.Route("/machines/{name}", func(r chi.Router) {
		r.Get("/", s.getMachine)
		r.Get("/graph", s.getMachineGraph)
		r.Post("/resolve", s.resolveEvent)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.listSessions)
		r.Post("/", s.startSession)
		r.Get("/{id}", s.getSession)
		r.Delete("/{id}", s.deleteSession)
		r.Post("/{id}/events", s.postEvent)
	})

	r.Get("/events", s.subscribeEvents)

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Signalbox API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// -- Wire types --

// MachineView is the JSON shape of a machine definition.
type MachineView struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Initial     string      `json:"initial"`
	States      []StateView `json:"states"`
	Events      []string    `json:"events,omitempty"`
	Tokens      []TokenView `json:"tokens,omitempty"`
}

// StateView describes one state and its outgoing transitions.
type StateView struct {
	ID          string           `json:"id"`
	Label       string           `json:"label,omitempty"`
	Color       string           `json:"color,omitempty"`
	Entry       []string         `json:"entry,omitempty"`
	Exit        []string         `json:"exit,omitempty"`
	Transitions []TransitionView `json:"transitions,omitempty"`
}

// TransitionView describes one transition rule.
type TransitionView struct {
	On       string   `json:"on"`
	To       string   `json:"to"`
	Guard    string   `json:"guard,omitempty"`
	Internal bool     `json:"internal,omitempty"`
	Actions  []string `json:"actions,omitempty"`
}

// TokenView describes one input token binding.
type TokenView struct {
	Key    string `json:"key"`
	Event  string `json:"event"`
	Notice string `json:"notice,omitempty"`
}

// OutcomeView is the JSON shape of a resolved dispatch.
type OutcomeView struct {
	From     string   `json:"from"`
	On       string   `json:"on"`
	To       string   `json:"to"`
	Actions  []string `json:"actions,omitempty"`
	Matched  bool     `json:"matched"`
	Internal bool     `json:"internal,omitempty"`
}

// SessionView is the JSON shape of a session snapshot. Deadline is the
// absolute instant the armed countdown elapses; absent when unarmed.
type SessionView struct {
	SessionID string           `json:"session_id"`
	Machine   string           `json:"machine"`
	State     string           `json:"state"`
	Countdown domain.Countdown `json:"countdown"`
	Deadline  *time.Time       `json:"deadline,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// DispatchResult is the response of session start and event dispatch.
type DispatchResult struct {
	Session SessionView  `json:"session"`
	Outcome *OutcomeView `json:"outcome,omitempty"`
	Dropped bool         `json:"dropped,omitempty"`
	Notices []string     `json:"notices,omitempty"`
}

// StartSessionRequest is the body of POST /sessions.
type StartSessionRequest struct {
	Machine   string `json:"machine"`
	SessionID string `json:"session_id,omitempty"`
}

// PostEventRequest is the body of POST /sessions/{id}/events. Exactly
// one of Event or Token must be set.
type PostEventRequest struct {
	Event string `json:"event,omitempty"`
	Token string `json:"token,omitempty"`
}

// ResolveRequest is the body of POST /machines/{name}/resolve.
type ResolveRequest struct {
	State string `json:"state"`
	Event string `json:"event"`
}

// -- Handlers --

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := api.GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "signalbox-http",
		"version":     s.version,
		"api_version": apiVersion,
	})
}

func (s *Server) listMachines(w http.ResponseWriter, r *http.Request) {
	names, err := s.engine.Machines(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("list machines: %v", err), http.StatusInternalServerError)
		s.logger.Error("list machines failed", "error", err)
		return
	}
	if names == nil {
		names = []string{}
	}
	s.writeJSON(w, http.StatusOK, names)
}

func (s *Server) getMachine(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	m, err := s.engine.Machine(r.Context(), name)
	if err != nil {
		http.Error(w, fmt.Sprintf("machine %q: %v", name, err), http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, machineView(m))
}

func (s *Server) getMachineGraph(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	m, err := s.engine.Machine(r.Context(), name)
	if err != nil {
		http.Error(w, fmt.Sprintf("machine %q: %v", name, err), http.StatusNotFound)
		return
	}

	var params struct {
		Format    *string
		SessionID *string
	}
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &params.Format); err != nil {
		http.Error(w, fmt.Sprintf("invalid format parameter: %v", err), http.StatusBadRequest)
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "session_id", r.URL.Query(), &params.SessionID); err != nil {
		http.Error(w, fmt.Sprintf("invalid session_id parameter: %v", err), http.StatusBadRequest)
		return
	}

	format := "mermaid"
	if params.Format != nil {
		format = *params.Format
	}

	var overlay *graph.Overlay
	if params.SessionID != nil {
		if s.sessions == nil {
			http.Error(w, "session store not configured", http.StatusServiceUnavailable)
			return
		}
		snap, err := s.sessions.Load(r.Context(), *params.SessionID)
		if err != nil {
			http.Error(w, fmt.Sprintf("session %q: %v", *params.SessionID, err), http.StatusNotFound)
			return
		}
		if snap.Machine != name {
			http.Error(w, fmt.Sprintf("session %q belongs to machine %q", *params.SessionID, snap.Machine), http.StatusNotFound)
			return
		}
		overlay = &graph.Overlay{Current: snap.State}
	}

	var src string
	switch format {
	case "mermaid":
		src = graph.GenerateMermaid(m, overlay)
	case "plantuml":
		src = graph.GeneratePlantUML(m)
	default:
		http.Error(w, fmt.Sprintf("unsupported graph format %q", format), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(src))
}

func (s *Server) resolveEvent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	m, err := s.engine.Machine(r.Context(), name)
	if err != nil {
		http.Error(w, fmt.Sprintf("machine %q: %v", name, err), http.StatusNotFound)
		return
	}

	var body ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		s.logger.Warn("resolve: invalid request body", "error", err)
		return
	}
	if body.State == "" || body.Event == "" {
		http.Error(w, "state and event are required", http.StatusBadRequest)
		return
	}
	if !m.HasState(domain.State(body.State)) {
		http.Error(w, fmt.Sprintf("unknown state %q", body.State), http.StatusUnprocessableEntity)
		return
	}

	outcome := m.Resolve(domain.State(body.State), domain.Event(body.Event))
	s.writeJSON(w, http.StatusOK, outcomeView(outcome))
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		http.Error(w, "session store not configured", http.StatusServiceUnavailable)
		return
	}
	ids, err := s.sessions.List(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("list sessions: %v", err), http.StatusInternalServerError)
		s.logger.Error("list sessions failed", "error", err)
		return
	}

	views := make([]SessionView, 0, len(ids))
	for _, id := range ids {
		snap, err := s.sessions.Load(r.Context(), id)
		if err != nil {
			// The session may have been deleted between List and Load.
			continue
		}
		views = append(views, sessionView(snap))
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		http.Error(w, "session store not configured", http.StatusServiceUnavailable)
		return
	}

	var body StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		s.logger.Warn("start session: invalid request body", "error", err)
		return
	}
	if body.Machine == "" {
		http.Error(w, "machine is required", http.StatusBadRequest)
		return
	}

	disp, err := s.engine.Dispatcher(r.Context(), body.Machine)
	if err != nil {
		http.Error(w, fmt.Sprintf("machine %q: %v", body.Machine, err), http.StatusNotFound)
		return
	}

	sessionID := body.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	// Boot actions run against a throwaway effect surface, so computing
	// the fresh snapshot before knowing whether the session exists is
	// harmless.
	fresh, notices := runner.StartSnapshot(r.Context(), disp, sessionID)
	snap, created, err := s.sessions.LoadOrStart(r.Context(), sessionID, fresh)
	if err != nil {
		if errors.Is(err, domain.ErrSessionLocked) {
			http.Error(w, fmt.Sprintf("session %q is locked", sessionID), http.StatusConflict)
			return
		}
		http.Error(w, fmt.Sprintf("start session: %v", err), http.StatusInternalServerError)
		s.logger.Error("start session failed", "session_id", sessionID, "error", err)
		return
	}
	if !created && snap.Machine != body.Machine {
		http.Error(w, fmt.Sprintf("session %q belongs to machine %q", sessionID, snap.Machine), http.StatusConflict)
		return
	}

	out := DispatchResult{Session: sessionView(snap)}
	status := http.StatusOK
	if created {
		out.Notices = notices
		status = http.StatusCreated
		s.logger.Info("session started", "session_id", sessionID, "machine", body.Machine, "state", snap.State)
	}
	s.writeJSON(w, status, out)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		http.Error(w, "session store not configured", http.StatusServiceUnavailable)
		return
	}
	id := chi.URLParam(r, "id")
	snap, err := s.sessions.Load(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			http.Error(w, fmt.Sprintf("session %q not found", id), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("load session: %v", err), http.StatusInternalServerError)
		s.logger.Error("load session failed", "session_id", id, "error", err)
		return
	}
	s.writeJSON(w, http.StatusOK, sessionView(snap))
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		http.Error(w, "session store not configured", http.StatusServiceUnavailable)
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := s.sessions.Load(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			http.Error(w, fmt.Sprintf("session %q not found", id), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("load session: %v", err), http.StatusInternalServerError)
		return
	}
	if err := s.sessions.Delete(r.Context(), id); err != nil {
		http.Error(w, fmt.Sprintf("delete session: %v", err), http.StatusInternalServerError)
		s.logger.Error("delete session failed", "session_id", id, "error", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) postEvent(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		http.Error(w, "session store not configured", http.StatusServiceUnavailable)
		return
	}
	id := chi.URLParam(r, "id")

	var body PostEventRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		s.logger.Warn("post event: invalid request body", "error", err)
		return
	}
	if (body.Event == "") == (body.Token == "") {
		http.Error(w, "exactly one of event or token must be set", http.StatusBadRequest)
		return
	}

	var result *runner.PostResult
	err := s.sessions.WithLock(r.Context(), id, func(ctx context.Context) error {
		// Store access goes through the manager's store directly; the
		// manager methods would re-take the session lock.
		before, err := s.sessions.Store().Load(ctx, id)
		if err != nil {
			return err
		}
		disp, err := s.engine.Dispatcher(ctx, before.Machine)
		if err != nil {
			return fmt.Errorf("machine %q: %w", before.Machine, err)
		}

		if body.Event != "" {
			result = runner.ApplyEvent(ctx, disp, before, domain.Event(body.Event))
		} else {
			result = runner.ApplyToken(ctx, disp, before, body.Token)
		}
		if result.Dropped {
			return nil
		}

		if err := s.sessions.Store().Save(ctx, result.Snapshot); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		if diff := domain.Diff(before, result.Snapshot); diff != nil {
			if payload, err := json.Marshal(diff); err == nil {
				s.streams.Broadcast(id, string(payload))
			}
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			http.Error(w, fmt.Sprintf("session %q not found", id), http.StatusNotFound)
		case errors.Is(err, domain.ErrSessionLocked):
			http.Error(w, fmt.Sprintf("session %q is locked", id), http.StatusConflict)
		default:
			http.Error(w, fmt.Sprintf("dispatch: %v", err), http.StatusInternalServerError)
			s.logger.Error("dispatch failed", "session_id", id, "error", err)
		}
		return
	}

	s.writeJSON(w, http.StatusOK, dispatchView(result))
}

// subscribeEvents handles the GET /events SSE stream. Without a
// session_id the stream carries definition reload notifications; with
// one it carries the session's state diffs.
func (s *Server) subscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		s.logger.Error("sse: streaming not supported")
		return
	}

	var params struct {
		SessionID *string
		Watch     *string
	}
	if err := runtime.BindQueryParameter("form", true, false, "session_id", r.URL.Query(), &params.SessionID); err != nil {
		http.Error(w, fmt.Sprintf("invalid session_id parameter: %v", err), http.StatusBadRequest)
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "watch", r.URL.Query(), &params.Watch); err != nil {
		http.Error(w, fmt.Sprintf("invalid watch parameter: %v", err), http.StatusBadRequest)
		return
	}

	// Definition reload stream.
	if params.SessionID == nil {
		events, err := s.engine.Watch(r.Context())
		if err != nil {
			http.Error(w, fmt.Sprintf("watch error: %v", err), http.StatusInternalServerError)
			return
		}
		s.logger.Info("sse: subscribing to definition reloads")
		writeSSEHeaders(w)
		fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				fmt.Fprintf(w, "data: reload\n\n")
				flusher.Flush()
			}
		}
	}

	// Session diff stream.
	sessionID := *params.SessionID
	s.logger.Info("sse: subscribing to session updates", "session_id", sessionID)

	ch, cancel := s.streams.Subscribe(sessionID)
	defer cancel()

	writeSSEHeaders(w)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	var watchList []string
	if params.Watch != nil {
		watchList = strings.Split(*params.Watch, ",")
	}

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("sse client disconnected", "session_id", sessionID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(watchList) > 0 && !diffMatches(msg, watchList) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func writeSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

// diffMatches reports whether the serialized diff touches any of the
// watched fields. Unparseable payloads pass through unfiltered.
func diffMatches(msg string, fields []string) bool {
	var diff domain.SnapshotDiff
	if err := json.Unmarshal([]byte(msg), &diff); err != nil {
		return true
	}
	for _, field := range fields {
		switch strings.TrimSpace(field) {
		case "state":
			if diff.State != nil {
				return true
			}
		case "countdown":
			if diff.Countdown != nil {
				return true
			}
		}
	}
	return false
}

// -- Helpers --

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func machineView(m *domain.Machine) MachineView {
	initial, _ := m.Initial()
	view := MachineView{
		Name:        m.Name(),
		Description: m.Description(),
		Initial:     string(initial),
	}

	byState := make(map[domain.State][]TransitionView)
	for _, t := range m.Transitions() {
		byState[t.From] = append(byState[t.From], TransitionView{
			On:       string(t.On),
			To:       string(t.To),
			Guard:    t.Guard.Name,
			Internal: t.Internal,
			Actions:  domain.ActionNames(t.Actions),
		})
	}
	for _, def := range m.States() {
		view.States = append(view.States, StateView{
			ID:          string(def.ID),
			Label:       def.Label,
			Color:       def.Color,
			Entry:       domain.ActionNames(def.Entry),
			Exit:        domain.ActionNames(def.Exit),
			Transitions: byState[def.ID],
		})
	}
	for _, ev := range m.Events() {
		view.Events = append(view.Events, string(ev))
	}
	for _, tok := range m.Tokens() {
		view.Tokens = append(view.Tokens, TokenView{
			Key:    string(tok.Key),
			Event:  string(tok.Event),
			Notice: tok.Notice,
		})
	}
	return view
}

func outcomeView(o domain.Outcome) OutcomeView {
	return OutcomeView{
		From:     string(o.From),
		On:       string(o.On),
		To:       string(o.To),
		Actions:  domain.ActionNames(o.Actions),
		Matched:  o.Matched,
		Internal: o.Internal,
	}
}

func sessionView(s domain.Snapshot) SessionView {
	view := SessionView{
		SessionID: s.SessionID,
		Machine:   s.Machine,
		State:     string(s.State),
		Countdown: s.Countdown,
		UpdatedAt: s.UpdatedAt,
	}
	if deadline, ok := s.Deadline(); ok {
		view.Deadline = &deadline
	}
	return view
}

func dispatchView(res *runner.PostResult) DispatchResult {
	out := DispatchResult{
		Session: sessionView(res.Snapshot),
		Dropped: res.Dropped,
		Notices: res.Notices,
	}
	if !res.Dropped {
		ov := outcomeView(res.Outcome)
		out.Outcome = &ov
	}
	return out
}
