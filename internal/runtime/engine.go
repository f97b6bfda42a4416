package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/signalbox/internal/logging"
	"github.com/aretw0/signalbox/internal/observability"
	"github.com/aretw0/signalbox/pkg/domain"
	"go.opentelemetry.io/otel/trace"
)

// Engine is the core dispatcher. It resolves events against the
// machine definition and executes the bound actions, but owns no
// mutable cell itself: current state and countdown stay with the
// caller, which passes them in and receives the results.
type Engine struct {
	machine *domain.Machine
	logger  *slog.Logger
	hooks   domain.LifecycleHooks
	metrics bool
	tracing bool
}

// Option configures the engine.
type Option func(*Engine)

// WithLogger sets the logger used for dispatch diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observers for state changes.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithMetrics enables Prometheus counters on the dispatch path.
func WithMetrics(enabled bool) Option {
	return func(e *Engine) {
		e.metrics = enabled
	}
}

// WithTracing enables OpenTelemetry spans around dispatches and actions.
func WithTracing(enabled bool) Option {
	return func(e *Engine) {
		e.tracing = enabled
	}
}

// NewEngine creates a new engine for the given machine.
func NewEngine(machine *domain.Machine, opts ...Option) *Engine {
	e := &Engine{
		machine: machine,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Machine returns the definition the engine dispatches against.
func (e *Engine) Machine() *domain.Machine {
	return e.machine
}

// Resolve answers what an event would do in the given state, without
// executing anything.
func (e *Engine) Resolve(state domain.State, event domain.Event) domain.Outcome {
	return e.machine.Resolve(state, event)
}

// Start executes the boot actions and the initial state's entry
// actions against fx, then returns the initial state. It mirrors what
// a matched transition does when entering a state, so a machine that
// arms its timer on entry starts ticking immediately.
func (e *Engine) Start(ctx context.Context, fx domain.Effects) domain.State {
	initial, boot := e.machine.Initial()

	e.runActions(ctx, boot, initial, fx)
	e.runActions(ctx, e.machine.EntryActions(initial), initial, fx)
	e.emitStateEnter(ctx, initial, "")

	e.logger.Debug("machine started", "machine", e.machine.Name(), "state", initial)
	return initial
}

// Post dispatches a single event: it resolves the transition for
// (state, event), executes exit, transition and entry actions in that
// order, and returns the resulting state. Dispatch is total: an
// unmatched pair keeps the state and runs nothing.
func (e *Engine) Post(ctx context.Context, state domain.State, event domain.Event, fx domain.Effects) domain.State {
	started := time.Now()
	out := e.machine.Resolve(state, event)

	if e.tracing {
		var span trace.Span
		ctx, span = observability.StartDispatchSpan(ctx, e.machine.Name(), string(state), string(event))
		defer span.End()
	}

	if !out.Matched {
		e.emitEventIgnored(ctx, out)
		if e.metrics {
			observability.RecordIgnored(e.machine.Name(), string(state), string(event), time.Since(started))
		}
		e.logger.Debug("event ignored",
			"machine", e.machine.Name(), "state", state, "event", event)
		return out.To
	}

	if !out.Internal {
		e.emitStateExit(ctx, out.From, event)
		e.runActions(ctx, e.machine.ExitActions(out.From), out.From, fx)
	}
	e.runActions(ctx, out.Actions, out.From, fx)
	if !out.Internal {
		e.runActions(ctx, e.machine.EntryActions(out.To), out.To, fx)
		e.emitStateEnter(ctx, out.To, event)
	}
	e.emitTransition(ctx, out)

	if e.metrics {
		observability.RecordTransition(e.machine.Name(), string(out.From), string(out.To), string(event), time.Since(started))
	}
	e.logger.Debug("event dispatched",
		"machine", e.machine.Name(), "from", out.From, "event", event, "to", out.To)
	return out.To
}

func (e *Engine) runActions(ctx context.Context, actions []domain.Action, state domain.State, fx domain.Effects) {
	for _, action := range actions {
		if e.tracing {
			_, span := observability.StartActionSpan(ctx, action.Name(), string(state))
			action.Apply(fx)
			span.End()
			continue
		}
		action.Apply(fx)
	}
}

func (e *Engine) emitStateExit(ctx context.Context, state domain.State, via domain.Event) {
	if e.hooks.OnStateExit == nil {
		return
	}
	e.hooks.OnStateExit(ctx, &domain.StateEvent{
		Machine: e.machine.Name(),
		State:   state,
		Via:     via,
	})
}

func (e *Engine) emitStateEnter(ctx context.Context, state domain.State, via domain.Event) {
	if e.hooks.OnStateEnter == nil {
		return
	}
	e.hooks.OnStateEnter(ctx, &domain.StateEvent{
		Machine: e.machine.Name(),
		State:   state,
		Via:     via,
	})
}

func (e *Engine) emitTransition(ctx context.Context, out domain.Outcome) {
	if e.hooks.OnTransition == nil {
		return
	}
	e.hooks.OnTransition(ctx, &domain.TransitionEvent{
		Machine: e.machine.Name(),
		From:    out.From,
		To:      out.To,
		On:      out.On,
		Actions: domain.ActionNames(out.Actions),
		Matched: true,
	})
}

func (e *Engine) emitEventIgnored(ctx context.Context, out domain.Outcome) {
	if e.hooks.OnEventIgnored == nil {
		return
	}
	e.hooks.OnEventIgnored(ctx, &domain.TransitionEvent{
		Machine: e.machine.Name(),
		From:    out.From,
		To:      out.To,
		On:      out.On,
		Matched: false,
	})
}
