package signalbox

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/loam"

	"github.com/aretw0/signalbox/internal/logging"
	"github.com/aretw0/signalbox/internal/runtime"
	loamAdapter "github.com/aretw0/signalbox/pkg/adapters/loam"
	"github.com/aretw0/signalbox/pkg/domain"
	"github.com/aretw0/signalbox/pkg/ports"
	"github.com/aretw0/signalbox/pkg/registry"
	"github.com/aretw0/signalbox/pkg/runner"
)

// Engine is the high-level entry point for the signalbox library. It ties
// a machine source (loader) to dispatchers and, optionally, to a snapshot
// store for durable sessions.
type Engine struct {
	loader   ports.MachineLoader
	registry *registry.Registry
	store    ports.SnapshotStore
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	metrics  bool
	tracing  bool
	Name     string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLoader injects a custom MachineLoader, bypassing the default Loam
// initialization.
func WithLoader(l ports.MachineLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithRegistry sets the action/guard registry used when definitions are
// loaded from files. Defaults to the built-in actions.
func WithRegistry(r *registry.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithLifecycleHooks registers observer callbacks on every dispatcher the
// engine builds.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithStore enables durable sessions backed by the given snapshot store.
func WithStore(store ports.SnapshotStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithMetrics enables Prometheus metrics on dispatch and on the run loop.
func WithMetrics(enabled bool) Option {
	return func(e *Engine) {
		e.metrics = enabled
	}
}

// WithTracing enables OpenTelemetry spans around dispatches.
func WithTracing(enabled bool) Option {
	return func(e *Engine) {
		e.tracing = enabled
	}
}

// New initializes a signalbox Engine. By default it reads machine
// definitions from a Loam repository at repoPath, one document per state.
// With WithLoader the path may be empty and Loam is skipped.
func New(repoPath string, opts ...Option) (*Engine, error) {
	eng := &Engine{}

	for _, opt := range opts {
		opt(eng)
	}
	if eng.registry == nil {
		eng.registry = registry.New()
	}
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	if eng.loader == nil {
		if repoPath == "" {
			return nil, fmt.Errorf("repoPath is required when no custom loader is provided")
		}

		absPath, err := filepath.Abs(repoPath)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		eng.Name = filepath.Base(absPath)

		// Strict mode keeps numeric frontmatter types consistent across
		// Loam's JSON and Markdown adapters; read-only because the engine
		// never writes definitions back.
		repo, err := loam.Init(absPath,
			loam.WithStrict(true),
			loam.WithReadOnly(true),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize loam: %w", err)
		}

		typedRepo := loam.NewTypedRepository[loamAdapter.StateMetadata](repo)
		eng.loader = loamAdapter.New(typedRepo, loamAdapter.WithRegistry(eng.registry))
	} else if repoPath != "" {
		eng.Name = filepath.Base(repoPath)
	}

	if eng.Name != "" {
		eng.logger = eng.logger.With("source", eng.Name)
	}

	return eng, nil
}

// Machines returns the names of every machine the loader can provide.
func (e *Engine) Machines(ctx context.Context) ([]string, error) {
	return e.loader.ListMachines(ctx)
}

// Machine loads one machine definition by name.
func (e *Engine) Machine(ctx context.Context, name string) (*domain.Machine, error) {
	return e.loader.LoadMachine(ctx, name)
}

// Dispatcher builds a stateless dispatcher for the named machine, wired
// with the engine's hooks, logger, metrics and tracing settings.
func (e *Engine) Dispatcher(ctx context.Context, name string) (ports.Dispatcher, error) {
	machine, err := e.loader.LoadMachine(ctx, name)
	if err != nil {
		return nil, err
	}
	return runtime.NewEngine(machine,
		runtime.WithLogger(e.logger),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithMetrics(e.metrics),
		runtime.WithTracing(e.tracing),
	), nil
}

// Run drives the named machine interactively until its input ends or ctx
// is cancelled. Runner options come after the engine's defaults, so a
// host can override the handler, session id or iteration cap.
func (e *Engine) Run(ctx context.Context, name string, opts ...runner.Option) error {
	dispatcher, err := e.Dispatcher(ctx, name)
	if err != nil {
		return err
	}

	base := []runner.Option{
		runner.WithLogger(e.logger),
		runner.WithMetrics(e.metrics),
	}
	if e.store != nil {
		base = append(base, runner.WithStore(e.store))
	}
	r := runner.NewRunner(append(base, opts...)...)
	return r.Run(ctx, dispatcher, nil)
}

// Watch returns a channel signaled when the underlying definitions
// change. Returns an error if the loader does not support watching.
func (e *Engine) Watch(ctx context.Context) (<-chan struct{}, error) {
	if w, ok := e.loader.(ports.Watchable); ok {
		return w.Watch(ctx)
	}
	return nil, fmt.Errorf("current loader does not support watching")
}

// Loader returns the underlying MachineLoader used by the engine.
func (e *Engine) Loader() ports.MachineLoader {
	return e.loader
}

// Store returns the configured snapshot store, or nil when sessions are
// not persisted.
func (e *Engine) Store() ports.SnapshotStore {
	return e.store
}

// Registry returns the action/guard registry definitions compile against.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}
