package runner

import (
	"log/slog"

	"github.com/aretw0/signalbox/pkg/ports"
)

// Option configures a Runner.
type Option func(*Runner)

// WithHandler sets the IO handler. The default is a stdin/stdout
// TextHandler.
func WithHandler(h IOHandler) Option {
	return func(r *Runner) {
		r.Handler = h
	}
}

// WithLogger sets the structured logger. A nil logger is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.Logger = logger
		}
	}
}

// WithStore enables session persistence: the runner saves a snapshot
// after every dispatch. Requires WithSessionID to take effect.
func WithStore(store ports.SnapshotStore) Option {
	return func(r *Runner) {
		r.Store = store
	}
}

// WithSessionID names the session snapshots are saved under.
func WithSessionID(id string) Option {
	return func(r *Runner) {
		r.SessionID = id
	}
}

// WithMaxIterations bounds the loop. Zero means unbounded; useful for
// demos and tests that should stop on their own.
func WithMaxIterations(n int) Option {
	return func(r *Runner) {
		r.MaxIterations = n
	}
}

// WithMetrics enables loop-level Prometheus metrics (dropped tokens,
// countdown gauge). Dispatch metrics belong to the engine, not here.
func WithMetrics(enabled bool) Option {
	return func(r *Runner) {
		r.Metrics = enabled
	}
}
