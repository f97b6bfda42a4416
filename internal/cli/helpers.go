package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/signalbox/internal/logging"
	"github.com/aretw0/signalbox/pkg/adapters/memory"
	redisAdapter "github.com/aretw0/signalbox/pkg/adapters/redis"
	"github.com/aretw0/signalbox/pkg/adapters/sqlite"
	"github.com/aretw0/signalbox/pkg/domain"
	"github.com/aretw0/signalbox/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// createLogger configures the application logger.
// In debug mode, it writes to Stderr (to separate from Stdout flow UI).
func createLogger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.NewNop()
}

// printSystemMessage prints a standardized system message to stdout.
func printSystemMessage(format string, args ...any) {
	fmt.Printf(">>> %s\n", fmt.Sprintf(format, args...))
}

// openStore builds the snapshot store and matching session locker for
// the selected backend. The returned closer releases the backend
// connection and is safe to call once.
func openStore(opts StoreOptions) (ports.SnapshotStore, ports.SessionLocker, func(), error) {
	switch opts.Kind {
	case "", "memory":
		return memory.NewStore(), memory.NewLocker(), func() {}, nil
	case "redis":
		client := backend.NewClient(&backend.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		})
		store := redisAdapter.NewFromClient(client)
		locker := redisAdapter.NewLocker(client, "signalbox:session:")
		return store, locker, func() { _ = client.Close() }, nil
	case "sqlite":
		if dir := filepath.Dir(opts.SQLitePath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, nil, fmt.Errorf("failed to create store directory: %w", err)
			}
		}
		store, err := sqlite.New(opts.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		// Locks stay local: a SQLite file is single-host by nature.
		return store, memory.NewLocker(), func() { _ = store.Close() }, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown store kind %q (supported: memory, redis, sqlite)", opts.Kind)
	}
}

// createDebugHooks wires lifecycle observers that narrate every dispatch
// at debug level.
func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateExit: func(ctx context.Context, e *domain.StateEvent) {
			logger.Debug("Exit state", "state", e.State, "via", e.Via)
		},
		OnStateEnter: func(ctx context.Context, e *domain.StateEvent) {
			logger.Debug("Enter state", "state", e.State, "via", e.Via)
		},
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.Debug("Transition", "from", e.From, "to", e.To, "on", e.On, "actions", e.Actions)
		},
		OnEventIgnored: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.Debug("Event ignored", "state", e.From, "on", e.On)
		},
	}
}

func logSessionStatus(logger *slog.Logger, sessionID string, state domain.State, loaded, quiet bool) {
	if loaded {
		logger.Info("Session resumed", "session_id", sessionID, "state", state)
		if !quiet {
			printSystemMessage("Resuming at '%s'...", state)
		}
	} else if sessionID != "" {
		logger.Info("Session created", "session_id", sessionID)
		if !quiet {
			printSystemMessage("Session '%s' active.", sessionID)
		}
	}
}

func isInterrupted(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, io.EOF)
}

// handleExecutionError converts interruptions into a clean exit.
func handleExecutionError(err error) error {
	if err == nil || isInterrupted(err) {
		return nil
	}
	return err
}

// logCompletion prints the closing system message after a run ends.
// The runner returns nil for clean endings; the interrupted flag tells
// a signal apart from input simply running out.
func logCompletion(err error, interrupted, quiet bool) {
	if quiet {
		return
	}
	if interrupted {
		fmt.Printf("\n")
		printSystemMessage("Interrupted.")
		return
	}
	if err == nil || isInterrupted(err) {
		printSystemMessage("Finished.")
	}
}
