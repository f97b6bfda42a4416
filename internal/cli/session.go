package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/signalbox"
	"github.com/aretw0/signalbox/internal/presentation/tui"
	"github.com/aretw0/signalbox/pkg/domain"
	"github.com/aretw0/signalbox/pkg/persistence/middleware"
	"github.com/aretw0/signalbox/pkg/ports"
	"github.com/aretw0/signalbox/pkg/runner"
)

// RunSession executes a single interactive session.
func RunSession(opts RunOptions) error {
	logger := createLogger(opts.Debug)
	quiet := opts.JSON || opts.Headless

	interactive := tui.IsInteractive() && !quiet
	if interactive {
		tui.PrintBanner(strings.TrimSpace(signalbox.Version))
	}

	engineOpts := []signalbox.Option{}
	if opts.Debug {
		engineOpts = append(engineOpts, signalbox.WithLifecycleHooks(createDebugHooks(logger)))
	}
	eng, err := BuildEngine(opts.Source, logger, engineOpts...)
	if err != nil {
		return fmt.Errorf("error initializing signalbox: %w", err)
	}

	sm := runner.NewSignalManager(context.Background())
	defer sm.Stop()
	ctx := sm.Context()

	name, err := selectMachine(ctx, eng, opts.Source.Machine)
	if err != nil {
		return err
	}

	// Persistence
	var store ports.SnapshotStore
	if opts.SessionID != "" {
		raw, _, closeStore, err := openStore(opts.Store)
		if err != nil {
			return fmt.Errorf("failed to open session store: %w", err)
		}
		defer closeStore()

		store = raw
		if opts.Debug {
			store = middleware.Chain(raw, middleware.NewLoggingMiddleware(logger))
		}
		if opts.Fresh {
			if err := store.Delete(ctx, opts.SessionID); err != nil {
				logger.Warn("Failed to reset session", "session_id", opts.SessionID, "err", err)
			}
		}
	}

	// Hydrate: resume when a snapshot for this machine exists.
	var resume *domain.Snapshot
	if store != nil {
		snap, err := store.Load(ctx, opts.SessionID)
		switch {
		case err == nil:
			if snap.Machine != name {
				return fmt.Errorf("session %q belongs to machine %q, not %q", opts.SessionID, snap.Machine, name)
			}
			resume = &snap
		case errors.Is(err, domain.ErrSessionNotFound):
			// Fresh session.
		default:
			return fmt.Errorf("failed to load session: %w", err)
		}
	}

	var resumedAt domain.State
	if resume != nil {
		resumedAt = resume.State
	}
	logSessionStatus(logger, opts.SessionID, resumedAt, resume != nil, quiet)

	var handler runner.IOHandler
	if opts.JSON {
		handler = runner.NewJSONHandler(os.Stdin, os.Stdout)
	} else {
		th := runner.NewTextHandler()
		if interactive {
			th.Styler = tui.StateLabel
		}
		handler = th
	}

	rOpts := []runner.Option{
		runner.WithHandler(handler),
		runner.WithLogger(logger),
		runner.WithMaxIterations(opts.Iterations),
	}
	if store != nil {
		rOpts = append(rOpts, runner.WithStore(store), runner.WithSessionID(opts.SessionID))
	}

	disp, err := eng.Dispatcher(ctx, name)
	if err != nil {
		return err
	}

	runErr := runner.NewRunner(rOpts...).Run(ctx, disp, resume)

	// An interrupt usually cancels the context before the input error
	// surfaces, but a terminal may close stdin first. CheckRace gives
	// the signal a moment to win.
	interrupted := sm.Interrupted() || (runErr == nil && sm.CheckRace())
	logCompletion(runErr, interrupted, quiet)

	return handleExecutionError(runErr)
}
