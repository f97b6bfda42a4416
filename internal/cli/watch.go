package cli

import (
	"context"
	"crypto/md5"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/signalbox"
	"github.com/aretw0/signalbox/internal/presentation/tui"
	"github.com/aretw0/signalbox/pkg/domain"
	"github.com/aretw0/signalbox/pkg/ports"
	"github.com/aretw0/signalbox/pkg/runner"
)

// RunWatch executes the machine in development mode, reloading the
// definition on changes. The session survives reloads, so edits to the
// definition pick up from the state the user was in.
func RunWatch(opts RunOptions) error {
	logger := createLogger(opts.Debug)
	tui.PrintBanner(strings.TrimSpace(signalbox.Version))

	source := opts.Source.File
	if source == "" {
		source = opts.Source.Dir
	}

	// Default session for watch mode to enable stateful hot reload.
	// Scoped by source hash to prevent collisions between projects.
	if opts.SessionID == "" {
		hash := md5.Sum([]byte(source))
		opts.SessionID = fmt.Sprintf("watch-%x", hash[:4])
	}

	store, _, closeStore, err := openStore(opts.Store)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer closeStore()

	sm := runner.NewSignalManager(context.Background())
	defer sm.Stop()

	if opts.Fresh {
		if err := store.Delete(sm.Context(), opts.SessionID); err != nil {
			logger.Warn("Failed to reset session", "session_id", opts.SessionID, "err", err)
		}
	}

	logger.Info("Starting watcher", "source", source, "session_id", opts.SessionID)
	printSystemMessage("Watcher at '%s' session.", opts.SessionID)

	// One handler for every iteration. A fresh handler per reload would
	// leave the previous one's stdin pump alive, and the ghost reader
	// steals lines from the new one.
	handler := runner.NewTextHandler()
	if tui.IsInteractive() {
		handler.Styler = tui.StateLabel
	}

	for {
		again, err := watchIteration(sm, opts, handler, store, logger)
		if err != nil {
			return err
		}
		if !again {
			return nil
		}
		logger.Info("Watcher restarting")
	}
}

// watchIteration builds the engine, runs the session and reports
// whether the watcher should go around again.
func watchIteration(sm *runner.SignalManager, opts RunOptions, handler runner.IOHandler, store ports.SnapshotStore, logger *slog.Logger) (bool, error) {
	ctx, cancel := context.WithCancel(sm.Context())
	defer cancel()

	engineOpts := []signalbox.Option{}
	if opts.Debug {
		engineOpts = append(engineOpts, signalbox.WithLifecycleHooks(createDebugHooks(logger)))
	}
	eng, err := BuildEngine(opts.Source, logger, engineOpts...)
	if err != nil {
		logger.Error("Engine initialization failed", "err", err)
		return waitBackoff(sm), nil
	}

	name, err := selectMachine(ctx, eng, opts.Source.Machine)
	if err != nil {
		// Typically a definition broken mid-edit. Wait for the fix.
		logger.Error("Machine selection failed", "err", err)
		return waitBackoff(sm), nil
	}

	machine, err := eng.Machine(ctx, name)
	if err != nil {
		logger.Error("Machine load failed", "err", err)
		return waitBackoff(sm), nil
	}

	watchCh, err := eng.Watch(ctx)
	if err != nil {
		return false, fmt.Errorf("source does not support watching: %w", err)
	}

	// Rehydrate, with a reload guardrail: the saved state may have been
	// renamed or removed by the edit.
	var resume *domain.Snapshot
	snap, err := store.Load(ctx, opts.SessionID)
	if err == nil && snap.Machine == name {
		if machine.HasState(snap.State) {
			resume = &snap
		} else {
			printSystemMessage("State '%s' no longer exists, restarting at initial.", snap.State)
		}
	}

	reloadCh := make(chan struct{}, 1)
	go func() {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-watchCh:
			if !ok {
				return
			}
			if !opts.Debug {
				fmt.Printf("\n")
			}
			printSystemMessage("Change detected, reloading...")
			// Let the file system settle before recompiling.
			time.Sleep(100 * time.Millisecond)
			reloadCh <- struct{}{}
			cancel()
		}
	}()

	if resume != nil {
		printSystemMessage("Resuming at '%s'...", resume.State)
	}

	disp, err := eng.Dispatcher(ctx, name)
	if err != nil {
		return false, err
	}

	r := runner.NewRunner(
		runner.WithHandler(handler),
		runner.WithLogger(logger),
		runner.WithStore(store),
		runner.WithSessionID(opts.SessionID),
		runner.WithMaxIterations(opts.Iterations),
	)

	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()

	done := make(chan error, 1)
	go func() {
		done <- r.Run(runCtx, disp, resume)
	}()

	select {
	case <-sm.Context().Done():
		runCancel()
		<-done
		logCompletion(nil, true, false)
		logger.Info("Stopping watcher (signal received)")
		return false, nil
	case <-reloadCh:
		runCancel()
		<-done
		return true, nil
	case err := <-done:
		if err != nil && !isInterrupted(err) {
			logger.Error("Runtime error", "err", err)
		}
		// Input ended or the iteration cap hit. Hold the session open
		// until the definition changes again.
		printSystemMessage("Waiting for changes...")
		select {
		case <-sm.Context().Done():
			logCompletion(nil, true, false)
			return false, nil
		case <-reloadCh:
			return true, nil
		}
	}
}

// waitBackoff pauses before the next attempt after a failed engine
// build, unless a signal arrives first.
func waitBackoff(sm *runner.SignalManager) bool {
	select {
	case <-sm.Context().Done():
		return false
	case <-time.After(2 * time.Second):
		return true
	}
}
