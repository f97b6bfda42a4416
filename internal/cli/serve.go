package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/signalbox"
	"github.com/aretw0/signalbox/internal/logging"
	httpAdapter "github.com/aretw0/signalbox/pkg/adapters/http"
	"github.com/aretw0/signalbox/pkg/persistence/middleware"
	"github.com/aretw0/signalbox/pkg/session"
)

// shutdownGrace is how long outstanding requests get to finish.
const shutdownGrace = 5 * time.Second

// RunServe starts the stateless HTTP server.
func RunServe(cfg *ServeConfig, src SourceOptions) error {
	logger := logging.NewJSON(logging.ParseLevel(cfg.LogLevel))

	eng, err := BuildEngine(src, logger)
	if err != nil {
		return fmt.Errorf("error initializing signalbox: %w", err)
	}

	store, locker, closeStore, err := openStore(cfg.Store.StoreOptions())
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer closeStore()

	// Request latency and store errors show up in /metrics; store
	// traffic itself only in debug logs.
	wrapped := middleware.Chain(store,
		middleware.NewLoggingMiddleware(logger),
		middleware.NewInstrumentationMiddleware(),
	)

	sessions := session.NewManager(wrapped,
		session.WithLocker(locker),
		session.WithLockTTL(cfg.Store.LockTTL),
	)

	handler := httpAdapter.NewHandler(eng,
		httpAdapter.WithSessions(sessions),
		httpAdapter.WithLogger(logger),
		httpAdapter.WithVersion(signalbox.Version),
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: handler,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "addr", srv.Addr, "store", cfg.Store.Kind)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info("Starting shutdown", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("Graceful shutdown did not complete", "timeout", shutdownGrace, "err", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("could not stop server: %w", err)
			}
		}
		logger.Info("Server stopped gracefully")
	}
	return nil
}
