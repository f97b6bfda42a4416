package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/signalbox/pkg/domain"
	"github.com/aretw0/signalbox/pkg/ports"
)

type loggingMiddleware struct {
	next   ports.SnapshotStore
	logger *slog.Logger
}

// NewLoggingMiddleware creates a middleware that logs every store
// operation with its duration. Successful calls log at Debug, failures
// at Warn.
func NewLoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &loggingMiddleware{next: next, logger: logger}
	}
}

func (m *loggingMiddleware) Save(ctx context.Context, snapshot domain.Snapshot) error {
	start := time.Now()
	err := m.next.Save(ctx, snapshot)
	m.log(ctx, "save", err, time.Since(start),
		slog.String("session_id", snapshot.SessionID),
		slog.String("state", string(snapshot.State)),
	)
	return err
}

func (m *loggingMiddleware) Load(ctx context.Context, sessionID string) (domain.Snapshot, error) {
	start := time.Now()
	snap, err := m.next.Load(ctx, sessionID)
	m.log(ctx, "load", err, time.Since(start),
		slog.String("session_id", sessionID),
	)
	return snap, err
}

func (m *loggingMiddleware) Delete(ctx context.Context, sessionID string) error {
	start := time.Now()
	err := m.next.Delete(ctx, sessionID)
	m.log(ctx, "delete", err, time.Since(start),
		slog.String("session_id", sessionID),
	)
	return err
}

func (m *loggingMiddleware) List(ctx context.Context) ([]string, error) {
	start := time.Now()
	ids, err := m.next.List(ctx)
	m.log(ctx, "list", err, time.Since(start),
		slog.Int("sessions", len(ids)),
	)
	return ids, err
}

func (m *loggingMiddleware) log(ctx context.Context, op string, err error, elapsed time.Duration, attrs ...any) {
	attrs = append(attrs,
		slog.String("op", op),
		slog.Duration("duration", elapsed),
	)
	switch {
	case err == nil:
		m.logger.DebugContext(ctx, "Store operation", attrs...)
	case errors.Is(err, domain.ErrSessionNotFound):
		// Misses are part of normal LoadOrStart traffic, not failures.
		m.logger.DebugContext(ctx, "Store operation missed", attrs...)
	default:
		attrs = append(attrs, slog.Any("error", err))
		m.logger.WarnContext(ctx, "Store operation failed", attrs...)
	}
}
