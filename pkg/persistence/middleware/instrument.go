package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aretw0/signalbox/pkg/domain"
	"github.com/aretw0/signalbox/pkg/ports"
)

var (
	storeOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signalbox_store_operations_total",
		Help: "Total number of snapshot store operations by op and status",
	}, []string{"op", "status"})

	storeOpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "signalbox_store_operation_duration_seconds",
		Help:    "Duration of snapshot store operations",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"op"})
)

type instrumentMiddleware struct {
	next ports.SnapshotStore
}

// NewInstrumentationMiddleware creates a middleware that records
// Prometheus counters and latency histograms for every store operation.
// Collectors live on the default registry, next to the dispatch metrics.
func NewInstrumentationMiddleware() Middleware {
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &instrumentMiddleware{next: next}
	}
}

func (m *instrumentMiddleware) Save(ctx context.Context, snapshot domain.Snapshot) error {
	start := time.Now()
	err := m.next.Save(ctx, snapshot)
	record("save", err, time.Since(start))
	return err
}

func (m *instrumentMiddleware) Load(ctx context.Context, sessionID string) (domain.Snapshot, error) {
	start := time.Now()
	snap, err := m.next.Load(ctx, sessionID)
	record("load", err, time.Since(start))
	return snap, err
}

func (m *instrumentMiddleware) Delete(ctx context.Context, sessionID string) error {
	start := time.Now()
	err := m.next.Delete(ctx, sessionID)
	record("delete", err, time.Since(start))
	return err
}

func (m *instrumentMiddleware) List(ctx context.Context) ([]string, error) {
	start := time.Now()
	ids, err := m.next.List(ctx)
	record("list", err, time.Since(start))
	return ids, err
}

func record(op string, err error, elapsed time.Duration) {
	status := "ok"
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		status = "miss"
	case err != nil:
		status = "error"
	}
	storeOpsTotal.WithLabelValues(op, status).Inc()
	storeOpDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}
