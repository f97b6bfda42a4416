// Package observability instruments the dispatch path with Prometheus
// metrics and OpenTelemetry spans. Collectors are registered on the
// default registry so the HTTP adapter can expose them without extra
// wiring.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// transitionsTotal tracks matched transitions by machine, endpoint states and event.
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signalbox_transitions_total",
		Help: "Total number of matched transitions by machine, from_state, to_state and event",
	}, []string{"machine", "from_state", "to_state", "event"})

	// eventsIgnoredTotal tracks dispatches that hit the identity policy.
	eventsIgnoredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signalbox_events_ignored_total",
		Help: "Total number of events that matched no transition and were silently ignored",
	}, []string{"machine", "state", "event"})

	// tokensDroppedTotal tracks unrecognized input tokens.
	tokensDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signalbox_tokens_dropped_total",
		Help: "Total number of input tokens that mapped to no event",
	}, []string{"machine"})

	// dispatchDuration tracks how long a single dispatch takes, actions included.
	dispatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "signalbox_dispatch_duration_seconds",
		Help:    "Duration of a single event dispatch, bound actions included",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"machine", "event"})

	// countdownArmed reflects whether the machine currently has a pending timeout.
	countdownArmed = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "signalbox_countdown_armed",
		Help: "Whether the machine has an armed countdown (1) or is waiting indefinitely (0)",
	}, []string{"machine"})
)

// RecordTransition counts a matched transition and its dispatch duration.
func RecordTransition(machine, from, to, event string, duration time.Duration) {
	machine = sanitizeMachine(machine)
	transitionsTotal.WithLabelValues(machine, from, to, event).Inc()
	dispatchDuration.WithLabelValues(machine, event).Observe(duration.Seconds())
}

// RecordIgnored counts a dispatch that fell through to the identity policy.
func RecordIgnored(machine, state, event string, duration time.Duration) {
	machine = sanitizeMachine(machine)
	eventsIgnoredTotal.WithLabelValues(machine, state, event).Inc()
	dispatchDuration.WithLabelValues(machine, event).Observe(duration.Seconds())
}

// RecordTokenDropped counts an input token that mapped to no event.
func RecordTokenDropped(machine string) {
	tokensDroppedTotal.WithLabelValues(sanitizeMachine(machine)).Inc()
}

// SetCountdownArmed publishes the armed flag of the countdown.
func SetCountdownArmed(machine string, armed bool) {
	v := 0.0
	if armed {
		v = 1.0
	}
	countdownArmed.WithLabelValues(sanitizeMachine(machine)).Set(v)
}

func sanitizeMachine(machine string) string {
	if machine == "" {
		return "unknown"
	}
	return machine
}
