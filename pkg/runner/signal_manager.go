package runner

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// SignalManager owns the interrupt context for a foreground run. It
// exists so hosts can tell "the user hit Ctrl+C" apart from "the input
// pipe closed", which tend to arrive almost together when a terminal
// session ends.
type SignalManager struct {
	ctx  context.Context
	stop context.CancelFunc
}

// NewSignalManager arms SIGINT/SIGTERM handling on top of parent.
func NewSignalManager(parent context.Context) *SignalManager {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	return &SignalManager{ctx: ctx, stop: stop}
}

// Context returns the interrupt-aware context to run the loop with.
func (sm *SignalManager) Context() context.Context {
	return sm.ctx
}

// Interrupted reports whether a signal or parent cancellation already
// fired.
func (sm *SignalManager) Interrupted() bool {
	return sm.ctx.Err() != nil
}

// CheckRace waits briefly for a pending signal to surface. A terminal
// delivers SIGINT and closes stdin in quick succession; a caller that
// saw the input error first can use this to report the interrupt
// instead of a bare EOF.
func (sm *SignalManager) CheckRace() bool {
	select {
	case <-sm.ctx.Done():
		return true
	case <-time.After(100 * time.Millisecond):
		return false
	}
}

// Stop releases the signal registration. Further signals regain their
// default behavior.
func (sm *SignalManager) Stop() {
	sm.stop()
}
