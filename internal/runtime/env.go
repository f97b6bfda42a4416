package runtime

import (
	"time"

	"github.com/aretw0/signalbox/pkg/domain"
)

// Env is the concrete effects cell actions mutate during a dispatch.
// It holds the countdown, the queue of internally raised events and a
// sink for notices. It is not safe for concurrent use: a scheduling
// loop owns one exclusively, and served modes build a fresh one per
// request.
type Env struct {
	countdown domain.Countdown
	touched   bool
	raised    []domain.Event
	notify    func(string)
}

// NewEnv creates an effects cell. The notify sink may be nil, in which
// case notices are dropped.
func NewEnv(notify func(string)) *Env {
	return &Env{notify: notify}
}

// ArmTimer replaces the countdown with the given duration.
func (v *Env) ArmTimer(d time.Duration) {
	v.countdown.Arm(d)
	v.touched = true
}

// StopTimer unarms the countdown.
func (v *Env) StopTimer() {
	v.countdown.Disarm()
	v.touched = true
}

// TimerTouched reports whether an action armed or stopped the timer
// since the last call, and clears the flag. The loop uses it to decide
// whether a running deadline still stands after a dispatch.
func (v *Env) TimerTouched() bool {
	t := v.touched
	v.touched = false
	return t
}

// Raise queues an event for the owning loop to dispatch after the
// current dispatch completes. Actions must not dispatch synchronously.
func (v *Env) Raise(event domain.Event) {
	v.raised = append(v.raised, event)
}

// Notify forwards a one-line notice to the sink.
func (v *Env) Notify(msg string) {
	if v.notify != nil {
		v.notify(msg)
	}
}

// Countdown returns a copy of the current countdown cell.
func (v *Env) Countdown() domain.Countdown {
	return v.countdown
}

// Restore overwrites the countdown cell, used when resuming from a
// persisted snapshot.
func (v *Env) Restore(c domain.Countdown) {
	v.countdown = c
}

// Disarm clears the countdown. The loop calls this when the countdown
// expires, before synthesizing the Timeout event: only an action can
// arm the next one.
func (v *Env) Disarm() {
	v.countdown.Disarm()
}

// PopRaised removes and returns the oldest queued event.
func (v *Env) PopRaised() (domain.Event, bool) {
	if len(v.raised) == 0 {
		return "", false
	}
	event := v.raised[0]
	v.raised = v.raised[1:]
	return event, true
}

// PendingRaised reports how many raised events wait for dispatch.
func (v *Env) PendingRaised() int {
	return len(v.raised)
}
