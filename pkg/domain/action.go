package domain

import (
	"fmt"
	"time"
)

// Effects is the mutation surface handed to actions during dispatch.
//
// Actions never touch the countdown or the loop directly; everything flows
// through this interface so the pure transition resolution stays separated
// from side effects, and tests can record what an action did.
type Effects interface {
	// ArmTimer sets the loop's countdown. Last write wins.
	ArmTimer(d time.Duration)

	// StopTimer disarms the countdown; no Timeout will fire until re-armed.
	StopTimer()

	// Raise queues ev for dispatch on a following loop iteration.
	// Actions must not dispatch synchronously; the queue keeps the
	// one-dispatch-in-flight invariant intact.
	Raise(ev Event)

	// Notify emits a one-line diagnostic notice.
	Notify(msg string)
}

// Action is a side-effecting callback bound to a transition or to a state's
// entry/exit. Actions run synchronously, in declaration order, before
// dispatch returns the new state. They cannot fail.
type Action interface {
	// Name is a stable identifier used in logs, diagram export and
	// definition files (e.g. "arm_timer(2000)").
	Name() string

	Apply(fx Effects)
}

// ArmTimer returns the built-in action arming the countdown with d.
func ArmTimer(d time.Duration) Action { return armTimer{d: d} }

type armTimer struct{ d time.Duration }

func (a armTimer) Name() string     { return fmt.Sprintf("arm_timer(%d)", a.d.Milliseconds()) }
func (a armTimer) Apply(fx Effects) { fx.ArmTimer(a.d) }

// StopTimer returns the built-in action disarming the countdown.
func StopTimer() Action { return stopTimer{} }

type stopTimer struct{}

func (stopTimer) Name() string     { return "stop_timer" }
func (stopTimer) Apply(fx Effects) { fx.StopTimer() }

// RaiseEvent returns the built-in action queueing a follow-up event.
func RaiseEvent(ev Event) Action { return raiseEvent{ev: ev} }

type raiseEvent struct{ ev Event }

func (a raiseEvent) Name() string     { return fmt.Sprintf("raise(%s)", a.ev) }
func (a raiseEvent) Apply(fx Effects) { fx.Raise(a.ev) }

// Notify returns the built-in action emitting a one-line notice.
func Notify(msg string) Action { return notify{msg: msg} }

type notify struct{ msg string }

func (a notify) Name() string     { return fmt.Sprintf("notify(%q)", a.msg) }
func (a notify) Apply(fx Effects) { fx.Notify(a.msg) }

// ActionFunc wraps an arbitrary callback as a named action. Useful for
// application-specific side effects and for recording actions in tests.
func ActionFunc(name string, fn func(fx Effects)) Action {
	return funcAction{name: name, fn: fn}
}

type funcAction struct {
	name string
	fn   func(fx Effects)
}

func (a funcAction) Name() string { return a.name }

func (a funcAction) Apply(fx Effects) {
	if a.fn != nil {
		a.fn(fx)
	}
}

// ActionNames flattens a list of actions to their names, in order.
func ActionNames(actions []Action) []string {
	if len(actions) == 0 {
		return nil
	}
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = a.Name()
	}
	return names
}
