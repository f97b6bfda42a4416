package domain

import "context"

// StateEvent carries the payload for state enter/exit hooks.
type StateEvent struct {
	Machine string
	State   State
	// Via is the event that caused the move.
	Via Event
}

// TransitionEvent carries the payload for transition-level hooks.
type TransitionEvent struct {
	Machine string
	From    State
	To      State
	On      Event
	// Actions holds the names of the transition actions that ran.
	Actions []string
	// Matched is false for identity outcomes (no declared transition).
	Matched bool
}

// LifecycleHooks are optional observer callbacks fired by the dispatcher.
// They see what happened but get no Effects access; side effects belong to
// actions. Nil hooks are skipped.
type LifecycleHooks struct {
	// OnStateExit fires before the old state's exit actions run.
	OnStateExit func(ctx context.Context, e *StateEvent)

	// OnStateEnter fires after the new state's entry actions ran.
	OnStateEnter func(ctx context.Context, e *StateEvent)

	// OnTransition fires once per matched dispatch, after all actions.
	OnTransition func(ctx context.Context, e *TransitionEvent)

	// OnEventIgnored fires when a dispatch resolved to the identity
	// outcome (no declared transition for the pair).
	OnEventIgnored func(ctx context.Context, e *TransitionEvent)
}
