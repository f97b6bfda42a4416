package domain

// GuardFunc is an optional predicate gating a transition. A nil guard always
// passes. When several transitions share a (state, event) pair, the first one
// in declaration order whose guard passes wins.
type GuardFunc func(ev Event) bool

// Guard pairs a predicate with a stable name for logs and diagram export.
type Guard struct {
	Name  string
	Allow GuardFunc
}

// Passes evaluates the guard. The zero Guard passes unconditionally.
func (g Guard) Passes(ev Event) bool {
	if g.Allow == nil {
		return true
	}
	return g.Allow(ev)
}

// IsZero reports whether the guard is unconditional.
func (g Guard) IsZero() bool {
	return g.Name == "" && g.Allow == nil
}

// Transition is one rule of the relation (State, Event) -> (State, actions).
type Transition struct {
	From    State
	On      Event
	To      State
	Guard   Guard
	Actions []Action

	// Internal marks a transition that runs its actions without leaving
	// the state: no exit/entry actions fire and the state is unchanged.
	Internal bool
}

// Token maps one input character to the event it triggers.
type Token struct {
	// Key is the character read from the external input source.
	Key rune

	Event Event

	// Notice is printed immediately before the event is dispatched.
	// Timeout dispatches never carry a notice.
	Notice string
}
