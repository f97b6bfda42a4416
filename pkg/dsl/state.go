package dsl

import "github.com/aretw0/signalbox/pkg/domain"

// StateBuilder provides a fluent API for configuring a state.
type StateBuilder struct {
	def         domain.StateDef
	transitions []domain.Transition
	builder     *Builder
}

// Label sets the display label used when announcing the state.
func (s *StateBuilder) Label(label string) *StateBuilder {
	s.def.Label = label
	return s
}

// Color sets the display color (hex, e.g. "#ff0000") for renderers.
func (s *StateBuilder) Color(color string) *StateBuilder {
	s.def.Color = color
	return s
}

// Entry appends actions executed every time the state is entered.
func (s *StateBuilder) Entry(actions ...domain.Action) *StateBuilder {
	s.def.Entry = append(s.def.Entry, actions...)
	return s
}

// Exit appends actions executed every time the state is left.
func (s *StateBuilder) Exit(actions ...domain.Action) *StateBuilder {
	s.def.Exit = append(s.def.Exit, actions...)
	return s
}

// On starts a transition triggered by the given event. Finish it with
// To or Stay.
func (s *StateBuilder) On(event domain.Event) *TransitionBuilder {
	return &TransitionBuilder{
		state: s,
		tr: domain.Transition{
			From: s.def.ID,
			On:   event,
		},
	}
}

// TransitionBuilder accumulates one transition of a state.
type TransitionBuilder struct {
	state *StateBuilder
	tr    domain.Transition
}

// When guards the transition. A transition whose guard rejects the
// event is skipped in favor of the next declared one.
func (t *TransitionBuilder) When(name string, allow domain.GuardFunc) *TransitionBuilder {
	t.tr.Guard = domain.Guard{Name: name, Allow: allow}
	return t
}

// Do appends actions executed when the transition fires.
func (t *TransitionBuilder) Do(actions ...domain.Action) *TransitionBuilder {
	t.tr.Actions = append(t.tr.Actions, actions...)
	return t
}

// To finishes the transition pointing at the target state and returns
// the state builder for further chaining.
func (t *TransitionBuilder) To(target string) *StateBuilder {
	t.tr.To = domain.State(target)
	t.state.transitions = append(t.state.transitions, t.tr)
	return t.state
}

// Stay finishes the transition as internal: the machine keeps its
// state and entry/exit actions do not run.
func (t *TransitionBuilder) Stay() *StateBuilder {
	t.tr.Internal = true
	t.tr.To = t.state.def.ID
	t.state.transitions = append(t.state.transitions, t.tr)
	return t.state
}

// End returns the parent builder, for chaining machine-level calls
// after configuring a state.
func (s *StateBuilder) End() *Builder {
	return s.builder
}
