package domain

// State identifies one state of a machine. The set of valid states is closed
// per machine; a State value is opaque to the engine.
type State string

// Event identifies one event a machine reacts to. Like states, events form a
// closed, machine-specific set.
type Event string

// Timeout is the one well-known event. The scheduling loop synthesizes it when
// the armed countdown elapses; machines reference it like any other event.
const Timeout Event = "Timeout"

// StateDef describes a single state inside a machine definition.
type StateDef struct {
	// ID is the state identifier, unique within the machine.
	ID State

	// Label is the human-readable name used for diagnostic output.
	// Empty means "use the ID".
	Label string

	// Color is an optional hex color hint (e.g. "#ff0000") for renderers.
	Color string

	// Entry actions run whenever the state is entered through a matched
	// transition, after the transition's own actions.
	Entry []Action

	// Exit actions run whenever the state is left through a matched
	// transition, before the transition's own actions.
	Exit []Action
}

// DisplayLabel returns the label, falling back to the ID.
func (s StateDef) DisplayLabel() string {
	if s.Label != "" {
		return s.Label
	}
	return string(s.ID)
}
