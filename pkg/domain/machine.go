package domain

import "fmt"

// Outcome is the result of resolving one event against one state.
//
// An unmatched pair yields the identity outcome: To == From, no actions,
// Matched false. That is defined behavior, not an error.
type Outcome struct {
	From     State
	On       Event
	To       State
	Actions  []Action
	Matched  bool
	Internal bool
}

// MachineConfig is the raw material for a Machine. Builders (the dsl package,
// the definition compilers, the loam adapter) produce one of these and hand
// it to NewMachine for validation and indexing.
type MachineConfig struct {
	Name        string
	Description string

	// Initial is the state the machine starts in; Boot actions run once
	// against the loop's effects before the first iteration (typically
	// arming the first countdown).
	Initial State
	Boot    []Action

	States      []StateDef
	Transitions []Transition
	Tokens      []Token

	// Events optionally declares events beyond the ones referenced by
	// transitions and tokens. The effective event set is the union.
	Events []Event
}

// Machine is an immutable, validated state machine definition.
//
// Resolve is pure: it never mutates the machine and never runs actions.
// Executing an outcome's actions is the dispatcher's job.
type Machine struct {
	name        string
	description string
	initial     State
	boot        []Action

	stateOrder []State
	states     map[State]StateDef

	eventOrder []Event
	events     map[Event]struct{}

	transitions []Transition
	index       map[State]map[Event][]Transition

	tokenOrder []rune
	tokens     map[rune]Token
}

// NewMachine validates cfg and builds the indexed definition.
//
// Structural rules enforced here: a name, at least one state, unique state
// IDs, a declared initial state, transition endpoints referencing declared
// states, non-empty events, unique token keys. Richer analysis (reachability
// and shadowed transitions) lives in the schema package as warnings.
func NewMachine(cfg MachineConfig) (*Machine, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("machine name is required")
	}
	if len(cfg.States) == 0 {
		return nil, fmt.Errorf("machine %q: at least one state is required", cfg.Name)
	}

	m := &Machine{
		name:        cfg.Name,
		description: cfg.Description,
		boot:        append([]Action(nil), cfg.Boot...),
		states:      make(map[State]StateDef, len(cfg.States)),
		events:      make(map[Event]struct{}),
		index:       make(map[State]map[Event][]Transition),
		tokens:      make(map[rune]Token, len(cfg.Tokens)),
	}

	for _, sd := range cfg.States {
		if sd.ID == "" {
			return nil, fmt.Errorf("machine %q: state with empty ID", cfg.Name)
		}
		if _, ok := m.states[sd.ID]; ok {
			return nil, fmt.Errorf("machine %q: %w: %s", cfg.Name, ErrDuplicateState, sd.ID)
		}
		m.states[sd.ID] = sd
		m.stateOrder = append(m.stateOrder, sd.ID)
	}

	if cfg.Initial == "" {
		return nil, fmt.Errorf("machine %q: %w", cfg.Name, ErrNoInitialState)
	}
	if _, ok := m.states[cfg.Initial]; !ok {
		return nil, fmt.Errorf("machine %q: initial: %w: %s", cfg.Name, ErrUnknownState, cfg.Initial)
	}
	m.initial = cfg.Initial

	for _, ev := range cfg.Events {
		if ev == "" {
			return nil, fmt.Errorf("machine %q: declared empty event", cfg.Name)
		}
		m.addEvent(ev)
	}

	for _, t := range cfg.Transitions {
		if t.On == "" {
			return nil, fmt.Errorf("machine %q: transition from %s: %w: empty", cfg.Name, t.From, ErrUnknownEvent)
		}
		if _, ok := m.states[t.From]; !ok {
			return nil, fmt.Errorf("machine %q: transition on %s: %w: %s", cfg.Name, t.On, ErrUnknownState, t.From)
		}
		if t.Internal {
			// Internal transitions stay in place; normalize the target.
			t.To = t.From
		}
		if _, ok := m.states[t.To]; !ok {
			return nil, fmt.Errorf("machine %q: transition %s --%s--> %s: %w: %s",
				cfg.Name, t.From, t.On, t.To, ErrUnknownState, t.To)
		}
		m.addEvent(t.On)
		m.transitions = append(m.transitions, t)

		byEvent, ok := m.index[t.From]
		if !ok {
			byEvent = make(map[Event][]Transition)
			m.index[t.From] = byEvent
		}
		byEvent[t.On] = append(byEvent[t.On], t)
	}

	for _, tok := range cfg.Tokens {
		if tok.Key == 0 {
			return nil, fmt.Errorf("machine %q: token with empty key", cfg.Name)
		}
		if tok.Event == "" {
			return nil, fmt.Errorf("machine %q: token %q: %w: empty", cfg.Name, tok.Key, ErrUnknownEvent)
		}
		if _, ok := m.tokens[tok.Key]; ok {
			return nil, fmt.Errorf("machine %q: %w: %q", cfg.Name, ErrDuplicateToken, tok.Key)
		}
		m.addEvent(tok.Event)
		m.tokens[tok.Key] = tok
		m.tokenOrder = append(m.tokenOrder, tok.Key)
	}

	return m, nil
}

func (m *Machine) addEvent(ev Event) {
	if _, ok := m.events[ev]; ok {
		return
	}
	m.events[ev] = struct{}{}
	m.eventOrder = append(m.eventOrder, ev)
}

// Resolve computes the outcome of posting ev while in state.
//
// When several transitions share the (state, event) pair, the first one in
// declaration order whose guard passes wins. No match, or no passing guard,
// yields the identity outcome.
func (m *Machine) Resolve(state State, ev Event) Outcome {
	if byEvent, ok := m.index[state]; ok {
		for _, t := range byEvent[ev] {
			if !t.Guard.Passes(ev) {
				continue
			}
			return Outcome{
				From:     state,
				On:       ev,
				To:       t.To,
				Actions:  t.Actions,
				Matched:  true,
				Internal: t.Internal,
			}
		}
	}
	return Outcome{From: state, On: ev, To: state}
}

// Name returns the machine identifier.
func (m *Machine) Name() string { return m.name }

// Description returns the free-form machine documentation (markdown).
func (m *Machine) Description() string { return m.description }

// Initial returns the starting state and the boot actions to run before the
// first loop iteration.
func (m *Machine) Initial() (State, []Action) {
	return m.initial, append([]Action(nil), m.boot...)
}

// HasState reports whether s is part of the machine's state set.
func (m *Machine) HasState(s State) bool {
	_, ok := m.states[s]
	return ok
}

// HasEvent reports whether ev is part of the machine's event set.
func (m *Machine) HasEvent(ev Event) bool {
	_, ok := m.events[ev]
	return ok
}

// Label returns the diagnostic label for s (the ID when unknown or unset).
func (m *Machine) Label(s State) string {
	if sd, ok := m.states[s]; ok {
		return sd.DisplayLabel()
	}
	return string(s)
}

// Color returns the renderer color hint for s, if any.
func (m *Machine) Color(s State) string {
	return m.states[s].Color
}

// EntryActions returns the entry action list of s.
func (m *Machine) EntryActions(s State) []Action {
	return m.states[s].Entry
}

// ExitActions returns the exit action list of s.
func (m *Machine) ExitActions(s State) []Action {
	return m.states[s].Exit
}

// States returns the state definitions in declaration order.
func (m *Machine) States() []StateDef {
	out := make([]StateDef, 0, len(m.stateOrder))
	for _, id := range m.stateOrder {
		out = append(out, m.states[id])
	}
	return out
}

// Events returns the event set in first-reference order.
func (m *Machine) Events() []Event {
	return append([]Event(nil), m.eventOrder...)
}

// Transitions returns the transition relation in declaration order.
func (m *Machine) Transitions() []Transition {
	return append([]Transition(nil), m.transitions...)
}

// Token looks up the event mapping for one input character.
func (m *Machine) Token(key rune) (Token, bool) {
	tok, ok := m.tokens[key]
	return tok, ok
}

// Tokens returns the token mappings in declaration order.
func (m *Machine) Tokens() []Token {
	out := make([]Token, 0, len(m.tokenOrder))
	for _, key := range m.tokenOrder {
		out = append(out, m.tokens[key])
	}
	return out
}
