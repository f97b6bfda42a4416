package dsl

import (
	"fmt"

	"github.com/aretw0/signalbox/pkg/domain"
)

// Builder manages the machine construction.
type Builder struct {
	name        string
	description string
	initial     domain.State
	boot        []domain.Action
	order       []string
	states      map[string]*StateBuilder
	tokens      []domain.Token
	events      []domain.Event
}

// New creates a new machine builder.
func New(name string) *Builder {
	return &Builder{
		name:   name,
		states: make(map[string]*StateBuilder),
	}
}

// Describe sets a human-readable description for the machine.
func (b *Builder) Describe(text string) *Builder {
	b.description = text
	return b
}

// Initial sets the starting state and the actions executed at boot,
// before the first event is dispatched.
func (b *Builder) Initial(id string, boot ...domain.Action) *Builder {
	b.initial = domain.State(id)
	b.boot = boot
	return b
}

// State creates a new state in the machine.
// If the state already exists, it returns the existing builder.
func (b *Builder) State(id string) *StateBuilder {
	if sb, ok := b.states[id]; ok {
		return sb
	}
	sb := &StateBuilder{
		def:     domain.StateDef{ID: domain.State(id)},
		builder: b,
	}
	b.states[id] = sb
	b.order = append(b.order, id)
	return sb
}

// Token binds a single-character input token to an event. The notice,
// if non-empty, is printed before the event is dispatched.
func (b *Builder) Token(key rune, event string, notice string) *Builder {
	b.tokens = append(b.tokens, domain.Token{
		Key:    key,
		Event:  domain.Event(event),
		Notice: notice,
	})
	return b
}

// Event declares an event that appears in no transition yet, so it
// still belongs to the machine's alphabet.
func (b *Builder) Event(name string) *Builder {
	b.events = append(b.events, domain.Event(name))
	return b
}

// Build compiles the accumulated definition into a Machine.
func (b *Builder) Build() (*domain.Machine, error) {
	cfg := domain.MachineConfig{
		Name:        b.name,
		Description: b.description,
		Initial:     b.initial,
		Boot:        b.boot,
		Tokens:      b.tokens,
		Events:      b.events,
	}
	for _, id := range b.order {
		sb := b.states[id]
		cfg.States = append(cfg.States, sb.def)
		cfg.Transitions = append(cfg.Transitions, sb.transitions...)
	}

	m, err := domain.NewMachine(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build machine: %w", err)
	}
	return m, nil
}
