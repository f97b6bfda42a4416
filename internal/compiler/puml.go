package compiler

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/signalbox/pkg/domain"
)

// The flat PlantUML subset understood here:
//
//	[*] --> initial_state : / boot_action
//	state "Label" as state_id #ff0000
//	a --> b : Event [guard] / action1 / action2
//	a : entry / action
//	a : exit / action
//	a : Event [guard] / action
//
// Comments ('...), @startuml/@enduml, title, notes and skinparam lines
// are accepted and skipped where they carry no machine content.
// Composite states and final states are rejected.
var (
	pumlStateRe      = regexp.MustCompile(`^state\s+(?:"([^"]*)"\s+as\s+)?([A-Za-z_]\w*)\s*(#\w+)?\s*(\{)?$`)
	pumlTransitionRe = regexp.MustCompile(`^(\[\*\]|[A-Za-z_]\w*)\s*-+(?:(?:up|down|left|right)-+)?>\s*(\[\*\]|[A-Za-z_]\w*)\s*(?::\s*(.*))?$`)
	pumlMemberRe     = regexp.MustCompile(`^([A-Za-z_]\w*)\s*:\s*(.+)$`)
)

// CompilePUML builds a machine from a PlantUML state diagram. name is
// used as the machine name unless the diagram carries a title. PlantUML
// cannot express token bindings or an alphabet declaration; those come
// from the other definition formats.
func (c *Compiler) CompilePUML(name string, data []byte) (*domain.Machine, error) {
	p := &pumlParser{
		c:      c,
		name:   name,
		states: make(map[domain.State]*domain.StateDef),
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := p.parseLine(strings.TrimSpace(scanner.Text()), lineNo); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read diagram: %w", err)
	}

	return p.build()
}

type pumlParser struct {
	c    *Compiler
	name string

	initial     domain.State
	boot        []domain.Action
	order       []domain.State
	states      map[domain.State]*domain.StateDef
	transitions []domain.Transition

	inNote  bool
	inBlock bool
}

func (p *pumlParser) parseLine(line string, n int) error {
	if p.inNote {
		if line == "end note" {
			p.inNote = false
		}
		return nil
	}
	if p.inBlock {
		if line == "}" {
			p.inBlock = false
		}
		return nil
	}

	switch {
	case line == "", strings.HasPrefix(line, "'"),
		strings.HasPrefix(line, "@"), strings.HasPrefix(line, "!"),
		strings.HasPrefix(line, "hide"), strings.HasPrefix(line, "scale"),
		line == "left to right direction", line == "top to bottom direction":
		return nil

	case strings.HasPrefix(line, "skinparam"):
		// Block form: skinparam state { ... }
		if strings.HasSuffix(line, "{") {
			p.inBlock = true
		}
		return nil

	case strings.HasPrefix(line, "title "):
		p.name = strings.TrimSpace(strings.TrimPrefix(line, "title "))
		return nil

	case strings.HasPrefix(line, "note"):
		// Block notes run until "end note"; the one-line forms carry a
		// colon or an alias.
		if !strings.Contains(line, ":") && !strings.Contains(line, " as ") {
			p.inNote = true
		}
		return nil

	case line == "}":
		return fmt.Errorf("line %d: composite states are not supported", n)

	case strings.HasPrefix(line, "state "):
		m := pumlStateRe.FindStringSubmatch(line)
		if m == nil {
			return fmt.Errorf("line %d: malformed state declaration %q", n, line)
		}
		if m[4] == "{" {
			return fmt.Errorf("line %d: composite states are not supported", n)
		}
		def := p.ensureState(domain.State(m[2]))
		if m[1] != "" {
			def.Label = m[1]
		}
		if m[3] != "" {
			def.Color = m[3]
		}
		return nil
	}

	if m := pumlTransitionRe.FindStringSubmatch(line); m != nil {
		return p.parseTransition(m[1], m[2], m[3], n)
	}
	if m := pumlMemberRe.FindStringSubmatch(line); m != nil {
		return p.parseMember(domain.State(m[1]), m[2], n)
	}

	return fmt.Errorf("line %d: unrecognized syntax %q", n, line)
}

func (p *pumlParser) parseTransition(from, to, label string, n int) error {
	if to == "[*]" {
		return fmt.Errorf("line %d: final states are not supported", n)
	}

	if from == "[*]" {
		if p.initial != "" {
			return fmt.Errorf("line %d: multiple initial states", n)
		}
		p.initial = domain.State(to)
		p.ensureState(p.initial)

		// The initial transition may carry boot actions but no event.
		if label != "" {
			event, guard, actions, err := p.parseLabel(label)
			if err != nil {
				return fmt.Errorf("line %d: %w", n, err)
			}
			if event != "" || guard.Name != "" {
				return fmt.Errorf("line %d: the initial transition cannot carry an event or guard", n)
			}
			p.boot = actions
		}
		return nil
	}

	event, guard, actions, err := p.parseLabel(label)
	if err != nil {
		return fmt.Errorf("line %d: %w", n, err)
	}
	if event == "" {
		return fmt.Errorf("line %d: transition %s --> %s is missing an event", n, from, to)
	}

	p.ensureState(domain.State(from))
	p.ensureState(domain.State(to))
	p.transitions = append(p.transitions, domain.Transition{
		From:    domain.State(from),
		On:      domain.Event(event),
		To:      domain.State(to),
		Guard:   guard,
		Actions: actions,
	})
	return nil
}

// parseMember handles "state : ..." lines: entry and exit action lists,
// or an internal transition. An internal transition with no actions
// still consumes its event.
func (p *pumlParser) parseMember(id domain.State, rest string, n int) error {
	parts := splitSlash(rest)
	head := parts[0]

	switch head {
	case "entry", "exit":
		actions, err := p.c.registry.Actions(parts[1:])
		if err != nil {
			return fmt.Errorf("line %d: %s: %w", n, head, err)
		}
		def := p.ensureState(id)
		if head == "entry" {
			def.Entry = append(def.Entry, actions...)
		} else {
			def.Exit = append(def.Exit, actions...)
		}
		return nil
	}

	event, guard, err := p.parseHead(head)
	if err != nil {
		return fmt.Errorf("line %d: %w", n, err)
	}
	if event == "" {
		return fmt.Errorf("line %d: internal transition on %s is missing an event", n, id)
	}
	actions, err := p.c.registry.Actions(parts[1:])
	if err != nil {
		return fmt.Errorf("line %d: %w", n, err)
	}

	p.ensureState(id)
	p.transitions = append(p.transitions, domain.Transition{
		From:     id,
		On:       domain.Event(event),
		To:       id,
		Guard:    guard,
		Actions:  actions,
		Internal: true,
	})
	return nil
}

// parseLabel splits "Event [guard] / act1 / act2" into its pieces.
func (p *pumlParser) parseLabel(label string) (string, domain.Guard, []domain.Action, error) {
	if label == "" {
		return "", domain.Guard{}, nil, nil
	}

	parts := splitSlash(label)
	event, guard, err := p.parseHead(parts[0])
	if err != nil {
		return "", domain.Guard{}, nil, err
	}

	actions, err := p.c.registry.Actions(parts[1:])
	if err != nil {
		return "", domain.Guard{}, nil, err
	}
	return event, guard, actions, nil
}

// parseHead splits "Event [guard]" and resolves the guard.
func (p *pumlParser) parseHead(head string) (string, domain.Guard, error) {
	open := strings.IndexByte(head, '[')
	if open < 0 {
		return head, domain.Guard{}, nil
	}
	if !strings.HasSuffix(head, "]") {
		return "", domain.Guard{}, fmt.Errorf("malformed guard in %q", head)
	}

	name := strings.TrimSpace(head[open+1 : len(head)-1])
	guard, err := p.c.registry.Guard(name)
	if err != nil {
		return "", domain.Guard{}, err
	}
	return strings.TrimSpace(head[:open]), guard, nil
}

func (p *pumlParser) ensureState(id domain.State) *domain.StateDef {
	if def, ok := p.states[id]; ok {
		return def
	}
	def := &domain.StateDef{ID: id}
	p.states[id] = def
	p.order = append(p.order, id)
	return def
}

func (p *pumlParser) build() (*domain.Machine, error) {
	if p.initial == "" {
		return nil, fmt.Errorf("no initial transition ([*] --> state) found")
	}

	cfg := domain.MachineConfig{
		Name:        p.name,
		Initial:     p.initial,
		Boot:        p.boot,
		Transitions: p.transitions,
	}
	for _, id := range p.order {
		cfg.States = append(cfg.States, *p.states[id])
	}

	m, err := domain.NewMachine(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build machine %s: %w", p.name, err)
	}
	return m, nil
}

// splitSlash splits on "/" outside parentheses, trimming each part, so
// action arguments like notify("a/b") survive intact.
func splitSlash(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case '/':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(parts, strings.TrimSpace(s[start:]))
}
