package compiler

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/signalbox/pkg/domain"
)

// MachineSpec is the schema of a single-file machine definition (YAML or
// JSON). It mirrors the per-state frontmatter of directory-backed
// definitions, folded into one document.
type MachineSpec struct {
	Machine     string      `yaml:"machine" json:"machine"`
	Description string      `yaml:"description" json:"description"`
	Initial     string      `yaml:"initial" json:"initial"`
	Boot        []string    `yaml:"boot" json:"boot"`
	States      []StateSpec `yaml:"states" json:"states"`
	Tokens      []TokenSpec `yaml:"tokens" json:"tokens"`
	Events      []string    `yaml:"events" json:"events"`
}

// StateSpec declares one state and its outgoing transitions.
type StateSpec struct {
	ID          string           `yaml:"id" json:"id"`
	Label       string           `yaml:"label" json:"label"`
	Color       string           `yaml:"color" json:"color"`
	Entry       []string         `yaml:"entry" json:"entry"`
	Exit        []string         `yaml:"exit" json:"exit"`
	Transitions []TransitionSpec `yaml:"transitions" json:"transitions"`
}

// TransitionSpec declares one transition rule.
type TransitionSpec struct {
	On       string   `yaml:"on" json:"on"`
	To       string   `yaml:"to" json:"to"`
	Guard    string   `yaml:"guard" json:"guard"`
	Internal bool     `yaml:"internal" json:"internal"`
	Do       []string `yaml:"do" json:"do"`
}

// TokenSpec binds one input character to an event.
type TokenSpec struct {
	Key    string `yaml:"key" json:"key"`
	Event  string `yaml:"event" json:"event"`
	Notice string `yaml:"notice" json:"notice"`
}

// CompileYAML builds a machine from a YAML definition. The definition
// must carry its machine name.
func (c *Compiler) CompileYAML(data []byte) (*domain.Machine, error) {
	return c.compileYAML(data, false, "")
}

func (c *Compiler) compileYAML(data []byte, asJSON bool, fallbackName string) (*domain.Machine, error) {
	var spec MachineSpec
	if asJSON {
		if err := json.Unmarshal(data, &spec); err != nil {
			return nil, fmt.Errorf("failed to parse machine definition: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return nil, fmt.Errorf("failed to parse machine definition: %w", err)
		}
	}

	if spec.Machine == "" {
		spec.Machine = fallbackName
	}
	if spec.Machine == "" {
		return nil, fmt.Errorf("machine name is required")
	}

	return c.buildSpec(spec)
}

// buildSpec converts a decoded MachineSpec into a validated machine.
func (c *Compiler) buildSpec(spec MachineSpec) (*domain.Machine, error) {
	cfg := domain.MachineConfig{
		Name:        spec.Machine,
		Description: spec.Description,
		Initial:     domain.State(spec.Initial),
	}

	boot, err := c.registry.Actions(spec.Boot)
	if err != nil {
		return nil, fmt.Errorf("boot: %w", err)
	}
	cfg.Boot = boot

	for _, ss := range spec.States {
		if ss.ID == "" {
			return nil, fmt.Errorf("state is missing an id")
		}
		id := domain.State(ss.ID)

		entry, err := c.registry.Actions(ss.Entry)
		if err != nil {
			return nil, fmt.Errorf("state %s: entry: %w", id, err)
		}
		exit, err := c.registry.Actions(ss.Exit)
		if err != nil {
			return nil, fmt.Errorf("state %s: exit: %w", id, err)
		}
		cfg.States = append(cfg.States, domain.StateDef{
			ID:    id,
			Label: ss.Label,
			Color: ss.Color,
			Entry: entry,
			Exit:  exit,
		})

		for _, ts := range ss.Transitions {
			tr, err := c.buildTransition(id, ts)
			if err != nil {
				return nil, err
			}
			cfg.Transitions = append(cfg.Transitions, tr)
		}
	}

	for _, tk := range spec.Tokens {
		key := []rune(tk.Key)
		if len(key) != 1 {
			return nil, fmt.Errorf("token key %q must be a single character", tk.Key)
		}
		if tk.Event == "" {
			return nil, fmt.Errorf("token %q is missing an event", tk.Key)
		}
		cfg.Tokens = append(cfg.Tokens, domain.Token{
			Key:    key[0],
			Event:  domain.Event(tk.Event),
			Notice: tk.Notice,
		})
	}

	for _, ev := range spec.Events {
		cfg.Events = append(cfg.Events, domain.Event(ev))
	}

	m, err := domain.NewMachine(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build machine %s: %w", spec.Machine, err)
	}
	return m, nil
}

func (c *Compiler) buildTransition(from domain.State, ts TransitionSpec) (domain.Transition, error) {
	if ts.On == "" {
		return domain.Transition{}, fmt.Errorf("state %s: transition is missing an event", from)
	}

	to := domain.State(ts.To)
	if to == "" {
		if !ts.Internal {
			return domain.Transition{}, fmt.Errorf("state %s: transition on %q is missing a target", from, ts.On)
		}
		to = from
	}

	var guard domain.Guard
	if ts.Guard != "" {
		var err error
		guard, err = c.registry.Guard(ts.Guard)
		if err != nil {
			return domain.Transition{}, fmt.Errorf("state %s: transition on %q: %w", from, ts.On, err)
		}
	}

	do, err := c.registry.Actions(ts.Do)
	if err != nil {
		return domain.Transition{}, fmt.Errorf("state %s: transition on %q: %w", from, ts.On, err)
	}

	return domain.Transition{
		From:     from,
		On:       domain.Event(ts.On),
		To:       to,
		Guard:    guard,
		Actions:  do,
		Internal: ts.Internal,
	}, nil
}
