package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/aretw0/signalbox/pkg/domain"
)

// Loader implements ports.MachineLoader using an in-memory map.
type Loader struct {
	machines map[string]*domain.Machine
}

// NewLoader creates a new Loader from built machines.
func NewLoader(machines ...*domain.Machine) (*Loader, error) {
	byName := make(map[string]*domain.Machine, len(machines))
	for _, m := range machines {
		if m == nil {
			return nil, fmt.Errorf("nil machine")
		}
		if _, exists := byName[m.Name()]; exists {
			return nil, fmt.Errorf("duplicate machine name: %s", m.Name())
		}
		byName[m.Name()] = m
	}
	return &Loader{machines: byName}, nil
}

// LoadMachine retrieves a machine by name.
func (l *Loader) LoadMachine(ctx context.Context, name string) (*domain.Machine, error) {
	m, ok := l.machines[name]
	if !ok {
		return nil, fmt.Errorf("machine not found: %s", name)
	}
	return m, nil
}

// ListMachines returns all available machine names.
func (l *Loader) ListMachines(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(l.machines))
	for name := range l.machines {
		names = append(names, name)
	}
	sort.Strings(names) // Deterministic order
	return names, nil
}
