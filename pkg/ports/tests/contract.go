package tests

import (
	"context"
	"testing"

	"github.com/aretw0/signalbox/pkg/ports"
)

// MachineLoaderContractTest is a reusable test suite that verifies if an
// adapter complies with ports.MachineLoader.
func MachineLoaderContractTest(t *testing.T, loader ports.MachineLoader, wantMachines []string) {
	t.Helper()
	ctx := context.Background()

	t.Run("LoadMachine_Success", func(t *testing.T) {
		for _, name := range wantMachines {
			m, err := loader.LoadMachine(ctx, name)
			if err != nil {
				t.Fatalf("unexpected error loading machine %s: %v", name, err)
			}
			if m.Name() != name {
				t.Errorf("machine name mismatch. got %q, want %q", m.Name(), name)
			}
			if initial, _ := m.Initial(); initial == "" {
				t.Errorf("machine %s has no initial state", name)
			}
		}
	})

	t.Run("LoadMachine_NotFound", func(t *testing.T) {
		_, err := loader.LoadMachine(ctx, "non-existent-machine")
		if err == nil {
			t.Error("expected error for non-existent machine, got nil")
		}
	})

	t.Run("ListMachines", func(t *testing.T) {
		names, err := loader.ListMachines(ctx)
		if err != nil {
			t.Fatalf("unexpected error listing machines: %v", err)
		}

		if len(names) != len(wantMachines) {
			t.Errorf("expected %d machines, got %d", len(wantMachines), len(names))
		}

		lookup := make(map[string]bool)
		for _, name := range names {
			lookup[name] = true
		}

		for _, name := range wantMachines {
			if !lookup[name] {
				t.Errorf("machine %s missing from list", name)
			}
		}
	})
}
