package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/signalbox/internal/compiler"
	"github.com/aretw0/signalbox/internal/presentation/graph"
	"github.com/aretw0/signalbox/pkg/domain"
	"github.com/aretw0/signalbox/pkg/machines/traffic"
)

func TestGeneratePlantUML(t *testing.T) {
	m, err := traffic.Machine()
	if err != nil {
		t.Fatal(err)
	}

	got := graph.GeneratePlantUML(m)

	wants := []string{
		"@startuml",
		"title traffic",
		"[*] --> RedOnly",
		"state RedOnly #ff0000",
		"RedOnly : entry / arm_timer(2000)",
		"Broken : entry / stop_timer",
		"Green --> Yellow : Timeout",
		"Broken --> RedOnly : LightsRepaired",
		"@enduml",
	}
	for _, want := range wants {
		if !strings.Contains(got, want) {
			t.Errorf("GeneratePlantUML() missing substring %q in:\n%s", want, got)
		}
	}
}

// An exported diagram must compile back into an equivalent machine.
func TestGeneratePlantUML_RoundTrip(t *testing.T) {
	m, err := traffic.Machine()
	if err != nil {
		t.Fatal(err)
	}

	src := graph.GeneratePlantUML(m)

	back, err := compiler.New().CompilePUML("ignored", []byte(src))
	if err != nil {
		t.Fatalf("re-compiling exported diagram: %v\n%s", err, src)
	}

	if back.Name() != m.Name() {
		t.Errorf("name mismatch: got %q, want %q", back.Name(), m.Name())
	}

	wantInitial, _ := m.Initial()
	gotInitial, _ := back.Initial()
	if gotInitial != wantInitial {
		t.Errorf("initial mismatch: got %q, want %q", gotInitial, wantInitial)
	}

	if len(back.States()) != len(m.States()) {
		t.Fatalf("state count mismatch: got %d, want %d", len(back.States()), len(m.States()))
	}
	for _, def := range m.States() {
		if back.Label(def.ID) != m.Label(def.ID) {
			t.Errorf("label mismatch for %s", def.ID)
		}
		if back.Color(def.ID) != def.Color {
			t.Errorf("color mismatch for %s", def.ID)
		}
		wantEntry := domain.ActionNames(m.EntryActions(def.ID))
		gotEntry := domain.ActionNames(back.EntryActions(def.ID))
		if strings.Join(gotEntry, ",") != strings.Join(wantEntry, ",") {
			t.Errorf("entry actions mismatch for %s: got %v, want %v", def.ID, gotEntry, wantEntry)
		}
	}

	// Behavior survives the trip.
	out := back.Resolve("Green", domain.Timeout)
	if out.To != "Yellow" || !out.Matched {
		t.Errorf("Green+Timeout resolved to %+v", out)
	}
	out = back.Resolve("Broken", domain.Timeout)
	if out.Matched {
		t.Error("Broken+Timeout should be ignored")
	}
}
