package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/signalbox/pkg/domain"
)

// GeneratePlantUML produces a PlantUML state diagram for a machine, in the
// same flat subset the compiler reads, so an exported diagram compiles
// back into an equivalent machine. Token bindings are not part of
// PlantUML and are dropped.
func GeneratePlantUML(m *domain.Machine) string {
	var sb strings.Builder
	sb.WriteString("@startuml\n")
	sb.WriteString(fmt.Sprintf("title %s\n", m.Name()))

	initial, boot := m.Initial()
	if len(boot) > 0 {
		sb.WriteString(fmt.Sprintf("[*] --> %s :%s\n", initial, actionSuffix(boot)))
	} else {
		sb.WriteString(fmt.Sprintf("[*] --> %s\n", initial))
	}

	for _, def := range m.States() {
		switch {
		case def.Label != "" && def.Color != "":
			sb.WriteString(fmt.Sprintf("state %q as %s %s\n", def.Label, def.ID, def.Color))
		case def.Label != "":
			sb.WriteString(fmt.Sprintf("state %q as %s\n", def.Label, def.ID))
		case def.Color != "":
			sb.WriteString(fmt.Sprintf("state %s %s\n", def.ID, def.Color))
		default:
			sb.WriteString(fmt.Sprintf("state %s\n", def.ID))
		}

		for _, a := range def.Entry {
			sb.WriteString(fmt.Sprintf("%s : entry / %s\n", def.ID, a.Name()))
		}
		for _, a := range def.Exit {
			sb.WriteString(fmt.Sprintf("%s : exit / %s\n", def.ID, a.Name()))
		}
	}

	for _, t := range m.Transitions() {
		head := string(t.On)
		if t.Guard.Name != "" {
			head += fmt.Sprintf(" [%s]", t.Guard.Name)
		}
		if t.Internal {
			sb.WriteString(fmt.Sprintf("%s : %s%s\n", t.From, head, actionSuffix(t.Actions)))
			continue
		}
		sb.WriteString(fmt.Sprintf("%s --> %s : %s%s\n", t.From, t.To, head, actionSuffix(t.Actions)))
	}

	sb.WriteString("@enduml\n")
	return sb.String()
}

func actionSuffix(actions []domain.Action) string {
	if len(actions) == 0 {
		return ""
	}
	parts := make([]string, len(actions))
	for i, a := range actions {
		parts[i] = a.Name()
	}
	return " / " + strings.Join(parts, " / ")
}
