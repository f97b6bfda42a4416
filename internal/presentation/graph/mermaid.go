package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/signalbox/pkg/domain"
)

// Overlay contains dynamic session data to visualize on the diagram.
type Overlay struct {
	Current domain.State
}

// GenerateMermaid produces a Mermaid stateDiagram-v2 string for a machine.
// State labels and entry/exit actions render as description lines inside
// the state box; internal transitions do too, since they never leave the
// state. The overlay highlights the current state of a running session.
func GenerateMermaid(m *domain.Machine, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("stateDiagram-v2\n")

	initial, _ := m.Initial()
	sb.WriteString(fmt.Sprintf("    [*] --> %s\n", sanitizeMermaidID(string(initial))))

	for _, def := range m.States() {
		safeID := sanitizeMermaidID(string(def.ID))

		if def.Label != "" {
			sb.WriteString(fmt.Sprintf("    %s : %s\n", safeID, escapeMermaidLabel(def.Label)))
		}
		for _, a := range def.Entry {
			sb.WriteString(fmt.Sprintf("    %s : entry / %s\n", safeID, escapeMermaidLabel(a.Name())))
		}
		for _, a := range def.Exit {
			sb.WriteString(fmt.Sprintf("    %s : exit / %s\n", safeID, escapeMermaidLabel(a.Name())))
		}
	}

	for _, t := range m.Transitions() {
		if t.Internal {
			safeID := sanitizeMermaidID(string(t.From))
			sb.WriteString(fmt.Sprintf("    %s : %s\n", safeID, escapeMermaidLabel(transitionLabel(t))))
			continue
		}
		sb.WriteString(fmt.Sprintf("    %s --> %s : %s\n",
			sanitizeMermaidID(string(t.From)),
			sanitizeMermaidID(string(t.To)),
			escapeMermaidLabel(transitionLabel(t)),
		))
	}

	writeMermaidStyles(&sb, m, overlay)

	return sb.String()
}

// transitionLabel renders "Event [guard] / action1 / action2".
func transitionLabel(t domain.Transition) string {
	label := string(t.On)
	if t.Guard.Name != "" {
		label += fmt.Sprintf(" [%s]", t.Guard.Name)
	}
	for _, a := range t.Actions {
		label += " / " + a.Name()
	}
	return label
}

func writeMermaidStyles(sb *strings.Builder, m *domain.Machine, overlay *Overlay) {
	var styled bool
	for _, def := range m.States() {
		if def.Color == "" {
			continue
		}
		if !styled {
			sb.WriteString("\n    %% State Colors\n")
			styled = true
		}
		safeID := sanitizeMermaidID(string(def.ID))
		// Force black text for high-contrast regardless of theme.
		sb.WriteString(fmt.Sprintf("    classDef c_%s fill:%s,color:#000;\n", safeID, def.Color))
		sb.WriteString(fmt.Sprintf("    class %s c_%s;\n", safeID, safeID))
	}

	if overlay != nil && overlay.Current != "" {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef current stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(string(overlay.Current))))
	}
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}

// escapeMermaidLabel keeps label text from terminating the description.
func escapeMermaidLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
