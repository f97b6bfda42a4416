package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ryanuber/columnize"

	"github.com/aretw0/signalbox/internal/logging"
	"github.com/aretw0/signalbox/internal/presentation/graph"
	"github.com/aretw0/signalbox/internal/presentation/tui"
	"github.com/aretw0/signalbox/pkg/domain"
	"github.com/aretw0/signalbox/pkg/schema"
)

// RunGraph prints the selected machine as a diagram.
func RunGraph(src SourceOptions, format string, w io.Writer) error {
	machine, err := loadOne(src)
	if err != nil {
		return err
	}

	switch format {
	case "mermaid":
		fmt.Fprint(w, graph.GenerateMermaid(machine, nil))
	case "plantuml":
		fmt.Fprint(w, graph.GeneratePlantUML(machine))
	default:
		return fmt.Errorf("unknown format %q (supported: mermaid, plantuml)", format)
	}
	return nil
}

// RunValidate checks every machine in the source and prints findings.
// It returns an error when any machine has error-severity issues.
func RunValidate(src SourceOptions, w io.Writer) error {
	ctx := context.Background()
	eng, err := BuildEngine(src, logging.NewNop())
	if err != nil {
		return fmt.Errorf("error initializing signalbox: %w", err)
	}

	names, err := eng.Machines(ctx)
	if err != nil {
		return fmt.Errorf("failed to list machines: %w", err)
	}
	if len(names) == 0 {
		return fmt.Errorf("no machine definitions found")
	}

	var failed error
	rows := []string{"MACHINE | SEVERITY | CODE | MESSAGE"}
	for _, name := range names {
		machine, err := eng.Machine(ctx, name)
		if err != nil {
			// Load failures are findings too: a definition that does
			// not build is as broken as one that fails a check.
			rows = append(rows, fmt.Sprintf("%s | error | build | %v", name, err))
			if failed == nil {
				failed = fmt.Errorf("machine %q does not build: %w", name, err)
			}
			continue
		}

		report := schema.Check(machine)
		for _, issue := range report.Issues {
			rows = append(rows, fmt.Sprintf("%s | %s | %s | %s", name, issue.Severity, issue.Code, issue.Message))
		}
		if err := report.Err(); err != nil && failed == nil {
			failed = err
		}
	}

	if len(rows) > 1 {
		fmt.Fprintln(w, columnize.SimpleFormat(rows))
	}
	if failed == nil {
		fmt.Fprintf(w, "%d machine(s) valid.\n", len(names))
	}
	return failed
}

// RunDescribe prints a human-readable summary of the selected machine.
// The summary is markdown; on a terminal it renders through glamour
// unless plain output is requested.
func RunDescribe(src SourceOptions, plain bool, w io.Writer) error {
	machine, err := loadOne(src)
	if err != nil {
		return err
	}

	doc := describeMarkdown(machine)
	if plain || !tui.IsInteractive() {
		fmt.Fprint(w, doc)
		return nil
	}

	render := tui.NewRenderer()
	out, err := render(doc)
	if err != nil {
		fmt.Fprint(w, doc)
		return nil
	}
	fmt.Fprint(w, out)
	return nil
}

// loadOne builds the engine and resolves the single requested machine.
func loadOne(src SourceOptions) (*domain.Machine, error) {
	ctx := context.Background()
	eng, err := BuildEngine(src, logging.NewNop())
	if err != nil {
		return nil, fmt.Errorf("error initializing signalbox: %w", err)
	}
	name, err := selectMachine(ctx, eng, src.Machine)
	if err != nil {
		return nil, err
	}
	return eng.Machine(ctx, name)
}

func describeMarkdown(m *domain.Machine) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", m.Name())
	if m.Description() != "" {
		fmt.Fprintf(&sb, "%s\n\n", m.Description())
	}

	initial, _ := m.Initial()

	sb.WriteString("## States\n\n")
	sb.WriteString("| State | Label | Entry | Exit |\n")
	sb.WriteString("| --- | --- | --- | --- |\n")
	for _, def := range m.States() {
		id := string(def.ID)
		if def.ID == initial {
			id += " (initial)"
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n",
			id, def.Label,
			strings.Join(domain.ActionNames(def.Entry), ", "),
			strings.Join(domain.ActionNames(def.Exit), ", "),
		)
	}
	sb.WriteString("\n")

	sb.WriteString("## Transitions\n\n")
	sb.WriteString("| From | Event | To | Actions |\n")
	sb.WriteString("| --- | --- | --- | --- |\n")
	for _, t := range m.Transitions() {
		to := string(t.To)
		if t.Internal {
			to = "(internal)"
		}
		on := string(t.On)
		if !t.Guard.IsZero() {
			on += fmt.Sprintf(" [%s]", t.Guard.Name)
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n",
			t.From, on, to, strings.Join(domain.ActionNames(t.Actions), ", "))
	}
	sb.WriteString("\n")

	if tokens := m.Tokens(); len(tokens) > 0 {
		sb.WriteString("## Tokens\n\n")
		sb.WriteString("| Key | Event | Notice |\n")
		sb.WriteString("| --- | --- | --- |\n")
		for _, tok := range tokens {
			fmt.Fprintf(&sb, "| %c | %s | %s |\n", tok.Key, tok.Event, tok.Notice)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
