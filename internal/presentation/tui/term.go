package tui

import (
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IsInteractive reports whether stdout is attached to a terminal.
// Non-interactive runs (pipes, CI) get plain output.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// StateLabel colors a state label with the machine's color hint.
// Without a hint (or without a terminal profile) the label passes
// through unchanged.
func StateLabel(label, hexColor string) string {
	if hexColor == "" {
		return label
	}
	p := termenv.ColorProfile()
	return termenv.String(label).Foreground(p.Color(hexColor)).Bold().String()
}
