package tui

import (
	"fmt"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the ASCII art banner with the running version.
func PrintBanner(version string) {
	p := termenv.ColorProfile()
	// Red to green, like the lights.
	s1 := termenv.String(" ___ ___  ___ _  _   _   _    ___  _____  __").Foreground(p.Color("#ef4444"))
	s2 := termenv.String("/ __|_ _|/ __| \\| | /_\\ | |  | _ )/ _ \\ \\/ /").Foreground(p.Color("#f97316"))
	s3 := termenv.String("\\__ \\| || (_ | .` |/ _ \\| |__| _ \\ (_) >  < ").Foreground(p.Color("#eab308"))
	s4 := termenv.String("|___/___\\___|_|\\_/_/ \\_\\____|___/\\___/_/\\_\\").Foreground(p.Color("#22c55e"))

	fmt.Println()
	fmt.Println(s1)
	fmt.Println(s2)
	fmt.Println(s3)
	fmt.Println(s4)
	if version != "" {
		fmt.Println(termenv.String("  " + version).Faint())
	}
	fmt.Println()
}
