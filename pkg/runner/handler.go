package runner

import "context"

// StateView is what a handler needs to announce the current state at the
// top of a loop iteration.
type StateView struct {
	Machine string
	State   string
	Label   string
	Color   string
}

// IOHandler abstracts the user-facing side of the loop so the runner can
// drive a terminal, a pipe, or a supervising process the same way.
type IOHandler interface {
	// ShowState announces where the machine stands. Called once per
	// iteration, before the runner waits for anything.
	ShowState(ctx context.Context, view StateView) error

	// Notice emits a one-line message: token notices and notify actions.
	Notice(ctx context.Context, msg string) error

	// Input returns the next raw input line, without its trailing
	// newline. It must honor ctx: the runner bounds the call with the
	// countdown deadline and reads context.DeadlineExceeded as "the
	// timer fired". A closed input source returns io.EOF.
	Input(ctx context.Context) (string, error)

	// SystemOutput presents an out-of-band message from the host, such
	// as a reload announcement in watch mode.
	SystemOutput(ctx context.Context, msg string) error
}
