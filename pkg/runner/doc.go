// Package runner drives a machine interactively: it shows the current
// state, waits for keyboard tokens or the countdown timer, and feeds the
// resulting events to a dispatcher until the input ends or the context
// is cancelled.
//
// # Key Components
//
//   - Runner: the wait loop. It owns the countdown deadline, races input
//     against the timer, and keeps the session snapshot fresh when a
//     store is configured.
//   - IOHandler: the presentation seam. TextHandler speaks plain lines
//     for terminals, JSONHandler speaks NDJSON for supervising processes.
//   - SignalManager: cooperative Ctrl+C handling for hosts that run the
//     loop in the foreground.
//
// # Usage
//
//	eng := runtime.NewEngine(machine)
//	r := runner.NewRunner(runner.WithHandler(runner.NewTextHandler()))
//	if err := r.Run(ctx, eng, nil); err != nil {
//		log.Fatal(err)
//	}
//
// The loop applies two ordering rules. When a token and the timer expire
// together, the token wins and the timeout fires on the next pass. Input
// that maps to no token is dropped without disturbing the running
// countdown.
package runner
