/*
Package signalbox is an event-driven finite-state-machine runtime with a
single countdown timer, built for control loops that juggle timed
transitions and external input: traffic lights, device modes, protocol
handshakes.

It separates the machine definition (states, events, transitions,
actions) from the scheduling loop that waits on input and the clock, so
the same machine can run interactively, be served over HTTP/MCP, or be
dispatched statelessly one event at a time.

# Concept

A machine is a closed set of states and events with a total dispatch
function: every (state, event) pair resolves, either to a declared
transition or to the identity outcome (the event is ignored). Side
effects are actions attached to entry, exit and transitions; they run
synchronously in declaration order and talk to the loop only through a
small Effects surface (arm or stop the countdown, raise a follow-up
event, emit a notice). When the countdown expires the loop synthesizes
the Timeout event; everything else arrives as single-character tokens
mapped to events.

# Key Features

  - Total dispatch: unknown events never fail, they are observable
    no-ops.
  - One countdown: a single timer cell, armed and stopped by actions,
    with an explicit unarmed state that waits indefinitely.
  - Durable sessions: snapshots capture state plus remaining countdown
    and resume where they left off.
  - Definitions as data: machines load from Loam document repositories,
    YAML/JSON files or a PlantUML subset, and export back to diagrams.

# Usage

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/signalbox"
	)

	func main() {
		// Read one-document-per-state definitions from ./machines
		eng, err := signalbox.New("./machines")
		if err != nil {
			log.Fatal(err)
		}

		// Run the "traffic" machine on stdin/stdout until EOF or Ctrl+C
		if err := eng.Run(context.Background(), "traffic"); err != nil {
			log.Fatal(err)
		}
	}

For finer control, build a Dispatcher and drive it yourself, or use
pkg/runner directly with a custom IOHandler.
*/
package signalbox
