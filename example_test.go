package signalbox_test

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/aretw0/signalbox"
	"github.com/aretw0/signalbox/pkg/adapters/memory"
	"github.com/aretw0/signalbox/pkg/dsl"
	"github.com/aretw0/signalbox/pkg/runner"
)

// ExampleEngine_Run demonstrates using signalbox purely as a Go library,
// injecting an in-memory machine without reading from the filesystem.
func ExampleEngine_Run() {
	// 1. Define a machine with the fluent builder
	b := dsl.New("lamp")
	b.Initial("off")
	b.State("off").On("Press").To("on")
	b.State("on").On("Press").To("off")
	b.Token('p', "Press", "")
	machine, err := b.Build()
	if err != nil {
		log.Fatal(err)
	}

	// 2. Serve it from memory; no file path needed
	loader, err := memory.NewLoader(machine)
	if err != nil {
		log.Fatal(err)
	}
	eng, err := signalbox.New("", signalbox.WithLoader(loader))
	if err != nil {
		log.Fatal(err)
	}

	// 3. Run against scripted input: one press, then end of input
	handler := &runner.TextHandler{Reader: strings.NewReader("p\n")}
	if err := eng.Run(context.Background(), "lamp", runner.WithHandler(handler)); err != nil {
		log.Fatal(err)
	}

	// Output:
	// State: off
	// State: on
}

// ExampleEngine_Dispatcher shows stateless dispatch: the caller owns the
// state and posts events one at a time, the way a server would.
func ExampleEngine_Dispatcher() {
	b := dsl.New("doors")
	b.Initial("closed")
	b.State("closed").On("Open").To("open")
	b.State("open").On("Close").To("closed")
	machine, err := b.Build()
	if err != nil {
		log.Fatal(err)
	}

	loader, err := memory.NewLoader(machine)
	if err != nil {
		log.Fatal(err)
	}
	eng, err := signalbox.New("", signalbox.WithLoader(loader))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	dispatcher, err := eng.Dispatcher(ctx, "doors")
	if err != nil {
		log.Fatal(err)
	}

	// Ask what an event would do without executing anything.
	outcome := dispatcher.Resolve("closed", "Open")
	fmt.Printf("closed + Open -> %s (matched=%v)\n", outcome.To, outcome.Matched)

	// Unknown pairs resolve to the identity outcome, never an error.
	outcome = dispatcher.Resolve("closed", "Close")
	fmt.Printf("closed + Close -> %s (matched=%v)\n", outcome.To, outcome.Matched)

	// Output:
	// closed + Open -> open (matched=true)
	// closed + Close -> closed (matched=false)
}
