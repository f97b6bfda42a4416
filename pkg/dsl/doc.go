/*
Package dsl provides a Go DSL for programmatically constructing state machines.

It allows developers to define machines using a type-safe, fluent builder
pattern instead of relying on external YAML or PlantUML files. This is
particularly useful for embedding machines in binaries, unit testing, and
leveraging IDE autocompletion/type-checking.

Example usage:

	package main

	import (
		"time"

		"github.com/aretw0/signalbox/pkg/domain"
		"github.com/aretw0/signalbox/pkg/dsl"
	)

	func main() {
		b := dsl.New("blinker")
		b.Initial("On", domain.ArmTimer(time.Second))

		b.State("On").
			On(domain.Timeout).Do(domain.ArmTimer(time.Second)).To("Off")

		b.State("Off").
			On(domain.Timeout).Do(domain.ArmTimer(time.Second)).To("On")

		machine, err := b.Build()
		if err != nil {
			panic(err)
		}
		// ... pass machine to signalbox.New(...)
		_ = machine
	}
*/
package dsl
