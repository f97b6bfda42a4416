// Package traffic provides the built-in traffic-light controller used
// as the demo machine. It models a standard European light sequence
// plus a fault mode reachable from every working state.
package traffic

import (
	"time"

	"github.com/aretw0/signalbox/pkg/domain"
	"github.com/aretw0/signalbox/pkg/dsl"
)

// Events raised by the controller's input tokens.
const (
	LightsBroken   domain.Event = "LightsBroken"
	LightsRepaired domain.Event = "LightsRepaired"
)

// Phase durations.
const (
	RedDuration       = 2000 * time.Millisecond
	RedYellowDuration = 1000 * time.Millisecond
	GreenDuration     = 5000 * time.Millisecond
	YellowDuration    = 1000 * time.Millisecond
)

// Machine builds the traffic-light controller.
//
// Each working state arms the countdown on entry, so the repaired
// lights resume with a full red phase no matter how long they were
// broken. The Broken state stops the timer instead: it can only be
// left by an external repair.
func Machine() (*domain.Machine, error) {
	b := dsl.New("traffic").
		Describe("Traffic light with a breakable lamp. Type b<Enter> to break it, r<Enter> to repair it.")
	b.Initial("RedOnly")

	b.State("RedOnly").
		Color("#ff0000").
		Entry(domain.ArmTimer(RedDuration)).
		On(domain.Timeout).To("RedYellow").
		On(LightsBroken).To("Broken")

	b.State("RedYellow").
		Color("#ff8700").
		Entry(domain.ArmTimer(RedYellowDuration)).
		On(domain.Timeout).To("Green").
		On(LightsBroken).To("Broken")

	b.State("Green").
		Color("#00ff00").
		Entry(domain.ArmTimer(GreenDuration)).
		On(domain.Timeout).To("Yellow").
		On(LightsBroken).To("Broken")

	b.State("Yellow").
		Color("#ffff00").
		Entry(domain.ArmTimer(YellowDuration)).
		On(domain.Timeout).To("RedOnly").
		On(LightsBroken).To("Broken")

	b.State("Broken").
		Color("#808080").
		Entry(domain.StopTimer()).
		On(LightsRepaired).To("RedOnly")

	b.Token('b', string(LightsBroken), "--- Broke the lights and generated the LightsBroken event")
	b.Token('r', string(LightsRepaired), "--- Repaired the lights and generated the LightsRepaired event")

	return b.Build()
}
