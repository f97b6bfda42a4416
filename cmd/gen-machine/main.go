package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/loam"

	loamAdapter "github.com/aretw0/signalbox/pkg/adapters/loam"
)

// Seeds a Loam repository with the traffic-light machine, one document
// per state. The output is the starter kit for the --dir source: run it,
// point signalbox at the directory, then edit the documents with the
// watcher on.
func main() {
	targetDir := "examples/machines"
	if len(os.Args) > 1 {
		targetDir = os.Args[1]
	}

	if err := os.MkdirAll(targetDir, 0755); err != nil {
		panic(err)
	}

	fmt.Printf("Generating traffic machine in: %s\n", targetDir)

	// No versioning: this is pure file generation, not a working repo.
	repo, err := loam.Init(targetDir, loam.WithVersioning(false))
	if err != nil {
		panic(err)
	}

	typedRepo := loam.NewTypedRepository[loamAdapter.StateMetadata](repo)
	ctx := context.TODO()

	// The initial state carries the machine-wide pieces: its body is the
	// machine description and it declares the input tokens.
	check(typedRepo.Save(ctx, &loam.DocumentModel[loamAdapter.StateMetadata]{
		ID: "traffic/red_only",
		Content: "A timed traffic light with a failure mode. Every working phase arms\n" +
			"its own countdown on entry; repairs always land back here, so traffic\n" +
			"restarts with a full red phase.",
		Data: loamAdapter.StateMetadata{
			Initial: true,
			Label:   "Red",
			Color:   "#ff0000",
			Entry:   []string{"arm_timer(2000)"},
			Transitions: []loamAdapter.LoaderTransition{
				{On: "Timeout", To: "red_yellow"},
				{On: "LightsBroken", To: "broken"},
			},
			Tokens: []loamAdapter.LoaderToken{
				{Key: "b", Event: "LightsBroken", Notice: "--- Broke the lights and generated the LightsBroken event"},
				{Key: "r", Event: "LightsRepaired", Notice: "--- Repaired the lights and generated the LightsRepaired event"},
			},
		},
	}))

	check(typedRepo.Save(ctx, &loam.DocumentModel[loamAdapter.StateMetadata]{
		ID:      "traffic/red_yellow",
		Content: "Brief handover phase announcing the switch to green.",
		Data: loamAdapter.StateMetadata{
			Label: "Red and Yellow",
			Color: "#ff8700",
			Entry: []string{"arm_timer(1000)"},
			Transitions: []loamAdapter.LoaderTransition{
				{On: "Timeout", To: "green"},
				{On: "LightsBroken", To: "broken"},
			},
		},
	}))

	check(typedRepo.Save(ctx, &loam.DocumentModel[loamAdapter.StateMetadata]{
		ID:      "traffic/green",
		Content: "The longest phase. Traffic flows until the countdown runs out.",
		Data: loamAdapter.StateMetadata{
			Label: "Green",
			Color: "#00ff00",
			Entry: []string{"arm_timer(5000)"},
			Transitions: []loamAdapter.LoaderTransition{
				{On: "Timeout", To: "yellow"},
				{On: "LightsBroken", To: "broken"},
			},
		},
	}))

	check(typedRepo.Save(ctx, &loam.DocumentModel[loamAdapter.StateMetadata]{
		ID:      "traffic/yellow",
		Content: "Clear the junction before red.",
		Data: loamAdapter.StateMetadata{
			Label: "Yellow",
			Color: "#ffff00",
			Entry: []string{"arm_timer(1000)"},
			Transitions: []loamAdapter.LoaderTransition{
				{On: "Timeout", To: "red_only"},
				{On: "LightsBroken", To: "broken"},
			},
		},
	}))

	check(typedRepo.Save(ctx, &loam.DocumentModel[loamAdapter.StateMetadata]{
		ID: "traffic/broken",
		Content: "Fault mode. The timer is stopped, so only an external repair event\n" +
			"can bring the light back.",
		Data: loamAdapter.StateMetadata{
			Label: "Broken",
			Color: "#808080",
			Entry: []string{"stop_timer"},
			Transitions: []loamAdapter.LoaderTransition{
				{On: "LightsRepaired", To: "red_only"},
			},
		},
	}))

	fmt.Println("Done. Verify contents in", targetDir)
}

func check(err error) {
	if err != nil {
		panic(err)
	}
}
