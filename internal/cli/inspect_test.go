package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunGraph_Mermaid(t *testing.T) {
	var out strings.Builder
	err := RunGraph(SourceOptions{Demo: true}, "mermaid", &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "stateDiagram-v2")
	assert.Contains(t, out.String(), "RedOnly")
}

func TestRunGraph_PlantUML(t *testing.T) {
	var out strings.Builder
	err := RunGraph(SourceOptions{Demo: true}, "plantuml", &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "@startuml")
	assert.Contains(t, out.String(), "@enduml")
}

func TestRunGraph_UnknownFormat(t *testing.T) {
	var out strings.Builder
	err := RunGraph(SourceOptions{Demo: true}, "dot", &out)
	assert.ErrorContains(t, err, "unknown format")
}

func TestRunValidate_Demo(t *testing.T) {
	var out strings.Builder
	err := RunValidate(SourceOptions{Demo: true}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "1 machine(s) valid.")
}

func TestRunValidate_PrintsWarnings(t *testing.T) {
	// An unreachable state and a token whose event nothing consumes are
	// warnings: the machine still runs, so validation passes.
	path := writeDefinition(t, "sketchy.yaml", `machine: sketchy
initial: a
states:
  - id: a
    transitions:
      - {on: Go, to: a}
  - id: island
tokens:
  - {key: x, event: Missing}
`)

	var out strings.Builder
	err := RunValidate(SourceOptions{File: path}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "island")
	assert.Contains(t, out.String(), "dead-token")
	assert.Contains(t, out.String(), "1 machine(s) valid.")
}

func TestRunValidate_BrokenDefinition(t *testing.T) {
	path := writeDefinition(t, "broken.yaml", `machine: broken
initial: a
states:
  - id: a
    transitions:
      - {on: Go, to: nowhere}
`)

	var out strings.Builder
	err := RunValidate(SourceOptions{File: path}, &out)
	assert.Error(t, err)
}

func TestRunDescribe_Plain(t *testing.T) {
	var out strings.Builder
	err := RunDescribe(SourceOptions{Demo: true}, true, &out)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "# traffic")
	assert.Contains(t, text, "## States")
	assert.Contains(t, text, "RedOnly (initial)")
	assert.Contains(t, text, "## Tokens")
	assert.Contains(t, text, "LightsBroken")
}
