// Package compiler turns textual machine definitions (YAML, JSON, a flat
// PlantUML subset) into validated domain machines.
package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/signalbox/pkg/domain"
	"github.com/aretw0/signalbox/pkg/registry"
)

// Compiler converts textual machine definitions into validated machines.
// Action and guard expressions resolve against a registry, so custom
// entries registered by the host are available in definition files.
type Compiler struct {
	registry *registry.Registry
}

// Option configures the Compiler.
type Option func(*Compiler)

// WithRegistry sets the registry used to resolve action and guard
// expressions. Defaults to a registry with only the built-ins.
func WithRegistry(r *registry.Registry) Option {
	return func(c *Compiler) {
		c.registry = r
	}
}

// New creates a new compiler instance.
func New(opts ...Option) *Compiler {
	c := &Compiler{registry: registry.New()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile decodes data according to the filename's extension. The machine
// name falls back to the file's base name when the definition does not
// carry one.
func (c *Compiler) Compile(filename string, data []byte) (*domain.Machine, error) {
	fallback := machineNameFromFile(filename)

	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".yaml", ".yml", ".json":
		return c.compileYAML(data, ext == ".json", fallback)
	case ".puml", ".plantuml":
		return c.CompilePUML(fallback, data)
	default:
		return nil, fmt.Errorf("unsupported definition format %q (want .yaml, .yml, .json or .puml)", ext)
	}
}

// CompileFile reads and compiles a definition file.
func (c *Compiler) CompileFile(path string) (*domain.Machine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition: %w", err)
	}
	return c.Compile(path, data)
}

func machineNameFromFile(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
