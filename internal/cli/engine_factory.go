package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/aretw0/signalbox"
	"github.com/aretw0/signalbox/internal/compiler"
	"github.com/aretw0/signalbox/pkg/adapters/memory"
	"github.com/aretw0/signalbox/pkg/domain"
	"github.com/aretw0/signalbox/pkg/machines/traffic"
	"github.com/aretw0/signalbox/pkg/ports"
)

// BuildEngine initializes a signalbox engine from the selected source
// with standard CLI conventions: demo loads the built-in traffic
// machine, a file goes through the compiler with change polling, and a
// directory goes through Loam.
func BuildEngine(src SourceOptions, logger *slog.Logger, extra ...signalbox.Option) (*signalbox.Engine, error) {
	opts := append([]signalbox.Option{signalbox.WithLogger(logger)}, extra...)

	switch {
	case src.File != "":
		loader, err := newFileLoader(src.File)
		if err != nil {
			return nil, err
		}
		return signalbox.New("", append(opts, signalbox.WithLoader(loader))...)
	case src.Dir != "":
		return signalbox.New(src.Dir, opts...)
	default:
		machine, err := traffic.Machine()
		if err != nil {
			return nil, fmt.Errorf("failed to build demo machine: %w", err)
		}
		loader, err := memory.NewLoader(machine)
		if err != nil {
			return nil, err
		}
		return signalbox.New("", append(opts, signalbox.WithLoader(loader))...)
	}
}

// selectMachine resolves which machine to run. A requested name must
// exist; otherwise a single-machine source is unambiguous and multi-
// machine sources require the user to pick.
func selectMachine(ctx context.Context, eng *signalbox.Engine, requested string) (string, error) {
	names, err := eng.Machines(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list machines: %w", err)
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no machine definitions found")
	}

	if requested != "" {
		for _, name := range names {
			if name == requested {
				return name, nil
			}
		}
		return "", fmt.Errorf("machine %q not found (available: %s)", requested, strings.Join(names, ", "))
	}

	if len(names) == 1 {
		return names[0], nil
	}
	return "", fmt.Errorf("source holds several machines (%s), pick one with --machine", strings.Join(names, ", "))
}

// filePollInterval is how often the file loader checks the definition
// for changes in watch mode.
const filePollInterval = 500 * time.Millisecond

// fileLoader compiles a single definition file on demand. It implements
// ports.Watchable by polling the file's modification time, which works
// on every platform and survives editors that replace the file instead
// of writing in place.
type fileLoader struct {
	path     string
	compiler *compiler.Compiler
}

func newFileLoader(path string) (*fileLoader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("cannot read definition file: %w", err)
	}
	return &fileLoader{path: path, compiler: compiler.New()}, nil
}

func (l *fileLoader) LoadMachine(ctx context.Context, name string) (*domain.Machine, error) {
	machine, err := l.compiler.CompileFile(l.path)
	if err != nil {
		return nil, err
	}
	if name != "" && name != machine.Name() {
		return nil, fmt.Errorf("machine %q not found in %s", name, l.path)
	}
	return machine, nil
}

func (l *fileLoader) ListMachines(ctx context.Context) ([]string, error) {
	machine, err := l.compiler.CompileFile(l.path)
	if err != nil {
		return nil, err
	}
	return []string{machine.Name()}, nil
}

// Watch signals once per observed change until ctx ends. The returned
// channel is closed when polling stops.
func (l *fileLoader) Watch(ctx context.Context) (<-chan struct{}, error) {
	info, err := os.Stat(l.path)
	if err != nil {
		return nil, fmt.Errorf("cannot watch definition file: %w", err)
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		lastMod := info.ModTime()
		lastSize := info.Size()

		ticker := time.NewTicker(filePollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				current, err := os.Stat(l.path)
				if err != nil {
					// Editors often remove-and-recreate; wait for the
					// file to come back.
					continue
				}
				if current.ModTime().Equal(lastMod) && current.Size() == lastSize {
					continue
				}
				lastMod = current.ModTime()
				lastSize = current.Size()
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()
	return ch, nil
}

var (
	_ ports.MachineLoader = (*fileLoader)(nil)
	_ ports.Watchable     = (*fileLoader)(nil)
)
