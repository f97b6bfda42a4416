package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"

	"github.com/aretw0/signalbox/pkg/domain"
	"github.com/aretw0/signalbox/pkg/registry"
)

// Loader adapts the Loam library to the ports.MachineLoader interface.
//
// Each state is one document. A document belongs to the machine named by
// its "machine" frontmatter key, or to the first segment of its path
// (traffic/red_only.md -> machine "traffic"). Root-level documents
// without a machine key are not state documents and are skipped, so a
// repository can carry a README next to its definitions.
type Loader struct {
	Repo *loam.TypedRepository[StateMetadata]

	registry *registry.Registry
}

// Option defines a functional option for configuring the Loader.
type Option func(*Loader)

// WithRegistry sets the registry used to resolve action and guard
// expressions. Defaults to a registry with only the built-ins.
func WithRegistry(r *registry.Registry) Option {
	return func(l *Loader) {
		l.registry = r
	}
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[StateMetadata], opts ...Option) *Loader {
	l := &Loader{
		Repo:     repo,
		registry: registry.New(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// stateDoc pairs a document with its place in a machine.
type stateDoc struct {
	docID   string
	id      domain.State
	meta    StateMetadata
	content string
}

// LoadMachine assembles a machine from all documents belonging to name.
func (l *Loader) LoadMachine(ctx context.Context, name string) (*domain.Machine, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	var states []stateDoc
	for _, doc := range docs {
		if machineName(doc.ID, doc.Data) != name {
			continue
		}
		states = append(states, stateDoc{
			docID:   doc.ID,
			id:      stateID(doc.ID, doc.Data, name),
			meta:    doc.Data,
			content: doc.Content,
		})
	}
	if len(states) == 0 {
		return nil, fmt.Errorf("machine not found: %s", name)
	}

	return l.buildMachine(name, states)
}

// ListMachines returns the names of all machines in the repository.
func (l *Loader) ListMachines(ctx context.Context) ([]string, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]bool)
	names := make([]string, 0, len(docs))
	for _, doc := range docs {
		name := machineName(doc.ID, doc.Data)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// buildMachine converts state documents into a validated machine.
// Documents are processed in path order so the declaration order of
// states and transitions is stable across loads.
func (l *Loader) buildMachine(name string, states []stateDoc) (*domain.Machine, error) {
	sort.Slice(states, func(i, j int) bool { return states[i].docID < states[j].docID })

	cfg := domain.MachineConfig{Name: name}

	seen := make(map[domain.State]string, len(states))
	for _, sd := range states {
		if prior, ok := seen[sd.id]; ok {
			return nil, fmt.Errorf("collision detected: state %q is defined in both %q and %q", sd.id, prior, sd.docID)
		}
		seen[sd.id] = sd.docID

		entry, err := l.registry.Actions(sd.meta.Entry)
		if err != nil {
			return nil, fmt.Errorf("state %s: entry: %w", sd.id, err)
		}
		exit, err := l.registry.Actions(sd.meta.Exit)
		if err != nil {
			return nil, fmt.Errorf("state %s: exit: %w", sd.id, err)
		}
		cfg.States = append(cfg.States, domain.StateDef{
			ID:    sd.id,
			Label: sd.meta.Label,
			Color: sd.meta.Color,
			Entry: entry,
			Exit:  exit,
		})

		if sd.meta.Initial {
			if cfg.Initial != "" {
				return nil, fmt.Errorf("machine %s: both %q and %q are marked initial", name, cfg.Initial, sd.id)
			}
			cfg.Initial = sd.id
			cfg.Description = strings.TrimSpace(sd.content)

			boot, err := l.registry.Actions(sd.meta.Boot)
			if err != nil {
				return nil, fmt.Errorf("state %s: boot: %w", sd.id, err)
			}
			cfg.Boot = boot
		}

		transitions, err := l.buildTransitions(sd)
		if err != nil {
			return nil, err
		}
		cfg.Transitions = append(cfg.Transitions, transitions...)

		for _, tk := range sd.meta.Tokens {
			token, err := convertToken(tk)
			if err != nil {
				return nil, fmt.Errorf("state %s: %w", sd.id, err)
			}
			cfg.Tokens = append(cfg.Tokens, token)
		}

		for _, ev := range sd.meta.Events {
			cfg.Events = append(cfg.Events, domain.Event(ev))
		}
	}

	if cfg.Initial == "" {
		return nil, fmt.Errorf("machine %s: no state is marked initial", name)
	}

	m, err := domain.NewMachine(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build machine %s: %w", name, err)
	}
	return m, nil
}

func (l *Loader) buildTransitions(sd stateDoc) ([]domain.Transition, error) {
	transitions := make([]domain.Transition, 0, len(sd.meta.Transitions))
	for _, lt := range sd.meta.Transitions {
		if lt.On == "" {
			return nil, fmt.Errorf("state %s: transition is missing an event", sd.id)
		}

		to := domain.State(lt.To)
		if to == "" {
			if !lt.Internal {
				return nil, fmt.Errorf("state %s: transition on %q is missing a target", sd.id, lt.On)
			}
			to = sd.id
		}

		var guard domain.Guard
		if lt.Guard != "" {
			var err error
			guard, err = l.registry.Guard(lt.Guard)
			if err != nil {
				return nil, fmt.Errorf("state %s: transition on %q: %w", sd.id, lt.On, err)
			}
		}

		do, err := l.registry.Actions(lt.Do)
		if err != nil {
			return nil, fmt.Errorf("state %s: transition on %q: %w", sd.id, lt.On, err)
		}

		transitions = append(transitions, domain.Transition{
			From:     sd.id,
			On:       domain.Event(lt.On),
			To:       to,
			Guard:    guard,
			Actions:  do,
			Internal: lt.Internal,
		})
	}
	return transitions, nil
}

func convertToken(tk LoaderToken) (domain.Token, error) {
	key := []rune(tk.Key)
	if len(key) != 1 {
		return domain.Token{}, fmt.Errorf("token key %q must be a single character", tk.Key)
	}
	if tk.Event == "" {
		return domain.Token{}, fmt.Errorf("token %q is missing an event", tk.Key)
	}
	return domain.Token{Key: key[0], Event: domain.Event(tk.Event), Notice: tk.Notice}, nil
}

// machineName decides which machine a document belongs to.
func machineName(docID string, meta StateMetadata) string {
	if meta.Machine != "" {
		return meta.Machine
	}
	id := trimExtension(docID)
	if i := strings.IndexByte(id, '/'); i >= 0 {
		return id[:i]
	}
	return ""
}

// stateID derives the state identifier for a document. The explicit
// "id" key wins; otherwise the path relative to the machine directory
// is used, extension trimmed.
func stateID(docID string, meta StateMetadata, machine string) domain.State {
	if meta.ID != "" {
		return domain.State(meta.ID)
	}
	id := trimExtension(docID)
	return domain.State(strings.TrimPrefix(id, machine+"/"))
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// Watch implements ports.Watchable.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	// Watch all relevant files (recursive) using the doublestar pattern
	// supported by Loam. This avoids a manual filtering loop.
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan struct{}, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				// Coalesce bursts. A pending signal already forces a
				// full reload, so further ones add nothing.
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()

	return ch, nil
}
