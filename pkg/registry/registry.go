// Package registry resolves textual action and guard expressions from
// machine definition files into executable domain values. The built-in
// actions (arm_timer, stop_timer, raise, notify) are always available;
// hosts register their own before loading a definition that uses them.
package registry

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/signalbox/pkg/domain"
)

// ActionFactory builds an action from the raw argument text of an
// expression. The argument is empty for bare names like "stop_timer".
type ActionFactory func(arg string) (domain.Action, error)

// Registry manages the available actions and guards.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]ActionFactory
	guards  map[string]domain.GuardFunc
}

// New creates a registry with the built-in actions registered.
func New() *Registry {
	r := &Registry{
		actions: make(map[string]ActionFactory),
		guards:  make(map[string]domain.GuardFunc),
	}

	r.RegisterAction("arm_timer", func(arg string) (domain.Action, error) {
		d, err := parseDuration(arg)
		if err != nil {
			return nil, fmt.Errorf("arm_timer: %w", err)
		}
		return domain.ArmTimer(d), nil
	})
	r.RegisterAction("stop_timer", func(arg string) (domain.Action, error) {
		if arg != "" {
			return nil, fmt.Errorf("stop_timer takes no argument, got %q", arg)
		}
		return domain.StopTimer(), nil
	})
	r.RegisterAction("raise", func(arg string) (domain.Action, error) {
		if arg == "" {
			return nil, fmt.Errorf("raise requires an event name")
		}
		return domain.RaiseEvent(domain.Event(arg)), nil
	})
	r.RegisterAction("notify", func(arg string) (domain.Action, error) {
		return domain.Notify(unquoteArg(arg)), nil
	})

	return r
}

// RegisterAction adds an action factory to the registry.
// If a factory with the same name exists, it is overwritten.
func (r *Registry) RegisterAction(name string, factory ActionFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[name] = factory
}

// RegisterGuard adds a named guard to the registry.
// If a guard with the same name exists, it is overwritten.
func (r *Registry) RegisterGuard(name string, fn domain.GuardFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guards[name] = fn
}

// Action resolves a single expression like "arm_timer(2000ms)" or
// "stop_timer" into an executable action.
func (r *Registry) Action(expr string) (domain.Action, error) {
	name, arg, err := splitExpr(expr)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	factory, ok := r.actions[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("action not found: %s", name)
	}
	return factory(arg)
}

// Actions resolves a list of expressions, preserving order.
func (r *Registry) Actions(exprs []string) ([]domain.Action, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	actions := make([]domain.Action, 0, len(exprs))
	for _, expr := range exprs {
		action, err := r.Action(expr)
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}
	return actions, nil
}

// Guard resolves a guard by name.
func (r *Registry) Guard(name string) (domain.Guard, error) {
	r.mu.RLock()
	fn, ok := r.guards[name]
	r.mu.RUnlock()

	if !ok {
		return domain.Guard{}, fmt.Errorf("guard not found: %s", name)
	}
	return domain.Guard{Name: name, Allow: fn}, nil
}

// splitExpr parses "name" or "name(arg)" expressions.
func splitExpr(expr string) (name, arg string, err error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return "", "", fmt.Errorf("empty action expression")
	}

	open := strings.IndexByte(expr, '(')
	if open < 0 {
		return expr, "", nil
	}
	if !strings.HasSuffix(expr, ")") {
		return "", "", fmt.Errorf("malformed expression %q: missing closing parenthesis", expr)
	}

	name = strings.TrimSpace(expr[:open])
	if name == "" {
		return "", "", fmt.Errorf("malformed expression %q: missing action name", expr)
	}
	arg = strings.TrimSpace(expr[open+1 : len(expr)-1])
	return name, arg, nil
}

// unquoteArg strips surrounding double quotes. Exported diagrams render
// notify arguments quoted, and must re-compile to the same action.
func unquoteArg(arg string) string {
	if len(arg) >= 2 && strings.HasPrefix(arg, `"`) && strings.HasSuffix(arg, `"`) {
		if s, err := strconv.Unquote(arg); err == nil {
			return s
		}
	}
	return arg
}

// parseDuration accepts Go duration strings ("2s", "500ms") and bare
// integers, which are read as milliseconds for definition-file
// compatibility ("arm_timer(2000)").
func parseDuration(arg string) (time.Duration, error) {
	if arg == "" {
		return 0, fmt.Errorf("missing duration")
	}
	if ms, err := strconv.Atoi(arg); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", arg)
	}
	return d, nil
}
