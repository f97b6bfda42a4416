package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/aretw0/signalbox/internal/logging"
	"github.com/aretw0/signalbox/internal/observability"
	"github.com/aretw0/signalbox/internal/runtime"
	"github.com/aretw0/signalbox/pkg/domain"
	"github.com/aretw0/signalbox/pkg/ports"
)

// Runner executes a machine against live input and a wall-clock timer.
// It is the interactive counterpart of the stateless dispatcher: the
// runner owns the current state, the countdown deadline, and the raised
// event queue between dispatches.
type Runner struct {
	Handler       IOHandler
	Logger        *slog.Logger
	Store         ports.SnapshotStore
	SessionID     string
	MaxIterations int
	Metrics       bool
}

// NewRunner builds a Runner. Without options it talks plain text on
// stdin/stdout and keeps nothing.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		Logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run drives the loop until the context is cancelled, the input source
// closes, or MaxIterations is reached. All three end the run with a nil
// error. A non-nil resume snapshot skips boot and continues from the
// recorded state with the recorded countdown, measured from now.
//
// Each iteration announces the state, drains one raised event if any,
// and otherwise waits for a token or the countdown, whichever comes
// first. When both are ready at once the token wins and the timeout
// fires on the next pass. Input that matches no token is dropped
// without restarting the countdown.
func (r *Runner) Run(ctx context.Context, eng ports.Dispatcher, resume *domain.Snapshot) error {
	handler := r.Handler
	if handler == nil {
		handler = NewTextHandler()
	}

	s := &run{
		r:       r,
		handler: handler,
		eng:     eng,
		machine: eng.Machine(),
	}
	s.fx = runtime.NewEnv(func(msg string) {
		if err := handler.Notice(ctx, msg); err != nil {
			r.Logger.Warn("Failed to emit notice", "error", err)
		}
	})

	if resume != nil {
		s.state = resume.State
		s.fx.Restore(resume.Countdown)
		r.Logger.Info("Resuming session",
			"session_id", resume.SessionID,
			"state", s.state,
		)
	} else {
		s.state = s.eng.Start(ctx, s.fx)
	}
	s.syncClock()
	s.save(ctx)

	return s.loop(ctx)
}

// run holds the mutable state of one Run invocation.
type run struct {
	r       *Runner
	handler IOHandler
	eng     ports.Dispatcher
	machine *domain.Machine
	fx      *runtime.Env

	state      domain.State
	deadline   time.Time
	armed      bool
	iterations int
}

func (s *run) loop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if s.r.MaxIterations > 0 && s.iterations >= s.r.MaxIterations {
			return nil
		}
		s.iterations++

		if err := s.handler.ShowState(ctx, StateView{
			Machine: s.machine.Name(),
			State:   string(s.state),
			Label:   s.machine.Label(s.state),
			Color:   s.machine.Color(s.state),
		}); err != nil {
			return fmt.Errorf("failed to show state: %w", err)
		}

		// Raised events preempt waiting. One per iteration, so every
		// intermediate state still gets announced.
		if ev, ok := s.fx.PopRaised(); ok {
			s.dispatch(ctx, ev)
			continue
		}

		waitCtx, cancel := s.waitContext(ctx)
		line, err := s.handler.Input(waitCtx)
		cancel()

		if err != nil {
			switch {
			case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
				// The countdown elapsed. The timer is spent; only an
				// explicit arm during dispatch starts a new one.
				s.fx.Disarm()
				s.armed = false
				s.gauge()
				s.dispatch(ctx, domain.Timeout)
				continue
			case errors.Is(err, io.EOF):
				s.r.Logger.Debug("Input exhausted, stopping")
				return nil
			case ctx.Err() != nil:
				return nil
			default:
				return fmt.Errorf("input error: %w", err)
			}
		}

		token, ok := tokenFor(s.machine, line)
		if !ok {
			// Unmatched input is dropped and the countdown keeps the
			// time it had left.
			s.r.Logger.Debug("Dropped unrecognized input", "input", line)
			if s.r.Metrics {
				observability.RecordTokenDropped(s.machine.Name())
			}
			continue
		}

		if token.Notice != "" {
			if err := s.handler.Notice(ctx, token.Notice); err != nil {
				return fmt.Errorf("failed to emit notice: %w", err)
			}
		}
		s.dispatch(ctx, token.Event)
	}
}

// dispatch posts one event and reconciles the wall-clock deadline with
// whatever the actions did to the countdown.
func (s *run) dispatch(ctx context.Context, ev domain.Event) {
	s.state = s.eng.Post(ctx, s.state, ev, s.fx)
	if s.fx.TimerTouched() {
		if d, ok := s.fx.Countdown().Remaining(); ok {
			s.deadline = time.Now().Add(d)
			s.armed = true
		} else {
			s.armed = false
		}
		s.gauge()
	}
	s.save(ctx)
}

// syncClock derives the initial deadline after Start or a resume.
func (s *run) syncClock() {
	s.fx.TimerTouched()
	if d, ok := s.fx.Countdown().Remaining(); ok {
		s.deadline = time.Now().Add(d)
		s.armed = true
	} else {
		s.armed = false
	}
	s.gauge()
}

// waitContext bounds the next input read by the countdown deadline.
func (s *run) waitContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if !s.armed {
		return ctx, func() {}
	}
	return context.WithDeadline(ctx, s.deadline)
}

func (s *run) save(ctx context.Context) {
	if s.r.Store == nil || s.r.SessionID == "" {
		return
	}
	snap := domain.Snapshot{
		SessionID: s.r.SessionID,
		Machine:   s.machine.Name(),
		State:     s.state,
		Countdown: s.fx.Countdown(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.r.Store.Save(ctx, snap); err != nil {
		s.r.Logger.Warn("Failed to save session snapshot",
			"session_id", s.r.SessionID,
			"error", err,
		)
	}
}

func (s *run) gauge() {
	if s.r.Metrics {
		observability.SetCountdownArmed(s.machine.Name(), s.armed)
	}
}

// tokenFor maps a raw input line to a token via its first rune, the way
// a single-key console would.
func tokenFor(m *domain.Machine, line string) (domain.Token, bool) {
	if line == "" {
		return domain.Token{}, false
	}
	key, _ := utf8.DecodeRuneInString(line)
	return m.Token(key)
}
