package runner

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/aretw0/signalbox/internal/runtime"
	"github.com/aretw0/signalbox/pkg/domain"
	"github.com/aretw0/signalbox/pkg/ports"
)

// maxRaisedDrain bounds how many raised events one stateless dispatch
// will follow up on. The interactive loop needs no bound because it
// announces each state between dispatches; a served request has no such
// pacing, so a definition that keeps raising forever is cut off here.
const maxRaisedDrain = 128

// PostResult is the outcome of one stateless dispatch: the snapshot to
// persist, what the event resolved to, and the notices the actions
// emitted along the way.
type PostResult struct {
	Snapshot domain.Snapshot

	// Outcome is the pure resolution of the posted event, before any
	// raised follow-ups ran. Matched is false for identity dispatches.
	Outcome domain.Outcome

	// Dropped is true when a token matched no binding; the snapshot is
	// then the input snapshot, untouched.
	Dropped bool

	Notices []string
}

// StartSnapshot runs the machine's boot and initial entry actions and
// returns the first snapshot of a session, plus any notices the actions
// emitted. Served modes call this once per session instead of running a
// loop.
func StartSnapshot(ctx context.Context, disp ports.Dispatcher, sessionID string) (domain.Snapshot, []string) {
	var notices []string
	fx := runtime.NewEnv(func(msg string) { notices = append(notices, msg) })

	initial := disp.Start(ctx, fx)
	snap := domain.Snapshot{
		SessionID: sessionID,
		Machine:   disp.Machine().Name(),
		State:     initial,
		Countdown: fx.Countdown(),
		UpdatedAt: time.Now().UTC(),
	}
	return snap, notices
}

// ApplyEvent dispatches one event against a stored snapshot, outside
// any loop. Raised follow-up events drain before the new snapshot is
// formed, so the persisted state is the one the interactive loop would
// eventually settle on.
func ApplyEvent(ctx context.Context, disp ports.Dispatcher, snap domain.Snapshot, ev domain.Event) *PostResult {
	res := &PostResult{Outcome: disp.Resolve(snap.State, ev)}

	fx := runtime.NewEnv(func(msg string) { res.Notices = append(res.Notices, msg) })
	fx.Restore(snap.Countdown)

	state := disp.Post(ctx, snap.State, ev, fx)
	for i := 0; i < maxRaisedDrain; i++ {
		raised, ok := fx.PopRaised()
		if !ok {
			break
		}
		state = disp.Post(ctx, state, raised, fx)
	}

	res.Snapshot = domain.Snapshot{
		SessionID: snap.SessionID,
		Machine:   snap.Machine,
		State:     state,
		Countdown: fx.Countdown(),
		UpdatedAt: time.Now().UTC(),
	}
	return res
}

// ApplyToken maps one input token to its event and dispatches it. An
// unmatched token is dropped: the result carries the input snapshot
// unchanged, mirroring the loop's silent-drop policy. The token's
// notice, if any, leads the notice list.
func ApplyToken(ctx context.Context, disp ports.Dispatcher, snap domain.Snapshot, token string) *PostResult {
	if token == "" {
		return &PostResult{Snapshot: snap, Dropped: true}
	}
	key, _ := utf8.DecodeRuneInString(token)
	tok, ok := disp.Machine().Token(key)
	if !ok {
		return &PostResult{Snapshot: snap, Dropped: true}
	}

	res := ApplyEvent(ctx, disp, snap, tok.Event)
	if tok.Notice != "" {
		res.Notices = append([]string{tok.Notice}, res.Notices...)
	}
	return res
}
