package domain

import "time"

// Snapshot is the persistable view of a running session: which machine, which
// state, and the countdown cell as it stood after the last dispatch.
//
// Stores receive copies; the scheduling loop remains the owner of the live
// state and countdown.
type Snapshot struct {
	SessionID string    `json:"session_id,omitempty"`
	Machine   string    `json:"machine"`
	State     State     `json:"state"`
	Countdown Countdown `json:"countdown"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Deadline returns the absolute instant the armed countdown elapses, relative
// to UpdatedAt. ok is false when the countdown is unarmed. Served sessions
// expose this so an external client can decide when to post a Timeout.
func (s Snapshot) Deadline() (time.Time, bool) {
	d, ok := s.Countdown.Remaining()
	if !ok {
		return time.Time{}, false
	}
	return s.UpdatedAt.Add(d), true
}

// SnapshotDiff describes what changed between two snapshots of one session.
// Nil field means "unchanged". Used by the HTTP adapter's event stream.
type SnapshotDiff struct {
	SessionID string  `json:"session_id"`
	State     *State  `json:"state,omitempty"`
	Countdown *string `json:"countdown,omitempty"`
}

// Diff compares two snapshots and returns nil when nothing observable
// changed.
func Diff(before, after Snapshot) *SnapshotDiff {
	d := &SnapshotDiff{SessionID: after.SessionID}
	changed := false

	if before.State != after.State {
		st := after.State
		d.State = &st
		changed = true
	}
	if before.Countdown != after.Countdown {
		cd := after.Countdown.String()
		d.Countdown = &cd
		changed = true
	}

	if !changed {
		return nil
	}
	return d
}
