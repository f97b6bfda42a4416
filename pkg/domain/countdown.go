package domain

import (
	"encoding/json"
	"time"
)

// Countdown is the single timer cell driving implicit Timeout events.
//
// It is either armed with a duration or unarmed. Arming overwrites any
// previous value (last write wins, no merging or queueing). An armed zero
// duration means "fire immediately", which is distinct from unarmed
// ("no timeout pending, wait for input indefinitely").
//
// The cell is owned by the scheduling loop and handed to actions by
// reference through the Effects surface; it is not global state.
type Countdown struct {
	armed    bool
	duration time.Duration
}

// ArmedCountdown returns a countdown armed with d.
func ArmedCountdown(d time.Duration) Countdown {
	return Countdown{armed: true, duration: d}
}

// Arm sets the countdown to d, replacing any previous value.
// Negative durations clamp to zero.
func (c *Countdown) Arm(d time.Duration) {
	if d < 0 {
		d = 0
	}
	c.armed = true
	c.duration = d
}

// Disarm clears the countdown. A disarmed countdown never fires.
func (c *Countdown) Disarm() {
	c.armed = false
	c.duration = 0
}

// Remaining reports the armed duration. ok is false when unarmed.
func (c Countdown) Remaining() (d time.Duration, ok bool) {
	if !c.armed {
		return 0, false
	}
	return c.duration, true
}

// Armed reports whether a timeout is pending.
func (c Countdown) Armed() bool {
	return c.armed
}

func (c Countdown) String() string {
	if !c.armed {
		return "unarmed"
	}
	return c.duration.String()
}

type countdownJSON struct {
	Armed       bool  `json:"armed"`
	RemainingMS int64 `json:"remaining_ms"`
}

// MarshalJSON encodes the cell as {"armed": bool, "remaining_ms": int64} so
// snapshots survive store round-trips without losing the armed/unarmed
// distinction.
func (c Countdown) MarshalJSON() ([]byte, error) {
	return json.Marshal(countdownJSON{Armed: c.armed, RemainingMS: c.duration.Milliseconds()})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (c *Countdown) UnmarshalJSON(data []byte) error {
	var v countdownJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	c.armed = v.Armed
	c.duration = time.Duration(v.RemainingMS) * time.Millisecond
	if !c.armed {
		c.duration = 0
	}
	return nil
}
