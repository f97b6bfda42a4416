/*
Package domain contains the core model of the signalbox engine.

It defines the fundamental entities of the state machine: States, Events,
Transitions, Actions and the Countdown timer cell, plus the Machine definition
that ties them together. This package is kept pure and free of external
dependencies like I/O or persistence, following Hexagonal Architecture
principles.

# Key Entities

  - State / Event: opaque named values from a closed, machine-specific set.
  - Transition: the rule mapping a (State, Event) pair to a resulting state
    and the actions bound to that move.
  - Action: a named side-effecting callback, applied through the Effects
    surface during dispatch.
  - Countdown: the single timer cell that schedules the implicit Timeout
    event. It is explicitly armed or unarmed; there is no zero sentinel.
  - Machine: the immutable definition; Resolve is the pure half of dispatch.
  - Snapshot: the persistable view of a running session.
*/
package domain
