/*
Package ports defines the driven ports (interfaces) for the signalbox engine.

These interfaces decouple the core logic from external implementations,
allowing the engine to work with various definition sources, snapshot
backends and locking strategies.

# Key Interfaces

  - MachineLoader: Responsible for loading machine definitions (e.g., from files, Loam or memory).
  - SnapshotStore: Responsible for persisting and loading session snapshots.
  - SessionLocker: Provides locking for handling concurrent access to a session.
*/
package ports
