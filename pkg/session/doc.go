/*
Package session implements session management and persistence orchestration.

It serializes access per session so dispatches never interleave, integrating
in-process mutexes with optional distributed locking and the snapshot store
adapters for long-term storage.
*/
package session
