// Package handle wraps opaque foreign-owned resources crossing into
// the host.
//
// Every foreign resource reaching the host is wrapped in exactly one
// Handle with a three-state lifecycle:
//
//	live ──Move──▶ moved
//	  │
//	 Drop
//	  ▼
//	dropped
//
// Borrow reads the raw value without a state change. Move transfers
// ownership onward without freeing. Drop invokes the destructor
// exactly once. Any operation on a non-live handle fails with a
// distinct error; a given foreign resource is released by exactly one
// destructor call, never more, never fewer.
//
// Handles follow the single-threaded cooperative discipline of the
// generated-call runtime and are not safe for concurrent use.
//
// A best-effort GC backstop can be registered with SetFinalizer to run
// the destructor if the wrapper becomes unreachable while still live.
// Explicit Drop remains the primary discipline.
package handle
