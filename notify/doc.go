// Package notify bridges foreign asynchronous operations into the
// host without native threads.
//
// The foreign side exposes poll-style exports and signals readiness by
// invoking a single well-known host entry point with a slot index. The
// Registry maps monotonically reserved slots to zero-argument
// callbacks; a wake enqueues the registered callback, and the host's
// cooperative loop runs the queue between calls. Callbacks run to
// completion without preemption, so the registry needs no locking; a
// multi-threaded host would need its own synchronization.
//
// Three drivers consume the registry:
//
//	Future   - one slot; polls immediately, re-polls on wake, settles
//	           exactly once, then unregisters and drops its handle
//	Stream   - a next slot and a done slot; items flow to a sink until
//	           the foreign side fires done
//	Iterator - purely synchronous pull until the end sentinel; no
//	           suspension occurs
//
// Waking a slot with no registered callback is a dangling-slot error,
// never a normal outcome: it means a pending operation was abandoned
// without unregistering.
package notify
