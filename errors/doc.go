// Package errors provides the structured error type shared by the
// generator and the generated-call runtime.
//
// Every error carries a Phase (where in processing it occurred) and a
// Kind (what went wrong), plus an optional path into the offending
// shape:
//
//	[lower] unsupported at next_values.arg: result is not usable as an argument
//	[runtime] double_free at Counter: handle already dropped
//
// Generation errors are fatal and never retried. Runtime errors abort
// the call in progress and propagate to the host caller.
package errors
