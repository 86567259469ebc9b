// Package host executes lowered imports against a live flat-memory
// module: a direct backend over the shared instruction sequence.
//
// Runtime wraps a wazero runtime and installs the notifier entry
// point the foreign side calls to wake pending async operations. An
// Instance binds a set of lowered imports to one instantiated module
// and interprets each import's instruction sequence on Call: slot
// values cross as raw words, strings and vectors are copied through
// the module's linear memory via the allocate/deallocate exports,
// received resources are wrapped in handles, and futures, streams and
// iterators are driven through the notify package.
//
// The interpreter works against the narrow Foreign interface, so
// tests can script a fake foreign side without a compiled module.
//
// Calls follow the single-threaded cooperative discipline: foreign
// wakes only enqueue callbacks, and the queue drains between calls.
package host
