// Package lower turns functions into flattened ABI imports: the slot
// list crossing the boundary, the return representation, and the
// ordered marshaling instruction sequence every backend consumes.
//
// # Slots
//
// Each declared argument flattens to raw slots per its shape. Strings,
// buffers, slices and vectors become (pointer, length, capacity);
// options become a discriminant followed by the inner shape's slots;
// objects become one handle slot; tuples concatenate their elements'
// slots; 64-bit integers split into two 32-bit halves under the
// Wasm32 target. Instance methods gain an implicit leading self slot.
//
// # Instructions
//
// The instruction sequence is a position-independent intermediate
// form over single-assignment vars identified by integers from a
// monotonic counter. Argument lowering runs strictly left to right in
// declaration order, followed by exactly one Call, followed by return
// lifting; nested shapes recurse depth-first. Backends map var
// integers to local names positionally and emit one statement per
// instruction, so no reordering freedom exists.
//
// # Returns
//
// A return expanding to more than one slot is modeled as a
// struct-of-scalars return. Targets whose call mechanism cannot
// return more than one scalar compensate through the multivalue
// package.
package lower
