// Package abi defines the type model and layout rules for the
// foreign-function boundary.
//
// # Type Model
//
// Every type expressible in the interface definition language maps to
// one member of a closed shape set:
//
//	Prim     - fixed-width numbers, pointer-sized ints, bool, floats
//	Str      - UTF-8 string, owned or borrowed
//	Buffer   - raw byte buffer with a fixed element kind
//	Slice    - borrowed view over primitive elements
//	Vector   - owned growable array of primitive elements
//	Object   - opaque foreign object resolved by name
//	Option   - present/absent wrapper
//	Result   - success value or foreign error message
//	Tuple    - ordered elements, arity 0..n
//	Iter     - synchronous pull sequence
//	Future   - single async value
//	Stream   - async sequence
//
// # Layout
//
// A Target resolves every primitive to (size, alignment). Native
// targets use natural widths with pointer-sized integers taking the
// native pointer size in bytes. The flat-memory Wasm32 target pads
// every primitive narrower than 4 bytes up to 4, since the target has
// no operand narrower than its machine word; 8-byte primitives keep
// their natural size. Alignment always equals size.
//
// # Functions
//
// Free functions, constructors, instance methods and the synthesized
// next/poll operations of iterators, futures and streams are all
// represented by one Function shape, so a single lowering pipeline
// serves all of them. Entities are derived once per parsed interface
// and are immutable thereafter.
package abi
