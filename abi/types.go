package abi

import (
	"fmt"
	"strings"
)

// PrimType is a primitive value type crossing the boundary as a raw
// word (or pair of words, for 64-bit values on a narrow-word target).
type PrimType uint8

const (
	U8 PrimType = iota
	U16
	U32
	U64
	Usize
	I8
	I16
	I32
	I64
	Isize
	Bool
	F32
	F64
)

func (p PrimType) String() string {
	switch p {
	case U8:
		return "u8"
	case U16:
		return "u16"
	case U32:
		return "u32"
	case U64:
		return "u64"
	case Usize:
		return "usize"
	case I8:
		return "i8"
	case I16:
		return "i16"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case Isize:
		return "isize"
	case Bool:
		return "bool"
	case F32:
		return "f32"
	case F64:
		return "f64"
	}
	return "unknown"
}

// Signed reports whether the primitive is a signed integer.
func (p PrimType) Signed() bool {
	switch p {
	case I8, I16, I32, I64, Isize:
		return true
	}
	return false
}

// Float reports whether the primitive is a floating-point type.
func (p PrimType) Float() bool {
	return p == F32 || p == F64
}

// Type is the closed set of shapes expressible at the boundary.
type Type interface {
	fmt.Stringer
	isType()
}

// Prim is a primitive type.
type Prim struct {
	Kind PrimType
}

// Str is a UTF-8 string. Borrowed strings are views the callee must
// not retain; owned strings transfer their bytes to the receiver.
type Str struct {
	Owned bool
}

// Buffer is a raw byte region with a fixed element kind, exchanged by
// pointer without element conversion.
type Buffer struct {
	Elem PrimType
}

// Slice is a borrowed view over primitive elements.
type Slice struct {
	Elem PrimType
}

// Vector is an owned growable array of primitive elements.
type Vector struct {
	Elem PrimType
}

// Object is an opaque foreign object, resolved by name against the
// interface's declared objects.
type Object struct {
	Name  string
	Owned bool
}

// Option wraps an inner type with a present/absent discriminant.
type Option struct {
	Inner Type
}

// Result carries either a success value or a foreign error message.
type Result struct {
	Inner Type
}

// Tuple is an ordered sequence of element types. Arity 0 is the unit
// type; arity 1 is transparently unwrapped to its element.
type Tuple struct {
	Elems []Type
}

// Iter is a synchronous pull sequence over Inner values.
type Iter struct {
	Inner Type
	Owned bool
}

// Future is a single asynchronous Inner value.
type Future struct {
	Inner Type
	Owned bool
}

// Stream is an asynchronous sequence of Inner values.
type Stream struct {
	Inner Type
	Owned bool
}

func (Prim) isType()   {}
func (Str) isType()    {}
func (Buffer) isType() {}
func (Slice) isType()  {}
func (Vector) isType() {}
func (Object) isType() {}
func (Option) isType() {}
func (Result) isType() {}
func (Tuple) isType()  {}
func (Iter) isType()   {}
func (Future) isType() {}
func (Stream) isType() {}

func (t Prim) String() string { return t.Kind.String() }

func (t Str) String() string {
	if t.Owned {
		return "string"
	}
	return "&string"
}

func (t Buffer) String() string { return fmt.Sprintf("buffer<%s>", t.Elem) }
func (t Slice) String() string  { return fmt.Sprintf("&[%s]", t.Elem) }
func (t Vector) String() string { return fmt.Sprintf("vec<%s>", t.Elem) }

func (t Object) String() string {
	if t.Owned {
		return t.Name
	}
	return "&" + t.Name
}

func (t Option) String() string { return fmt.Sprintf("option<%s>", t.Inner) }
func (t Result) String() string { return fmt.Sprintf("result<%s>", t.Inner) }

func (t Tuple) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (t Iter) String() string   { return fmt.Sprintf("iter<%s>", t.Inner) }
func (t Future) String() string { return fmt.Sprintf("future<%s>", t.Inner) }
func (t Stream) String() string { return fmt.Sprintf("stream<%s>", t.Inner) }

// Unit is the empty tuple.
func Unit() Type { return Tuple{} }
