package lower

import (
	"github.com/wasmlink/ffigen/abi"
)

// Var is a single-assignment binding. Each var is produced by exactly
// one instruction and may be read by any later one. Backends map the
// integer identity to a local name positionally.
type Var struct {
	ID uint32
}

// NumKind is the raw kind of one ABI slot.
type NumKind uint8

const (
	KindI32 NumKind = iota
	KindI64
	KindF32
	KindF64
)

func (k NumKind) String() string {
	switch k {
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	}
	return "unknown"
}

// SlotKind maps a primitive to the raw kind of the slot carrying it
// under the given target. 64-bit integers under Wasm32 never reach
// this mapping whole; they are split into two I32 slots first.
func SlotKind(t abi.Target, p abi.PrimType) NumKind {
	switch p {
	case abi.F32:
		return KindF32
	case abi.F64:
		return KindF64
	}
	size, _ := t.Layout(p)
	if size > 4 {
		return KindI64
	}
	return KindI32
}

// Slot is one flattened ABI argument or return field.
type Slot struct {
	Name string
	Kind NumKind
	Var  Var
}

// RetKind classifies the flattened return representation.
type RetKind uint8

const (
	RetVoid RetKind = iota
	RetScalar
	RetStruct
)

// Ret is the flattened return representation. RetScalar carries one
// slot; RetStruct carries the ordered fields of a struct-of-scalars
// return, which narrow-word call mechanisms need compensation for.
type Ret struct {
	Kind  RetKind
	Slots []Slot
}

// Import is the lowering result for one function: the exported symbol,
// the host-facing argument list, the flattened slot list, the return
// representation and the instruction sequence implementing the call
// end to end.
type Import struct {
	Symbol  string
	Args    []abi.Arg
	Slots   []Slot
	Ret     Ret
	Instrs  []Instr
	NumVars uint32
}
