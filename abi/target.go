package abi

import "math/bits"

// Target selects the ABI used for layout resolution: a native target
// with the given pointer width, or the flat-memory Wasm32 target with
// a fixed 4-byte machine word.
type Target uint8

const (
	Native32 Target = iota
	Native64
	Wasm32
)

// NativeTarget returns the native target matching the host's pointer
// width.
func NativeTarget() Target {
	if bits.UintSize == 64 {
		return Native64
	}
	return Native32
}

func (t Target) String() string {
	switch t {
	case Native32:
		return "native32"
	case Native64:
		return "native64"
	case Wasm32:
		return "wasm32"
	}
	return "unknown"
}

// PtrSize returns the target's pointer size in bytes. Pointer-sized
// primitives take exactly this size; any other derivation is a defect.
func (t Target) PtrSize() uint32 {
	if t == Native64 {
		return 8
	}
	return 4
}

// Layout returns the size and alignment of a primitive operand under
// the target. Alignment always equals size (natural alignment only).
func (t Target) Layout(p PrimType) (size, align uint32) {
	size, _ = t.ElemLayout(p)
	if t == Wasm32 && size < 4 {
		// No operand narrower than the machine word.
		size = 4
	}
	return size, size
}

// ElemLayout returns the in-memory layout of one element of a buffer,
// slice or vector. Linear memory is byte-addressable, so elements keep
// their natural size on every target; only call operands are padded.
func (t Target) ElemLayout(p PrimType) (size, align uint32) {
	switch p {
	case U8, I8, Bool:
		size = 1
	case U16, I16:
		size = 2
	case U32, I32, F32:
		size = 4
	case U64, I64, F64:
		size = 8
	case Usize, Isize:
		size = t.PtrSize()
	}
	return size, size
}
