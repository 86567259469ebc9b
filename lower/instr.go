package lower

import "github.com/wasmlink/ffigen/abi"

// Instr is one elementary marshaling operation. The set is closed;
// each backend implements exactly one dispatch over it.
type Instr interface {
	isInstr()
}

// DefineArgs declares and zero-initializes the mutable slot vars the
// call will consume. Lowering instructions assign into them; slots
// under an absent option branch keep their zero value.
type DefineArgs struct {
	Vars []Var
}

// BindArg renames an incoming host argument into a fresh var.
type BindArg struct {
	Name string
	Out  Var
}

// BindRets positionally destructures a call's returned slot value(s)
// into fresh vars.
type BindRets struct {
	Ret  Var
	Outs []Var
}

// LowerNum converts a host number into a raw slot value.
type LowerNum struct {
	In, Out Var
	Prim    abi.PrimType
}

// LiftNum converts a raw slot value back into a host number.
type LiftNum struct {
	In, Out Var
	Prim    abi.PrimType
}

// LowerBool encodes a host boolean as 0/1.
type LowerBool struct {
	In, Out Var
}

// LiftBool decodes a nonzero slot value as true.
type LiftBool struct {
	In, Out Var
}

// SplitNum splits a 64-bit integer into two 32-bit halves bit for
// bit; the narrow-word call mechanism cannot pass it as one unit.
type SplitNum struct {
	In, OutLo, OutHi Var
	Prim             abi.PrimType
}

// JoinNum rejoins two 32-bit halves into the original 64-bit bit
// pattern.
type JoinNum struct {
	Lo, Hi, Out Var
	Prim        abi.PrimType
}

// LowerString UTF-8 encodes a host string into foreign linear memory:
// allocates, copies, and assigns the (ptr, len, cap) slot vars.
type LowerString struct {
	In            Var
	Ptr, Len, Cap Var
	Size, Align   uint32
}

// LiftString decodes a UTF-8 string from foreign linear memory.
type LiftString struct {
	Ptr, Len Var
	Out      Var
}

// LowerVec copies host elements into foreign linear memory and
// assigns the (ptr, len, cap) slot vars.
type LowerVec struct {
	In            Var
	Ptr, Len, Cap Var
	Elem          abi.PrimType
	Size, Align   uint32
}

// LiftVec copies elements out of foreign linear memory into a host
// array.
type LiftVec struct {
	Ptr, Len    Var
	Out         Var
	Elem        abi.PrimType
	Size, Align uint32
}

// LowerTuple destructures a host tuple into one var per element.
type LowerTuple struct {
	In   Var
	Outs []Var
}

// LiftTuple collects n lifted vars into one host tuple. Arity 0 is
// unit; arity 1 never reaches this instruction (passthrough).
type LiftTuple struct {
	Ins []Var
	Out Var
}

// LowerOption writes the discriminant and, on the present branch
// only, binds the payload to Some and runs the nested instructions.
type LowerOption struct {
	In     Var
	Disc   Var
	Some   Var
	Instrs []Instr
}

// HandleNull decodes a zero discriminant as the host's absent value,
// ending the lift early.
type HandleNull struct {
	Disc Var
}

// HandleError checks a result discriminant. Non-zero means failure:
// the UTF-8 message at (ptr, len) is decoded, its buffer deallocated
// when len > 0, and the message raised through the host's
// error-signaling mechanism in place of a normal return.
type HandleError struct {
	Disc     Var
	Ptr, Len Var
}

// Deallocate requests the foreign side free a byte region of
// len × size bytes at the given alignment. The request is skipped
// when the length is zero.
type Deallocate struct {
	Ptr, Len    Var
	Size, Align uint32
}

// Call invokes a named foreign export with the current var list and
// binds a fresh var to its result (nil if void).
type Call struct {
	Symbol string
	Args   []Var
	Ret    *Var
}

// ReturnValue is the terminal instruction for value-returning calls.
type ReturnValue struct {
	In Var
}

// ReturnVoid is the terminal instruction for void calls.
type ReturnVoid struct{}

// Ownership instructions. Borrow reads a live handle's raw value;
// Move transitions it to moved, transferring ownership onward; the
// Lift instructions construct a fresh handle around a received raw
// value and its destructor export.

type BorrowSelf struct {
	Out Var
}

type BorrowObject struct {
	In, Out Var
}

type MoveObject struct {
	In, Out Var
}

type BorrowIter struct {
	In, Out Var
}

type MoveIter struct {
	In, Out Var
}

type BorrowFuture struct {
	In, Out Var
}

type MoveFuture struct {
	In, Out Var
}

type BorrowStream struct {
	In, Out Var
}

type MoveStream struct {
	In, Out Var
}

// LiftObject wraps a received raw handle in a fresh host object with
// its destructor export.
type LiftObject struct {
	Object string
	Box    Var
	Drop   string
	Out    Var
}

// LiftIter wraps a received iterator handle together with the symbols
// of its companion next and drop exports.
type LiftIter struct {
	Box        Var
	Next, Drop string
	Out        Var
}

// LiftFuture wraps a received future handle together with the symbols
// of its companion poll and drop exports.
type LiftFuture struct {
	Box        Var
	Poll, Drop string
	Out        Var
}

// LiftStream wraps a received stream handle together with the symbols
// of its companion poll and drop exports.
type LiftStream struct {
	Box        Var
	Poll, Drop string
	Out        Var
}

func (DefineArgs) isInstr()   {}
func (BindArg) isInstr()      {}
func (BindRets) isInstr()     {}
func (LowerNum) isInstr()     {}
func (LiftNum) isInstr()      {}
func (LowerBool) isInstr()    {}
func (LiftBool) isInstr()     {}
func (SplitNum) isInstr()     {}
func (JoinNum) isInstr()      {}
func (LowerString) isInstr()  {}
func (LiftString) isInstr()   {}
func (LowerVec) isInstr()     {}
func (LiftVec) isInstr()      {}
func (LowerTuple) isInstr()   {}
func (LiftTuple) isInstr()    {}
func (LowerOption) isInstr()  {}
func (HandleNull) isInstr()   {}
func (HandleError) isInstr()  {}
func (Deallocate) isInstr()   {}
func (Call) isInstr()         {}
func (ReturnValue) isInstr()  {}
func (ReturnVoid) isInstr()   {}
func (BorrowSelf) isInstr()   {}
func (BorrowObject) isInstr() {}
func (MoveObject) isInstr()   {}
func (BorrowIter) isInstr()   {}
func (MoveIter) isInstr()     {}
func (BorrowFuture) isInstr() {}
func (MoveFuture) isInstr()   {}
func (BorrowStream) isInstr() {}
func (MoveStream) isInstr()   {}
func (LiftObject) isInstr()   {}
func (LiftIter) isInstr()     {}
func (LiftFuture) isInstr()   {}
func (LiftStream) isInstr()   {}
