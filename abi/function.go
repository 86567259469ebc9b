package abi

import "fmt"

// FuncKind distinguishes how a Function came to exist. Declared
// functions, constructors and methods come from the interface;
// next/poll operations are synthesized for every iterator, future and
// stream appearing in a return type.
type FuncKind uint8

const (
	KindFree FuncKind = iota
	KindConstructor
	KindMethod
	KindIterNext
	KindFuturePoll
	KindStreamPoll
)

func (k FuncKind) String() string {
	switch k {
	case KindFree:
		return "function"
	case KindConstructor:
		return "constructor"
	case KindMethod:
		return "method"
	case KindIterNext:
		return "iter_next"
	case KindFuturePoll:
		return "future_poll"
	case KindStreamPoll:
		return "stream_poll"
	}
	return "unknown"
}

// Arg is one declared argument.
type Arg struct {
	Name string
	Type Type
}

// Function is the flattened description of one callable crossing the
// boundary. Ret is nil for void.
type Function struct {
	Object   string // owning object, empty for free functions
	Name     string
	Kind     FuncKind
	IsStatic bool
	IsAsync  bool
	Args     []Arg
	Ret      Type
	Doc      []string
}

// FQN returns the fully qualified name used for symbol mangling.
func (f *Function) FQN() string {
	if f.Object != "" {
		return f.Object + "_" + f.Name
	}
	return f.Name
}

// NeedsSelf reports whether the function takes an implicit leading
// handle to its owning object.
func (f *Function) NeedsSelf() bool {
	return f.Object != "" && !f.IsStatic && f.Kind == KindMethod
}

// SelfType returns the type of the implicit self argument.
func (f *Function) SelfType() Type {
	return Object{Name: f.Object, Owned: false}
}

// EffectiveRet returns the return type after async normalization: an
// async function's declared return is delivered through a future.
func (f *Function) EffectiveRet() Type {
	if !f.IsAsync {
		return f.Ret
	}
	inner := f.Ret
	if inner == nil {
		inner = Unit()
	}
	return Future{Inner: inner, Owned: true}
}

// Companion symbol naming. Lowering and companion synthesis walk
// return types in the same depth-first order, so occurrence index n
// yields identical names on both sides.

// IterNextName returns the symbol of the n-th iterator's next export.
func IterNextName(fqn string, n int) string {
	if n == 0 {
		return fqn + "_iter_next"
	}
	return fmt.Sprintf("%s_iter%d_next", fqn, n)
}

// FuturePollName returns the symbol of the n-th future's poll export.
func FuturePollName(fqn string, n int) string {
	if n == 0 {
		return fqn + "_future_poll"
	}
	return fmt.Sprintf("%s_future%d_poll", fqn, n)
}

// StreamPollName returns the symbol of the n-th stream's poll export.
func StreamPollName(fqn string, n int) string {
	if n == 0 {
		return fqn + "_stream_poll"
	}
	return fmt.Sprintf("%s_stream%d_poll", fqn, n)
}

// WalkHandles visits every iterator, future and stream occurring in t,
// depth-first. It does not descend into a visited handle's element
// type: elements are reached through the handle's own synthesized
// next/poll operation, which is itself walked when lowered. The visit
// order is the contract companion naming depends on; instruction
// selection lifts handles in exactly this order.
func WalkHandles(t Type, visit func(Type)) {
	switch v := t.(type) {
	case Option:
		WalkHandles(v.Inner, visit)
	case Result:
		WalkHandles(v.Inner, visit)
	case Tuple:
		for _, e := range v.Elems {
			WalkHandles(e, visit)
		}
	case Iter, Future, Stream:
		visit(v)
	}
}

// Companions synthesizes the next/poll operation for every iterator,
// future and stream in the function's (async-normalized) return type.
func Companions(f *Function) []Function {
	ret := f.EffectiveRet()
	if ret == nil {
		return nil
	}
	fqn := f.FQN()
	var out []Function
	var iters, futs, streams int
	WalkHandles(ret, func(t Type) {
		switch v := t.(type) {
		case Iter:
			out = append(out, Function{
				Name: IterNextName(fqn, iters),
				Kind: KindIterNext,
				Args: []Arg{{Name: "iter", Type: Iter{Inner: v.Inner}}},
				Ret:  Option{Inner: v.Inner},
			})
			iters++
		case Future:
			out = append(out, Function{
				Name: FuturePollName(fqn, futs),
				Kind: KindFuturePoll,
				Args: []Arg{
					{Name: "fut", Type: Future{Inner: v.Inner}},
					{Name: "slot", Type: Prim{Kind: U64}},
				},
				Ret: Option{Inner: v.Inner},
			})
			futs++
		case Stream:
			out = append(out, Function{
				Name: StreamPollName(fqn, streams),
				Kind: KindStreamPoll,
				Args: []Arg{
					{Name: "stream", Type: Stream{Inner: v.Inner}},
					{Name: "next", Type: Prim{Kind: U64}},
					{Name: "done", Type: Prim{Kind: U64}},
				},
				Ret: Option{Inner: v.Inner},
			})
			streams++
		}
	})
	return out
}
