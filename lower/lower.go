package lower

import (
	"fmt"

	"github.com/wasmlink/ffigen/abi"
	"github.com/wasmlink/ffigen/errors"
)

// Lower produces the flattened import for one function under one
// target: its slot list, return representation and instruction
// sequence. The result is deterministic for identical inputs.
func Lower(fn *abi.Function, target abi.Target) (*Import, error) {
	l := &lowerer{target: target, fn: fn, fqn: fn.FQN()}
	return l.run()
}

// Imports lowers every declared function, constructor and method of
// the interface plus the synthesized next/poll operation of every
// iterator, future and stream appearing in a return type.
func Imports(iface *abi.Interface, target abi.Target) ([]*Import, error) {
	if err := iface.Validate(); err != nil {
		return nil, err
	}
	queue := iface.AllFunctions()
	out := make([]*Import, 0, len(queue))
	for i := 0; i < len(queue); i++ {
		fn := queue[i]
		imp, err := Lower(&fn, target)
		if err != nil {
			return nil, err
		}
		out = append(out, imp)
		queue = append(queue, abi.Companions(&fn)...)
	}
	return out, nil
}

type lowerer struct {
	target  abi.Target
	fn      *abi.Function
	fqn     string
	nextVar uint32
	slots   []Slot
	iters   int
	futures int
	streams int
}

func (l *lowerer) newVar() Var {
	v := Var{ID: l.nextVar}
	l.nextVar++
	return v
}

// slot reserves one flattened argument slot and its backing var.
func (l *lowerer) slot(name string, kind NumKind) Var {
	v := l.newVar()
	l.slots = append(l.slots, Slot{Name: name, Kind: kind, Var: v})
	return v
}

func (l *lowerer) ptrKind() NumKind {
	return SlotKind(l.target, abi.Usize)
}

func (l *lowerer) split64(p abi.PrimType) bool {
	if l.target != abi.Wasm32 {
		return false
	}
	return p == abi.U64 || p == abi.I64
}

func (l *lowerer) run() (*Import, error) {
	var argInstrs []Instr

	if l.fn.NeedsSelf() {
		out := l.slot("self", l.ptrKind())
		argInstrs = append(argInstrs, BorrowSelf{Out: out})
	}

	for _, arg := range l.fn.Args {
		in := l.newVar()
		argInstrs = append(argInstrs, BindArg{Name: arg.Name, Out: in})
		if err := l.lowerArg(arg.Name, arg.Type, in, &argInstrs); err != nil {
			return nil, err
		}
	}

	ret := l.fn.EffectiveRet()
	retKinds, err := l.retKinds(ret)
	if err != nil {
		return nil, err
	}

	callArgs := make([]Var, len(l.slots))
	for i, s := range l.slots {
		callArgs[i] = s.Var
	}

	instrs := make([]Instr, 0, len(argInstrs)+len(retKinds)+4)
	slotVars := make([]Var, len(l.slots))
	copy(slotVars, callArgs)
	instrs = append(instrs, DefineArgs{Vars: slotVars})
	instrs = append(instrs, argInstrs...)

	symbol := ExportName(l.fqn)
	if len(retKinds) == 0 {
		instrs = append(instrs, Call{Symbol: symbol, Args: callArgs})
		instrs = append(instrs, ReturnVoid{})
	} else {
		retVar := l.newVar()
		instrs = append(instrs, Call{Symbol: symbol, Args: callArgs, Ret: &retVar})

		outs := make([]Var, len(retKinds))
		for i := range outs {
			outs[i] = l.newVar()
		}
		instrs = append(instrs, BindRets{Ret: retVar, Outs: outs})

		cur := &cursor{vars: outs}
		v, hasValue, err := l.lift(ret, cur, &instrs)
		if err != nil {
			return nil, err
		}
		if hasValue {
			instrs = append(instrs, ReturnValue{In: v})
		} else {
			instrs = append(instrs, ReturnVoid{})
		}
	}

	retRepr := Ret{Kind: RetVoid}
	if len(retKinds) > 0 {
		retRepr.Slots = make([]Slot, len(retKinds))
		for i, k := range retKinds {
			retRepr.Slots[i] = Slot{Name: fmt.Sprintf("ret%d", i), Kind: k}
		}
		if len(retKinds) == 1 {
			retRepr.Kind = RetScalar
		} else {
			retRepr.Kind = RetStruct
		}
	}

	return &Import{
		Symbol:  symbol,
		Args:    l.fn.Args,
		Slots:   l.slots,
		Ret:     retRepr,
		Instrs:  instrs,
		NumVars: l.nextVar,
	}, nil
}

// lowerArg appends the slots and instructions marshaling one argument,
// strictly in declaration order; nested shapes recurse depth-first.
func (l *lowerer) lowerArg(name string, t abi.Type, in Var, out *[]Instr) error {
	switch v := t.(type) {
	case abi.Prim:
		if v.Kind == abi.Bool {
			s := l.slot(name, KindI32)
			*out = append(*out, LowerBool{In: in, Out: s})
			return nil
		}
		if l.split64(v.Kind) {
			lo := l.slot(name+"_lo", KindI32)
			hi := l.slot(name+"_hi", KindI32)
			*out = append(*out, SplitNum{In: in, OutLo: lo, OutHi: hi, Prim: v.Kind})
			return nil
		}
		s := l.slot(name, SlotKind(l.target, v.Kind))
		*out = append(*out, LowerNum{In: in, Out: s, Prim: v.Kind})
		return nil

	case abi.Str:
		ptr := l.slot(name+"_ptr", l.ptrKind())
		length := l.slot(name+"_len", l.ptrKind())
		capacity := l.slot(name+"_cap", l.ptrKind())
		size, align := l.target.ElemLayout(abi.U8)
		*out = append(*out, LowerString{In: in, Ptr: ptr, Len: length, Cap: capacity, Size: size, Align: align})
		return nil

	case abi.Buffer:
		return l.lowerElems(name, v.Elem, in, out)
	case abi.Slice:
		return l.lowerElems(name, v.Elem, in, out)
	case abi.Vector:
		return l.lowerElems(name, v.Elem, in, out)

	case abi.Object:
		s := l.slot(name, l.ptrKind())
		if v.Owned {
			*out = append(*out, MoveObject{In: in, Out: s})
		} else {
			*out = append(*out, BorrowObject{In: in, Out: s})
		}
		return nil

	case abi.Iter:
		s := l.slot(name, l.ptrKind())
		if v.Owned {
			*out = append(*out, MoveIter{In: in, Out: s})
		} else {
			*out = append(*out, BorrowIter{In: in, Out: s})
		}
		return nil

	case abi.Future:
		s := l.slot(name, l.ptrKind())
		if v.Owned {
			*out = append(*out, MoveFuture{In: in, Out: s})
		} else {
			*out = append(*out, BorrowFuture{In: in, Out: s})
		}
		return nil

	case abi.Stream:
		s := l.slot(name, l.ptrKind())
		if v.Owned {
			*out = append(*out, MoveStream{In: in, Out: s})
		} else {
			*out = append(*out, BorrowStream{In: in, Out: s})
		}
		return nil

	case abi.Option:
		disc := l.slot(name, KindI32)
		some := l.newVar()
		var nested []Instr
		if err := l.lowerArg(name+"_some", v.Inner, some, &nested); err != nil {
			return err
		}
		*out = append(*out, LowerOption{In: in, Disc: disc, Some: some, Instrs: nested})
		return nil

	case abi.Tuple:
		switch len(v.Elems) {
		case 0:
			return nil
		case 1:
			return l.lowerArg(name, v.Elems[0], in, out)
		default:
			elems := make([]Var, len(v.Elems))
			for i := range elems {
				elems[i] = l.newVar()
			}
			*out = append(*out, LowerTuple{In: in, Outs: elems})
			for i, e := range v.Elems {
				if err := l.lowerArg(fmt.Sprintf("%s_%d", name, i), e, elems[i], out); err != nil {
					return err
				}
			}
			return nil
		}

	case abi.Result:
		return errors.Unsupported(errors.PhaseLower, []string{l.fqn, name}, "result is not usable as an argument")
	}
	return errors.Unsupported(errors.PhaseLower, []string{l.fqn, name}, "argument shape %s", t)
}

func (l *lowerer) lowerElems(name string, elem abi.PrimType, in Var, out *[]Instr) error {
	ptr := l.slot(name+"_ptr", l.ptrKind())
	length := l.slot(name+"_len", l.ptrKind())
	capacity := l.slot(name+"_cap", l.ptrKind())
	size, align := l.target.ElemLayout(elem)
	*out = append(*out, LowerVec{In: in, Ptr: ptr, Len: length, Cap: capacity, Elem: elem, Size: size, Align: align})
	return nil
}

// retKinds computes the flattened return slot kinds for a type, in
// the exact order lift consumes them.
func (l *lowerer) retKinds(t abi.Type) ([]NumKind, error) {
	if t == nil {
		return nil, nil
	}
	switch v := t.(type) {
	case abi.Prim:
		if v.Kind == abi.Bool {
			return []NumKind{KindI32}, nil
		}
		if l.split64(v.Kind) {
			return []NumKind{KindI32, KindI32}, nil
		}
		return []NumKind{SlotKind(l.target, v.Kind)}, nil

	case abi.Str:
		return []NumKind{l.ptrKind(), l.ptrKind()}, nil
	case abi.Buffer:
		return []NumKind{l.ptrKind(), l.ptrKind()}, nil
	case abi.Slice:
		return []NumKind{l.ptrKind(), l.ptrKind()}, nil
	case abi.Vector:
		return []NumKind{l.ptrKind(), l.ptrKind()}, nil

	case abi.Object:
		if !v.Owned {
			return nil, errors.Unsupported(errors.PhaseLower, []string{l.fqn}, "borrowed object %q as return", v.Name)
		}
		return []NumKind{l.ptrKind()}, nil

	case abi.Iter, abi.Future, abi.Stream:
		return []NumKind{l.ptrKind()}, nil

	case abi.Option:
		inner, err := l.retKinds(v.Inner)
		if err != nil {
			return nil, err
		}
		return append([]NumKind{KindI32}, inner...), nil

	case abi.Result:
		inner, err := l.retKinds(v.Inner)
		if err != nil {
			return nil, err
		}
		// The failure branch reuses the payload's first two slots as
		// the (ptr, len) of the UTF-8 message.
		kinds := append([]NumKind{KindI32}, inner...)
		for len(kinds) < 3 {
			kinds = append(kinds, KindI32)
		}
		return kinds, nil

	case abi.Tuple:
		if len(v.Elems) == 1 {
			return l.retKinds(v.Elems[0])
		}
		var kinds []NumKind
		for _, e := range v.Elems {
			ek, err := l.retKinds(e)
			if err != nil {
				return nil, err
			}
			kinds = append(kinds, ek...)
		}
		return kinds, nil
	}
	return nil, errors.Unsupported(errors.PhaseLower, []string{l.fqn}, "return shape %s", t)
}

// cursor consumes destructured return vars positionally.
type cursor struct {
	vars []Var
	pos  int
}

func (c *cursor) take() Var {
	v := c.vars[c.pos]
	c.pos++
	return v
}

// lift appends the instructions decoding the flattened return back
// into a host value. hasValue is false when the type lifts to unit.
func (l *lowerer) lift(t abi.Type, c *cursor, out *[]Instr) (Var, bool, error) {
	switch v := t.(type) {
	case abi.Prim:
		if v.Kind == abi.Bool {
			in := c.take()
			res := l.newVar()
			*out = append(*out, LiftBool{In: in, Out: res})
			return res, true, nil
		}
		if l.split64(v.Kind) {
			lo := c.take()
			hi := c.take()
			res := l.newVar()
			*out = append(*out, JoinNum{Lo: lo, Hi: hi, Out: res, Prim: v.Kind})
			return res, true, nil
		}
		in := c.take()
		res := l.newVar()
		*out = append(*out, LiftNum{In: in, Out: res, Prim: v.Kind})
		return res, true, nil

	case abi.Str:
		ptr := c.take()
		length := c.take()
		res := l.newVar()
		*out = append(*out, LiftString{Ptr: ptr, Len: length, Out: res})
		if v.Owned {
			size, align := l.target.ElemLayout(abi.U8)
			*out = append(*out, Deallocate{Ptr: ptr, Len: length, Size: size, Align: align})
		}
		return res, true, nil

	case abi.Buffer:
		return l.liftElems(v.Elem, true, c, out)
	case abi.Vector:
		return l.liftElems(v.Elem, true, c, out)
	case abi.Slice:
		return l.liftElems(v.Elem, false, c, out)

	case abi.Object:
		box := c.take()
		res := l.newVar()
		*out = append(*out, LiftObject{Object: v.Name, Box: box, Drop: ObjectDropName(v.Name), Out: res})
		return res, true, nil

	case abi.Iter:
		box := c.take()
		res := l.newVar()
		*out = append(*out, LiftIter{
			Box:  box,
			Next: ExportName(abi.IterNextName(l.fqn, l.iters)),
			Drop: IterDropName(l.fqn, l.iters),
			Out:  res,
		})
		l.iters++
		return res, true, nil

	case abi.Future:
		box := c.take()
		res := l.newVar()
		*out = append(*out, LiftFuture{
			Box:  box,
			Poll: ExportName(abi.FuturePollName(l.fqn, l.futures)),
			Drop: FutureDropName(l.fqn, l.futures),
			Out:  res,
		})
		l.futures++
		return res, true, nil

	case abi.Stream:
		box := c.take()
		res := l.newVar()
		*out = append(*out, LiftStream{
			Box:  box,
			Poll: ExportName(abi.StreamPollName(l.fqn, l.streams)),
			Drop: StreamDropName(l.fqn, l.streams),
			Out:  res,
		})
		l.streams++
		return res, true, nil

	case abi.Option:
		disc := c.take()
		*out = append(*out, HandleNull{Disc: disc})
		return l.lift(v.Inner, c, out)

	case abi.Result:
		disc := c.take()
		innerKinds, err := l.retKinds(v.Inner)
		if err != nil {
			return Var{}, false, err
		}
		payload := len(innerKinds)
		if payload < 2 {
			payload = 2
		}
		start := c.pos
		*out = append(*out, HandleError{Disc: disc, Ptr: c.vars[start], Len: c.vars[start+1]})
		res, hasValue, err := l.lift(v.Inner, c, out)
		if err != nil {
			return Var{}, false, err
		}
		c.pos = start + payload
		return res, hasValue, nil

	case abi.Tuple:
		switch len(v.Elems) {
		case 0:
			return Var{}, false, nil
		case 1:
			return l.lift(v.Elems[0], c, out)
		default:
			elems := make([]Var, 0, len(v.Elems))
			for i, e := range v.Elems {
				switch e.(type) {
				case abi.Option, abi.Result:
					return Var{}, false, errors.Unsupported(errors.PhaseLower,
						[]string{l.fqn}, "%s inside a tuple return", e)
				}
				ev, hasValue, err := l.lift(e, c, out)
				if err != nil {
					return Var{}, false, err
				}
				if !hasValue {
					return Var{}, false, errors.Unsupported(errors.PhaseLower,
						[]string{l.fqn}, "unit element %d inside a tuple return", i)
				}
				elems = append(elems, ev)
			}
			res := l.newVar()
			*out = append(*out, LiftTuple{Ins: elems, Out: res})
			return res, true, nil
		}
	}
	return Var{}, false, errors.Unsupported(errors.PhaseLower, []string{l.fqn}, "return shape %s", t)
}

func (l *lowerer) liftElems(elem abi.PrimType, owned bool, c *cursor, out *[]Instr) (Var, bool, error) {
	ptr := c.take()
	length := c.take()
	res := l.newVar()
	size, align := l.target.ElemLayout(elem)
	*out = append(*out, LiftVec{Ptr: ptr, Len: length, Out: res, Elem: elem, Size: size, Align: align})
	if owned {
		*out = append(*out, Deallocate{Ptr: ptr, Len: length, Size: size, Align: align})
	}
	return res, true, nil
}
