package host

import (
	"context"
	"reflect"

	"go.uber.org/zap"

	"github.com/wasmlink/ffigen/errors"
	"github.com/wasmlink/ffigen/handle"
	"github.com/wasmlink/ffigen/lower"
	"github.com/wasmlink/ffigen/notify"
)

// Object is a lifted foreign resource: its declared type name plus the
// handle owning the raw value.
type Object struct {
	Name string
	Box  *handle.Handle
}

// Stream collects the items a foreign stream delivers between drains.
// Err is set if the stream fails; Closed reports completion.
type Stream struct {
	Items []any
	Err   error

	inner *notify.Stream
}

// Closed reports whether the stream has completed, failed or been
// cancelled.
func (s *Stream) Closed() bool { return s.inner.Closed() }

// Cancel abandons the stream early.
func (s *Stream) Cancel() { s.inner.Cancel() }

// Instance binds lowered imports to one instantiated module. Calls
// interpret the import's instruction sequence against the module's
// exports and linear memory.
type Instance struct {
	f       Foreign
	reg     *notify.Registry
	imports map[string]*lower.Import
}

// NewInstance binds imports to a foreign side. The registry carries
// the instance's pending async slots; callers driving several
// instances from one notifier share one registry.
func NewInstance(f Foreign, reg *notify.Registry, imports []*lower.Import) *Instance {
	m := make(map[string]*lower.Import, len(imports))
	for _, imp := range imports {
		m[imp.Symbol] = imp
	}
	return &Instance{f: f, reg: reg, imports: m}
}

// Registry returns the instance's notifier registry.
func (i *Instance) Registry() *notify.Registry { return i.reg }

// Import returns the lowered import bound under symbol, if any.
func (i *Instance) Import(symbol string) (*lower.Import, bool) {
	imp, ok := i.imports[symbol]
	return imp, ok
}

// Call invokes the import bound under symbol. self is the receiver
// for method imports and nil otherwise. Args are given positionally
// in the import's declared order. Queued async callbacks drain before
// Call returns, so settled futures and delivered stream items are
// visible to the caller.
func (i *Instance) Call(ctx context.Context, symbol string, self *Object, args ...any) (any, error) {
	imp, ok := i.imports[symbol]
	if !ok {
		return nil, errors.New(errors.PhaseRuntime, errors.KindMissingExport,
			"no import bound for %q", symbol)
	}
	var box *handle.Handle
	if self != nil {
		box = self.Box
	}
	Logger().Debug("call", zap.String("symbol", symbol), zap.Int("args", len(args)))
	value, _, err := i.callImport(ctx, imp, box, args)
	i.reg.Drain()
	return value, err
}

// Drain runs queued async callbacks to completion.
func (i *Instance) Drain() { i.reg.Drain() }

// callImport interprets one import. present is false when an optional
// return decoded as absent, which is how pending polls and exhausted
// iterators are told apart from a genuine unit value.
func (i *Instance) callImport(ctx context.Context, imp *lower.Import, self *handle.Handle, args []any) (any, bool, error) {
	if len(args) != len(imp.Args) {
		return nil, false, errors.New(errors.PhaseRuntime, errors.KindUnsupported,
			"%s takes %d argument(s), got %d", imp.Symbol, len(imp.Args), len(args))
	}
	named := make(map[string]any, len(args))
	for n, arg := range imp.Args {
		named[arg.Name] = args[n]
	}
	e := &exec{inst: i, ctx: ctx, self: self, args: named, vars: make([]any, imp.NumVars)}
	t, err := e.run(imp.Instrs)
	if err != nil {
		return nil, false, err
	}
	if t == nil {
		return nil, false, errors.New(errors.PhaseRuntime, errors.KindUnsupported,
			"%s: instruction sequence ended without a terminal", imp.Symbol)
	}
	return t.value, !t.absent, nil
}

// companion returns the lowered import for a synthesized next or poll
// function.
func (i *Instance) companion(symbol string) (*lower.Import, error) {
	imp, ok := i.imports[symbol]
	if !ok {
		return nil, errors.New(errors.PhaseRuntime, errors.KindMissingExport,
			"companion import %q not bound", symbol)
	}
	return imp, nil
}

// dtor builds the destructor closure for a lifted handle.
func (i *Instance) dtor(symbol string, raw uint64) func() {
	return func() {
		if _, err := i.f.Call(context.Background(), symbol, raw); err != nil {
			Logger().Error("destructor failed",
				zap.String("symbol", symbol), zap.Error(err))
		}
	}
}

// termination is the outcome of a terminal instruction.
type termination struct {
	value  any
	absent bool
}

type exec struct {
	inst *Instance
	ctx  context.Context
	self *handle.Handle
	args map[string]any
	vars []any
}

// run steps through instrs until a terminal fires. A nil termination
// with nil error means the list ran out, which only happens for the
// nested lists under an option's present branch.
func (e *exec) run(instrs []lower.Instr) (*termination, error) {
	for _, in := range instrs {
		t, err := e.step(in)
		if err != nil {
			return nil, err
		}
		if t != nil {
			return t, nil
		}
	}
	return nil, nil
}

func (e *exec) step(in lower.Instr) (*termination, error) {
	switch op := in.(type) {
	case lower.DefineArgs:
		for _, v := range op.Vars {
			e.vars[v.ID] = uint64(0)
		}

	case lower.BindArg:
		v, ok := e.args[op.Name]
		if !ok {
			return nil, errors.New(errors.PhaseRuntime, errors.KindUnsupported,
				"no value bound for argument %q", op.Name)
		}
		e.vars[op.Out.ID] = v

	case lower.BindRets:
		rets, ok := e.vars[op.Ret.ID].([]uint64)
		if !ok || len(rets) != len(op.Outs) {
			return nil, errors.New(errors.PhaseRuntime, errors.KindForeign,
				"foreign returned %d slot(s), want %d", len(rets), len(op.Outs))
		}
		for n, out := range op.Outs {
			e.vars[out.ID] = rets[n]
		}

	case lower.LowerNum:
		raw, err := encodeNum(op.Prim, e.vars[op.In.ID])
		if err != nil {
			return nil, err
		}
		e.vars[op.Out.ID] = raw

	case lower.LiftNum:
		raw, err := e.word(op.In)
		if err != nil {
			return nil, err
		}
		e.vars[op.Out.ID] = decodeNum(op.Prim, raw)

	case lower.LowerBool:
		b, ok := e.vars[op.In.ID].(bool)
		if !ok {
			return nil, errors.New(errors.PhaseRuntime, errors.KindUnsupported,
				"cannot encode %T as bool", e.vars[op.In.ID])
		}
		var raw uint64
		if b {
			raw = 1
		}
		e.vars[op.Out.ID] = raw

	case lower.LiftBool:
		raw, err := e.word(op.In)
		if err != nil {
			return nil, err
		}
		e.vars[op.Out.ID] = raw != 0

	case lower.SplitNum:
		raw, err := bits64(e.vars[op.In.ID])
		if err != nil {
			return nil, err
		}
		e.vars[op.OutLo.ID] = raw & 0xffffffff
		e.vars[op.OutHi.ID] = raw >> 32

	case lower.JoinNum:
		lo, err := e.word(op.Lo)
		if err != nil {
			return nil, err
		}
		hi, err := e.word(op.Hi)
		if err != nil {
			return nil, err
		}
		e.vars[op.Out.ID] = decodeNum(op.Prim, lo&0xffffffff|hi<<32)

	case lower.LowerString:
		s, ok := e.vars[op.In.ID].(string)
		if !ok {
			return nil, errors.New(errors.PhaseRuntime, errors.KindUnsupported,
				"cannot encode %T as string", e.vars[op.In.ID])
		}
		data := []byte(s)
		ptr, err := e.allocate(uint32(len(data))*op.Size, op.Align)
		if err != nil {
			return nil, err
		}
		if len(data) > 0 && !e.inst.f.Memory().Write(ptr, data) {
			return nil, e.oob(ptr, uint32(len(data)))
		}
		e.vars[op.Ptr.ID] = uint64(ptr)
		e.vars[op.Len.ID] = uint64(len(data))
		e.vars[op.Cap.ID] = uint64(len(data))

	case lower.LiftString:
		ptr, length, err := e.region(op.Ptr, op.Len)
		if err != nil {
			return nil, err
		}
		if length == 0 {
			e.vars[op.Out.ID] = ""
			break
		}
		data, ok := e.inst.f.Memory().Read(ptr, length)
		if !ok {
			return nil, e.oob(ptr, length)
		}
		e.vars[op.Out.ID] = string(data)

	case lower.LowerVec:
		rv := reflect.ValueOf(e.vars[op.In.ID])
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil, errors.New(errors.PhaseRuntime, errors.KindUnsupported,
				"cannot encode %T as vector", e.vars[op.In.ID])
		}
		n := rv.Len()
		ptr, err := e.allocate(uint32(n)*op.Size, op.Align)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			buf := make([]byte, uint32(n)*op.Size)
			for k := 0; k < n; k++ {
				if err := writeElem(op.Elem, op.Size, buf, uint32(k)*op.Size, rv.Index(k).Interface()); err != nil {
					return nil, err
				}
			}
			if !e.inst.f.Memory().Write(ptr, buf) {
				return nil, e.oob(ptr, uint32(len(buf)))
			}
		}
		e.vars[op.Ptr.ID] = uint64(ptr)
		e.vars[op.Len.ID] = uint64(n)
		e.vars[op.Cap.ID] = uint64(n)

	case lower.LiftVec:
		ptr, length, err := e.region(op.Ptr, op.Len)
		if err != nil {
			return nil, err
		}
		out := makeSlice(op.Elem, int(length))
		if length > 0 {
			buf, ok := e.inst.f.Memory().Read(ptr, length*op.Size)
			if !ok {
				return nil, e.oob(ptr, length*op.Size)
			}
			for k := uint32(0); k < length; k++ {
				out.Index(int(k)).Set(reflect.ValueOf(readElem(op.Elem, op.Size, buf, k*op.Size)))
			}
		}
		e.vars[op.Out.ID] = out.Interface()

	case lower.LowerTuple:
		elems, ok := e.vars[op.In.ID].([]any)
		if !ok || len(elems) != len(op.Outs) {
			return nil, errors.New(errors.PhaseRuntime, errors.KindUnsupported,
				"cannot destructure %T into %d element(s)", e.vars[op.In.ID], len(op.Outs))
		}
		for n, out := range op.Outs {
			e.vars[out.ID] = elems[n]
		}

	case lower.LiftTuple:
		elems := make([]any, len(op.Ins))
		for n, in := range op.Ins {
			elems[n] = e.vars[in.ID]
		}
		e.vars[op.Out.ID] = elems

	case lower.LowerOption:
		v := e.vars[op.In.ID]
		if v == nil {
			e.vars[op.Disc.ID] = uint64(0)
			break
		}
		e.vars[op.Disc.ID] = uint64(1)
		e.vars[op.Some.ID] = v
		if _, err := e.run(op.Instrs); err != nil {
			return nil, err
		}

	case lower.HandleNull:
		disc, err := e.word(op.Disc)
		if err != nil {
			return nil, err
		}
		if disc == 0 {
			return &termination{absent: true}, nil
		}

	case lower.HandleError:
		disc, err := e.word(op.Disc)
		if err != nil {
			return nil, err
		}
		if disc == 0 {
			break
		}
		ptr, length, err := e.region(op.Ptr, op.Len)
		if err != nil {
			return nil, err
		}
		msg := ""
		if length > 0 {
			data, ok := e.inst.f.Memory().Read(ptr, length)
			if !ok {
				return nil, e.oob(ptr, length)
			}
			msg = string(data)
			if err := e.deallocate(ptr, length, 1); err != nil {
				return nil, err
			}
		}
		return nil, errors.Foreign(msg)

	case lower.Deallocate:
		ptr, length, err := e.region(op.Ptr, op.Len)
		if err != nil {
			return nil, err
		}
		if length > 0 {
			if err := e.deallocate(ptr, length*op.Size, op.Align); err != nil {
				return nil, err
			}
		}

	case lower.Call:
		params := make([]uint64, len(op.Args))
		for n, arg := range op.Args {
			raw, err := e.word(arg)
			if err != nil {
				return nil, err
			}
			params[n] = raw
		}
		results, err := e.inst.f.Call(e.ctx, op.Symbol, params...)
		if err != nil {
			return nil, err
		}
		if op.Ret != nil {
			e.vars[op.Ret.ID] = results
		}

	case lower.ReturnValue:
		return &termination{value: e.vars[op.In.ID]}, nil

	case lower.ReturnVoid:
		return &termination{}, nil

	case lower.BorrowSelf:
		if e.self == nil {
			return nil, errors.New(errors.PhaseRuntime, errors.KindUnsupported,
				"method call without a receiver")
		}
		raw, err := e.self.Borrow()
		if err != nil {
			return nil, err
		}
		e.vars[op.Out.ID] = raw

	case lower.BorrowObject:
		return nil, e.borrow(op.In, op.Out)
	case lower.BorrowIter:
		return nil, e.borrow(op.In, op.Out)
	case lower.BorrowFuture:
		return nil, e.borrow(op.In, op.Out)
	case lower.BorrowStream:
		return nil, e.borrow(op.In, op.Out)

	case lower.MoveObject:
		return nil, e.move(op.In, op.Out)
	case lower.MoveIter:
		return nil, e.move(op.In, op.Out)
	case lower.MoveFuture:
		return nil, e.move(op.In, op.Out)
	case lower.MoveStream:
		return nil, e.move(op.In, op.Out)

	case lower.LiftObject:
		raw, err := e.word(op.Box)
		if err != nil {
			return nil, err
		}
		h := handle.New(raw, e.inst.dtor(op.Drop, raw))
		h.SetFinalizer()
		e.vars[op.Out.ID] = &Object{Name: op.Object, Box: h}

	case lower.LiftIter:
		raw, err := e.word(op.Box)
		if err != nil {
			return nil, err
		}
		nextImp, err := e.inst.companion(op.Next)
		if err != nil {
			return nil, err
		}
		h := handle.New(raw, e.inst.dtor(op.Drop, raw))
		h.SetFinalizer()
		inst := e.inst
		e.vars[op.Out.ID] = notify.NewIterator(h, func() (any, bool, error) {
			return inst.callImport(context.Background(), nextImp, nil, []any{h})
		})

	case lower.LiftFuture:
		raw, err := e.word(op.Box)
		if err != nil {
			return nil, err
		}
		pollImp, err := e.inst.companion(op.Poll)
		if err != nil {
			return nil, err
		}
		h := handle.New(raw, e.inst.dtor(op.Drop, raw))
		h.SetFinalizer()
		inst := e.inst
		e.vars[op.Out.ID] = notify.NewFuture(inst.reg, h, func(slot uint64) (any, bool, error) {
			return inst.callImport(context.Background(), pollImp, nil, []any{h, slot})
		})

	case lower.LiftStream:
		raw, err := e.word(op.Box)
		if err != nil {
			return nil, err
		}
		pollImp, err := e.inst.companion(op.Poll)
		if err != nil {
			return nil, err
		}
		h := handle.New(raw, e.inst.dtor(op.Drop, raw))
		h.SetFinalizer()
		inst := e.inst
		s := &Stream{}
		s.inner = notify.NewStream(inst.reg, h,
			func(nextSlot, doneSlot uint64) (any, bool, error) {
				return inst.callImport(context.Background(), pollImp, nil, []any{h, nextSlot, doneSlot})
			},
			func(v any) { s.Items = append(s.Items, v) },
			func(err error) { s.Err = err },
		)
		e.vars[op.Out.ID] = s

	default:
		return nil, errors.New(errors.PhaseRuntime, errors.KindUnsupported,
			"unknown instruction %T", in)
	}
	return nil, nil
}

func (e *exec) borrow(in, out lower.Var) error {
	h, err := asHandle(e.vars[in.ID])
	if err != nil {
		return err
	}
	raw, err := h.Borrow()
	if err != nil {
		return err
	}
	e.vars[out.ID] = raw
	return nil
}

func (e *exec) move(in, out lower.Var) error {
	h, err := asHandle(e.vars[in.ID])
	if err != nil {
		return err
	}
	raw, err := h.Move()
	if err != nil {
		return err
	}
	e.vars[out.ID] = raw
	return nil
}

// word reads a var holding a raw slot value.
func (e *exec) word(v lower.Var) (uint64, error) {
	raw, ok := e.vars[v.ID].(uint64)
	if !ok {
		return 0, errors.New(errors.PhaseRuntime, errors.KindUnsupported,
			"var %d holds %T, want a slot word", v.ID, e.vars[v.ID])
	}
	return raw, nil
}

// region reads a (ptr, len) var pair.
func (e *exec) region(ptrVar, lenVar lower.Var) (uint32, uint32, error) {
	ptr, err := e.word(ptrVar)
	if err != nil {
		return 0, 0, err
	}
	length, err := e.word(lenVar)
	if err != nil {
		return 0, 0, err
	}
	return uint32(ptr), uint32(length), nil
}

func (e *exec) allocate(size, align uint32) (uint32, error) {
	results, err := e.inst.f.Call(e.ctx, lower.AllocateSymbol, uint64(size), uint64(align))
	if err != nil {
		return 0, errors.New(errors.PhaseRuntime, errors.KindAllocation,
			"allocate %d byte(s)", size).Wrap(err)
	}
	if len(results) != 1 {
		return 0, errors.New(errors.PhaseRuntime, errors.KindAllocation,
			"allocate returned %d value(s)", len(results))
	}
	return uint32(results[0]), nil
}

func (e *exec) deallocate(ptr, size, align uint32) error {
	if _, err := e.inst.f.Call(e.ctx, lower.DeallocateSymbol, uint64(ptr), uint64(size), uint64(align)); err != nil {
		return errors.New(errors.PhaseRuntime, errors.KindAllocation,
			"deallocate %d byte(s) at %d", size, ptr).Wrap(err)
	}
	return nil
}

func (e *exec) oob(ptr, count uint32) error {
	return errors.New(errors.PhaseRuntime, errors.KindOutOfBounds,
		"memory access of %d byte(s) at %d", count, ptr)
}

// asHandle accepts the host shapes a resource argument can arrive in.
func asHandle(v any) (*handle.Handle, error) {
	switch x := v.(type) {
	case *handle.Handle:
		return x, nil
	case *Object:
		return x.Box, nil
	default:
		return nil, errors.New(errors.PhaseRuntime, errors.KindUnsupported,
			"%T is not a resource handle", v)
	}
}
