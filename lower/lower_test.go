package lower

import (
	stderrors "errors"
	"reflect"
	"testing"

	"github.com/wasmlink/ffigen/abi"
	ffierrors "github.com/wasmlink/ffigen/errors"
)

func mustLower(t *testing.T, fn abi.Function, target abi.Target) *Import {
	t.Helper()
	imp, err := Lower(&fn, target)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	return imp
}

func slotKinds(imp *Import) []NumKind {
	if len(imp.Slots) == 0 {
		return nil
	}
	kinds := make([]NumKind, len(imp.Slots))
	for i, s := range imp.Slots {
		kinds[i] = s.Kind
	}
	return kinds
}

func TestArgSlotCounts(t *testing.T) {
	tests := []struct {
		name   string
		target abi.Target
		arg    abi.Type
		want   []NumKind
	}{
		{"u32", abi.Wasm32, abi.Prim{Kind: abi.U32}, []NumKind{KindI32}},
		{"bool", abi.Wasm32, abi.Prim{Kind: abi.Bool}, []NumKind{KindI32}},
		{"f64", abi.Wasm32, abi.Prim{Kind: abi.F64}, []NumKind{KindF64}},
		{"u64_wasm32_split", abi.Wasm32, abi.Prim{Kind: abi.U64}, []NumKind{KindI32, KindI32}},
		{"u64_native64", abi.Native64, abi.Prim{Kind: abi.U64}, []NumKind{KindI64}},
		{"usize_native64", abi.Native64, abi.Prim{Kind: abi.Usize}, []NumKind{KindI64}},
		{"string_triple", abi.Wasm32, abi.Str{Owned: true}, []NumKind{KindI32, KindI32, KindI32}},
		{"vector_triple", abi.Wasm32, abi.Vector{Elem: abi.U16}, []NumKind{KindI32, KindI32, KindI32}},
		{"object", abi.Wasm32, abi.Object{Name: "O", Owned: true}, []NumKind{KindI32}},
		{"option_u32", abi.Wasm32, abi.Option{Inner: abi.Prim{Kind: abi.U32}}, []NumKind{KindI32, KindI32}},
		{"option_vector", abi.Wasm32, abi.Option{Inner: abi.Vector{Elem: abi.U32}},
			[]NumKind{KindI32, KindI32, KindI32, KindI32}},
		{"tuple_concat", abi.Wasm32, abi.Tuple{Elems: []abi.Type{abi.Prim{Kind: abi.U8}, abi.Str{Owned: true}}},
			[]NumKind{KindI32, KindI32, KindI32, KindI32}},
		{"tuple_empty", abi.Wasm32, abi.Tuple{}, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fn := abi.Function{Name: "f", Args: []abi.Arg{{Name: "x", Type: tc.arg}}}
			imp := mustLower(t, fn, tc.target)
			if !reflect.DeepEqual(slotKinds(imp), tc.want) {
				t.Errorf("got %v, want %v", slotKinds(imp), tc.want)
			}
		})
	}
}

func TestMethodSelfSlot(t *testing.T) {
	fn := abi.Function{
		Object: "Counter", Name: "add", Kind: abi.KindMethod,
		Args: []abi.Arg{{Name: "by", Type: abi.Prim{Kind: abi.U32}}},
	}
	imp := mustLower(t, fn, abi.Wasm32)
	if len(imp.Slots) != 2 || imp.Slots[0].Name != "self" {
		t.Fatalf("expected implicit leading self slot, got %v", imp.Slots)
	}
	if _, ok := imp.Instrs[1].(BorrowSelf); !ok {
		t.Errorf("expected BorrowSelf after DefineArgs, got %T", imp.Instrs[1])
	}
	if imp.Symbol != "__ffigen_Counter_add" {
		t.Errorf("symbol: got %q", imp.Symbol)
	}
}

func TestInstructionOrdering(t *testing.T) {
	fn := abi.Function{
		Name: "greet",
		Args: []abi.Arg{
			{Name: "name", Type: abi.Str{Owned: true}},
			{Name: "n", Type: abi.Prim{Kind: abi.U32}},
		},
		Ret: abi.Str{Owned: true},
	}
	imp := mustLower(t, fn, abi.Wasm32)

	var kinds []string
	for _, in := range imp.Instrs {
		switch in.(type) {
		case DefineArgs:
			kinds = append(kinds, "define")
		case BindArg:
			kinds = append(kinds, "bindarg")
		case LowerString:
			kinds = append(kinds, "lowerstr")
		case LowerNum:
			kinds = append(kinds, "lowernum")
		case Call:
			kinds = append(kinds, "call")
		case BindRets:
			kinds = append(kinds, "bindrets")
		case LiftString:
			kinds = append(kinds, "liftstr")
		case Deallocate:
			kinds = append(kinds, "dealloc")
		case ReturnValue:
			kinds = append(kinds, "return")
		default:
			kinds = append(kinds, "other")
		}
	}
	want := []string{"define", "bindarg", "lowerstr", "bindarg", "lowernum",
		"call", "bindrets", "liftstr", "dealloc", "return"}
	if !reflect.DeepEqual(kinds, want) {
		t.Errorf("got %v, want %v", kinds, want)
	}
}

func TestExactlyOneCall(t *testing.T) {
	fn := abi.Function{
		Name: "mix",
		Args: []abi.Arg{
			{Name: "a", Type: abi.Option{Inner: abi.Vector{Elem: abi.U32}}},
			{Name: "b", Type: abi.Prim{Kind: abi.I64}},
		},
		Ret: abi.Result{Inner: abi.Prim{Kind: abi.U64}},
	}
	imp := mustLower(t, fn, abi.Wasm32)
	calls := 0
	for _, in := range imp.Instrs {
		if _, ok := in.(Call); ok {
			calls++
		}
	}
	if calls != 1 {
		t.Errorf("got %d Call instructions, want exactly 1", calls)
	}
}

func TestOptionArgNesting(t *testing.T) {
	fn := abi.Function{
		Name: "f",
		Args: []abi.Arg{{Name: "v", Type: abi.Option{Inner: abi.Vector{Elem: abi.U32}}}},
	}
	imp := mustLower(t, fn, abi.Wasm32)

	var opt *LowerOption
	for _, in := range imp.Instrs {
		if o, ok := in.(LowerOption); ok {
			opt = &o
		}
	}
	if opt == nil {
		t.Fatal("expected a LowerOption instruction")
	}
	if len(opt.Instrs) != 1 {
		t.Fatalf("expected one nested instruction, got %d", len(opt.Instrs))
	}
	vec, ok := opt.Instrs[0].(LowerVec)
	if !ok {
		t.Fatalf("expected nested LowerVec, got %T", opt.Instrs[0])
	}
	if vec.In != opt.Some {
		t.Error("nested lowering must consume the present-branch payload var")
	}
	if vec.Size != 4 {
		t.Errorf("u32 element size: got %d, want 4", vec.Size)
	}
}

func TestReturnRepresentations(t *testing.T) {
	tests := []struct {
		name   string
		target abi.Target
		ret    abi.Type
		kind   RetKind
		slots  int
	}{
		{"void", abi.Wasm32, nil, RetVoid, 0},
		{"unit", abi.Wasm32, abi.Tuple{}, RetVoid, 0},
		{"scalar", abi.Wasm32, abi.Prim{Kind: abi.U32}, RetScalar, 1},
		{"u64_wasm32", abi.Wasm32, abi.Prim{Kind: abi.U64}, RetStruct, 2},
		{"u64_native", abi.Native64, abi.Prim{Kind: abi.U64}, RetScalar, 1},
		{"string", abi.Wasm32, abi.Str{Owned: true}, RetStruct, 2},
		{"object", abi.Wasm32, abi.Object{Name: "O", Owned: true}, RetScalar, 1},
		{"result_string", abi.Wasm32, abi.Result{Inner: abi.Str{Owned: true}}, RetStruct, 3},
		{"result_unit", abi.Wasm32, abi.Result{Inner: abi.Tuple{}}, RetStruct, 3},
		{"tuple_pair", abi.Wasm32, abi.Tuple{Elems: []abi.Type{abi.Prim{Kind: abi.U8}, abi.Prim{Kind: abi.U8}}}, RetStruct, 2},
		{"tuple_single_unwrapped", abi.Wasm32, abi.Tuple{Elems: []abi.Type{abi.Prim{Kind: abi.U8}}}, RetScalar, 1},
		{"future", abi.Wasm32, abi.Future{Inner: abi.Prim{Kind: abi.U32}, Owned: true}, RetScalar, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fn := abi.Function{Name: "f", Ret: tc.ret}
			imp := mustLower(t, fn, tc.target)
			if imp.Ret.Kind != tc.kind {
				t.Errorf("kind: got %v, want %v", imp.Ret.Kind, tc.kind)
			}
			if len(imp.Ret.Slots) != tc.slots {
				t.Errorf("slots: got %d, want %d", len(imp.Ret.Slots), tc.slots)
			}
		})
	}
}

func TestTupleReturnLift(t *testing.T) {
	t.Run("pair", func(t *testing.T) {
		fn := abi.Function{Name: "t", Ret: abi.Tuple{Elems: []abi.Type{
			abi.Prim{Kind: abi.U8}, abi.Prim{Kind: abi.U8},
		}}}
		imp := mustLower(t, fn, abi.Wasm32)
		found := false
		for _, in := range imp.Instrs {
			if lt, ok := in.(LiftTuple); ok {
				found = true
				if len(lt.Ins) != 2 {
					t.Errorf("got %d tuple elements, want 2", len(lt.Ins))
				}
			}
		}
		if !found {
			t.Error("expected a LiftTuple instruction")
		}
	})

	t.Run("single_passthrough", func(t *testing.T) {
		fn := abi.Function{Name: "u", Ret: abi.Tuple{Elems: []abi.Type{abi.Prim{Kind: abi.U8}}}}
		imp := mustLower(t, fn, abi.Wasm32)
		for _, in := range imp.Instrs {
			if _, ok := in.(LiftTuple); ok {
				t.Error("arity-1 tuple must lift to the bare scalar, never a 1-element container")
			}
		}
	})
}

func TestResultErrorLift(t *testing.T) {
	fn := abi.Function{Name: "f", Ret: abi.Result{Inner: abi.Str{Owned: true}}}
	imp := mustLower(t, fn, abi.Wasm32)

	var he *HandleError
	var binds *BindRets
	for _, in := range imp.Instrs {
		switch v := in.(type) {
		case HandleError:
			he = &v
		case BindRets:
			binds = &v
		}
	}
	if he == nil || binds == nil {
		t.Fatal("expected BindRets and HandleError instructions")
	}
	if he.Disc != binds.Outs[0] {
		t.Error("HandleError must check the first returned slot")
	}
	if he.Ptr != binds.Outs[1] || he.Len != binds.Outs[2] {
		t.Error("failure message (ptr, len) must reuse the payload's first two slots")
	}
}

func TestFutureLiftSymbols(t *testing.T) {
	fn := abi.Function{Name: "work", IsAsync: true, Ret: abi.Prim{Kind: abi.U32}}
	imp := mustLower(t, fn, abi.Wasm32)

	var lf *LiftFuture
	for _, in := range imp.Instrs {
		if v, ok := in.(LiftFuture); ok {
			lf = &v
		}
	}
	if lf == nil {
		t.Fatal("async function must lift its return through a future")
	}
	if lf.Poll != "__ffigen_work_future_poll" {
		t.Errorf("poll symbol: got %q", lf.Poll)
	}
	if lf.Drop != "__ffigen_work_future_drop" {
		t.Errorf("drop symbol: got %q", lf.Drop)
	}
}

func TestUnsupportedShapes(t *testing.T) {
	tests := []struct {
		name string
		fn   abi.Function
	}{
		{"result_argument", abi.Function{Name: "f", Args: []abi.Arg{
			{Name: "x", Type: abi.Result{Inner: abi.Prim{Kind: abi.U32}}},
		}}},
		{"borrowed_object_return", abi.Function{Name: "f", Ret: abi.Object{Name: "O"}}},
		{"option_in_tuple_return", abi.Function{Name: "f", Ret: abi.Tuple{Elems: []abi.Type{
			abi.Prim{Kind: abi.U8}, abi.Option{Inner: abi.Prim{Kind: abi.U8}},
		}}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Lower(&tc.fn, abi.Wasm32)
			if !stderrors.Is(err, &ffierrors.Error{Phase: ffierrors.PhaseLower, Kind: ffierrors.KindUnsupported}) {
				t.Errorf("got %v, want unsupported", err)
			}
		})
	}
}

func TestImportsDeterministic(t *testing.T) {
	iface := &abi.Interface{
		Objects: []abi.ObjectDecl{{
			Name: "Store",
			Methods: []abi.Function{
				{Name: "new", IsStatic: true, Ret: abi.Object{Name: "Store", Owned: true}},
				{Name: "watch", Ret: abi.Stream{Inner: abi.Str{Owned: true}, Owned: true}},
			},
		}},
		Functions: []abi.Function{
			{Name: "version", Ret: abi.Str{Owned: true}},
			{Name: "load", IsAsync: true, Ret: abi.Prim{Kind: abi.U64}},
		},
	}

	a, err := Imports(iface, abi.Wasm32)
	if err != nil {
		t.Fatalf("imports: %v", err)
	}
	b, err := Imports(iface, abi.Wasm32)
	if err != nil {
		t.Fatalf("imports: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatal("repeated runs must produce identical imports")
	}

	var symbols []string
	for _, imp := range a {
		symbols = append(symbols, imp.Symbol)
	}
	want := []string{
		"__ffigen_version",
		"__ffigen_load",
		"__ffigen_Store_new",
		"__ffigen_Store_watch",
		"__ffigen_load_future_poll",
		"__ffigen_Store_watch_stream_poll",
	}
	if !reflect.DeepEqual(symbols, want) {
		t.Errorf("got %v, want %v", symbols, want)
	}
}

func TestVarsSingleAssignment(t *testing.T) {
	fn := abi.Function{
		Name: "mix",
		Args: []abi.Arg{
			{Name: "s", Type: abi.Str{Owned: true}},
			{Name: "o", Type: abi.Option{Inner: abi.Prim{Kind: abi.U64}}},
		},
		Ret: abi.Result{Inner: abi.Tuple{Elems: []abi.Type{abi.Prim{Kind: abi.U8}, abi.Prim{Kind: abi.U8}}}},
	}
	imp := mustLower(t, fn, abi.Wasm32)
	if imp.NumVars == 0 {
		t.Fatal("expected vars")
	}
	// Every slot's var must be covered by DefineArgs.
	def, ok := imp.Instrs[0].(DefineArgs)
	if !ok {
		t.Fatalf("first instruction must be DefineArgs, got %T", imp.Instrs[0])
	}
	if len(def.Vars) != len(imp.Slots) {
		t.Errorf("DefineArgs covers %d vars, want %d", len(def.Vars), len(imp.Slots))
	}
	for i, s := range imp.Slots {
		if def.Vars[i] != s.Var {
			t.Errorf("slot %d var mismatch", i)
		}
	}
}
