package main

import (
	"fmt"
	"strings"

	"github.com/wasmlink/ffigen/lower"
)

func vn(v lower.Var) string {
	return fmt.Sprintf("v%d", v.ID)
}

func vns(vars []lower.Var) string {
	parts := make([]string, len(vars))
	for i, v := range vars {
		parts[i] = vn(v)
	}
	return strings.Join(parts, ", ")
}

// instrLine renders one instruction for listings.
func instrLine(in lower.Instr) string {
	switch op := in.(type) {
	case lower.DefineArgs:
		return "define " + vns(op.Vars)
	case lower.BindArg:
		return fmt.Sprintf("%s = arg %q", vn(op.Out), op.Name)
	case lower.BindRets:
		return fmt.Sprintf("%s = rets %s", vns(op.Outs), vn(op.Ret))
	case lower.LowerNum:
		return fmt.Sprintf("%s = lower_num %s (%s)", vn(op.Out), vn(op.In), op.Prim)
	case lower.LiftNum:
		return fmt.Sprintf("%s = lift_num %s (%s)", vn(op.Out), vn(op.In), op.Prim)
	case lower.LowerBool:
		return fmt.Sprintf("%s = lower_bool %s", vn(op.Out), vn(op.In))
	case lower.LiftBool:
		return fmt.Sprintf("%s = lift_bool %s", vn(op.Out), vn(op.In))
	case lower.SplitNum:
		return fmt.Sprintf("%s, %s = split %s (%s)", vn(op.OutLo), vn(op.OutHi), vn(op.In), op.Prim)
	case lower.JoinNum:
		return fmt.Sprintf("%s = join %s, %s (%s)", vn(op.Out), vn(op.Lo), vn(op.Hi), op.Prim)
	case lower.LowerString:
		return fmt.Sprintf("%s, %s, %s = lower_string %s", vn(op.Ptr), vn(op.Len), vn(op.Cap), vn(op.In))
	case lower.LiftString:
		return fmt.Sprintf("%s = lift_string %s, %s", vn(op.Out), vn(op.Ptr), vn(op.Len))
	case lower.LowerVec:
		return fmt.Sprintf("%s, %s, %s = lower_vec %s (%s)", vn(op.Ptr), vn(op.Len), vn(op.Cap), vn(op.In), op.Elem)
	case lower.LiftVec:
		return fmt.Sprintf("%s = lift_vec %s, %s (%s)", vn(op.Out), vn(op.Ptr), vn(op.Len), op.Elem)
	case lower.LowerTuple:
		return fmt.Sprintf("%s = untuple %s", vns(op.Outs), vn(op.In))
	case lower.LiftTuple:
		return fmt.Sprintf("%s = tuple %s", vn(op.Out), vns(op.Ins))
	case lower.LowerOption:
		return fmt.Sprintf("%s = option_disc %s; some %s [%d nested]",
			vn(op.Disc), vn(op.In), vn(op.Some), len(op.Instrs))
	case lower.HandleNull:
		return fmt.Sprintf("return_if_null %s", vn(op.Disc))
	case lower.HandleError:
		return fmt.Sprintf("raise_if_error %s (%s, %s)", vn(op.Disc), vn(op.Ptr), vn(op.Len))
	case lower.Deallocate:
		return fmt.Sprintf("deallocate %s, %s x%d align %d", vn(op.Ptr), vn(op.Len), op.Size, op.Align)
	case lower.Call:
		if op.Ret != nil {
			return fmt.Sprintf("%s = call %s(%s)", vn(*op.Ret), op.Symbol, vns(op.Args))
		}
		return fmt.Sprintf("call %s(%s)", op.Symbol, vns(op.Args))
	case lower.ReturnValue:
		return "return " + vn(op.In)
	case lower.ReturnVoid:
		return "return"
	case lower.BorrowSelf:
		return vn(op.Out) + " = borrow self"
	case lower.BorrowObject:
		return fmt.Sprintf("%s = borrow %s", vn(op.Out), vn(op.In))
	case lower.MoveObject:
		return fmt.Sprintf("%s = move %s", vn(op.Out), vn(op.In))
	case lower.BorrowIter:
		return fmt.Sprintf("%s = borrow iter %s", vn(op.Out), vn(op.In))
	case lower.MoveIter:
		return fmt.Sprintf("%s = move iter %s", vn(op.Out), vn(op.In))
	case lower.BorrowFuture:
		return fmt.Sprintf("%s = borrow future %s", vn(op.Out), vn(op.In))
	case lower.MoveFuture:
		return fmt.Sprintf("%s = move future %s", vn(op.Out), vn(op.In))
	case lower.BorrowStream:
		return fmt.Sprintf("%s = borrow stream %s", vn(op.Out), vn(op.In))
	case lower.MoveStream:
		return fmt.Sprintf("%s = move stream %s", vn(op.Out), vn(op.In))
	case lower.LiftObject:
		return fmt.Sprintf("%s = lift_object %s %q drop %s", vn(op.Out), vn(op.Box), op.Object, op.Drop)
	case lower.LiftIter:
		return fmt.Sprintf("%s = lift_iter %s next %s drop %s", vn(op.Out), vn(op.Box), op.Next, op.Drop)
	case lower.LiftFuture:
		return fmt.Sprintf("%s = lift_future %s poll %s drop %s", vn(op.Out), vn(op.Box), op.Poll, op.Drop)
	case lower.LiftStream:
		return fmt.Sprintf("%s = lift_stream %s poll %s drop %s", vn(op.Out), vn(op.Box), op.Poll, op.Drop)
	}
	return fmt.Sprintf("%T", in)
}

// instrLines flattens an instruction sequence, indenting the nested
// list under an option's present branch.
func instrLines(instrs []lower.Instr, indent string) []string {
	var out []string
	for _, in := range instrs {
		out = append(out, indent+instrLine(in))
		if opt, ok := in.(lower.LowerOption); ok {
			out = append(out, instrLines(opt.Instrs, indent+"  ")...)
		}
	}
	return out
}

// slotSignature renders an import's flattened slot list.
func slotSignature(imp *lower.Import) string {
	parts := make([]string, len(imp.Slots))
	for i, s := range imp.Slots {
		parts[i] = s.Name + ": " + s.Kind.String()
	}
	sig := "(" + strings.Join(parts, ", ") + ")"
	switch imp.Ret.Kind {
	case lower.RetScalar:
		sig += " -> " + imp.Ret.Slots[0].Kind.String()
	case lower.RetStruct:
		rets := make([]string, len(imp.Ret.Slots))
		for i, s := range imp.Ret.Slots {
			rets[i] = s.Kind.String()
		}
		sig += " -> (" + strings.Join(rets, ", ") + ")"
	}
	return sig
}
