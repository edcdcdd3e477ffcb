package compiler

import (
	"github.com/blikk-lang/blikk/lang/program"
	"github.com/blikk-lang/blikk/lang/vm"
)

// foldTail attempts constant folding on the IR emitted since start (spec.md
// §4.D "Constant folding"): it appends a scratch End(size=1) to that tail,
// re-runs it on the compiler's own folding Machine, and, if it completes
// without trapping, truncates the real tail and replaces it with a single
// Push of the computed value. Any runtime error (including one from a
// non-constant operand slipping through, e.g. a variable load) is silently
// swallowed and the original IR is kept, per spec.md §7.
func (c *Compiler) foldTail(result value, start int) value {
	if result.poisoned || result.typ.Size != 1 || start < 0 || start >= c.irLen() {
		return result
	}
	tail := append([]program.Instruction(nil), (*c.target)[start:]...)
	for _, instr := range tail {
		if !foldableOp[instr.Op] {
			// Not (yet) a constant: some operand bottoms out in a variable
			// load or a call, which the fold machine's isolated scratch
			// stack can't satisfy. Leave the real IR as emitted.
			return result
		}
	}
	tail = append(tail, program.Instruction{Op: program.End, Arg: program.IntSlot(1)})

	vals, err := c.fold.RunTail(tail, vm.RunFlags{HideErrors: true, MaxSteps: 1 << 20})
	if err != nil || len(vals) != 1 {
		return result
	}

	c.truncateTo(start)
	c.emit(program.Push, result.typ.Kind, vals[0])
	return result
}

// foldCall is foldTail's counterpart for a call the caller has already
// confirmed is to a pure native function (spec.md §4.D "Constant folding"):
// the Call instruction itself is deliberately excluded from foldableOp,
// since an arbitrary call folded through foldTail could re-run a
// side-effecting or non-terminating script function inside the isolated
// fold machine. Here only the argument-evaluating prefix is checked
// against the allowlist; the trailing Call is trusted on the caller's say-
// so and run once, same as any other pure computation.
func (c *Compiler) foldCall(result value, start int) value {
	if result.poisoned || result.typ.Size != 1 || start < 0 || start >= c.irLen() {
		return result
	}
	tail := append([]program.Instruction(nil), (*c.target)[start:]...)
	for _, instr := range tail[:len(tail)-1] {
		if !foldableOp[instr.Op] {
			return result
		}
	}
	if tail[len(tail)-1].Op != program.Call {
		return result
	}
	tail = append(tail, program.Instruction{Op: program.End, Arg: program.IntSlot(1)})

	vals, err := c.fold.RunTail(tail, vm.RunFlags{HideErrors: true, MaxSteps: 1 << 20})
	if err != nil || len(vals) != 1 {
		return result
	}

	c.truncateTo(start)
	c.emit(program.Push, result.typ.Kind, vals[0])
	return result
}

// foldableOp is the set of opcodes that only ever touch values already on
// the fold machine's scratch stack — never a variable, frame, or call —
// and so are safe to replay in isolation.
var foldableOp = map[program.Opcode]bool{
	program.Push: true, program.PushZero: true, program.PushBig: true,
	program.Negate: true, program.Add: true, program.Subtract: true, program.Multiply: true,
	program.Divide: true, program.Modulo: true, program.IEqual: true, program.INotEqual: true,
	program.IGreaterThan: true, program.IGreaterOrEqual: true, program.ILessThan: true, program.ILessOrEqual: true,
	program.BitAnd: true, program.BitOr: true, program.BitXor: true, program.BitComplement: true,
	program.LeftShift: true, program.RightShift: true, program.LeftRotate: true, program.RightRotate: true,
	program.FNegate: true, program.FAdd: true, program.FSubtract: true, program.FMultiply: true, program.FDivide: true,
	program.FEqual: true, program.FNotEqual: true, program.FGreaterThan: true, program.FGreaterOrEqual: true,
	program.FLessThan: true, program.FLessOrEqual: true,
	program.BoolEqual: true, program.BoolNotEqual: true, program.NotBool: true, program.AndBool: true, program.OrBool: true,
	program.StringEqual: true, program.StringNotEqual: true, program.StringConcat: true,
	program.TypeEqual: true, program.TypeNotEqual: true, program.FuncEqual: true, program.FuncNotEqual: true,
	program.EnumEqual: true, program.EnumNotEqual: true,
	program.IntToFloat: true, program.FloatToInt: true, program.InlineIf: true,
}
