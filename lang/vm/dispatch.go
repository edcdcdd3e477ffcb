package vm

import (
	"github.com/blikk-lang/blikk/lang/program"
	"github.com/blikk-lang/blikk/lang/types"
)

// exec runs ir starting at pc 0 against the current top frame (the last
// element of m.Frames, which the caller has already pushed), until it
// either executes an End instruction (returning the number of result slots
// it asserts) or traps.
func (m *Machine) exec(ir []program.Instruction, flags RunFlags) (int, error) {
	fr := &m.Frames[len(m.Frames)-1]
	pc := fr.PC
	bp := fr.BP

	for {
		m.steps++
		if m.steps >= m.maxSteps || m.interrupt {
			m.interrupt = false
			return 0, nil
		}
		if pc >= len(ir) {
			return 0, nil
		}
		instr := ir[pc]
		fr.PC = pc
		pc++

		switch instr.Op {
		case program.Nop:
			// no-op

		case program.Push:
			m.Stack = append(m.Stack, instr.Arg)

		case program.PushZero:
			n := int(instr.Arg.I)
			for i := 0; i < n; i++ {
				m.Stack = append(m.Stack, zeroSlot(instr.Hint))
			}

		case program.PushBig:
			off := int(m.pop().I)
			n := int(instr.Arg.I)
			m.Stack = append(m.Stack, m.Prog.Constants[off:off+n]...)

		case program.Pop:
			n := int(instr.Arg.I)
			m.Stack = m.Stack[:len(m.Stack)-n]

		case program.Lea:
			m.Stack = append(m.Stack, program.IntSlot(instr.Arg.I))

		case program.LeaLocal:
			m.Stack = append(m.Stack, program.IntSlot(int64(bp)+instr.Arg.I))

		case program.LeaRel:
			m.Stack = append(m.Stack, program.IntSlot(int64(len(m.Stack))+instr.Arg.I))

		case program.Load:
			addr := int(m.pop().I)
			m.Stack = append(m.Stack, m.Stack[addr])

		case program.LoadLocal:
			m.Stack = append(m.Stack, m.Stack[bp+int(instr.Arg.I)])

		case program.LoadIndirect:
			n := int(instr.Arg.I)
			addr := int(m.pop().I)
			m.Stack = append(m.Stack, m.Stack[addr:addr+n]...)

		case program.LoadIndirectK:
			n := int(instr.Arg.I)
			addr := int(m.Stack[len(m.Stack)-1].I)
			m.Stack = append(m.Stack, m.Stack[addr:addr+n]...)

		case program.Store:
			v := m.pop()
			addr := int(m.pop().I)
			m.Stack[addr] = v

		case program.StoreK:
			v := m.Stack[len(m.Stack)-1]
			addr := int(m.Stack[len(m.Stack)-2].I)
			m.Stack = m.Stack[:len(m.Stack)-2]
			m.Stack[addr] = v
			m.Stack = append(m.Stack, v)

		case program.StoreLocal:
			v := m.pop()
			m.Stack[bp+int(instr.Arg.I)] = v

		case program.StoreLocalK:
			v := m.Stack[len(m.Stack)-1]
			m.Stack[bp+int(instr.Arg.I)] = v

		case program.StoreIndirect:
			n := int(instr.Arg.I)
			vals := append([]program.Slot(nil), m.Stack[len(m.Stack)-n:]...)
			m.Stack = m.Stack[:len(m.Stack)-n]
			addr := int(m.pop().I)
			copy(m.Stack[addr:addr+n], vals)

		case program.StoreIndirectK:
			n := int(instr.Arg.I)
			vals := append([]program.Slot(nil), m.Stack[len(m.Stack)-n:]...)
			addr := int(m.Stack[len(m.Stack)-n-1].I)
			copy(m.Stack[addr:addr+n], vals)
			m.Stack = append(m.Stack[:len(m.Stack)-n-1], vals...)

		case program.StoreRev, program.StoreRevK:
			// StoreRev copies the top n slots down into the n parameter
			// slots at the base of the current frame (used by tail-
			// recursion elimination to overwrite parameter slots with
			// freshly evaluated argument values before jumping back to the
			// function's entry); StoreRevK additionally keeps the copied
			// values on the stack.
			n := int(instr.Arg.I)
			vals := append([]program.Slot(nil), m.Stack[len(m.Stack)-n:]...)
			m.Stack = m.Stack[:len(m.Stack)-n]
			copy(m.Stack[bp:bp+n], vals)
			if instr.Op == program.StoreRevK {
				m.Stack = append(m.Stack, vals...)
			}

		case program.CheckIndex:
			n := instr.Arg.I
			idx := m.Stack[len(m.Stack)-1].I
			if idx < 0 || idx >= n {
				return 0, m.trap(flags, "index %d out of range [0, %d)", idx, n)
			}

		// ---- integer arithmetic ----
		case program.Negate:
			x := m.pop()
			m.Stack = append(m.Stack, program.IntSlot(-x.I))
		case program.Add:
			y, x := m.pop(), m.pop()
			m.Stack = append(m.Stack, program.IntSlot(x.I+y.I))
		case program.Subtract:
			y, x := m.pop(), m.pop()
			m.Stack = append(m.Stack, program.IntSlot(x.I-y.I))
		case program.Multiply:
			y, x := m.pop(), m.pop()
			m.Stack = append(m.Stack, program.IntSlot(x.I*y.I))
		case program.Divide:
			y, x := m.pop(), m.pop()
			if y.I == 0 {
				return 0, m.trap(flags, "integer division by zero")
			}
			m.Stack = append(m.Stack, program.IntSlot(x.I/y.I))
		case program.Modulo:
			y, x := m.pop(), m.pop()
			if y.I == 0 {
				return 0, m.trap(flags, "integer modulo by zero")
			}
			m.Stack = append(m.Stack, program.IntSlot(x.I%y.I))
		case program.IEqual:
			y, x := m.pop(), m.pop()
			m.Stack = append(m.Stack, program.BoolSlot(x.I == y.I))
		case program.INotEqual:
			y, x := m.pop(), m.pop()
			m.Stack = append(m.Stack, program.BoolSlot(x.I != y.I))
		case program.IGreaterThan:
			y, x := m.pop(), m.pop()
			m.Stack = append(m.Stack, program.BoolSlot(x.I > y.I))
		case program.IGreaterOrEqual:
			y, x := m.pop(), m.pop()
			m.Stack = append(m.Stack, program.BoolSlot(x.I >= y.I))
		case program.ILessThan:
			y, x := m.pop(), m.pop()
			m.Stack = append(m.Stack, program.BoolSlot(x.I < y.I))
		case program.ILessOrEqual:
			y, x := m.pop(), m.pop()
			m.Stack = append(m.Stack, program.BoolSlot(x.I <= y.I))
		case program.BitAnd:
			y, x := m.pop(), m.pop()
			m.Stack = append(m.Stack, program.IntSlot(x.I&y.I))
		case program.BitOr:
			y, x := m.pop(), m.pop()
			m.Stack = append(m.Stack, program.IntSlot(x.I|y.I))
		case program.BitXor:
			y, x := m.pop(), m.pop()
			m.Stack = append(m.Stack, program.IntSlot(x.I^y.I))
		case program.BitComplement:
			x := m.pop()
			m.Stack = append(m.Stack, program.IntSlot(^x.I))
		case program.LeftShift:
			y, x := m.pop(), m.pop()
			if y.I < 0 {
				return 0, m.trap(flags, "shift by negative amount")
			}
			m.Stack = append(m.Stack, program.IntSlot(x.I<<uint(y.I)))
		case program.RightShift:
			y, x := m.pop(), m.pop()
			if y.I < 0 {
				return 0, m.trap(flags, "shift by negative amount")
			}
			m.Stack = append(m.Stack, program.IntSlot(x.I>>uint(y.I)))
		case program.LeftRotate:
			y, x := m.pop(), m.pop()
			if y.I < 0 {
				return 0, m.trap(flags, "rotate by negative amount")
			}
			n := uint64(y.I) % 64
			m.Stack = append(m.Stack, program.IntSlot(int64(uint64(x.I)<<n|uint64(x.I)>>(64-n))))
		case program.RightRotate:
			y, x := m.pop(), m.pop()
			if y.I < 0 {
				return 0, m.trap(flags, "rotate by negative amount")
			}
			n := uint64(y.I) % 64
			m.Stack = append(m.Stack, program.IntSlot(int64(uint64(x.I)>>n|uint64(x.I)<<(64-n))))

		// ---- float arithmetic ----
		case program.FNegate:
			x := m.pop()
			m.Stack = append(m.Stack, program.FloatSlot(-x.F))
		case program.FAdd:
			y, x := m.pop(), m.pop()
			m.Stack = append(m.Stack, program.FloatSlot(x.F+y.F))
		case program.FSubtract:
			y, x := m.pop(), m.pop()
			m.Stack = append(m.Stack, program.FloatSlot(x.F-y.F))
		case program.FMultiply:
			y, x := m.pop(), m.pop()
			m.Stack = append(m.Stack, program.FloatSlot(x.F*y.F))
		case program.FDivide:
			y, x := m.pop(), m.pop()
			m.Stack = append(m.Stack, program.FloatSlot(x.F/y.F))
		case program.FEqual:
			y, x := m.pop(), m.pop()
			m.Stack = append(m.Stack, program.BoolSlot(x.F == y.F))
		case program.FNotEqual:
			y, x := m.pop(), m.pop()
			m.Stack = append(m.Stack, program.BoolSlot(x.F != y.F))
		case program.FGreaterThan:
			y, x := m.pop(), m.pop()
			m.Stack = append(m.Stack, program.BoolSlot(x.F > y.F))
		case program.FGreaterOrEqual:
			y, x := m.pop(), m.pop()
			m.Stack = append(m.Stack, program.BoolSlot(x.F >= y.F))
		case program.FLessThan:
			y, x := m.pop(), m.pop()
			m.Stack = append(m.Stack, program.BoolSlot(x.F < y.F))
		case program.FLessOrEqual:
			y, x := m.pop(), m.pop()
			m.Stack = append(m.Stack, program.BoolSlot(x.F <= y.F))

		// ---- bool / string / type / function / enum ----
		case program.BoolEqual:
			y, x := m.pop(), m.pop()
			m.Stack = append(m.Stack, program.BoolSlot(x.I == y.I))
		case program.BoolNotEqual:
			y, x := m.pop(), m.pop()
			m.Stack = append(m.Stack, program.BoolSlot(x.I != y.I))
		case program.NotBool:
			x := m.pop()
			m.Stack = append(m.Stack, program.BoolSlot(x.I == 0))
		case program.AndBool:
			y, x := m.pop(), m.pop()
			m.Stack = append(m.Stack, program.BoolSlot(x.I != 0 && y.I != 0))
		case program.OrBool:
			y, x := m.pop(), m.pop()
			m.Stack = append(m.Stack, program.BoolSlot(x.I != 0 || y.I != 0))
		case program.StringEqual:
			y, x := m.pop(), m.pop()
			m.Stack = append(m.Stack, program.BoolSlot(x.Str == y.Str || *x.Str == *y.Str))
		case program.StringNotEqual:
			y, x := m.pop(), m.pop()
			m.Stack = append(m.Stack, program.BoolSlot(!(x.Str == y.Str || *x.Str == *y.Str)))
		case program.StringConcat:
			y, x := m.pop(), m.pop()
			s := *x.Str + *y.Str
			m.Stack = append(m.Stack, program.StringSlot(m.Prog.Intern(s)))
		case program.TypeEqual:
			y, x := m.pop(), m.pop()
			m.Stack = append(m.Stack, program.BoolSlot(x.Typ == y.Typ))
		case program.TypeNotEqual:
			y, x := m.pop(), m.pop()
			m.Stack = append(m.Stack, program.BoolSlot(x.Typ != y.Typ))
		case program.FuncEqual:
			y, x := m.pop(), m.pop()
			m.Stack = append(m.Stack, program.BoolSlot(x.Fn == y.Fn))
		case program.FuncNotEqual:
			y, x := m.pop(), m.pop()
			m.Stack = append(m.Stack, program.BoolSlot(x.Fn != y.Fn))
		case program.EnumEqual:
			y, x := m.pop(), m.pop()
			m.Stack = append(m.Stack, program.BoolSlot(x.I == y.I))
		case program.EnumNotEqual:
			y, x := m.pop(), m.pop()
			m.Stack = append(m.Stack, program.BoolSlot(x.I != y.I))

		// ---- control flow ----
		case program.Jump:
			pc = int(instr.Arg.I)
		case program.BranchIfTrue:
			if m.pop().I != 0 {
				pc = int(instr.Arg.I)
			}
		case program.BranchIfFalse:
			if m.pop().I == 0 {
				pc = int(instr.Arg.I)
			}
		case program.SkipIfTrue:
			if m.Stack[len(m.Stack)-1].I != 0 {
				pc = int(instr.Arg.I)
			} else {
				m.Stack = m.Stack[:len(m.Stack)-1]
			}
		case program.SkipIfFalse:
			if m.Stack[len(m.Stack)-1].I == 0 {
				pc = int(instr.Arg.I)
			} else {
				m.Stack = m.Stack[:len(m.Stack)-1]
			}

		case program.IntToFloat:
			x := m.pop()
			m.Stack = append(m.Stack, program.FloatSlot(float64(x.I)))
		case program.FloatToInt:
			x := m.pop()
			m.Stack = append(m.Stack, program.IntSlot(int64(x.F)))

		case program.InlineIf:
			c := m.Stack[len(m.Stack)-3]
			a := m.Stack[len(m.Stack)-2]
			b := m.Stack[len(m.Stack)-1]
			m.Stack = m.Stack[:len(m.Stack)-3]
			if c.I != 0 {
				m.Stack = append(m.Stack, a)
			} else {
				m.Stack = append(m.Stack, b)
			}

		case program.Call:
			fr.PC = pc
			_, err := m.call(instr.Arg.Fn, flags)
			// m.call may have grown m.Frames and reallocated its backing
			// array, so fr must be refreshed before this frame's PC is
			// written again at the top of the loop.
			fr = &m.Frames[len(m.Frames)-1]
			if err != nil {
				return 0, err
			}

		case program.CallIndirect:
			argsSize := int(instr.Arg.I)
			fnSlot := m.Stack[len(m.Stack)-argsSize-1]
			copy(m.Stack[len(m.Stack)-argsSize-1:], m.Stack[len(m.Stack)-argsSize:])
			m.Stack = m.Stack[:len(m.Stack)-1]
			fr.PC = pc
			if fnSlot.Fn == nil {
				return 0, m.trap(flags, "call of invalid function")
			}
			_, err := m.call(fnSlot.Fn, flags)
			fr = &m.Frames[len(m.Frames)-1]
			if err != nil {
				return 0, err
			}

		case program.Return:
			n := int(instr.Arg.I)
			return n, nil

		case program.End:
			n := int(instr.Arg.I)
			return n, nil

		default:
			return 0, m.trap(flags, "illegal opcode %v", instr.Op)
		}
	}
}

func (m *Machine) pop() program.Slot {
	v := m.Stack[len(m.Stack)-1]
	m.Stack = m.Stack[:len(m.Stack)-1]
	return v
}

func zeroSlot(k types.Kind) program.Slot {
	switch k {
	case types.Float:
		return program.FloatSlot(0)
	case types.String:
		empty := ""
		return program.Slot{Kind: program.KindString, Str: &empty}
	default:
		return program.IntSlot(0)
	}
}

// call invokes fn with its arguments already laid out on top of the stack,
// per spec.md §4.E "Calls". Variadic natives carry their trailing
// (Type, value…) arguments with a trailing Int slot count on top of the
// stack (spec.md §9 "Variadic native calls"); fixed-arity functions use
// fn's statically-known ParamsSize directly.
func (m *Machine) call(fn *program.Function, flags RunFlags) (int, error) {
	paramsSize := fn.Type.Func.ParamsSize
	if fn.Type.Func.Variadic {
		paramsSize = int(m.pop().I)
	}
	bp := len(m.Stack) - paramsSize

	switch fn.Mode {
	case program.ModeNative:
		retSize := 0
		if fn.Type.Func.Return != nil {
			retSize = fn.Type.Func.Return.Size
		}
		args := append([]program.Slot(nil), m.Stack[bp:]...)
		ret := make([]program.Slot, retSize)
		if err := fn.NativeFn(args, ret); err != nil {
			return 0, m.trap(flags, "%s", err)
		}
		m.Stack = m.Stack[:bp]
		m.Stack = append(m.Stack, ret...)
		return retSize, nil

	case program.ModeRecord:
		// constructor: arguments are already the member values, in order;
		// nothing to do.
		return paramsSize, nil

	case program.ModeScript:
		m.Frames = append(m.Frames, Frame{Fn: fn, PC: 0, BP: bp, Direct: true})
		n, err := m.exec(fn.IR, flags)
		m.Frames = m.Frames[:len(m.Frames)-1]
		if err != nil {
			return 0, err
		}
		result := append([]program.Slot(nil), m.Stack[len(m.Stack)-n:]...)
		m.Stack = m.Stack[:bp]
		m.Stack = append(m.Stack, result...)
		return n, nil

	default:
		return 0, m.trap(flags, "call of invalid function %q", fn.Name)
	}
}
