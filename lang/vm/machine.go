// Package vm implements the virtual machine that executes blikk's linear
// IR (spec.md §4.E). The same Machine type also serves as the compiler's
// constant-folding engine: the compiler constructs a Machine sharing the
// host's Program and asks it to run just-emitted tails of IR.
package vm

import (
	"context"
	"fmt"

	"github.com/blikk-lang/blikk/lang/program"
)

// Frame records one call: the function being executed (nil for top-level
// module code), the program counter, and the base pointer into Stack where
// its locals begin.
type Frame struct {
	Fn     *program.Function
	PC     int
	BP     int
	Direct bool // true if reached via a direct Call (vs CallIndirect)
}

// RunFlags configure a single Run invocation.
type RunFlags struct {
	// HideErrors suppresses stack-trace formatting; used internally by the
	// compiler while constant-folding, where a runtime error should simply
	// abandon the fold rather than render a user-visible trace.
	HideErrors bool
	// MaxSteps bounds the number of dispatched instructions; 0 means
	// unlimited (besides an internal default safety cap).
	MaxSteps int64
}

// Machine is the VM's mutable execution state: a single value stack and a
// call-frame stack (spec.md §4.E, §5 "Scheduling": fully single-threaded).
type Machine struct {
	Prog   *program.Program
	Stack  []program.Slot
	Frames []Frame

	steps     int64
	maxSteps  int64
	interrupt bool // polled between instructions; set via Interrupt()

	ctx       context.Context
	ctxCancel context.CancelFunc
}

// New creates a Machine bound to prog.
func New(prog *program.Program) *Machine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Machine{Prog: prog, ctx: ctx, ctxCancel: cancel}
}

// Interrupt requests that the running (or next) dispatch loop stop as if a
// clean End had been reached (spec.md §5 "Interrupt/cancellation").
func (m *Machine) Interrupt() { m.interrupt = true }

// RuntimeError is returned by Run/RunTail when the program traps (divide by
// zero, bad index, etc.). It carries a rendered stack trace, built by
// walking the frame stack through Program.Locate, unless folding asked for
// HideErrors.
type RuntimeError struct {
	Msg   string
	Trace string
}

func (e *RuntimeError) Error() string {
	if e.Trace == "" {
		return e.Msg
	}
	return e.Msg + "\n" + e.Trace
}

func (m *Machine) trap(flags RunFlags, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	re := &RuntimeError{Msg: msg}
	if !flags.HideErrors {
		re.Trace = m.stackTrace()
	}
	return re
}

func (m *Machine) stackTrace() string {
	out := "stack trace:\n"
	for i := len(m.Frames) - 1; i >= 0; i-- {
		fr := m.Frames[i]
		name := "<main>"
		if fr.Fn != nil {
			name = fr.Fn.Name
		}
		line, ok := m.Prog.Locate(fr.Fn, fr.PC)
		if ok {
			out += fmt.Sprintf("  at %s (line %d)\n", name, line)
		} else {
			out += fmt.Sprintf("  at %s\n", name)
		}
	}
	return out
}

// Run executes the module's top-level Main IR, as frame 0 (Fn == nil, BP
// == 0), per spec.md §4.E.
func (m *Machine) Run(flags RunFlags) error {
	m.maxSteps = flags.MaxSteps
	if m.maxSteps <= 0 {
		m.maxSteps = 1 << 40
	}
	// Module/global variables live at the bottom of the stack, addressed by
	// the absolute slot offsets the compiler assigned them; reserve that
	// space before the first instruction runs.
	if len(m.Stack) < m.Prog.MainNLocals {
		m.Stack = append(m.Stack, make([]program.Slot, m.Prog.MainNLocals-len(m.Stack))...)
	}
	m.Frames = append(m.Frames, Frame{Fn: nil, PC: 0, BP: 0})
	_, err := m.exec(m.Prog.Main, flags)
	m.Frames = m.Frames[:0]
	return err
}

// RunTail executes an arbitrary, self-contained instruction sequence (a
// "tail" of just-emitted IR, ending in an End instruction) against a fresh
// frame and empty stack segment, for use by the compiler's constant
// folder. It returns the final n stack slots asserted by the trailing End.
func (m *Machine) RunTail(ir []program.Instruction, flags RunFlags) ([]program.Slot, error) {
	m.steps = 0
	m.maxSteps = flags.MaxSteps
	if m.maxSteps <= 0 {
		m.maxSteps = 1 << 40
	}
	base := len(m.Stack)
	m.Frames = append(m.Frames, Frame{Fn: nil, PC: 0, BP: base})
	n, err := m.exec(ir, flags)
	m.Frames = m.Frames[:len(m.Frames)-1]
	if err != nil {
		m.Stack = m.Stack[:base]
		return nil, err
	}
	result := append([]program.Slot(nil), m.Stack[len(m.Stack)-n:]...)
	m.Stack = m.Stack[:base]
	return result, nil
}
