// Package stdlib registers blikk's standard library: print, debug and the
// math functions/constants (spec.md §4.B "Standard library (external
// collaborator)"). None of it is privileged: every entry is installed
// through the same compiler.AddFunction/AddGlobal surface a host embedding
// blikk would use, per spec.md §6.
package stdlib

import (
	"bufio"
	"fmt"
	"io"

	"github.com/blikk-lang/blikk/lang/compiler"
	"github.com/blikk-lang/blikk/lang/program"
	"github.com/blikk-lang/blikk/lang/vm"
)

// Register installs print, printLn, debug and the math package against c,
// writing print/printLn/debug output to out. A host embedding blikk chooses
// out (typically os.Stdout); test harnesses pass their own buffer instead.
func Register(c *compiler.Compiler, out io.Writer) error {
	w := bufio.NewWriter(out)
	if err := registerPrint(c, w); err != nil {
		return err
	}
	if err := registerDebug(c, w); err != nil {
		return err
	}
	return registerMath(c)
}

// registerPrint installs print and printLn as fully variadic natives
// (spec.md §4.D "Variadic native calls"): the compiler reifies each
// argument as a (Type, value…) pair on the stack, so a single native body
// can accept any mix of argument types without one overload per type.
func registerPrint(c *compiler.Compiler, w *bufio.Writer) error {
	printFn := func(args []program.Slot, ret []program.Slot) error {
		if err := writeJoined(w, args); err != nil {
			return err
		}
		return w.Flush()
	}
	if _, err := c.AddFunction("print(…)", compiler.NoSideEffect, printFn); err != nil {
		return err
	}

	printLnFn := func(args []program.Slot, ret []program.Slot) error {
		if err := writeJoined(w, args); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
		return w.Flush()
	}
	if _, err := c.AddFunction("printLn(…)", compiler.NoSideEffect, printLnFn); err != nil {
		return err
	}
	return nil
}

// registerDebug mirrors print's variadic convention, but renders each
// argument with its type name alongside (spec.md §4.B lists debug alongside
// print/printLn with no further detail on its body, so its format is this
// package's own choice).
func registerDebug(c *compiler.Compiler, w *bufio.Writer) error {
	fn := func(args []program.Slot, ret []program.Slot) error {
		first := true
		for len(args) > 0 {
			t := args[0].Typ
			vals := args[1 : 1+t.Size]
			args = args[1+t.Size:]
			if !first {
				if _, err := io.WriteString(w, " "); err != nil {
					return err
				}
			}
			first = false
			if _, err := fmt.Fprintf(w, "%s(%s)", t.Signature, vm.Format(t, vals)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
		return w.Flush()
	}
	if _, err := c.AddFunction("debug(…)", compiler.NoSideEffect, fn); err != nil {
		return err
	}
	return nil
}

// writeJoined walks args as reified (Type, value…) pairs, writing each
// argument's formatted value, space-separated.
func writeJoined(w io.Writer, args []program.Slot) error {
	first := true
	for len(args) > 0 {
		t := args[0].Typ
		vals := args[1 : 1+t.Size]
		args = args[1+t.Size:]
		if !first {
			if _, err := io.WriteString(w, " "); err != nil {
				return err
			}
		}
		first = false
		if _, err := io.WriteString(w, vm.Format(t, vals)); err != nil {
			return err
		}
	}
	return nil
}
