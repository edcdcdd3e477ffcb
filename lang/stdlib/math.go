package stdlib

import (
	"math"

	"github.com/blikk-lang/blikk/lang/compiler"
	"github.com/blikk-lang/blikk/lang/program"
)

// registerMath installs the math functions and constants spec.md §4.B
// names: "ceil floor round abs exp ln log2 log10 pow sqrt cbrt cos sin tan
// acos asin atan atan2 isNormal isInfinity isNaN", and "PI E TAU". Every
// function here is Pure: none observes anything beyond its arguments, so
// the compiler may fold a call against constant arguments at compile time
// (compiler.foldCall).
func registerMath(c *compiler.Compiler) error {
	if _, err := c.AddGlobal("PI", c.Program().Float, []program.Slot{program.FloatSlot(math.Pi)}, false); err != nil {
		return err
	}
	if _, err := c.AddGlobal("E", c.Program().Float, []program.Slot{program.FloatSlot(math.E)}, false); err != nil {
		return err
	}
	if _, err := c.AddGlobal("TAU", c.Program().Float, []program.Slot{program.FloatSlot(2 * math.Pi)}, false); err != nil {
		return err
	}

	unary := map[string]func(float64) float64{
		"ceil": math.Ceil, "floor": math.Floor, "round": math.Round, "abs": math.Abs,
		"exp": math.Exp, "ln": math.Log, "log2": math.Log2, "log10": math.Log10,
		"sqrt": math.Sqrt, "cbrt": math.Cbrt,
		"cos": math.Cos, "sin": math.Sin, "tan": math.Tan,
		"acos": math.Acos, "asin": math.Asin, "atan": math.Atan,
	}
	for name, f := range unary {
		f := f
		native := func(args []program.Slot, ret []program.Slot) error {
			ret[0] = program.FloatSlot(f(args[0].F))
			return nil
		}
		if _, err := c.AddFunction(name+"(Float): Float", compiler.Pure, native); err != nil {
			return err
		}
	}

	pow := func(args []program.Slot, ret []program.Slot) error {
		ret[0] = program.FloatSlot(math.Pow(args[0].F, args[1].F))
		return nil
	}
	if _, err := c.AddFunction("pow(Float, Float): Float", compiler.Pure, pow); err != nil {
		return err
	}
	atan2 := func(args []program.Slot, ret []program.Slot) error {
		ret[0] = program.FloatSlot(math.Atan2(args[0].F, args[1].F))
		return nil
	}
	if _, err := c.AddFunction("atan2(Float, Float): Float", compiler.Pure, atan2); err != nil {
		return err
	}

	predicates := map[string]func(float64) bool{
		"isNormal":   func(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) },
		"isInfinity": func(f float64) bool { return math.IsInf(f, 0) },
		"isNaN":      math.IsNaN,
	}
	for name, f := range predicates {
		f := f
		native := func(args []program.Slot, ret []program.Slot) error {
			ret[0] = program.BoolSlot(f(args[0].F))
			return nil
		}
		if _, err := c.AddFunction(name+"(Float): Bool", compiler.Pure, native); err != nil {
			return err
		}
	}
	return nil
}
