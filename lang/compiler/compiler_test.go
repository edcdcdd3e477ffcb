package compiler_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blikk-lang/blikk/lang/compiler"
	"github.com/blikk-lang/blikk/lang/program"
	"github.com/blikk-lang/blikk/lang/stdlib"
	"github.com/blikk-lang/blikk/lang/vm"
)

// runSource compiles and runs one self-contained source string against a
// fresh Program, returning whatever print/printLn wrote.
func runSource(t *testing.T, src string) string {
	t.Helper()
	var out bytes.Buffer
	prog := program.New()
	c := compiler.New(prog)
	require.NoError(t, stdlib.Register(c, &out))
	_, err := c.Compile([]byte(src), "test.blikk")
	require.NoError(t, err)
	m := vm.New(prog)
	require.NoError(t, m.Run(vm.RunFlags{}))
	return out.String()
}

func TestEndToEndScenarios(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{
			"arithmetic precedence",
			`printLn(1 + 2 * 3)`,
			"7\n",
		},
		{
			"half-open for range with mutable accumulator",
			`let mut x = 0; for i in 1 : 5 do x += i; printLn(x)`,
			"10\n",
		},
		{
			"recursive factorial",
			`func fact(n: Int): Int if n <= 1 do return 1 else return n * fact(n - 1) end end; printLn(fact(10))`,
			"3628800\n",
		},
		{
			"record construction and member access",
			`record Point (x: Int, y: Int); let p = Point(3, 4); printLn(p.x + p.y)`,
			"7\n",
		},
		{
			"enum equality",
			`enum Color (Red, Green, Blue); printLn(Color.Green == Color.Green)`,
			"true\n",
		},
		{
			"array index assignment in a for loop",
			`let mut a = [0, 0, 0, 0]; for i in 0 : 4 do a[i] := i * i end; printLn(a[3])`,
			"9\n",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, runSource(t, tc.src))
		})
	}
}

func TestTailRecursiveFunctionDoesNotGrowTheStack(t *testing.T) {
	src := `
func countTo(n: Int, target: Int): Int
  if n >= target
    return n
  else
    return countTo(n + 1, target)
  end
end
printLn(countTo(0, 100000))
`
	assert.Equal(t, "100000\n", runSource(t, src))
}

func TestToIntToFloatAndTypeOfIntrinsics(t *testing.T) {
	assert.Equal(t, "3\n", runSource(t, `printLn(toInt(3.9))`))
	assert.Equal(t, "2.5\n", runSource(t, `printLn(toFloat(5) / 2.0)`))
	assert.Equal(t, "true\n", runSource(t, `printLn(typeOf(1) == Int)`))
	assert.Equal(t, "true\n", runSource(t, `printLn(typeOf(1.0) == Float)`))
}

func TestUndefinedNameIsACompileError(t *testing.T) {
	var out bytes.Buffer
	prog := program.New()
	c := compiler.New(prog)
	require.NoError(t, stdlib.Register(c, &out))
	_, err := c.Compile([]byte(`printLn(doesNotExist)`), "test.blikk")
	assert.Error(t, err)
}

func TestFunctionFallingOffEndWithoutReturnIsAnError(t *testing.T) {
	var out bytes.Buffer
	prog := program.New()
	c := compiler.New(prog)
	require.NoError(t, stdlib.Register(c, &out))
	src := `func f(): Int if false do return 1 end end`
	_, err := c.Compile([]byte(src), "test.blikk")
	assert.Error(t, err)
}

// A Compiler is reused across many Compile calls in the REPL: globals,
// records, enums and functions registered by an earlier call must resolve
// in a later one. Actually executing the combined result a statement at a
// time is a separate concern (see internal/maincmd's REPL note in
// DESIGN.md) — this only exercises the compile-time half of that contract.
func TestRepeatedCompileCallsSeeEarlierDeclarations(t *testing.T) {
	var out bytes.Buffer
	prog := program.New()
	c := compiler.New(prog)
	require.NoError(t, stdlib.Register(c, &out))

	_, err := c.Compile([]byte("let mut x = 41\n"), "<repl:1>")
	require.NoError(t, err)
	_, err = c.Compile([]byte("func bump(): Int return x + 1 end\n"), "<repl:2>")
	require.NoError(t, err)
	_, err = c.Compile([]byte("printLn(bump())\n"), "<repl:3>")
	require.NoError(t, err)

	assert.NotNil(t, prog.LookupModuleVariable("x"))
	assert.NotNil(t, prog.LookupModuleVariable("bump"))
}
