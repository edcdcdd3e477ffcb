package stdlib_test

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

func TestPrintAcceptsAnyType(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"int", `print(7)`, "7"},
		{"bool", `print(true)`, "true"},
		{"string", `print("hi")`, "hi"},
		{"record", `record Point (x: Int, y: Int); print(Point(3, 4))`, "Point { x = 3, y = 4 }"},
		{"array", `print([1, 2, 3])`, "[1, 2, 3]"},
		{"enum", `enum Color (Red, Green, Blue); print(Color.Green)`, "Color.Green"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, runSource(t, tc.src))
		})
	}
}

func TestPrintJoinsMultipleArgumentsWithASpace(t *testing.T) {
	assert.Equal(t, "1 true hi\n", runSource(t, `printLn(1, true, "hi")`))
}

func TestDebugPrefixesEachArgumentWithItsType(t *testing.T) {
	assert.Equal(t, "Int(3)\n", runSource(t, `debug(3)`))
	assert.Equal(t, "Int(1) Bool(true)\n", runSource(t, `debug(1, true)`))
}

func TestMathPackage(t *testing.T) {
	assert.Equal(t, "4\n", runSource(t, `printLn(sqrt(16.0))`))
	assert.Equal(t, "8\n", runSource(t, `printLn(pow(2.0, 3.0))`))
	assert.Equal(t, "true\n", runSource(t, `printLn(PI > 3.14 && PI < 3.15)`))
}
