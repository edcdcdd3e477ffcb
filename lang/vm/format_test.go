package vm_test

import (
	"testing"

	"github.com/kylelemons/godebug/diff"
	"github.com/stretchr/testify/require"

	"github.com/blikk-lang/blikk/lang/program"
	"github.com/blikk-lang/blikk/lang/types"
	"github.com/blikk-lang/blikk/lang/vm"
)

func TestFormatScalars(t *testing.T) {
	cases := []struct {
		name string
		typ  *types.Type
		slot program.Slot
		want string
	}{
		{"null", types.NewBase(types.Null), program.Slot{}, "null"},
		{"bool true", types.NewBase(types.Bool), program.BoolSlot(true), "true"},
		{"bool false", types.NewBase(types.Bool), program.BoolSlot(false), "false"},
		{"int", types.NewBase(types.Int), program.IntSlot(-42), "-42"},
		{"float", types.NewBase(types.Float), program.FloatSlot(2.5), "2.5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := vm.Format(tc.typ, []program.Slot{tc.slot})
			if patch := diff.Diff(tc.want, got); patch != "" {
				t.Errorf("Format mismatch:\n%s", patch)
			}
		})
	}
}

func TestFormatRecord(t *testing.T) {
	pointType, err := types.NewRecord("Point", []string{"x", "y"}, []*types.Type{types.NewBase(types.Int), types.NewBase(types.Int)})
	require.NoError(t, err)

	slots := []program.Slot{program.IntSlot(3), program.IntSlot(4)}
	got := vm.Format(pointType, slots)
	want := "Point { x = 3, y = 4 }"
	if patch := diff.Diff(want, got); patch != "" {
		t.Errorf("Format mismatch:\n%s", patch)
	}
}

func TestFormatArrayOfRecords(t *testing.T) {
	pointType, err := types.NewRecord("Point", []string{"x", "y"}, []*types.Type{types.NewBase(types.Int), types.NewBase(types.Int)})
	require.NoError(t, err)
	arrType, err := types.NewArray(2, pointType)
	require.NoError(t, err)

	slots := []program.Slot{
		program.IntSlot(1), program.IntSlot(2),
		program.IntSlot(3), program.IntSlot(4),
	}
	got := vm.Format(arrType, slots)
	want := "[Point { x = 1, y = 2 }, Point { x = 3, y = 4 }]"
	if patch := diff.Diff(want, got); patch != "" {
		t.Errorf("Format mismatch:\n%s", patch)
	}
}

func TestFormatEnum(t *testing.T) {
	colorType, err := types.NewEnum("Color", []string{"Red", "Green", "Blue"})
	require.NoError(t, err)

	got := vm.Format(colorType, []program.Slot{program.IntSlot(1)})
	want := "Color.Green"
	if patch := diff.Diff(want, got); patch != "" {
		t.Errorf("Format mismatch:\n%s", patch)
	}

	// out-of-range label falls back to "?" rather than panicking, since a
	// host embedding blikk may hand Format a slot that never went through
	// the compiler's enum-range checks.
	got = vm.Format(colorType, []program.Slot{program.IntSlot(99)})
	want = "Color.?"
	if patch := diff.Diff(want, got); patch != "" {
		t.Errorf("Format mismatch:\n%s", patch)
	}
}
