package program

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blikk-lang/blikk/lang/types"
)

func TestInternDeduplicates(t *testing.T) {
	p := New()
	a := p.Intern("hello")
	b := p.Intern("hello")
	assert.Same(t, a, b)
	c := p.Intern("world")
	assert.NotSame(t, a, c)
}

func TestInsertTypeDeduplicates(t *testing.T) {
	p := New()
	arr1, err := types.NewArray(4, p.Int)
	require.NoError(t, err)
	arr2, err := types.NewArray(4, p.Int)
	require.NoError(t, err)

	got1 := p.InsertType(arr1)
	got2 := p.InsertType(arr2)
	assert.Same(t, got1, got2, "two arrays with identical signature must intern to the same pointer")
}

func TestRollbackRestoresAllContainers(t *testing.T) {
	p := New()
	snap := p.Snapshot()

	fn := &Function{Name: "f", Type: p.Int}
	p.AddFunction(fn)
	p.Variables = append(p.Variables, &Variable{Name: "x"})
	p.Main = append(p.Main, Instruction{Op: Push})

	p.Rollback(snap)

	assert.Empty(t, p.Functions)
	assert.Empty(t, p.Variables)
	assert.Empty(t, p.Main)
	assert.Nil(t, p.FunctionsNamed("f"))
}

func TestOverloadRingRejectsDuplicateParamTypes(t *testing.T) {
	p := New()
	fn1 := &Function{Name: "add", Type: types.NewFunction([]*types.Type{p.Int, p.Int}, false, p.Int)}
	p.AddFunction(fn1)

	head := p.FunctionsNamed("add")
	assert.True(t, HasConflictingOverload(head, []*types.Type{p.Int, p.Int}))
	assert.False(t, HasConflictingOverload(head, []*types.Type{p.Float, p.Float}))
}

func TestLocateBinarySearch(t *testing.T) {
	p := New()
	p.MainSource = []Breakpoint{{Addr: 0, Line: 1}, {Addr: 5, Line: 2}, {Addr: 9, Line: 5}}

	line, ok := p.Locate(nil, 7)
	require.True(t, ok)
	assert.Equal(t, 2, line)

	line, ok = p.Locate(nil, 0)
	require.True(t, ok)
	assert.Equal(t, 1, line)
}
