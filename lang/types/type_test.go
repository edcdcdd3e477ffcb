package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFunctionSignature(t *testing.T) {
	intT := NewBase(Int)
	floatT := NewBase(Float)

	cases := []struct {
		name     string
		params   []*Type
		variadic bool
		ret      *Type
		want     string
	}{
		{"no params no return", nil, false, nil, "func ()"},
		{"params no return", []*Type{intT, floatT}, false, nil, "func (Int, Float)"},
		{"with return", []*Type{intT}, false, intT, "func (Int): Int"},
		{"variadic", []*Type{intT}, true, nil, "func (Int, ...)"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, FunctionSignature(c.params, c.variadic, c.ret))
		})
	}
}

func TestNewArray(t *testing.T) {
	intT := NewBase(Int)

	arr, err := NewArray(4, intT)
	require.NoError(t, err)
	assert.Equal(t, "[4] Int", arr.Signature)
	assert.Equal(t, 4, arr.Size)
	assert.True(t, arr.Init0)

	_, err = NewArray(-1, intT)
	assert.Error(t, err)

	_, err = NewArray(0x8000, arr)
	assert.Error(t, err, "length * unit size must fit the aggregate size limit")
}

func TestNewRecordOffsets(t *testing.T) {
	intT := NewBase(Int)
	floatT := NewBase(Float)

	rec, err := NewRecord("Point3", []string{"x", "y", "z"}, []*Type{intT, intT, floatT})
	require.NoError(t, err)
	require.Len(t, rec.Rec.Members, 3)
	assert.Equal(t, 0, rec.Rec.Members[0].Offset)
	assert.Equal(t, 1, rec.Rec.Members[1].Offset)
	assert.Equal(t, 2, rec.Rec.Members[2].Offset)
	assert.Equal(t, 3, rec.Size)
	assert.Equal(t, 2, rec.MemberIndex("z"))
	assert.Equal(t, -1, rec.MemberIndex("w"))
}

func TestNewEnum(t *testing.T) {
	en, err := NewEnum("Color", []string{"Red", "Green", "Blue"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), en.Enm.ValueOf["Red"])
	assert.Equal(t, int64(2), en.Enm.ValueOf["Blue"])

	_, err = NewEnum("Bad", []string{"A", "A"})
	assert.Error(t, err)
}
