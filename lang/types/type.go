// Package types implements blikk's static type system: primitive kinds,
// and the specialized Function/Array/Record/Enum/Opaque variants, together
// with structural interning by signature string (spec.md §4.B).
package types

import (
	"fmt"
	"strings"
)

// Kind identifies the primitive family a Type belongs to.
type Kind uint8

const (
	Null Kind = iota
	Bool
	Int
	Float
	String
	TypeKind // the type of Type values themselves ("Type")
	Function
	Array
	Record
	Enum
	Opaque
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "Null"
	case Bool:
		return "Bool"
	case Int:
		return "Int"
	case Float:
		return "Float"
	case String:
		return "String"
	case TypeKind:
		return "Type"
	case Function:
		return "Function"
	case Array:
		return "Array"
	case Record:
		return "Record"
	case Enum:
		return "Enum"
	case Opaque:
		return "Opaque"
	default:
		return "?"
	}
}

// Type is the common header shared by every type value in the program
// image. Specialized kinds extend it with a payload (Func/Arr/Rec/Enm/Opq
// below); callers switch on Kind to reach the right payload, which plays
// the role of the "deep inheritance" re-architecture noted in spec.md §9.
type Type struct {
	Signature string // canonical, interning key
	Kind      Kind
	Init0     bool // whether default zero-initialization is legal
	Size      int  // size in stack slots

	Func *FuncPayload
	Arr  *ArrayPayload
	Rec  *RecordPayload
	Enm  *EnumPayload
	Opq  *OpaquePayload
}

func (t *Type) String() string { return t.Signature }

// FuncPayload describes a function type's parameters and return type.
type FuncPayload struct {
	Params     []*Type
	ParamsSize int
	Variadic   bool
	Return     *Type // nil means Null
}

// ArrayPayload describes a fixed-length array type.
type ArrayPayload struct {
	Len  int
	Unit *Type
}

// Member is one named, offset-assigned slot of a record type.
type Member struct {
	Name   string
	Type   *Type
	Offset int // stack-slot offset within the record
}

// RecordPayload describes a named aggregate of members.
type RecordPayload struct {
	Name    string
	Members []Member
}

// EnumPayload describes a named enumeration of consecutive integer labels.
type EnumPayload struct {
	Name       string
	Labels     []string
	ValueOf    map[string]int64
}

// OpaquePayload marks a host-defined one-slot pointer type.
type OpaquePayload struct {
	Name string
}

const (
	// MaxParams bounds the number of parameters a function prototype may
	// declare (spec.md §8 boundary: 17-parameter prototype errors).
	MaxParams = 16
	// MaxAggregateSize bounds the total slot count of an array or record.
	MaxAggregateSize = 65535
)

// NewBase constructs one of the six predeclared base types. It is called
// exactly once per base type at program-image construction time.
func NewBase(k Kind) *Type {
	switch k {
	case Null:
		return &Type{Signature: "Null", Kind: Null, Init0: true, Size: 0}
	case Bool:
		return &Type{Signature: "Bool", Kind: Bool, Init0: true, Size: 1}
	case Int:
		return &Type{Signature: "Int", Kind: Int, Init0: true, Size: 1}
	case Float:
		return &Type{Signature: "Float", Kind: Float, Init0: true, Size: 1}
	case String:
		return &Type{Signature: "String", Kind: String, Init0: true, Size: 1}
	case TypeKind:
		return &Type{Signature: "Type", Kind: TypeKind, Init0: false, Size: 1}
	default:
		panic(fmt.Sprintf("types: NewBase called with non-base kind %v", k))
	}
}

// FunctionSignature computes the canonical "func (T1, T2, …): R" signature;
// the return type is omitted entirely when it is Null.
func FunctionSignature(params []*Type, variadic bool, ret *Type) string {
	var sb strings.Builder
	sb.WriteString("func (")
	for i, p := range params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.Signature)
	}
	if variadic {
		if len(params) > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("...")
	}
	sb.WriteString(")")
	if ret != nil && ret.Kind != Null {
		sb.WriteString(": ")
		sb.WriteString(ret.Signature)
	}
	return sb.String()
}

// NewFunction builds (unintered) a function Type value from its parameters
// and return type. Interning is the caller's (program image's)
// responsibility via InsertType.
func NewFunction(params []*Type, variadic bool, ret *Type) *Type {
	size := 0
	for _, p := range params {
		size += p.Size
	}
	return &Type{
		Signature: FunctionSignature(params, variadic, ret),
		Kind:      Function,
		Init0:     false,
		Size:      1,
		Func: &FuncPayload{
			Params:     append([]*Type(nil), params...),
			ParamsSize: size,
			Variadic:   variadic,
			Return:     ret,
		},
	}
}

// ArraySignature computes "[N] T".
func ArraySignature(length int, unit *Type) string {
	return fmt.Sprintf("[%d] %s", length, unit.Signature)
}

// NewArray builds (uninterned) an array Type of the given length and unit
// type. It returns an error if the length is negative or the total size in
// slots would overflow MaxAggregateSize or a 16-bit count.
func NewArray(length int, unit *Type) (*Type, error) {
	if length < 0 {
		return nil, fmt.Errorf("array length cannot be negative (got %d)", length)
	}
	if length > 0xFFFF {
		return nil, fmt.Errorf("array length %d exceeds maximum of %d", length, 0xFFFF)
	}
	size := length * unit.Size
	if size > MaxAggregateSize {
		return nil, fmt.Errorf("array of %d × %s exceeds maximum size of %d stack slots", length, unit.Signature, MaxAggregateSize)
	}
	return &Type{
		Signature: ArraySignature(length, unit),
		Kind:      Array,
		Init0:     unit.Init0,
		Size:      size,
		Arr:       &ArrayPayload{Len: length, Unit: unit},
	}, nil
}

// NewRecord builds (uninterned) a record Type from its ordered, named
// members, assigning slot offsets and validating the total size.
func NewRecord(name string, memberNames []string, memberTypes []*Type) (*Type, error) {
	members := make([]Member, len(memberNames))
	offset := 0
	for i := range memberNames {
		members[i] = Member{Name: memberNames[i], Type: memberTypes[i], Offset: offset}
		offset += memberTypes[i].Size
	}
	if offset > MaxAggregateSize {
		return nil, fmt.Errorf("record %s of size %d exceeds maximum size of %d stack slots", name, offset, MaxAggregateSize)
	}
	init0 := true
	for _, t := range memberTypes {
		if !t.Init0 {
			init0 = false
			break
		}
	}
	return &Type{
		Signature: name,
		Kind:      Record,
		Init0:     init0,
		Size:      offset,
		Rec:       &RecordPayload{Name: name, Members: members},
	}, nil
}

// MemberIndex returns the index of the named member, or -1.
func (t *Type) MemberIndex(name string) int {
	if t.Rec == nil {
		return -1
	}
	for i, m := range t.Rec.Members {
		if m.Name == name {
			return i
		}
	}
	return -1
}

// NewEnum builds (uninterned) an enum Type with 0-based consecutive label
// values.
func NewEnum(name string, labels []string) (*Type, error) {
	seen := make(map[string]int64, len(labels))
	for i, l := range labels {
		if _, dup := seen[l]; dup {
			return nil, fmt.Errorf("duplicate enum label %q in enum %s", l, name)
		}
		seen[l] = int64(i)
	}
	return &Type{
		Signature: name,
		Kind:      Enum,
		Init0:     len(labels) > 0,
		Size:      1,
		Enm:       &EnumPayload{Name: name, Labels: append([]string(nil), labels...), ValueOf: seen},
	}, nil
}

// NewOpaque builds (uninterned) a one-slot host-defined pointer type.
func NewOpaque(name string) *Type {
	return &Type{Signature: name, Kind: Opaque, Init0: true, Size: 1, Opq: &OpaquePayload{Name: name}}
}

// AssignableFrom reports whether a value of type src may be assigned,
// passed or returned where dst is expected. blikk has no implicit numeric
// conversions (toInt/toFloat are explicit intrinsics), so this is pointer
// (signature) equality except that the two are interned so identity
// comparison is exact.
func AssignableFrom(dst, src *Type) bool {
	return dst == src
}
