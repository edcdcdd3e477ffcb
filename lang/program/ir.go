package program

import (
	"fmt"

	"github.com/blikk-lang/blikk/lang/types"
)

// Opcode is one instruction of the linear stack-machine IR emitted by the
// compiler and executed by the VM (spec.md §4.E).
type Opcode uint8

//nolint:revive
const (
	Nop Opcode = iota

	// constants/locals
	Push     // push Slot.Value
	PushZero // push n zero slots of the hinted type
	PushBig  // copy n slots from the constant pool at the offset given by the preceding Push
	Pop      // pop n slots
	Lea      // push address of module/global variable
	LeaLocal // push address of local variable (frame-relative offset)
	LeaRel   // push address relative to top of stack (for nested aggregate addressing)

	// memory
	Load          // pop addr, push value
	LoadLocal     // push local value
	LoadIndirect  // pop addr, push n slots starting at addr
	LoadIndirectK // like LoadIndirect but keeps addr on stack beneath the loaded slots
	Store         // pop value, pop addr, store
	StoreK        // like Store but keeps value on stack
	StoreLocal    // pop value, store to local
	StoreLocalK   // like StoreLocal but keeps value on stack
	StoreIndirect // pop value, pop addr, store n slots
	StoreIndirectK
	StoreRev   // store n slots to a preceding address (argument-copy form, used by TRE)
	StoreRevK
	CheckIndex // trap if top of stack not in [0, n)

	// integer arithmetic
	Negate
	Add
	Subtract
	Multiply
	Divide
	Modulo
	IEqual
	INotEqual
	IGreaterThan
	IGreaterOrEqual
	ILessThan
	ILessOrEqual
	BitAnd
	BitOr
	BitXor
	BitComplement
	LeftShift
	RightShift
	LeftRotate
	RightRotate

	// float arithmetic
	FNegate
	FAdd
	FSubtract
	FMultiply
	FDivide
	FEqual
	FNotEqual
	FGreaterThan
	FGreaterOrEqual
	FLessThan
	FLessOrEqual

	// booleans / strings / types / functions / enums
	BoolEqual
	BoolNotEqual
	NotBool
	AndBool
	OrBool
	StringEqual
	StringNotEqual
	StringConcat
	TypeEqual
	TypeNotEqual
	FuncEqual
	FuncNotEqual
	EnumEqual
	EnumNotEqual

	// control flow
	Jump
	BranchIfTrue
	BranchIfFalse
	SkipIfTrue
	SkipIfFalse

	// calls
	Call
	CallIndirect
	Return
	IntToFloat
	FloatToInt
	InlineIf
	End // end of the sequence, reporting n result slots; the stack depth is not checked
)

var opcodeNames = [...]string{
	Nop: "nop", Push: "push", PushZero: "pushzero", PushBig: "pushbig", Pop: "pop",
	Lea: "lea", LeaLocal: "lealocal", LeaRel: "learel",
	Load: "load", LoadLocal: "loadlocal", LoadIndirect: "loadindirect", LoadIndirectK: "loadindirectk",
	Store: "store", StoreK: "storek", StoreLocal: "storelocal", StoreLocalK: "storelocalk",
	StoreIndirect: "storeindirect", StoreIndirectK: "storeindirectk", StoreRev: "storerev", StoreRevK: "storerevk",
	CheckIndex: "checkindex",
	Negate:     "negate", Add: "add", Subtract: "subtract", Multiply: "multiply", Divide: "divide", Modulo: "modulo",
	IEqual: "iequal", INotEqual: "inotequal", IGreaterThan: "igreaterthan", IGreaterOrEqual: "igreaterorequal",
	ILessThan: "ilessthan", ILessOrEqual: "ilessorequal",
	BitAnd: "bitand", BitOr: "bitor", BitXor: "bitxor", BitComplement: "bitcomplement",
	LeftShift: "leftshift", RightShift: "rightshift", LeftRotate: "leftrotate", RightRotate: "rightrotate",
	FNegate: "fnegate", FAdd: "fadd", FSubtract: "fsubtract", FMultiply: "fmultiply", FDivide: "fdivide",
	FEqual: "fequal", FNotEqual: "fnotequal", FGreaterThan: "fgreaterthan", FGreaterOrEqual: "fgreaterorequal",
	FLessThan: "flessthan", FLessOrEqual: "flessorequal",
	BoolEqual: "boolequal", BoolNotEqual: "boolnotequal", NotBool: "notbool", AndBool: "andbool", OrBool: "orbool",
	StringEqual: "stringequal", StringNotEqual: "stringnotequal", StringConcat: "stringconcat",
	TypeEqual: "typeequal", TypeNotEqual: "typenotequal", FuncEqual: "funcequal", FuncNotEqual: "funcnotequal",
	EnumEqual: "enumequal", EnumNotEqual: "enumnotequal",
	Jump: "jump", BranchIfTrue: "branchiftrue", BranchIfFalse: "branchiffalse",
	SkipIfTrue: "skipiftrue", SkipIfFalse: "skipiffalse",
	Call: "call", CallIndirect: "callindirect", Return: "return",
	IntToFloat: "inttofloat", FloatToInt: "floattoint", InlineIf: "inlineif", End: "end",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return fmt.Sprintf("illegal opcode (%d)", op)
}

// Slot is the tagged value union carried by an instruction (and, at
// runtime, occupying one VM stack slot). Only the field matching Kind is
// meaningful.
type Slot struct {
	Kind Kind
	I    int64
	F    float64
	Str  *string
	Typ  *types.Type
	Fn   *Function
	Opq  any
}

// Kind tags which field of a Slot is populated.
type Kind uint8

const (
	KindNone Kind = iota
	KindInt
	KindBool
	KindFloat
	KindString
	KindType
	KindFunc
	KindOpaque
)

// IntSlot, BoolSlot, etc. are constructors for the common instruction
// argument/constant shapes.
func IntSlot(i int64) Slot { return Slot{Kind: KindInt, I: i} }

func BoolSlot(b bool) Slot {
	var i int64
	if b {
		i = 1
	}
	return Slot{Kind: KindBool, I: i}
}

func FloatSlot(f float64) Slot    { return Slot{Kind: KindFloat, F: f} }
func StringSlot(s *string) Slot   { return Slot{Kind: KindString, Str: s} }
func TypeSlot(t *types.Type) Slot { return Slot{Kind: KindType, Typ: t} }
func FuncSlot(f *Function) Slot   { return Slot{Kind: KindFunc, Fn: f} }

// Instruction is one opcode plus its tagged argument/constant.
type Instruction struct {
	Op   Opcode
	Hint types.Kind // primitive hint used to pick int vs float dispatch etc.
	Arg  Slot
}

// Breakpoint maps an IR address to a source line, forming the parallel
// source map used to translate a PC into a file:line for stack traces
// (spec.md §3 "Source map").
type Breakpoint struct {
	Addr int
	Line int
}
