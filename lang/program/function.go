package program

import "github.com/blikk-lang/blikk/lang/types"

// Mode distinguishes how a Function is implemented.
type Mode uint8

const (
	// ModeIntrinsic functions are compiled inline by the expression parser
	// (toInt, toFloat, typeOf); they never have an IR body of their own.
	ModeIntrinsic Mode = iota
	// ModeNative functions are implemented by a host Go function.
	ModeNative
	// ModeScript functions are compiled from a "func" declaration body.
	ModeScript
	// ModeRecord functions are the synthesized constructor of a record type.
	ModeRecord
)

// Param is one parameter of a function prototype.
type Param struct {
	Name string
	Type *types.Type
	Mut  bool
}

// Native is the signature a host function must implement. args is a
// contiguous view of the argument slots (including the reified
// (Type, value...) pairs for variadic trailing arguments plus the trailing
// count); ret is a writable view the native must populate with its return
// value's slots.
type Native func(args []Slot, ret []Slot) error

// Function is a named, possibly-overloaded callable. Record constructors
// are represented as a Function of ModeRecord whose "call" just leaves its
// member arguments on the stack in declared order.
type Function struct {
	Name       string
	Prototype  string // human-readable prototype, e.g. "add(Int, Int): Int"
	Type       *types.Type
	Params     []Param
	Mode       Mode
	NativeFn   Native

	IR         []Instruction
	SourceMap  []Breakpoint
	TRE        bool // was rewritten for tail-recursion elimination
	Valid      bool
	Pure       bool // foldable: invoking it has no observable side effect
	NoSideEffect bool
	Impure     bool // never set by the compiler, even for a function that assigns to a module/global variable
	SideEffects bool // never set by the compiler

	// overload ring: circular doubly-linked list of functions sharing Name.
	prev, next *Function
}

// LinkOverload inserts fn into the circular overload ring headed by head
// (head may be nil, in which case fn becomes a singleton ring).
func LinkOverload(head, fn *Function) *Function {
	if head == nil {
		fn.prev, fn.next = fn, fn
		return fn
	}
	last := head.prev
	last.next = fn
	fn.prev = last
	fn.next = head
	head.prev = fn
	return head
}

// Overloads calls yield for every function in fn's overload ring, including
// fn itself, exactly once.
func (fn *Function) Overloads(yield func(*Function) bool) {
	if fn == nil {
		return
	}
	start := fn
	cur := fn
	for {
		if !yield(cur) {
			return
		}
		cur = cur.next
		if cur == start {
			return
		}
	}
}

// FindOverload walks fn's overload ring looking for a member whose
// parameter-type sequence exactly matches argTypes; the first match wins
// (spec.md §4.D "Overload resolution").
func (fn *Function) FindOverload(argTypes []*types.Type) *Function {
	var found *Function
	fn.Overloads(func(cand *Function) bool {
		ft := cand.Type.Func
		if ft.Variadic {
			if len(argTypes) < len(ft.Params) {
				return true
			}
		} else if len(argTypes) != len(ft.Params) {
			return true
		}
		for i, p := range ft.Params {
			if p != argTypes[i] {
				return true
			}
		}
		found = cand
		return false
	})
	return found
}

// HasConflictingOverload reports whether fn's parameter-type sequence
// already exists among the other members of the overload ring headed by
// head; it is the invariant checked on every new overload registration
// (spec.md §3 invariants: "no two members have identical parameter-type
// sequences").
func HasConflictingOverload(head *Function, params []*types.Type) bool {
	if head == nil {
		return false
	}
	conflict := false
	head.Overloads(func(cand *Function) bool {
		ft := cand.Type.Func
		if len(ft.Params) != len(params) {
			return true
		}
		for i, p := range ft.Params {
			if p != params[i] {
				return true
			}
		}
		conflict = true
		return false
	})
	return conflict
}
