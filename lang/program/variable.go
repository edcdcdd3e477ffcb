package program

import "github.com/blikk-lang/blikk/lang/types"

// Scope identifies where a Variable lives.
type Scope uint8

const (
	// ModuleScope variables are compile-time constants with no stack slot:
	// base-type, enum and opaque Type constants, and every function binding
	// (natives, intrinsics, script functions, record constructors).
	ModuleScope Scope = iota
	// GlobalScope variables own an absolute slot of main's stack: host
	// globals from compiler.AddGlobal (mutable or not) and top-level "let"
	// declarations.
	GlobalScope
	// LocalScope variables live on the current function's frame.
	LocalScope
)

// Variable is a named, typed binding (spec.md §3 "Variables").
type Variable struct {
	Name      string
	Type      *types.Type
	Mut       bool
	Const     bool // compile-time-knowable single-slot value
	ConstVal  Slot
	Scope     Scope
	Offset    int // stack offset (meaning depends on Scope)
	ReadyAddr int // IR address at which the variable becomes readable

	Shadows *Variable // outer variable this one hides, if any
}
