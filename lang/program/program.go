// Package program implements the shared program image (spec.md §4.A): the
// append-only containers for interned strings, types, functions, variables
// and IR that the compiler appends to and the VM executes against. Types,
// functions and variables are held as pointers, so the compiler may keep
// pointers to them while a parse is in flight, and every container can be
// rolled back to a pre-call length snapshot on failure.
package program

import (
	"sort"

	"github.com/dolthub/swiss"
	"github.com/blikk-lang/blikk/lang/types"
)

// Program is the single aggregate owning all compiled state. A host
// embeds one per independently-compiled script; the REPL keeps reusing the
// same Program across statements.
type Program struct {
	// string arena: deduplicated, interned strings. internStr maps each
	// value to the pointer Intern first returned for it, so equal strings
	// keep sharing one pointer even after this slice grows and moves.
	strings    []string
	internStr  *swiss.Map[string, *string]

	// type interning table, keyed by canonical signature.
	typesByKey *swiss.Map[string, *types.Type]
	Types      []*types.Type

	// base types, registered once.
	Null, Bool, Int, Float, String, TypeT *types.Type

	Functions []*Function
	// funcHeads maps a function name to the head of its overload ring.
	funcHeads map[string]*Function

	Variables []*Variable
	// moduleVars maps a module-scope name to its (innermost) Variable.
	moduleVars map[string]*Variable

	// Main is the module-level IR (the "main" vector); a REPL extends it
	// incrementally, one compiled statement at a time.
	Main        []Instruction
	MainSource  []Breakpoint
	MainNLocals int // number of live globals, for the End-of-main invariant

	// Constants is the read-only constant pool backing PushBig, used for
	// aggregate (array/record) literals that don't fit in one Slot.
	Constants []Slot
}

// New creates a Program with the six base types registered and surfaced.
func New() *Program {
	p := &Program{
		internStr:  swiss.NewMap[string, *string](uint32(64)),
		typesByKey: swiss.NewMap[string, *types.Type](uint32(64)),
		funcHeads:  make(map[string]*Function),
		moduleVars: make(map[string]*Variable),
	}
	p.Null = p.registerBase(types.Null)
	p.Bool = p.registerBase(types.Bool)
	p.Int = p.registerBase(types.Int)
	p.Float = p.registerBase(types.Float)
	p.String = p.registerBase(types.String)
	p.TypeT = p.registerBase(types.TypeKind)
	return p
}

func (p *Program) registerBase(k types.Kind) *types.Type {
	t := types.NewBase(k)
	p.typesByKey.Put(t.Signature, t)
	p.Types = append(p.Types, t)
	return t
}

// Intern deduplicates s into the string arena and returns a stable pointer
// to the canonical copy; subsequent Interns of an equal string return the
// same pointer, so string equality becomes pointer equality.
func (p *Program) Intern(s string) *string {
	if ptr, ok := p.internStr.Get(s); ok {
		return ptr
	}
	p.strings = append(p.strings, s)
	ptr := &p.strings[len(p.strings)-1]
	p.internStr.Put(s, ptr)
	return ptr
}

// InsertType is the *only* way types are constructed after the base types:
// if a type with t's signature is already interned, the existing pointer is
// returned (and t is discarded); otherwise t itself is appended and
// registered (spec.md §4.B).
func (p *Program) InsertType(t *types.Type) *types.Type {
	if existing, ok := p.typesByKey.Get(t.Signature); ok {
		return existing
	}
	p.typesByKey.Put(t.Signature, t)
	p.Types = append(p.Types, t)
	return t
}

// LookupType returns the interned type with the given signature, if any.
func (p *Program) LookupType(signature string) (*types.Type, bool) {
	return p.typesByKey.Get(signature)
}

// AddFunction appends fn to the function table and links it into the
// overload ring for its name.
func (p *Program) AddFunction(fn *Function) {
	p.Functions = append(p.Functions, fn)
	p.funcHeads[fn.Name] = LinkOverload(p.funcHeads[fn.Name], fn)
}

// FunctionsNamed returns the head of the overload ring for name, or nil.
func (p *Program) FunctionsNamed(name string) *Function {
	return p.funcHeads[name]
}

// AddVariable appends v to the variable table. If a module-scope variable
// with the same name already exists, v.Shadows is set to it and the
// moduleVars entry is updated to the new variable (shadowing).
func (p *Program) AddVariable(v *Variable) {
	p.Variables = append(p.Variables, v)
	if v.Scope == ModuleScope || v.Scope == GlobalScope {
		if prev, ok := p.moduleVars[v.Name]; ok {
			v.Shadows = prev
		}
		p.moduleVars[v.Name] = v
	}
}

// LookupModuleVariable returns the currently-visible module/global variable
// named name, or nil.
func (p *Program) LookupModuleVariable(name string) *Variable {
	return p.moduleVars[name]
}

// UnshadowVariable removes v's binding from the module-scope lookup table,
// restoring whatever it shadowed (or clearing the name entirely) without
// touching the append-only Variables table. Used when a lexical block
// (a top-level if/while/for/begin body) closes and a module-scope local it
// declared goes out of scope.
func (p *Program) UnshadowVariable(v *Variable) {
	if v.Scope != ModuleScope && v.Scope != GlobalScope {
		return
	}
	if v.Shadows != nil {
		p.moduleVars[v.Name] = v.Shadows
	} else {
		delete(p.moduleVars, v.Name)
	}
}

// VisibleIdentifiers returns every name currently resolvable at module
// scope: module/global variables and function names. Used by diagnostics
// for Levenshtein-based "did you mean" suggestions.
func (p *Program) VisibleIdentifiers() []string {
	seen := make(map[string]bool)
	for name := range p.moduleVars {
		seen[name] = true
	}
	for name := range p.funcHeads {
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Locate performs a binary search in the relevant source map (fn's, or the
// module's Main source map when fn is nil) to translate a PC into a 1-based
// source line.
func (p *Program) Locate(fn *Function, pc int) (line int, ok bool) {
	sm := p.MainSource
	if fn != nil {
		sm = fn.SourceMap
	}
	if len(sm) == 0 {
		return 0, false
	}
	lo, hi := 0, len(sm)
	for lo < hi {
		mid := (lo + hi) / 2
		if sm[mid].Addr <= pc {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == 0 {
		return 0, false
	}
	return sm[lo-1].Line, true
}

// Snapshot captures the current length of every append-only container, to
// be restored by Rollback on a failed compile (spec.md §5 "Memory").
type Snapshot struct {
	strings   int
	types     int
	functions int
	variables int
	main      int
	mainSrc   int
	constants int
}

// Snapshot returns the current lengths of all rollback-relevant containers.
func (p *Program) Snapshot() Snapshot {
	return Snapshot{
		strings:   len(p.strings),
		types:     len(p.Types),
		functions: len(p.Functions),
		variables: len(p.Variables),
		main:      len(p.Main),
		mainSrc:   len(p.MainSource),
		constants: len(p.Constants),
	}
}

// Rollback truncates every container back to the lengths recorded in snap,
// undoing every append made since the snapshot was taken, including
// removing any interned types/names added in the interim and unlinking any
// functions from their overload rings.
func (p *Program) Rollback(snap Snapshot) {
	for _, t := range p.Types[snap.types:] {
		p.typesByKey.Delete(t.Signature)
	}
	p.Types = p.Types[:snap.types]

	for _, fn := range p.Functions[snap.functions:] {
		p.unlinkFunction(fn)
	}
	p.Functions = p.Functions[:snap.functions]

	for _, v := range p.Variables[snap.variables:] {
		if v.Scope == ModuleScope || v.Scope == GlobalScope {
			if v.Shadows != nil {
				p.moduleVars[v.Name] = v.Shadows
			} else {
				delete(p.moduleVars, v.Name)
			}
		}
	}
	p.Variables = p.Variables[:snap.variables]

	p.Main = p.Main[:snap.main]
	p.MainSource = p.MainSource[:snap.mainSrc]
	p.Constants = p.Constants[:snap.constants]

	// Interned strings added during the failed compile are left in the
	// arena (harmless: the arena only grows and string pointer identity
	// must remain valid for any surviving references), matching the
	// teacher's append-only arena strategy.
	_ = snap.strings
}

func (p *Program) unlinkFunction(fn *Function) {
	head := p.funcHeads[fn.Name]
	if head == fn && fn.next == fn {
		delete(p.funcHeads, fn.Name)
		return
	}
	fn.prev.next = fn.next
	fn.next.prev = fn.prev
	if head == fn {
		p.funcHeads[fn.Name] = fn.next
	}
}
