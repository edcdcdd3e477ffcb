// Package compiler implements blikk's single-pass compiler (spec.md §4.D):
// preparse of top-level prototypes, a precedence-climbing expression parser
// with constant folding via a re-entrant VM, statement lowering for control
// flow, tail-recursion elimination, and the REPL incremental-compile
// contract. It runs against a shared *program.Program, appending IR and
// rolling every container back to a pre-call snapshot on failure.
package compiler

import (
	"fmt"

	"github.com/blikk-lang/blikk/lang/diag"
	"github.com/blikk-lang/blikk/lang/lexer"
	"github.com/blikk-lang/blikk/lang/program"
	"github.com/blikk-lang/blikk/lang/token"
	"github.com/blikk-lang/blikk/lang/types"
	"github.com/blikk-lang/blikk/lang/vm"
)

// maxParseDepth bounds recursive-descent/expression recursion to defend
// against pathological nesting (spec.md §5 "Stack sizing").
const maxParseDepth = 64

// FuncFlag is one of the capability flags a host may grant a native
// function when registering it (spec.md §6 "compiler.add_function").
type FuncFlag uint8

const (
	// Pure functions are foldable: the compiler may invoke them at compile
	// time to fold a constant expression.
	Pure FuncFlag = 1 << iota
	// NoSideEffect is recorded on the registered Function
	// (Function.NoSideEffect); the compiler does not read it, so a call to
	// such a function compiles like any other call.
	NoSideEffect
)

// Report is returned by Compile; it mirrors spec.md §6's CompileReport so a
// REPL host can distinguish "needs another line" from a hard parse failure.
type Report struct {
	UnexpectedEOF bool
	Depth         int // current open-block depth, for indenting a continuation prompt
}

// Compiler compiles blikk source against a shared Program, per spec.md
// §4.D. A single Compiler may be reused across many Compile calls (the REPL
// use case): each call snapshots the Program first and rolls back on
// failure, leaving prior successful compiles untouched.
type Compiler struct {
	prog *program.Program
	diag *diag.Bag
	fold *vm.Machine

	file string
	toks []token.Token
	pos  int
	src  []byte

	depth      int // recursion depth guard
	blockDepth int // open begin/if/while/for/func/record block count, for REPL indenting

	scope       *scope // current lexical scope, nil at module scope
	curFunc     *program.Function
	localOffset int // next free local-frame slot offset within curFunc
	loops       []*loopCtx

	// preparsedFuncs holds script functions registered by preparse, in
	// declaration order; the main statement pass dequeues them instead of
	// re-registering when it reaches each func_decl's body.
	preparsedFuncs []*program.Function

	// target/targetSrc point at whichever IR buffer (Program.Main or the
	// current function's IR) statements currently append to.
	target    *[]program.Instruction
	targetSrc *[]program.Breakpoint

	unexpectedEOF bool
}

type loopCtx struct {
	breaks, continues []int // pending jump instruction indices to patch at loop exit/head

	// bodyMark is the locals counter at the point the loop body begins
	// (after any hidden loop-control locals, e.g. "for"'s start/end/iter).
	// break/continue must pop back down to this mark before jumping, since
	// they leave whatever locals the body declared up to that point behind.
	bodyMark blockMark
}

// New creates a Compiler bound to prog, registering the six base types as
// module-scope Type constants the first time a given Program sees a
// Compiler (spec.md §4.B "surfaced as module-scope constants"). The same
// Compiler may be reused for successive REPL-style Compile calls.
func New(prog *program.Program) *Compiler {
	if prog.LookupModuleVariable("Int") == nil {
		for _, t := range []*types.Type{prog.Null, prog.Bool, prog.Int, prog.Float, prog.String, prog.TypeT} {
			prog.AddVariable(&program.Variable{
				Name: t.Signature, Type: prog.TypeT, Scope: program.ModuleScope,
				Const: true, ConstVal: program.TypeSlot(t),
			})
		}
	}
	c := &Compiler{prog: prog, fold: vm.New(prog)}
	if prog.LookupModuleVariable("typeOf") == nil {
		c.registerIntrinsics()
	}
	return c
}

// Program returns the Program this Compiler is bound to, so a host package
// registering native functions (lang/stdlib) can resolve base types for use
// in AddGlobal without reaching into compiler internals.
func (c *Compiler) Program() *program.Program { return c.prog }

// AddFunction registers a native function under the given human prototype
// string ("name(T1, T2): R", "name(…)" for variadic, or "name(T1, …)" with
// a literal "..." trailing parameter), per spec.md §6.
func (c *Compiler) AddFunction(prototype string, flags FuncFlag, native program.Native) (*program.Function, error) {
	name, params, variadic, ret, err := parsePrototype(c.prog, prototype)
	if err != nil {
		return nil, err
	}
	ft := c.prog.InsertType(types.NewFunction(params, variadic, ret))
	fn := &program.Function{
		Name: name, Prototype: prototype, Type: ft, Mode: program.ModeNative, NativeFn: native,
		Valid: true, Pure: flags&Pure != 0, NoSideEffect: flags&NoSideEffect != 0,
	}
	fn.Params = make([]program.Param, len(params))
	for i, p := range params {
		fn.Params[i] = program.Param{Name: fmt.Sprintf("arg%d", i), Type: p}
	}
	if program.HasConflictingOverload(c.prog.FunctionsNamed(name), params) {
		return nil, fmt.Errorf("compiler: function %q already has an overload with this parameter list", name)
	}
	c.prog.AddFunction(fn)
	v := &program.Variable{Name: name, Type: ft, Scope: program.ModuleScope, Const: true, ConstVal: program.FuncSlot(fn)}
	c.prog.AddVariable(v)
	return fn, nil
}

// AddGlobal installs a module-scope constant or mutable global, per
// spec.md §6 "compiler.add_global".
func (c *Compiler) AddGlobal(name string, t *types.Type, values []program.Slot, mut bool) (*program.Variable, error) {
	if t.Size != len(values) {
		return nil, fmt.Errorf("compiler: global %q of type %s needs %d slots, got %d", name, t.Signature, t.Size, len(values))
	}
	offset := c.prog.MainNLocals
	c.prog.MainNLocals += t.Size
	v := &program.Variable{Name: name, Type: t, Mut: mut, Scope: program.GlobalScope, Offset: offset, ReadyAddr: 0}
	if !mut && t.Size == 1 {
		v.Const = true
		v.ConstVal = values[0]
	}
	c.prog.AddVariable(v)
	for i, val := range values {
		c.prog.Main = append(c.prog.Main, program.Instruction{Op: program.Push, Arg: program.IntSlot(int64(offset + i))})
		c.prog.Main = append(c.prog.Main, program.Instruction{Op: program.Push, Arg: val})
		c.prog.Main = append(c.prog.Main, program.Instruction{Op: program.Store})
	}
	return v, nil
}

// AddOpaque registers a new opaque (host-defined one-slot pointer) type and
// binds its name as a module-scope Type constant, so source type
// annotations can name it.
func (c *Compiler) AddOpaque(name string) *types.Type {
	t := c.prog.InsertType(types.NewOpaque(name))
	c.prog.AddVariable(&program.Variable{
		Name: name, Type: c.prog.TypeT, Scope: program.ModuleScope,
		Const: true, ConstVal: program.TypeSlot(t),
	})
	return t
}

// Compile lexes and compiles source against the bound Program, appending
// new IR on success. On any failure, every container touched is rolled
// back to its pre-call state (spec.md §5 "Memory").
func (c *Compiler) Compile(source []byte, filename string) (Report, error) {
	snap := c.prog.Snapshot()

	tf, lexErr := lexer.Scan(c.prog, filename, source)
	c.file = filename
	c.src = source
	if tf != nil {
		c.toks = tf.Tokens
	}
	c.pos = 0
	c.depth = 0
	c.blockDepth = 0
	c.scope = nil
	c.curFunc = nil
	c.target = &c.prog.Main
	c.targetSrc = &c.prog.MainSource
	c.diag = diag.NewBag()
	c.unexpectedEOF = false
	c.preparsedFuncs = nil
	c.loops = nil

	if lexErr != nil {
		c.diag.Errorf(filename, token.Pos(0), "%s", lexErr)
	}

	if err := c.preparse(tf); err != nil {
		c.prog.Rollback(snap)
		return Report{}, err
	}

	for !c.at(token.EOF) {
		c.skipEOLs()
		if c.at(token.EOF) {
			break
		}
		c.stmt()
		c.diag.EndStatement()
	}

	report := Report{UnexpectedEOF: c.unexpectedEOF, Depth: c.blockDepth}
	if c.diag.HasErrors() {
		c.prog.Rollback(snap)
		return report, c.diag.Err()
	}
	if err := c.endMain(); err != nil {
		c.prog.Rollback(snap)
		return report, err
	}
	return report, nil
}

// endMain appends the closing End of main, carrying the number of live
// globals (spec.md §3 invariant). The VM does not compare that count with
// the actual stack depth.
func (c *Compiler) endMain() error {
	c.prog.Main = append(c.prog.Main, program.Instruction{Op: program.End, Arg: program.IntSlot(int64(c.prog.MainNLocals))})
	return nil
}
