package compiler

import (
	"github.com/blikk-lang/blikk/lang/program"
	"github.com/blikk-lang/blikk/lang/types"
)

// emit appends instr to whichever IR buffer (module Main, or the body of
// the function currently being compiled) is active, recording a
// source-map breakpoint whenever the source line changes, and returns the
// instruction's index within that buffer (spec.md §3 "Source map").
func (c *Compiler) emit(op program.Opcode, hint types.Kind, arg program.Slot) int {
	idx := len(*c.target)
	*c.target = append(*c.target, program.Instruction{Op: op, Hint: hint, Arg: arg})
	line := c.curLine()
	sm := *c.targetSrc
	if len(sm) == 0 || sm[len(sm)-1].Line != line {
		*c.targetSrc = append(sm, program.Breakpoint{Addr: idx, Line: line})
	}
	return idx
}

func (c *Compiler) emitOp(op program.Opcode) int { return c.emit(op, types.Null, program.Slot{}) }

func (c *Compiler) irLen() int { return len(*c.target) }

// truncateTo discards every instruction (and matching breakpoint) emitted
// at or after idx. Used to drop a just-emitted lvalue load that a plain
// ":=" assignment turns out not to need (the value is about to be
// overwritten, not read).
func (c *Compiler) truncateTo(idx int) {
	*c.target = (*c.target)[:idx]
	sm := *c.targetSrc
	n := len(sm)
	for n > 0 && sm[n-1].Addr >= idx {
		n--
	}
	*c.targetSrc = sm[:n]
}

// patchJump rewrites the target of the jump-family instruction at idx to
// the current end of the IR buffer.
func (c *Compiler) patchJump(idx int) {
	(*c.target)[idx].Arg = program.IntSlot(int64(c.irLen()))
}

func (c *Compiler) patchJumpTo(idx, addr int) {
	(*c.target)[idx].Arg = program.IntSlot(int64(addr))
}

// blockMark is the locals counter (localOffset inside a function,
// MainNLocals at module scope) captured by enterScope, so the matching
// leaveScope can tell how many slots the block declared.
type blockMark int

// curOffsetMark reads the locals counter currently in effect (localOffset
// inside a function, MainNLocals at module scope) without touching scope.
func (c *Compiler) curOffsetMark() blockMark {
	if c.curFunc != nil {
		return blockMark(c.localOffset)
	}
	return blockMark(c.prog.MainNLocals)
}

// enterScope pushes a new lexical block scope and returns a mark of the
// locals counter at this point, to be passed to the matching leaveScope.
func (c *Compiler) enterScope() blockMark {
	mark := c.curOffsetMark()
	c.scope = newScope(c.scope)
	return mark
}

// leaveScope pops the lexical block scope enterScope pushed, emitting a Pop
// of however many slots its locals occupy and restoring the locals counter
// to mark, then unshadowing any module-scope variable it declared. Without
// this, a block re-executed by an enclosing loop (while/for bodies run
// their IR once per iteration) would push a fresh copy of its locals every
// time while the compile-time offset embedded in LoadLocal/StoreLocal stays
// fixed at the first iteration's slot, leaking stack depth and reading
// stale data (spec.md §3 "value-stack depth" invariant).
func (c *Compiler) leaveScope(mark blockMark) {
	s := c.scope
	c.scope = s.parent

	cur := &c.prog.MainNLocals
	if c.curFunc != nil {
		cur = &c.localOffset
	}
	if n := *cur - int(mark); n > 0 {
		c.emit(program.Pop, types.Null, program.IntSlot(int64(n)))
		*cur = int(mark)
	}
	for _, v := range s.declared {
		c.prog.UnshadowVariable(v)
	}
}

// declareLocal allocates a stack slot for a new local/parameter variable
// and declares it in the current lexical scope, if any. Addressing (module
// vs. frame-relative) is decided by whether a function body is being
// compiled (c.curFunc), not by scope nesting: Main always runs as the bp=0
// frame, so a block nested at top level (an "if"/"while"/"for"/"begin" not
// inside any "func") still addresses its variables the module way, using
// the shared MainNLocals counter, even though it gets its own scope object
// for name shadowing.
func (c *Compiler) declareLocal(name string, t *types.Type, mut bool) *program.Variable {
	v := &program.Variable{Name: name, Type: t, Mut: mut, ReadyAddr: c.irLen()}
	if c.curFunc == nil {
		v.Scope = program.GlobalScope
		v.Offset = c.prog.MainNLocals
		c.prog.MainNLocals += t.Size
		c.prog.AddVariable(v)
	} else {
		v.Scope = program.LocalScope
		v.Offset = c.localOffset
		c.localOffset += t.Size
	}
	if c.scope != nil {
		c.scope.declare(v)
	}
	return v
}

// lookupIdent resolves name against the current scope chain, then module
// scope, returning nil if unresolved.
func (c *Compiler) lookupIdent(name string) *program.Variable {
	if c.scope != nil {
		if v := c.scope.lookup(name); v != nil {
			return v
		}
	}
	return c.prog.LookupModuleVariable(name)
}
