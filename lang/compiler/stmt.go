package compiler

import (
	"github.com/blikk-lang/blikk/lang/program"
	"github.com/blikk-lang/blikk/lang/token"
	"github.com/blikk-lang/blikk/lang/types"
)

// stmt ::= "begin" NL block "end" | func_decl | record_decl | enum_decl |
//
//	"return" expr? NL | "let" ("mut")? ident (":" type)? ("=" expr)? NL |
//	"if" expr then_or_block ("else" ("if" expr then_or_block | then_or_block))* "end" |
//	"while" expr then_or_block |
//	"for" ("mut")? ident "in" expr ":" expr then_or_block |
//	"break" NL | "continue" NL | "pass" NL | expr NL
//
// (spec.md §4.D "Statement grammar"). stmt dispatches one statement,
// leaving the value-stack depth unchanged except for exactly the locals a
// "let" declares (spec.md §3 invariant).
func (c *Compiler) stmt() {
	if !c.enterDepth() {
		c.resync()
		return
	}
	defer c.leaveDepth()

	switch c.cur().Kind {
	case token.BEGIN:
		c.beginStmt()
	case token.FUNC:
		c.funcDeclStmt()
	case token.RECORD:
		c.recordDeclStmt()
	case token.ENUM:
		c.enumDeclStmt()
	case token.RETURN:
		c.returnStmt()
	case token.LET:
		c.letStmt()
	case token.IF:
		c.ifStmt()
	case token.WHILE:
		c.whileStmt()
	case token.FOR:
		c.forStmt()
	case token.BREAK:
		c.breakStmt()
	case token.CONTINUE:
		c.continueStmt()
	case token.PASS:
		c.advance()
	default:
		c.exprStmt()
	}
}

// simpleStmt is the reduced statement set allowed right after "do" in a
// then_or_block: return, break, continue, pass, or a bare expression. It
// never opens a nested block, so it needs no depth guard or scope of its
// own beyond what stmt() already established.
func (c *Compiler) simpleStmt() {
	switch c.cur().Kind {
	case token.RETURN:
		c.returnStmt()
	case token.BREAK:
		c.breakStmt()
	case token.CONTINUE:
		c.continueStmt()
	case token.PASS:
		c.advance()
	default:
		c.exprStmt()
	}
}

// blockUntil compiles statements until the next token matches one of
// enders (which it does not consume) or EOF is reached.
func (c *Compiler) blockUntil(enders ...token.Kind) {
	for {
		c.skipEOLs()
		if c.at(token.EOF) {
			c.unexpectedEOF = true
			return
		}
		for _, k := range enders {
			if c.at(k) {
				return
			}
		}
		c.stmt()
		c.diag.EndStatement()
	}
}

func (c *Compiler) beginStmt() {
	c.advance() // "begin"
	c.blockDepth++
	c.skipEOLs()
	mark := c.enterScope()
	c.blockUntil(token.END)
	c.leaveScope(mark)
	c.expect(token.END)
	c.blockDepth--
}

// thenOrBlockLoop parses a then_or_block used as one arm of an if/elif/else
// chain: the block form stops at "end" or "else" without consuming either,
// leaving the enclosing chain to decide whether another arm or the chain's
// own mandatory closing "end" follows.
func (c *Compiler) thenOrBlockLoop() {
	if c.accept(token.DO) {
		c.simpleStmt()
		return
	}
	c.skipEOLs()
	c.blockDepth++
	mark := c.enterScope()
	c.blockUntil(token.END, token.ELSE)
	c.leaveScope(mark)
	c.blockDepth--
}

// thenOrBlockSingle parses a then_or_block used by "while"/"for", whose own
// grammar production has no separate trailing "end": the block form
// consumes its own closing "end"; the do form optionally consumes one too,
// matching source that closes a one-line do-clause explicitly.
func (c *Compiler) thenOrBlockSingle() {
	if c.accept(token.DO) {
		c.simpleStmt()
		c.accept(token.END)
		return
	}
	c.skipEOLs()
	c.blockDepth++
	mark := c.enterScope()
	c.blockUntil(token.END)
	c.leaveScope(mark)
	c.expect(token.END)
	c.blockDepth--
}

func (c *Compiler) exprStmt() {
	v := c.parseExpr(0)
	if v.poisoned || v.typ == nil || v.typ.Size == 0 {
		return
	}
	c.emit(program.Pop, v.typ.Kind, program.IntSlot(int64(v.typ.Size)))
}

// funcDeclStmt consumes a "func" declaration at the main-pass level. It
// re-parses the header (parseType/InsertType are idempotent on repeat
// signatures) to align with the matching *program.Function preparse
// already registered and queued in c.preparsedFuncs, then compiles the
// body. A header that failed during preparse (and so was never queued) or
// one nested below top level has its body skipped instead.
func (c *Compiler) funcDeclStmt() {
	if c.scope != nil || c.curFunc != nil {
		c.errf("functions must be declared at top level")
		c.parseFuncSignature()
		c.skipBlockBody()
		return
	}

	nameTok, params, ret, ok := c.parseFuncSignature()
	if !ok {
		c.skipBlockBody()
		return
	}
	name := *nameTok.Value.Str
	paramTypes := make([]*types.Type, len(params))
	for i, p := range params {
		paramTypes[i] = p.Type
	}
	ft := c.prog.InsertType(types.NewFunction(paramTypes, false, ret))

	if len(c.preparsedFuncs) == 0 || c.preparsedFuncs[0].Name != name || c.preparsedFuncs[0].Type != ft {
		// This prototype was poisoned during preparse: nothing was queued
		// for it, so there is no body to compile.
		c.skipBlockBody()
		return
	}
	fn := c.preparsedFuncs[0]
	c.preparsedFuncs = c.preparsedFuncs[1:]
	c.compileFuncBody(fn)
}

// compileFuncBody compiles fn's body, redirecting c.target/c.targetSrc to
// its IR buffer for the duration. Every Script function's IR begins with a
// single Nop (spec.md §4.E) so that callers, and tail-recursion
// elimination's loop-back jump, may target index 1.
func (c *Compiler) compileFuncBody(fn *program.Function) {
	savedScope, savedFunc, savedOffset := c.scope, c.curFunc, c.localOffset
	savedTarget, savedTargetSrc := c.target, c.targetSrc
	savedBlockDepth := c.blockDepth

	c.scope = newScope(nil)
	c.curFunc = fn
	c.target = &fn.IR
	c.targetSrc = &fn.SourceMap
	c.blockDepth++

	c.emitOp(program.Nop)

	offset := 0
	for i := range fn.Params {
		p := &fn.Params[i]
		v := &program.Variable{Name: p.Name, Type: p.Type, Mut: p.Mut, Scope: program.LocalScope, Offset: offset}
		c.scope.declare(v)
		offset += p.Type.Size
	}
	c.localOffset = offset

	c.skipEOLs()
	c.blockUntil(token.END)
	endTok, _ := c.expect(token.END)

	// A tail-recursive final return is rewritten by tryTailReturn into a
	// Jump back to ir[1], not a Return: control never falls through it
	// either, so Jump counts as a terminator here too.
	ir := *c.target
	if n := len(ir); n == 0 || (ir[n-1].Op != program.Return && ir[n-1].Op != program.Jump) {
		if fn.Type.Func.Return != nil {
			c.errfAt(endTok.Value.Pos, "function %q falls off its end without returning a value", fn.Name)
		} else {
			c.emit(program.Return, types.Null, program.IntSlot(0))
		}
	}

	c.scope, c.curFunc, c.localOffset = savedScope, savedFunc, savedOffset
	c.target, c.targetSrc = savedTarget, savedTargetSrc
	c.blockDepth = savedBlockDepth
}

func (c *Compiler) recordDeclStmt() {
	if c.scope != nil || c.curFunc != nil {
		c.errf("records must be declared at top level")
		c.advance()
		c.resync()
		return
	}
	// Already registered by preparse; re-parsing here would double-add the
	// type/constructor/variable, so just skip over the (header-only)
	// declaration's tokens.
	c.skipRecordHeader()
}

func (c *Compiler) enumDeclStmt() {
	if c.scope != nil || c.curFunc != nil {
		c.errf("enums must be declared at top level")
		c.advance()
		c.resync()
		return
	}
	c.skipEnumDecl()
}

// skipRecordHeader and skipEnumDecl consume an already-preparsed
// record/enum declaration's tokens without touching the program image,
// mirroring preparseFunc's skipBlockBody for funcs.
func (c *Compiler) skipRecordHeader() {
	c.advance() // "record"
	c.advance() // name
	c.skipParenList()
}

func (c *Compiler) skipEnumDecl() {
	c.advance() // "enum"
	c.advance() // name
	c.skipParenList()
}

// skipParenList consumes a "(" ... ")" span (balanced), used to skip an
// already-preparsed record member list or enum label list.
func (c *Compiler) skipParenList() {
	depth := 0
	for {
		switch c.cur().Kind {
		case token.EOF:
			return
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
			if depth == 0 {
				c.advance()
				return
			}
		}
		c.advance()
	}
}

// returnStmt parses "return" expr?, checking the value (if any) against the
// enclosing function's declared return type, then either emits a plain
// Return or rewrites a self-recursive tail call via tryTailReturn.
func (c *Compiler) returnStmt() {
	tok := c.advance() // "return"
	if c.curFunc == nil {
		c.errfAt(tok.Value.Pos, "return outside a function")
	}

	var retType *types.Type
	if c.curFunc != nil {
		retType = c.curFunc.Type.Func.Return
	}

	if c.atStmtEnd() {
		if retType != nil {
			c.errfAt(tok.Value.Pos, "function %q must return a value of type %s", c.curFunc.Name, retType.Signature)
			return
		}
		c.tryTailReturn(0)
		return
	}

	v := c.parseExpr(0)
	if v.poisoned {
		return
	}
	if retType == nil {
		c.errfAt(tok.Value.Pos, "return value given but the enclosing function returns nothing")
		return
	}
	if v.typ != retType {
		c.errfAt(tok.Value.Pos, "cannot return %s, function returns %s", v.typ.Signature, retType.Signature)
		return
	}
	c.tryTailReturn(retType.Size)
}

func (c *Compiler) atStmtEnd() bool {
	return c.at(token.EOL) || c.at(token.SEMI) || c.at(token.EOF) || c.at(token.END) || c.at(token.ELSE)
}

// tryTailReturn implements tail-recursion elimination (spec.md §4.E): if
// the instruction just emitted for the return expression is a direct Call
// to the function currently being compiled, that call is in tail
// position (script functions are never variadic, so no trailing Push of an
// argument count can follow it) and is rewritten into a parameter-slot
// overwrite plus a jump back to the function's first body instruction,
// rather than a real call/return.
func (c *Compiler) tryTailReturn(retSize int) {
	if c.curFunc != nil {
		ir := *c.target
		if n := len(ir); n > 0 && ir[n-1].Op == program.Call && ir[n-1].Arg.Fn == c.curFunc {
			paramsSize := c.curFunc.Type.Func.ParamsSize
			extra := c.localOffset - paramsSize

			c.truncateTo(n - 1)
			c.emit(program.StoreRev, types.Null, program.IntSlot(int64(paramsSize)))
			if extra > 0 {
				c.emit(program.Pop, types.Null, program.IntSlot(int64(extra)))
			}
			c.emit(program.Jump, types.Null, program.IntSlot(1))
			c.curFunc.TRE = true
			return
		}
	}
	c.emit(program.Return, types.Null, program.IntSlot(int64(retSize)))
}

// letStmt parses "let" ("mut")? ident (":" type)? ("=" expr)?. The
// initializer's code (or a PushZero default) is emitted first; its result
// lands exactly at the slot declareLocal is about to assign, since
// compile-time offset allocation tracks runtime execution order 1:1
// (spec.md §3 invariant) — no separate store is needed for the
// declaration itself.
func (c *Compiler) letStmt() {
	tok := c.advance() // "let"
	mut := c.accept(token.MUT)
	nameTok, ok := c.expect(token.IDENT)
	if !ok {
		c.resync()
		return
	}
	name := *nameTok.Value.Str

	var declType *types.Type
	if c.accept(token.COLON) {
		declType = c.parseType()
	}

	hasInit := false
	var init value
	if c.accept(token.SET) {
		hasInit = true
		init = c.parseExpr(0)
	}

	if declType == nil && !hasInit {
		c.errfAt(tok.Value.Pos, "let %q needs either a type annotation or an initializer", name)
		return
	}
	if hasInit && init.poisoned {
		return
	}
	if declType != nil && hasInit && init.typ != declType {
		c.errfAt(tok.Value.Pos, "cannot initialize %s with %s", declType.Signature, init.typ.Signature)
		return
	}

	t := declType
	if t == nil {
		t = init.typ
	}

	if !hasInit {
		if !t.Init0 {
			c.errfAt(tok.Value.Pos, "%s has no default zero value; %q needs an initializer", t.Signature, name)
			return
		}
		c.emit(program.PushZero, t.Kind, program.IntSlot(int64(t.Size)))
	}

	c.declareLocal(name, t, mut)
}

// ifStmt parses "if" expr then_or_block ("else" ("if" expr then_or_block |
// then_or_block))* "end" (spec.md §4.D "Control flow"). Each condition
// arm's BranchIfFalse is patched to the start of the next arm (or past the
// whole chain, for the last arm); every taken arm but the last jumps past
// the remaining arms once its body completes.
func (c *Compiler) ifStmt() {
	ifTok := c.advance() // "if"
	var exitJumps []int

	for {
		cond := c.parseExpr(0)
		c.requireBool(cond, ifTok)
		branchIdx := c.emit(program.BranchIfFalse, types.Null, program.Slot{})
		c.thenOrBlockLoop()

		if c.accept(token.ELSE) {
			exitJumps = append(exitJumps, c.emit(program.Jump, types.Null, program.Slot{}))
			c.patchJump(branchIdx)
			if c.accept(token.IF) {
				continue
			}
			c.thenOrBlockLoop()
			break
		}
		c.patchJump(branchIdx)
		break
	}

	c.expect(token.END)
	for _, idx := range exitJumps {
		c.patchJump(idx)
	}
}

// whileStmt lowers "while" expr then_or_block into the shape described by
// spec.md §4.D: evaluate the condition, branch out if false, run the body,
// then re-emit a copy of the condition's IR (and its slice of the source
// map) followed by a BranchIfTrue back to the first body instruction —
// "do { body } while (cond)" wrapped in a leading guard.
func (c *Compiler) whileStmt() {
	whileTok := c.advance() // "while"
	loop := &loopCtx{bodyMark: c.curOffsetMark()}
	c.loops = append(c.loops, loop)

	condStart := c.irLen()
	srcStart := len(*c.targetSrc)
	cond := c.parseExpr(0)
	c.requireBool(cond, whileTok)
	condEnd := c.irLen()
	srcEnd := len(*c.targetSrc)

	branchIdx := c.emit(program.BranchIfFalse, types.Null, program.Slot{})
	c.thenOrBlockSingle()

	copyStart := c.copyIR(condStart, condEnd, srcStart, srcEnd)
	c.emit(program.BranchIfTrue, types.Null, program.IntSlot(int64(branchIdx+1)))

	c.patchJump(branchIdx)
	for _, idx := range loop.breaks {
		c.patchJump(idx)
	}
	for _, idx := range loop.continues {
		c.patchJumpTo(idx, copyStart)
	}
	c.loops = c.loops[:len(c.loops)-1]
}

// forStmt lowers "for" ("mut")? ident "in" expr ":" expr then_or_block onto
// the same while-shaped loop skeleton, using three hidden Int stack slots
// (start, end, iterator) plus a trailing "iterator += 1" before the
// re-tested condition (spec.md §4.D). The range is half-open: [a, b).
func (c *Compiler) forStmt() {
	forTok := c.advance() // "for"
	mut := c.accept(token.MUT)
	nameTok, ok := c.expect(token.IDENT)
	if !ok {
		c.resync()
		return
	}
	name := *nameTok.Value.Str
	if _, ok := c.expect(token.IN); !ok {
		c.resync()
		return
	}
	a := c.parseExpr(0)
	if _, ok := c.expect(token.COLON); !ok {
		c.resync()
		return
	}
	b := c.parseExpr(0)

	if !a.poisoned && a.typ != c.prog.Int {
		c.errfAt(forTok.Value.Pos, "for range start must be Int, got %s", a.typ.Signature)
	}
	if !b.poisoned && b.typ != c.prog.Int {
		c.errfAt(forTok.Value.Pos, "for range end must be Int, got %s", b.typ.Signature)
	}

	mark := c.enterScope()
	startVar := c.declareLocal(" for.start", c.prog.Int, false)
	endVar := c.declareLocal(" for.end", c.prog.Int, false)
	iterVar := c.declareLocal(name, c.prog.Int, mut)

	// The iterator's initial value is a copy of start, already sitting on
	// the stack right below it.
	c.emit(program.LoadLocal, types.Int, program.IntSlot(int64(startVar.Offset)))

	loop := &loopCtx{bodyMark: c.curOffsetMark()}
	c.loops = append(c.loops, loop)

	condStart := c.irLen()
	srcStart := len(*c.targetSrc)
	c.emit(program.LoadLocal, types.Int, program.IntSlot(int64(iterVar.Offset)))
	c.emit(program.LoadLocal, types.Int, program.IntSlot(int64(endVar.Offset)))
	c.emitOp(program.ILessThan)
	condEnd := c.irLen()
	srcEnd := len(*c.targetSrc)

	branchIdx := c.emit(program.BranchIfFalse, types.Null, program.Slot{})
	c.thenOrBlockSingle()

	incrStart := c.irLen()
	c.emit(program.LoadLocal, types.Int, program.IntSlot(int64(iterVar.Offset)))
	c.emit(program.Push, types.Int, program.IntSlot(1))
	c.emitOp(program.Add)
	c.emit(program.StoreLocal, types.Int, program.IntSlot(int64(iterVar.Offset)))

	c.copyIR(condStart, condEnd, srcStart, srcEnd)
	c.emit(program.BranchIfTrue, types.Null, program.IntSlot(int64(branchIdx+1)))

	c.patchJump(branchIdx)
	for _, idx := range loop.breaks {
		c.patchJump(idx)
	}
	for _, idx := range loop.continues {
		c.patchJumpTo(idx, incrStart)
	}
	c.loops = c.loops[:len(c.loops)-1]
	c.leaveScope(mark)
}

// copyIR re-emits the instructions in [start, end) (and the slice of the
// source map covering them) at the current end of the IR buffer, returning
// the index the copy begins at. Used by while/for to re-test the loop
// condition after the body without re-parsing it.
func (c *Compiler) copyIR(start, end, srcStart, srcEnd int) int {
	cp := append([]program.Instruction(nil), (*c.target)[start:end]...)
	copyStart := c.irLen()
	*c.target = append(*c.target, cp...)
	for _, bp := range (*c.targetSrc)[srcStart:srcEnd] {
		*c.targetSrc = append(*c.targetSrc, program.Breakpoint{Addr: bp.Addr - start + copyStart, Line: bp.Line})
	}
	return copyStart
}

// popToLoopBody emits a Pop of whatever locals have been declared since
// loop's body began (its hidden control locals excluded), so a break or
// continue taken from inside a nested block leaves the stack exactly as
// deep as it was at loop-body entry, matching what the loop's own
// leaveScope/re-iteration already assumes.
func (c *Compiler) popToLoopBody(loop *loopCtx) {
	if n := int(c.curOffsetMark()) - int(loop.bodyMark); n > 0 {
		c.emit(program.Pop, types.Null, program.IntSlot(int64(n)))
	}
}

func (c *Compiler) breakStmt() {
	tok := c.advance()
	if len(c.loops) == 0 {
		c.errfAt(tok.Value.Pos, "break outside a loop")
		return
	}
	loop := c.loops[len(c.loops)-1]
	c.popToLoopBody(loop)
	idx := c.emit(program.Jump, types.Null, program.Slot{})
	loop.breaks = append(loop.breaks, idx)
}

func (c *Compiler) continueStmt() {
	tok := c.advance()
	if len(c.loops) == 0 {
		c.errfAt(tok.Value.Pos, "continue outside a loop")
		return
	}
	loop := c.loops[len(c.loops)-1]
	c.popToLoopBody(loop)
	idx := c.emit(program.Jump, types.Null, program.Slot{})
	loop.continues = append(loop.continues, idx)
}
