package compiler

import (
	"github.com/blikk-lang/blikk/lang/diag"
	"github.com/blikk-lang/blikk/lang/program"
	"github.com/blikk-lang/blikk/lang/token"
	"github.com/blikk-lang/blikk/lang/types"
)

// parsePrimary parses a literal, parenthesized expression, array literal,
// or identifier reference — the operand a prefix/postfix chain builds on.
func (c *Compiler) parsePrimary() value {
	switch c.cur().Kind {
	case token.INT:
		t := c.advance()
		c.emit(program.Push, types.Int, program.IntSlot(t.Value.Int))
		return value{typ: c.prog.Int}

	case token.FLOAT:
		t := c.advance()
		c.emit(program.Push, types.Float, program.FloatSlot(t.Value.Float))
		return value{typ: c.prog.Float}

	case token.STRING:
		t := c.advance()
		c.emit(program.Push, types.String, program.StringSlot(t.Value.Str))
		return value{typ: c.prog.String}

	case token.TRUE, token.FALSE:
		t := c.advance()
		c.emit(program.Push, types.Bool, program.BoolSlot(t.Kind == token.TRUE))
		return value{typ: c.prog.Bool}

	case token.NULL:
		c.advance()
		c.emit(program.Push, types.Null, program.Slot{})
		return value{typ: c.prog.Null}

	case token.LPAREN:
		c.advance()
		v := c.parseExpr(0)
		c.expect(token.RPAREN)
		return v

	case token.LBRACK:
		return c.parseArrayLiteral()

	case token.IDENT:
		return c.parseIdent()

	default:
		c.errf("unexpected token %#v in expression", c.cur().Kind)
		c.advance()
		return poisonedValue()
	}
}

// parseArrayLiteral parses "[" expr ("," expr)* "]" (spec.md §8 scenario
// 6): every element must share the first element's type, and the elements
// are simply pushed in sequence — that sequence already is the array's
// stack representation.
func (c *Compiler) parseArrayLiteral() value {
	start := c.advance() // "["
	var unit *types.Type
	n := 0
	for !c.at(token.RBRACK) && !c.at(token.EOF) {
		if n > 0 {
			c.expect(token.COMMA)
		}
		el := c.parseExpr(2)
		n++
		if el.poisoned {
			continue
		}
		if unit == nil {
			unit = el.typ
		} else if el.typ != unit {
			c.errfAt(start.Value.Pos, "array elements must share a type, got %s and %s", unit.Signature, el.typ.Signature)
		}
	}
	c.expect(token.RBRACK)
	if unit == nil {
		c.errfAt(start.Value.Pos, "empty array literal needs an explicit type")
		return poisonedValue()
	}
	arr, err := types.NewArray(n, unit)
	if err != nil {
		c.errfAt(start.Value.Pos, "%s", err)
		return poisonedValue()
	}
	return value{typ: c.prog.InsertType(arr)}
}

// parseIdent resolves a bare identifier: a local/global/module variable, a
// (possibly overloaded) function name headed for a call, or a Type
// constant (base type, record, or enum).
func (c *Compiler) parseIdent() value {
	tok := c.advance()
	name := *tok.Value.Str
	v := c.lookupIdent(name)
	if v == nil {
		if !c.diag.Poisoned(name) {
			c.errfAt(tok.Value.Pos, "undefined name %q", name)
			if s := diag.Suggest(name, c.prog.VisibleIdentifiers()); len(s) > 0 {
				msg := "did you mean %q?"
				if s[0].CaseOnly {
					msg = "did you mean %q? (names are case-sensitive)"
				}
				c.diag.Hintf(c.file, tok.Value.Pos, msg, s[0].Name)
			}
		}
		return poisonedValue()
	}
	return c.loadVariable(v)
}

// loadVariable emits the code to push v's current value(s), returning an
// lvalue-capable value (spec.md §4.D "Lvalues").
//
// A Const Function-typed variable (including a record's constructor) is
// special-cased: parseCall resolves such a callee statically and never
// needs its value pushed, so the Push is deferred via fnConst rather than
// emitted eagerly — emitting it here would leave an orphaned stack slot
// behind every direct call. materialize emits it lazily for any other use.
func (c *Compiler) loadVariable(v *program.Variable) value {
	if v.Const && v.Type.Kind == types.Function {
		return value{typ: v.Type, variable: v, fnConst: v}
	}
	if v.Const && v.Type.Size == 1 {
		c.emit(program.Push, v.Type.Kind, v.ConstVal)
		return value{typ: v.Type, variable: v}
	}

	switch v.Scope {
	case program.LocalScope:
		if v.Type.Size == 1 {
			c.emit(program.LoadLocal, v.Type.Kind, program.IntSlot(int64(v.Offset)))
			return value{typ: v.Type, variable: v}
		}
		c.emit(program.LeaLocal, types.Int, program.IntSlot(int64(v.Offset)))
		idx := c.emit(program.LoadIndirect, types.Int, program.IntSlot(int64(v.Type.Size)))
		return value{typ: v.Type, variable: v, indirect: true, loadIdx: idx, indirectN: v.Type.Size}

	default: // ModuleScope / GlobalScope: absolute offset
		if v.Type.Size == 1 {
			c.emit(program.Lea, types.Int, program.IntSlot(int64(v.Offset)))
			idx := c.emit(program.Load, v.Type.Kind, program.Slot{})
			return value{typ: v.Type, variable: v, indirect: true, loadIdx: idx, indirectN: 1}
		}
		c.emit(program.Lea, types.Int, program.IntSlot(int64(v.Offset)))
		idx := c.emit(program.LoadIndirect, types.Int, program.IntSlot(int64(v.Type.Size)))
		return value{typ: v.Type, variable: v, indirect: true, loadIdx: idx, indirectN: v.Type.Size}
	}
}

// parsePostfix chains call/index/member-access/enum-label operations onto
// base, left-associatively. Only the call branch may consume a deferred
// fnConst directly (zero codegen for the callee); every other branch needs
// base's actual value on the stack, so it materializes first.
func (c *Compiler) parsePostfix(base value) value {
	for {
		switch c.cur().Kind {
		case token.LPAREN:
			base = c.parseCall(base)
		case token.LBRACK:
			base = c.parseIndex(c.materialize(base))
		case token.DOT:
			base = c.parseDot(c.materialize(base))
		default:
			return c.materialize(base)
		}
	}
}

// materialize emits the deferred Push for a fnConst value (a Const
// function reference that turned out not to be called directly), and is a
// no-op otherwise.
func (c *Compiler) materialize(v value) value {
	if v.fnConst == nil {
		return v
	}
	c.emit(program.Push, v.typ.Kind, v.fnConst.ConstVal)
	v.fnConst = nil
	return v
}

// parseCall parses "(" args ")" against base, which must be a reference to
// a (possibly overloaded) Function variable, per spec.md §4.D "Overload
// resolution".
func (c *Compiler) parseCall(base value) value {
	open := c.advance() // "("
	if base.poisoned {
		c.skipArgs()
		return poisonedValue()
	}
	fn := base.variable
	if fn == nil || fn.Type.Kind != types.Function {
		c.errfAt(open.Value.Pos, "not callable")
		c.skipArgs()
		return poisonedValue()
	}

	if fn.Name == "typeOf" {
		return c.parseTypeOfCall(open)
	}

	// A variadic native reads every argument past its fixed leading
	// parameters (all of them, for print, printLn and debug) as a reified
	// (Type, value…) pair (spec.md §4.D "Variadic native calls"), so the
	// Type tag must precede each such argument's value on the stack. The
	// value's IR is only known once parseExpr returns, so each such argument
	// is parsed into a scratch IR buffer first; the Type tag is emitted for
	// real, then the scratch buffer is appended after it with its internal
	// jump targets rebased — see appendRebased.
	fnType := fn.ConstVal.Fn.Type.Func

	argsStart := c.irLen()
	var argTypes []*types.Type
	n := 0
	for !c.at(token.RPAREN) && !c.at(token.EOF) {
		if n > 0 {
			c.expect(token.COMMA)
		}
		if fnType.Variadic && n >= len(fnType.Params) {
			arg, tmp, tmpSrc := c.parseScratchExpr()
			n++
			if !arg.poisoned {
				argTypes = append(argTypes, arg.typ)
				c.emit(program.Push, types.Type, program.TypeSlot(arg.typ))
				c.appendRebased(tmp, tmpSrc)
			}
		} else {
			arg := c.parseExpr(2)
			n++
			if !arg.poisoned {
				argTypes = append(argTypes, arg.typ)
			}
		}
	}
	c.expect(token.RPAREN)

	target := fn.ConstVal.Fn.FindOverload(argTypes)
	if target == nil {
		c.errfAt(open.Value.Pos, "no overload of %q matches the given arguments", fn.Name)
		return poisonedValue()
	}
	if target.Mode == program.ModeIntrinsic {
		return c.emitToConversion(target, argTypes[0])
	}

	if target.Type.Func.Variadic {
		fixed := len(target.Type.Func.Params)
		variadicSize := 0
		for i := fixed; i < len(argTypes); i++ {
			variadicSize += 1 + argTypes[i].Size // reified (Type, value…)
		}
		c.emit(program.Push, types.Int, program.IntSlot(int64(target.Type.Func.ParamsSize+variadicSize)))
	}
	c.emit(program.Call, types.Null, program.FuncSlot(target))

	ret := target.Type.Func.Return
	if ret == nil {
		return value{typ: c.prog.Null}
	}
	if target.Mode == program.ModeNative && target.Pure {
		return c.foldCall(value{typ: ret}, argsStart)
	}
	return value{typ: ret}
}

// parseTypeOfCall compiles "typeOf(" expr ")": the argument is parsed (and
// type-checked) normally, but since the result only depends on the
// argument's static type, the IR it emitted is immediately discarded and
// replaced with a single Push of that Type (spec.md §4.D "Variadic native
// calls": "typeOf(x) trims the just-emitted argument IR and replaces it
// with Push Type(T)").
func (c *Compiler) parseTypeOfCall(open token.Token) value {
	start := c.irLen()
	if c.at(token.RPAREN) {
		c.errfAt(open.Value.Pos, "typeOf expects exactly one argument")
		c.expect(token.RPAREN)
		return poisonedValue()
	}
	arg := c.parseExpr(2)
	if c.accept(token.COMMA) {
		c.errfAt(open.Value.Pos, "typeOf expects exactly one argument")
		c.skipArgs()
	}
	c.expect(token.RPAREN)
	if arg.poisoned {
		return poisonedValue()
	}
	c.truncateTo(start)
	c.emit(program.Push, types.Type, program.TypeSlot(arg.typ))
	return value{typ: c.prog.TypeT}
}

// emitToConversion compiles a resolved toInt/toFloat overload: the argument
// is already on the stack (evaluated by parseCall's argument loop), so only
// a same-slot numeric conversion opcode is needed, or nothing at all when
// source and destination types already match (e.g. toInt(Int)).
func (c *Compiler) emitToConversion(target *program.Function, argType *types.Type) value {
	ret := target.Type.Func.Return
	switch {
	case argType == c.prog.Int && ret == c.prog.Float:
		c.emit(program.IntToFloat, types.Float, program.Slot{})
	case argType == c.prog.Float && ret == c.prog.Int:
		c.emit(program.FloatToInt, types.Int, program.Slot{})
	}
	return value{typ: ret}
}

// parseScratchExpr parses one expression into a fresh, self-contained IR
// buffer instead of the live one, mirroring compileFuncBody's save/restore
// of c.target/c.targetSrc. The returned instructions and breakpoints are
// relative to their own buffer (addresses starting at 0) and must be
// rebased with appendRebased before use.
func (c *Compiler) parseScratchExpr() (value, []program.Instruction, []program.Breakpoint) {
	savedTarget, savedTargetSrc := c.target, c.targetSrc
	var tmp []program.Instruction
	var tmpSrc []program.Breakpoint
	c.target = &tmp
	c.targetSrc = &tmpSrc

	v := c.parseExpr(2)

	c.target, c.targetSrc = savedTarget, savedTargetSrc
	return v, tmp, tmpSrc
}

// appendRebased appends a self-contained instruction buffer (as produced by
// parseScratchExpr) onto the live IR buffer, shifting every jump-family
// instruction's absolute target and every breakpoint's Addr by the live
// buffer's current length. Plain (non-control-flow) instructions carry no
// buffer-relative address and need no change.
func (c *Compiler) appendRebased(tmp []program.Instruction, tmpSrc []program.Breakpoint) {
	base := c.irLen()
	for _, instr := range tmp {
		switch instr.Op {
		case program.Jump, program.BranchIfTrue, program.BranchIfFalse, program.SkipIfTrue, program.SkipIfFalse:
			instr.Arg = program.IntSlot(instr.Arg.I + int64(base))
		}
		*c.target = append(*c.target, instr)
	}
	for _, bp := range tmpSrc {
		*c.targetSrc = append(*c.targetSrc, program.Breakpoint{Addr: bp.Addr + base, Line: bp.Line})
	}
}

func (c *Compiler) skipArgs() {
	depth := 1
	for depth > 0 && !c.at(token.EOF) {
		switch c.cur().Kind {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
		}
		c.advance()
	}
}

// parseIndex parses "[" expr ("," expr)* "]" array subscripting, lowering
// multi-dimensional indices left-to-right into nested address arithmetic
// (spec.md §4.D "Postfix operations").
func (c *Compiler) parseIndex(base value) value {
	open := c.advance() // "["
	for {
		base = c.indexOnce(base, open)
		if !c.accept(token.COMMA) {
			break
		}
	}
	c.expect(token.RBRACK)
	return base
}

// indexOnce parses and compiles a single "[idx]" subscript against base.
// upgradeToK (when base is indirect) reuses base's Load/LoadIndirect in
// place but leaves its now-dead loaded slots sitting above the address it
// exposes; those must be popped before the index is parsed and pushed, or
// the index would land on top of them and Add would combine it with the
// last loaded slot instead of with the address (mirrors assignIndirect's
// Pop in assign.go).
func (c *Compiler) indexOnce(base value, at token.Token) value {
	if base.poisoned {
		c.parseExpr(2)
		return poisonedValue()
	}
	if base.typ.Kind != types.Array {
		c.errfAt(at.Value.Pos, "cannot index non-array type %s", base.typ.Signature)
		c.parseExpr(2)
		return poisonedValue()
	}
	if base.indirect {
		c.upgradeToK(base)
		c.emit(program.Pop, base.typ.Kind, program.IntSlot(int64(base.indirectN)))
	}

	idx := c.parseExpr(2)
	if idx.poisoned {
		return poisonedValue()
	}
	if idx.typ != c.prog.Int {
		c.errfAt(at.Value.Pos, "array index must be Int")
		return poisonedValue()
	}

	c.emit(program.CheckIndex, types.Int, program.IntSlot(int64(base.typ.Arr.Len)))
	c.emit(program.Push, types.Int, program.IntSlot(int64(base.typ.Arr.Unit.Size)))
	c.emitOp(program.Multiply) // index * unit.Size
	c.emitOp(program.Add)      // + base addr -> element addr
	unit := base.typ.Arr.Unit
	if unit.Size == 1 {
		idxLoad := c.emit(program.Load, unit.Kind, program.Slot{})
		return value{typ: unit, indirect: true, loadIdx: idxLoad, indirectN: 1}
	}
	idxLoad := c.emit(program.LoadIndirect, types.Int, program.IntSlot(int64(unit.Size)))
	return value{typ: unit, indirect: true, loadIdx: idxLoad, indirectN: unit.Size}
}

// parseDot parses ".name": a record member access, or a "T.Label" enum
// label reference when base is a pushed Type whose type is Enum.
func (c *Compiler) parseDot(base value) value {
	c.advance() // "."
	nameTok, ok := c.expect(token.IDENT)
	if !ok {
		return poisonedValue()
	}
	name := *nameTok.Value.Str
	if base.poisoned {
		return poisonedValue()
	}

	if base.typ == c.prog.TypeT && base.variable != nil && base.variable.ConstVal.Typ.Kind == types.Enum {
		et := base.variable.ConstVal.Typ
		val, ok := et.Enm.ValueOf[name]
		if !ok {
			c.errfAt(nameTok.Value.Pos, "%s has no label %q", et.Signature, name)
			return poisonedValue()
		}
		// the Push that loaded the enum Type constant is dead now that we
		// only needed it to resolve the label; replace it with the label.
		(*c.target)[len(*c.target)-1] = program.Instruction{Op: program.Push, Hint: types.Int, Arg: program.IntSlot(val)}
		return value{typ: et}
	}

	if base.typ.Kind != types.Record {
		c.errfAt(nameTok.Value.Pos, "%s has no member %q", base.typ.Signature, name)
		return poisonedValue()
	}
	var member *types.Member
	for i := range base.typ.Rec.Members {
		if base.typ.Rec.Members[i].Name == name {
			member = &base.typ.Rec.Members[i]
			break
		}
	}
	if member == nil {
		c.errfAt(nameTok.Value.Pos, "%s has no member %q", base.typ.Signature, name)
		return poisonedValue()
	}
	if base.indirect {
		c.upgradeToK(base)
		c.emit(program.Pop, base.typ.Kind, program.IntSlot(int64(base.indirectN)))
	}
	c.emit(program.Push, types.Int, program.IntSlot(int64(member.Offset)))
	c.emitOp(program.Add)
	if member.Type.Size == 1 {
		idx := c.emit(program.Load, member.Type.Kind, program.Slot{})
		return value{typ: member.Type, indirect: true, loadIdx: idx, indirectN: 1}
	}
	idx := c.emit(program.LoadIndirect, types.Int, program.IntSlot(int64(member.Type.Size)))
	return value{typ: member.Type, indirect: true, loadIdx: idx, indirectN: member.Type.Size}
}

// upgradeToK rewrites an already-emitted Load/LoadIndirect into its
// address-preserving *K form, used when a further postfix operation (index/
// member/assignment) needs the address that produced v's value
// (spec.md §4.D "Lvalues and assignment").
func (c *Compiler) upgradeToK(v value) {
	instr := &(*c.target)[v.loadIdx]
	switch instr.Op {
	case program.Load:
		instr.Op = program.LoadIndirectK
		instr.Arg = program.IntSlot(1)
	case program.LoadIndirect:
		instr.Op = program.LoadIndirectK
	}
}
