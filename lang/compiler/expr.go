package compiler

import (
	"github.com/blikk-lang/blikk/lang/program"
	"github.com/blikk-lang/blikk/lang/token"
	"github.com/blikk-lang/blikk/lang/types"
)

// value is the compiler's expression-stack entry (spec.md §4.D "Expression
// parsing"): the static type of the just-emitted code, plus enough lvalue
// bookkeeping to support assignment. variable is non-nil when the
// expression is a bare variable reference; loadIdx/indirect mark a
// just-emitted Load/LoadIndirect that assignment may need to rewrite into
// its *K (address-preserving) form.
type value struct {
	typ       *types.Type
	poisoned  bool
	start     int // IR index where this value's own code began, for folding/truncation
	variable  *program.Variable
	indirect  bool
	loadIdx   int // index of the Load/LoadIndirect instruction, when indirect
	indirectN int // slot count loaded, when indirect
	fnConst   *program.Variable // set instead of emitting a Push, for a Const function reference that may be a direct call
}

func poisonedValue() value { return value{poisoned: true} }

// assignOps is the set of token kinds parsed as assignment operators
// (spec.md §4.D precedence table, row 0); all are right-associative and
// require an lvalue on the left.
var assignOps = map[token.Kind]bool{
	token.ASSIGN: true, token.PLUSEQ: true, token.MINUSEQ: true, token.STAREQ: true,
	token.SLASHEQ: true, token.PERCENTEQ: true, token.LTLTEQ: true, token.GTGTEQ: true,
	token.LTLTLTEQ: true, token.GTGTGTEQ: true, token.AMPEQ: true, token.PIPEEQ: true, token.TILDEEQ: true,
}

// binPrec reports the precedence and associativity of k used as an infix
// operator, per the table in spec.md §4.D. ok is false for tokens that
// never appear in infix position.
func binPrec(k token.Kind) (prec int, rightAssoc, ok bool) {
	switch {
	case assignOps[k]:
		return 0, true, true
	case k == token.OR || k == token.OROR:
		return 2, false, true
	case k == token.AND || k == token.ANDAND:
		return 3, false, true
	case k == token.EQ || k == token.NE:
		return 5, false, true
	case k == token.LT || k == token.LE || k == token.GT || k == token.GE:
		return 6, false, true
	case k == token.PIPE:
		return 7, false, true
	case k == token.TILDE:
		return 8, false, true
	case k == token.AMP:
		return 9, false, true
	case k == token.LTLT || k == token.GTGT || k == token.LTLTLT || k == token.GTGTGT:
		return 10, false, true
	case k == token.PLUS || k == token.MINUS:
		return 11, false, true
	case k == token.STAR || k == token.SLASH || k == token.PERCENT:
		return 12, false, true
	default:
		return 0, false, false
	}
}

// parseExpr climbs the precedence table starting at minPrec (spec.md §4.D
// "precedence climbing + shunting"). The recursive structure of
// parsePrefix/parseExpr replaces the spec's explicit expect_value flag:
// prefix operators are only ever reached where an operand is expected.
func (c *Compiler) parseExpr(minPrec int) value {
	if !c.enterDepth() {
		return poisonedValue()
	}
	defer c.leaveDepth()

	startIdx := c.irLen()
	left := c.parsePrefix()
	for {
		left.start = startIdx
		prec, rightAssoc, ok := binPrec(c.cur().Kind)
		if !ok || prec < minPrec {
			return left
		}
		op := c.advance()

		if assignOps[op.Kind] {
			left = c.parseAssign(left, op, startIdx)
			continue
		}

		if op.Kind == token.AND || op.Kind == token.ANDAND {
			left = c.parseShortCircuit(left, op, program.SkipIfFalse)
			continue
		}
		if op.Kind == token.OR || op.Kind == token.OROR {
			left = c.parseShortCircuit(left, op, program.SkipIfTrue)
			continue
		}

		nextMin := prec + 1
		if rightAssoc {
			nextMin = prec
		}
		right := c.parseExpr(nextMin)
		left = c.combine(left, op, right)
	}
}

// parseShortCircuit implements "and"/"or" (spec.md §4.D): a Skip
// instruction is emitted right after the left operand, and patched once
// the right operand's code (reached only when needed) has been emitted.
func (c *Compiler) parseShortCircuit(left value, op token.Token, skip program.Opcode) value {
	if !c.requireBool(left, op) {
		left = poisonedValue()
	}
	skipIdx := c.emitOp(skip)
	prec, _, _ := binPrec(op.Kind)
	right := c.parseExpr(prec + 1) // so "or"'s right operand takes a whole "and" chain
	if !c.requireBool(right, op) {
		right = poisonedValue()
	}
	c.patchJump(skipIdx)
	return value{typ: c.prog.Bool}
}

func (c *Compiler) requireBool(v value, op token.Token) bool {
	if v.poisoned {
		return false
	}
	if v.typ != c.prog.Bool {
		c.errfAt(op.Value.Pos, "operand of %#v must be Bool", op.Kind)
		return false
	}
	return true
}

// parsePrefix parses a unary prefix operator ("not" at prec 4, "+ - ~" at
// prec 13) or falls through to a primary expression followed by postfix
// operations.
func (c *Compiler) parsePrefix() value {
	switch c.cur().Kind {
	case token.NOT:
		op := c.advance()
		operand := c.parseExpr(5)
		if operand.poisoned {
			return poisonedValue()
		}
		if operand.typ != c.prog.Bool {
			c.errfAt(op.Value.Pos, "operand of %#v must be Bool", op.Kind)
			return poisonedValue()
		}
		c.emitOp(program.NotBool)
		return c.foldTail(value{typ: c.prog.Bool}, operand.start)

	case token.PLUS, token.MINUS, token.TILDE:
		op := c.advance()
		operand := c.parseExpr(13)
		return c.combineUnary(op, operand)

	default:
		return c.parsePostfix(c.parsePrimary())
	}
}

func (c *Compiler) combineUnary(op token.Token, operand value) value {
	if operand.poisoned {
		return poisonedValue()
	}
	switch {
	case operand.typ == c.prog.Int:
		switch op.Kind {
		case token.PLUS:
			return operand
		case token.MINUS:
			c.emitOp(program.Negate)
		case token.TILDE:
			c.emitOp(program.BitComplement)
		}
		return c.foldTail(value{typ: c.prog.Int}, operand.start)
	case operand.typ == c.prog.Float && op.Kind != token.TILDE:
		if op.Kind == token.MINUS {
			c.emitOp(program.FNegate)
		}
		return c.foldTail(value{typ: c.prog.Float}, operand.start)
	default:
		c.errfAt(op.Value.Pos, "invalid operand type for unary %#v", op.Kind)
		return poisonedValue()
	}
}

// combine emits the instruction for a fully-parsed binary operator. blikk
// has no implicit Int/Float coercion (conversion is explicit via toInt/
// toFloat), so both operands must already share a type.
func (c *Compiler) combine(left value, op token.Token, right value) value {
	if left.poisoned || right.poisoned {
		return poisonedValue()
	}
	if left.typ != right.typ {
		c.errfAt(op.Value.Pos, "mismatched operand types %s and %s", left.typ.Signature, right.typ.Signature)
		return poisonedValue()
	}
	t := left.typ

	switch op.Kind {
	case token.PLUS:
		switch t {
		case c.prog.Int:
			c.emitOp(program.Add)
		case c.prog.Float:
			c.emitOp(program.FAdd)
		case c.prog.String:
			c.emitOp(program.StringConcat)
		default:
			c.errfAt(op.Value.Pos, "operator + not defined for %s", t.Signature)
			return poisonedValue()
		}
		return c.foldTail(value{typ: t}, left.start)

	case token.MINUS, token.STAR, token.SLASH, token.PERCENT:
		if t != c.prog.Int && t != c.prog.Float {
			c.errfAt(op.Value.Pos, "operator %#v not defined for %s", op.Kind, t.Signature)
			return poisonedValue()
		}
		c.emitOp(arithOp(op.Kind, t == c.prog.Float))
		return c.foldTail(value{typ: t}, left.start)

	case token.EQ, token.NE:
		c.emitOp(eqOp(op.Kind, t))
		return c.foldTail(value{typ: c.prog.Bool}, left.start)

	case token.LT, token.LE, token.GT, token.GE:
		if t != c.prog.Int && t != c.prog.Float {
			c.errfAt(op.Value.Pos, "operator %#v not defined for %s", op.Kind, t.Signature)
			return poisonedValue()
		}
		c.emitOp(cmpOp(op.Kind, t == c.prog.Float))
		return c.foldTail(value{typ: c.prog.Bool}, left.start)

	case token.PIPE, token.TILDE, token.AMP, token.LTLT, token.GTGT, token.LTLTLT, token.GTGTGT:
		if t != c.prog.Int {
			c.errfAt(op.Value.Pos, "operator %#v requires Int operands", op.Kind)
			return poisonedValue()
		}
		c.emitOp(bitOp(op.Kind))
		return c.foldTail(value{typ: c.prog.Int}, left.start)

	default:
		c.errfAt(op.Value.Pos, "unexpected operator %#v", op.Kind)
		return poisonedValue()
	}
}

func arithOp(k token.Kind, float bool) program.Opcode {
	switch k {
	case token.MINUS:
		if float {
			return program.FSubtract
		}
		return program.Subtract
	case token.STAR:
		if float {
			return program.FMultiply
		}
		return program.Multiply
	case token.SLASH:
		if float {
			return program.FDivide
		}
		return program.Divide
	default: // PERCENT: Int only
		return program.Modulo
	}
}

func eqOp(k token.Kind, t *types.Type) program.Opcode {
	switch t.Kind {
	case types.Int, types.Enum:
		if t.Kind == types.Enum {
			if k == token.EQ {
				return program.EnumEqual
			}
			return program.EnumNotEqual
		}
		if k == token.EQ {
			return program.IEqual
		}
		return program.INotEqual
	case types.Float:
		if k == token.EQ {
			return program.FEqual
		}
		return program.FNotEqual
	case types.String:
		if k == token.EQ {
			return program.StringEqual
		}
		return program.StringNotEqual
	case types.TypeKind:
		if k == token.EQ {
			return program.TypeEqual
		}
		return program.TypeNotEqual
	case types.Function, types.Record:
		if k == token.EQ {
			return program.FuncEqual
		}
		return program.FuncNotEqual
	default: // Bool, Null
		if k == token.EQ {
			return program.BoolEqual
		}
		return program.BoolNotEqual
	}
}

func cmpOp(k token.Kind, float bool) program.Opcode {
	switch k {
	case token.LT:
		if float {
			return program.FLessThan
		}
		return program.ILessThan
	case token.LE:
		if float {
			return program.FLessOrEqual
		}
		return program.ILessOrEqual
	case token.GT:
		if float {
			return program.FGreaterThan
		}
		return program.IGreaterThan
	default: // GE
		if float {
			return program.FGreaterOrEqual
		}
		return program.IGreaterOrEqual
	}
}

func bitOp(k token.Kind) program.Opcode {
	switch k {
	case token.PIPE:
		return program.BitOr
	case token.TILDE:
		return program.BitXor
	case token.AMP:
		return program.BitAnd
	case token.LTLT:
		return program.LeftShift
	case token.GTGT:
		return program.RightShift
	case token.LTLTLT:
		return program.LeftRotate
	default: // GTGTGT
		return program.RightRotate
	}
}
