package compiler

import (
	"github.com/blikk-lang/blikk/lang/program"
	"github.com/blikk-lang/blikk/lang/token"
)

// compoundBase maps a compound-assignment token to the binary operator it
// combines with the existing value (spec.md §4.D "Lvalues and
// assignment").
var compoundBase = map[token.Kind]token.Kind{
	token.PLUSEQ: token.PLUS, token.MINUSEQ: token.MINUS, token.STAREQ: token.STAR,
	token.SLASHEQ: token.SLASH, token.PERCENTEQ: token.PERCENT,
	token.LTLTEQ: token.LTLT, token.GTGTEQ: token.GTGT,
	token.LTLTLTEQ: token.LTLTLT, token.GTGTGTEQ: token.GTGTGT,
	token.AMPEQ: token.AMP, token.PIPEEQ: token.PIPE, token.TILDEEQ: token.TILDE,
}

// parseAssign compiles an assignment whose operator was just consumed; left
// is the lvalue chain parsed immediately before it (starting at IR index
// startIdx, before any load code for it was emitted). Assignment is itself
// an expression: the stored value is left on the stack as the result, via
// the *K store variants (spec.md §4.D).
func (c *Compiler) parseAssign(left value, op token.Token, startIdx int) value {
	if left.poisoned {
		c.parseExpr(0)
		return poisonedValue()
	}
	if left.variable != nil && !left.indirect && !left.variable.Mut {
		c.errfAt(op.Value.Pos, "cannot assign to non-mut variable %q", left.variable.Name)
		c.parseExpr(0)
		return poisonedValue()
	}
	if left.variable == nil && !left.indirect {
		c.errfAt(op.Value.Pos, "expression is not assignable")
		c.parseExpr(0)
		return poisonedValue()
	}

	if left.variable != nil {
		left.variable.Const = false
	}

	switch {
	case left.indirect:
		return c.assignIndirect(left, op)
	default:
		return c.assignLocal(left, op, startIdx)
	}
}

// assignLocal handles the LocalScope, single-slot fast path (LoadLocal /
// StoreLocalK), where the variable's address is a static frame offset.
func (c *Compiler) assignLocal(left value, op token.Token, startIdx int) value {
	v := left.variable
	if base, ok := compoundBase[op.Kind]; ok {
		rhs := c.parseExpr(0)
		result := c.combine(value{typ: left.typ}, token.Token{Kind: base, Value: op.Value}, rhs)
		if result.poisoned {
			return poisonedValue()
		}
		c.emit(program.StoreLocalK, v.Type.Kind, program.IntSlot(int64(v.Offset)))
		return value{typ: v.Type}
	}

	// plain ":=": the load just emitted for left is dead, the new value
	// replaces it outright.
	c.truncateTo(startIdx)
	rhs := c.parseExpr(0)
	if rhs.poisoned {
		return poisonedValue()
	}
	if rhs.typ != left.typ {
		c.errfAt(op.Value.Pos, "cannot assign %s to %s", rhs.typ.Signature, v.Type.Signature)
		return poisonedValue()
	}
	c.emit(program.StoreLocalK, v.Type.Kind, program.IntSlot(int64(v.Offset)))
	return value{typ: v.Type}
}

// assignIndirect handles module/global scalars and array/member targets,
// all addressed through a computed address kept on the stack beneath the
// loaded value (spec.md §4.D: "rewrites the LoadIndirect into
// LoadIndirectK... emits StoreIndirectK/StoreRevK").
func (c *Compiler) assignIndirect(left value, op token.Token) value {
	c.upgradeToK(left)

	if base, ok := compoundBase[op.Kind]; ok {
		rhs := c.parseExpr(0)
		result := c.combine(value{typ: left.typ}, token.Token{Kind: base, Value: op.Value}, rhs)
		if result.poisoned {
			return poisonedValue()
		}
		c.emit(program.StoreIndirectK, left.typ.Kind, program.IntSlot(int64(left.indirectN)))
		return value{typ: left.typ}
	}

	c.emit(program.Pop, left.typ.Kind, program.IntSlot(int64(left.indirectN)))
	rhs := c.parseExpr(0)
	if rhs.poisoned {
		return poisonedValue()
	}
	if rhs.typ != left.typ {
		c.errfAt(op.Value.Pos, "cannot assign %s to %s", rhs.typ.Signature, left.typ.Signature)
		return poisonedValue()
	}
	c.emit(program.StoreIndirectK, left.typ.Kind, program.IntSlot(int64(left.indirectN)))
	return value{typ: left.typ}
}
