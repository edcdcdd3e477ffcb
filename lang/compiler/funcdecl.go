package compiler

import (
	"github.com/blikk-lang/blikk/lang/program"
	"github.com/blikk-lang/blikk/lang/token"
	"github.com/blikk-lang/blikk/lang/types"
)

// parseFuncSignature parses "func" ident "(" params ")" (":" type)? and
// returns its pieces without touching the program image; both preparse
// (which registers the Function) and the main statement pass (which only
// needs to skip back over already-registered header tokens before
// dequeuing the real *program.Function) drive it.
func (c *Compiler) parseFuncSignature() (nameTok token.Token, params []program.Param, ret *types.Type, ok bool) {
	c.advance() // "func"
	nameTok, ok = c.expect(token.IDENT)
	if !ok {
		return
	}
	name := *nameTok.Value.Str

	if _, ok = c.expect(token.LPAREN); !ok {
		return
	}
	for !c.at(token.RPAREN) && !c.at(token.EOF) {
		if len(params) > 0 {
			if _, ok = c.expect(token.COMMA); !ok {
				return
			}
		}
		mut := c.accept(token.MUT)
		var pname token.Token
		pname, ok = c.expect(token.IDENT)
		if !ok {
			return
		}
		if _, ok = c.expect(token.COLON); !ok {
			return
		}
		pt := c.parseType()
		if pt == nil {
			ok = false
			return
		}
		params = append(params, program.Param{Name: *pname.Value.Str, Type: pt, Mut: mut})
	}
	if _, ok = c.expect(token.RPAREN); !ok {
		return
	}
	if len(params) > types.MaxParams {
		c.errfAt(nameTok.Value.Pos, "function %q exceeds maximum of %d parameters", name, types.MaxParams)
		ok = false
		return
	}

	if c.accept(token.COLON) {
		ret = c.parseType()
	}
	ok = true
	return
}

// parseFuncHeader parses a func prototype and registers the resulting
// Function (mode Script), its Type, and (on first occurrence of the name)
// a module-scope variable binding the name so later overloads and forward
// references resolve. The cursor is left positioned just after the return
// type (or parameter list), before the header's trailing end-of-line.
func (c *Compiler) parseFuncHeader() (*program.Function, bool) {
	nameTok, params, ret, ok := c.parseFuncSignature()
	if !ok {
		return nil, false
	}
	name := *nameTok.Value.Str

	paramTypes := make([]*types.Type, len(params))
	for i, p := range params {
		paramTypes[i] = p.Type
	}
	ft := c.prog.InsertType(types.NewFunction(paramTypes, false, ret))

	if program.HasConflictingOverload(c.prog.FunctionsNamed(name), paramTypes) {
		c.errfAt(nameTok.Value.Pos, "%q already has an overload with this parameter list", name)
		return nil, false
	}

	fn := &program.Function{
		Name: name, Prototype: funcPrototype(name, params, ret), Type: ft,
		Params: params, Mode: program.ModeScript, Valid: true,
	}
	c.prog.AddFunction(fn)
	if c.prog.LookupModuleVariable(name) == nil {
		c.prog.AddVariable(&program.Variable{
			Name: name, Type: ft, Scope: program.ModuleScope, Const: true, ConstVal: program.FuncSlot(fn),
		})
	}
	return fn, true
}

func funcPrototype(name string, params []program.Param, ret *types.Type) string {
	paramTypes := make([]*types.Type, len(params))
	for i, p := range params {
		paramTypes[i] = p.Type
	}
	return name + types.FunctionSignature(paramTypes, false, ret)[len("func "):]
}

// parseRecordHeader parses "record" ident "(" members ")" and registers the
// Record type plus its synthesized mode-Record constructor Function and
// module variable.
func (c *Compiler) parseRecordHeader() bool {
	c.advance() // "record"
	nameTok, ok := c.expect(token.IDENT)
	if !ok {
		return false
	}
	name := *nameTok.Value.Str

	if _, ok := c.expect(token.LPAREN); !ok {
		return false
	}
	var memberNames []string
	var memberTypes []*types.Type
	for !c.at(token.RPAREN) && !c.at(token.EOF) {
		if len(memberNames) > 0 {
			if _, ok := c.expect(token.COMMA); !ok {
				return false
			}
		}
		mname, ok := c.expect(token.IDENT)
		if !ok {
			return false
		}
		if _, ok := c.expect(token.COLON); !ok {
			return false
		}
		mt := c.parseType()
		if mt == nil {
			return false
		}
		memberNames = append(memberNames, *mname.Value.Str)
		memberTypes = append(memberTypes, mt)
	}
	if _, ok := c.expect(token.RPAREN); !ok {
		return false
	}

	rt, err := types.NewRecord(name, memberNames, memberTypes)
	if err != nil {
		c.errfAt(nameTok.Value.Pos, "%s", err)
		return false
	}
	rt = c.prog.InsertType(rt)

	params := make([]program.Param, len(memberNames))
	paramTypes := make([]*types.Type, len(memberNames))
	for i := range memberNames {
		params[i] = program.Param{Name: memberNames[i], Type: memberTypes[i]}
		paramTypes[i] = memberTypes[i]
	}
	ctorType := c.prog.InsertType(types.NewFunction(paramTypes, false, rt))
	ctor := &program.Function{
		Name: name, Prototype: name + types.FunctionSignature(paramTypes, false, rt)[len("func "):],
		Type: ctorType, Params: params, Mode: program.ModeRecord, Valid: true, Pure: true,
	}
	c.prog.AddFunction(ctor)
	// The record name resolves as its constructor Function in call
	// position; parseType special-cases a ModeRecord function variable to
	// recover the record Type for type position, so only one module
	// variable per record name is needed.
	c.prog.AddVariable(&program.Variable{
		Name: name, Type: ctorType, Scope: program.ModuleScope, Const: true, ConstVal: program.FuncSlot(ctor),
	})
	return true
}

// parseEnumDecl parses "enum" ident "(" ident ("," ident)* ")" and
// registers the Enum type and its module variable (spec.md §8 scenario 5:
// "enum Color (Red, Green, Blue)").
func (c *Compiler) parseEnumDecl() bool {
	c.advance() // "enum"
	nameTok, ok := c.expect(token.IDENT)
	if !ok {
		return false
	}
	name := *nameTok.Value.Str

	if _, ok := c.expect(token.LPAREN); !ok {
		return false
	}
	var labels []string
	for !c.at(token.RPAREN) && !c.at(token.EOF) {
		if len(labels) > 0 {
			if _, ok := c.expect(token.COMMA); !ok {
				return false
			}
		}
		labTok, ok := c.expect(token.IDENT)
		if !ok {
			return false
		}
		labels = append(labels, *labTok.Value.Str)
	}
	if _, ok := c.expect(token.RPAREN); !ok {
		return false
	}

	et, err := types.NewEnum(name, labels)
	if err != nil {
		c.errfAt(nameTok.Value.Pos, "%s", err)
		return false
	}
	et = c.prog.InsertType(et)
	c.prog.AddVariable(&program.Variable{
		Name: name, Type: c.prog.TypeT, Scope: program.ModuleScope, Const: true, ConstVal: program.TypeSlot(et),
	})
	return true
}
