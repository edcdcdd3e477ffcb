package compiler

import (
	"github.com/blikk-lang/blikk/lang/program"
	"github.com/blikk-lang/blikk/lang/types"
)

// registerIntrinsics installs toInt, toFloat and typeOf as ModeIntrinsic
// functions (spec.md §4.B "Built-in intrinsics: toInt, toFloat, typeOf
// (variadic of one)"). None has an IR body or a NativeFn: parseCall
// recognizes ModeIntrinsic at the call site and compiles each inline,
// since all three need compile-time information (the static argument
// type) that a host Native callback never sees.
func (c *Compiler) registerIntrinsics() {
	c.addIntrinsic("toInt", []*types.Type{c.prog.Int}, c.prog.Int)
	c.addIntrinsic("toInt", []*types.Type{c.prog.Float}, c.prog.Int)
	c.addIntrinsic("toFloat", []*types.Type{c.prog.Int}, c.prog.Float)
	c.addIntrinsic("toFloat", []*types.Type{c.prog.Float}, c.prog.Float)
	// typeOf is registered fully variadic; FindOverload never sees more
	// than one argument type because parseCall rejects any other arg
	// count before overload resolution for this name.
	c.addIntrinsic("typeOf", nil, c.prog.TypeT)
}

func (c *Compiler) addIntrinsic(name string, params []*types.Type, ret *types.Type) {
	variadic := len(params) == 0 && name == "typeOf"
	ft := c.prog.InsertType(types.NewFunction(params, variadic, ret))
	fn := &program.Function{
		Name: name, Prototype: name + "(…)", Type: ft, Mode: program.ModeIntrinsic,
		Valid: true, Pure: true, NoSideEffect: true,
	}
	fn.Params = make([]program.Param, len(params))
	for i, p := range params {
		fn.Params[i] = program.Param{Name: "x", Type: p}
	}
	c.prog.AddFunction(fn)
	if v := c.prog.LookupModuleVariable(name); v != nil {
		return
	}
	c.prog.AddVariable(&program.Variable{
		Name: name, Type: ft, Scope: program.ModuleScope, Const: true, ConstVal: program.FuncSlot(fn),
	})
}
