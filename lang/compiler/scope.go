package compiler

import (
	"github.com/dolthub/swiss"

	"github.com/blikk-lang/blikk/lang/program"
)

// scope is one lexical block's identifier table, backed by a swiss.Map for
// the hot path of symbol lookup during compilation (SPEC_FULL.md §3).
// Scopes nest: a func body pushes one scope per begin/end block and pops it
// on "end", so names declared inside an if/while/for body stop resolving
// once the block closes.
type scope struct {
	vars   *swiss.Map[string, *program.Variable]
	parent *scope

	// declared records every variable declared directly in this scope, in
	// declaration order, so leaveScope can unshadow each one's module-level
	// binding (if any) once the block closes.
	declared []*program.Variable
}

func newScope(parent *scope) *scope {
	return &scope{vars: swiss.NewMap[string, *program.Variable](uint32(8)), parent: parent}
}

func (s *scope) declare(v *program.Variable) {
	s.vars.Put(v.Name, v)
	s.declared = append(s.declared, v)
}

// lookup walks outward from s looking for name, returning the innermost
// declaration.
func (s *scope) lookup(name string) *program.Variable {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars.Get(name); ok {
			return v
		}
	}
	return nil
}
