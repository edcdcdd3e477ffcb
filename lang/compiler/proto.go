package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blikk-lang/blikk/lang/program"
	"github.com/blikk-lang/blikk/lang/types"
)

// parsePrototype parses a native function's human-readable prototype string
// ("name(T1, T2): R", "name(…)" fully variadic, or "name(T1, …)" with a
// literal trailing "...") into a name, parameter types, variadic flag and
// return type, per spec.md §6. This is a small standalone grammar (not the
// token-based expression parser) since native prototypes are authored by
// the host in Go source, not lexed blikk source.
func parsePrototype(prog *program.Program, prototype string) (name string, params []*types.Type, variadic bool, ret *types.Type, err error) {
	open := strings.IndexByte(prototype, '(')
	close := strings.LastIndexByte(prototype, ')')
	if open < 0 || close < open {
		return "", nil, false, nil, fmt.Errorf("compiler: malformed prototype %q", prototype)
	}
	name = strings.TrimSpace(prototype[:open])
	if name == "" {
		return "", nil, false, nil, fmt.Errorf("compiler: malformed prototype %q: missing name", prototype)
	}

	argsPart := strings.TrimSpace(prototype[open+1 : close])
	tail := strings.TrimSpace(prototype[close+1:])
	if tail != "" {
		tail = strings.TrimPrefix(tail, ":")
		tail = strings.TrimSpace(tail)
		ret, err = resolveTypeName(prog, tail)
		if err != nil {
			return "", nil, false, nil, err
		}
	}

	if argsPart == "" {
		return name, nil, false, ret, nil
	}
	if argsPart == "…" || argsPart == "..." {
		return name, nil, true, ret, nil
	}

	for _, part := range strings.Split(argsPart, ",") {
		part = strings.TrimSpace(part)
		if part == "…" || part == "..." {
			variadic = true
			continue
		}
		t, err := resolveTypeName(prog, part)
		if err != nil {
			return "", nil, false, nil, err
		}
		params = append(params, t)
	}
	return name, params, variadic, ret, nil
}

// resolveTypeName resolves a type signature fragment appearing in a native
// prototype or host-supplied type name: a base type keyword, an array
// literal "[N] T", or the name of an already-registered record/enum/opaque
// type.
func resolveTypeName(prog *program.Program, s string) (*types.Type, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "Null":
		return prog.Null, nil
	case "Bool":
		return prog.Bool, nil
	case "Int":
		return prog.Int, nil
	case "Float":
		return prog.Float, nil
	case "String":
		return prog.String, nil
	case "Type":
		return prog.TypeT, nil
	}
	if strings.HasPrefix(s, "[") {
		end := strings.IndexByte(s, ']')
		if end < 0 {
			return nil, fmt.Errorf("compiler: malformed array type %q", s)
		}
		n, err := strconv.Atoi(strings.TrimSpace(s[1:end]))
		if err != nil {
			return nil, fmt.Errorf("compiler: malformed array length in %q: %w", s, err)
		}
		unit, err := resolveTypeName(prog, s[end+1:])
		if err != nil {
			return nil, err
		}
		arr, err := types.NewArray(n, unit)
		if err != nil {
			return nil, err
		}
		return prog.InsertType(arr), nil
	}
	if t, ok := prog.LookupType(s); ok {
		return t, nil
	}
	return nil, fmt.Errorf("compiler: unknown type name %q", s)
}
