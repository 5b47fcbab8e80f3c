package scope

import (
	"fmt"
	"strings"

	"github.com/PeBraz/whisper/types"
)

// Protos returns every prototype string recorded anywhere in the scope
// tree, in emission order. Safe to call on any scope: the prototype list
// is shared and propagated to the root (spec.md §3).
func (s *Scope) Protos() []string {
	return append([]string(nil), *s.protos...)
}

// EmitStructs recursively emits the C struct declaration for s's own
// active variable table (for the root, this is "__main"; for a Def-scope
// with no monomorphizations, nothing) and for every monomorphization of
// every descendant Def-scope, per spec.md §4.D. Returns an error if any
// variable that must be declared is still types.NONE (the "uninitialized
// variable declaration" error kind of spec.md §7).
func (s *Scope) EmitStructs() (string, error) {
	var out strings.Builder

	if s.Outer == nil {
		decl, err := emitStructBody(s.vars.ordered())
		if err != nil {
			return "", fmt.Errorf("scope %q: %w", s.Name, err)
		}
		fmt.Fprintf(&out, "struct { %s} __%s;\n", decl, s.Name)
	}

	for _, m := range s.Monos {
		decl, err := emitStructBody(m.Vars.ordered())
		if err != nil {
			return "", fmt.Errorf("scope %q (%s): %w", s.Name, m.FuncName, err)
		}
		fmt.Fprintf(&out, "struct { %s} __%s;\n", decl, m.FuncName)
	}

	for _, name := range s.childOrder {
		childOut, err := s.children[name].EmitStructs()
		if err != nil {
			return "", err
		}
		out.WriteString(childOut)
	}

	return out.String(), nil
}

// emitStructBody renders a variable table's ordered declarations, e.g.
// "int x; char y[6]; ".
func emitStructBody(vars []*Variable) (string, error) {
	var out strings.Builder
	for _, v := range vars {
		if v.Type == types.NONE {
			return "", fmt.Errorf("variable %q was never used in a way that infers its type", v.Name)
		}
		n := v.ByteSize
		if n == 0 {
			n = 1
		}
		fmt.Fprintf(&out, "%s; ", types.CSpellDecl(v.Type, v.Name, n))
	}
	return out.String(), nil
}

// EmitFunctions recursively concatenates every helper's and every
// monomorphization's C function definition, per spec.md §4.D: s's helpers,
// then s's monomorphizations (each in the order they were synthesized),
// then each child scope's output in child order.
func (s *Scope) EmitFunctions() string {
	var out strings.Builder

	for _, h := range s.Helpers {
		fmt.Fprintf(&out, "%s %s(){%s}\n", types.CSpell(h.ReturnType), h.Name, h.Body)
	}

	for _, m := range s.Monos {
		params := make([]string, len(s.Params))
		for i, name := range s.Params {
			params[i] = fmt.Sprintf("%s %s", types.CSpell(m.ParamTypes[i]), name)
		}
		fmt.Fprintf(&out, "%s %s(%s){%s}\n",
			types.CSpell(m.ReturnType), m.FuncName, strings.Join(params, ", "), m.Body)
	}

	for _, name := range s.childOrder {
		out.WriteString(s.children[name].EmitFunctions())
	}

	return out.String()
}
