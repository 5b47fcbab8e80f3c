// Package types defines the closed semantic type lattice shared by every
// stage of the Whisper compiler, from the arg-checker to the C emitter.
//
// Whisper has exactly four semantic types: integers, strings, the void
// return of statement-shaped forms, and an inference placeholder that means
// "not yet known". Every variable, parameter, and return type in a Whisper
// program is one of these four, and nothing else is representable.
package types

import "fmt"

//nolint:revive
const (
	INT    = "INT"
	STRING = "STRING"
	VOID   = "VOID"
	NONE   = "NONE"
)

// T is a semantic type. NONE is never a runtime type; it is an inference
// placeholder meaning the value's type has not yet been observed.
type T string

// String returns the type's name, used in diagnostics.
func (t T) String() string { return string(t) }

// Unify resolves two semantic types into one, per spec.md's arg-checker
// rule: identical types unify to themselves, a NONE unifies to whichever
// side is concrete, and two different concrete types fail to unify.
func Unify(a, b T) (T, error) {
	if a == b {
		return a, nil
	}
	if a == NONE {
		return b, nil
	}
	if b == NONE {
		return a, nil
	}
	return NONE, fmt.Errorf("type conflict: cannot unify %s with %s", a, b)
}

// CSpell returns the C spelling of t in parameter/expression context
// (char* for strings). For declaration context, where a STRING variable
// needs a sized buffer, use CSpellDecl instead.
func CSpell(t T) string {
	switch t {
	case INT:
		return "int"
	case STRING:
		return "char*"
	case VOID:
		return "void"
	default:
		return "void"
	}
}

// CSpellDecl returns the full C declarator for a variable named name of
// type t in declaration context. STRING variables are declared as a
// fixed-size char array, sized to the largest value ever observed for that
// variable (spec.md invariant 6); n must be the observed-max-length-plus-one
// byte count. Every other type declares the same as CSpell, with name
// appended.
func CSpellDecl(t T, name string, n int) string {
	if t == STRING {
		return fmt.Sprintf("char %s[%d]", name, n)
	}
	return CSpell(t) + " " + name
}
