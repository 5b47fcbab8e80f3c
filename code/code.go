// Package code assembles the final C translation unit from the three text
// buffers the compiler accumulates while walking the AST: prototypes,
// variable-struct definitions, and function definitions (spec.md §4.G).
//
// This is grounded on the teacher's code.go, which defines a single
// append-only Instructions buffer and a Make helper that appends one
// well-formed unit (an instruction) at a time. Whisper's "instructions"
// are C text fragments rather than bytes, so the buffer holds strings; the
// "decoding" half of the teacher package (Lookup, ReadOperands, ...) has no
// analogue here, since nothing ever reads the emitted C back in.
package code

import "strings"

// Skeleton is the fixed C program shape every emitted unit is stitched
// into, exactly as spec.md §4.G specifies.
const Skeleton = `#include <stdio.h>
#include <string.h>
#include "lisp_def.c"
// prototypes
%s
// variable definitions
%s
// function definitions
%s
int main() { %s; return 0; }
`

// Unit holds the four buffers that make up an emitted translation unit.
type Unit struct {
	// Protos holds one "<rettype> <name>();" line per helper and one
	// "<rettype> <name>(<param types>);" line per monomorphization.
	Protos []string

	// Structs holds the rendered variable-struct text for __main and
	// every monomorphization, produced by scope.Scope.EmitStructs.
	Structs string

	// Funcs holds the rendered helper and monomorphization function
	// bodies, produced by scope.Scope.EmitFunctions.
	Funcs string

	// Main is the body of C's main: the program's top-level forms, inlined
	// as statements, the last one without its terminating semicolon.
	Main string
}

// AddProto appends a prototype line to the unit if it is not already
// present. Scope already deduplicates by construction (each helper and
// monomorphization name is allocated once), so this is a defensive
// safeguard rather than the primary dedup mechanism.
func (u *Unit) AddProto(proto string) {
	for _, existing := range u.Protos {
		if existing == proto {
			return
		}
	}
	u.Protos = append(u.Protos, proto)
}

// String stitches the four buffers into the fixed skeleton, producing the
// final, self-contained C translation unit.
func (u *Unit) String() string {
	return sprintfSkeleton(strings.Join(u.Protos, "\n"), u.Structs, u.Funcs, u.Main)
}

func sprintfSkeleton(protos, structs, funcs, main string) string {
	out, from := Skeleton, 0
	out, from = replaceOnce(out, "%s", protos, from)
	out, from = replaceOnce(out, "%s", structs, from)
	out, from = replaceOnce(out, "%s", funcs, from)
	out, _ = replaceOnce(out, "%s", main, from)
	return out
}

// replaceOnce replaces the first occurrence of old at or after index from
// in s with new, returning the result and the index just past the inserted
// text. It is used instead of fmt.Sprintf(Skeleton, ...), and each search
// starts after the previous insertion, so the four fragments — which may
// themselves legally contain "%" from format strings emitted by Print —
// are never reinterpreted as further verbs.
func replaceOnce(s, old, new string, from int) (string, int) {
	i := strings.Index(s[from:], old)
	if i < 0 {
		return s, len(s)
	}
	i += from
	return s[:i] + new + s[i+len(old):], i + len(new)
}
