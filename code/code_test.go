package code

import (
	"strings"
	"testing"
)

func TestUnitStringStitchesSkeleton(t *testing.T) {
	u := &Unit{
		Protos: []string{"int foo();"},
		Structs: "struct { int x; } __main;\n",
		Funcs:   "int foo(){return 1;}\n",
		Main:    "__fn_main_1()",
	}

	out := u.String()
	for _, want := range []string{
		`#include "lisp_def.c"`,
		"int foo();",
		"struct { int x; } __main;",
		"int foo(){return 1;}",
		"int main() { __fn_main_1(); return 0; }",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestAddProtoDeduplicates(t *testing.T) {
	u := &Unit{}
	u.AddProto("int foo();")
	u.AddProto("int foo();")
	if len(u.Protos) != 1 {
		t.Fatalf("expected a single deduplicated prototype, got %v", u.Protos)
	}
}

func TestStringSurvivesPercentInFragments(t *testing.T) {
	u := &Unit{
		Structs: "%d should not be treated as a format verb\n",
		Funcs:   "",
		Main:    "1",
	}
	out := u.String()
	if !strings.Contains(out, "%d should not be treated as a format verb") {
		t.Fatalf("expected literal %%d to survive stitching, got:\n%s", out)
	}
}
