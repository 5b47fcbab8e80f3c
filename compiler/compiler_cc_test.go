//go:build cc

package compiler

import (
	"strings"
	"testing"

	"github.com/PeBraz/whisper/ccrun"
)

// compileAndRun parses, compiles, and builds+runs src through a real C
// compiler, failing the test on any error along the way.
func compileAndRun(t *testing.T, src, stdin string) ccrun.Result {
	t.Helper()
	unit := compileSource(t, src)
	res, err := ccrun.BuildAndRun(unit, stdin)
	if err != nil {
		t.Fatalf("build and run: %s\n%s", err, unit)
	}
	return res
}

func TestCCPrintHelloPrintsHello(t *testing.T) {
	res := compileAndRun(t, `(print "hello")`, "")
	if strings.TrimRight(res.Stdout, "\n") != "hello" {
		t.Fatalf("expected stdout %q, got %q", "hello", res.Stdout)
	}
}

func TestCCSetAndPrintComputesSum(t *testing.T) {
	res := compileAndRun(t, `(set x 2) (set y 3) (print (add x y))`, "")
	if strings.TrimRight(res.Stdout, "\n") != "5" {
		t.Fatalf("expected stdout %q, got %q", "5", res.Stdout)
	}
}

func TestCCMonomorphicCallComputesExpectedValues(t *testing.T) {
	res := compileAndRun(t, `(def inc (n) (add n 1)) (print (inc 5)) (print (inc 7))`, "")
	got := strings.Fields(res.Stdout)
	want := []string{"6", "8"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("expected stdout fields %v, got %v (%q)", want, got, res.Stdout)
	}
}

func TestCCIfDispatchesOnConditionValue(t *testing.T) {
	res := compileAndRun(t, `(print (if (lt 1 2) 10 20))`, "")
	if strings.TrimRight(res.Stdout, "\n") != "10" {
		t.Fatalf("expected stdout %q, got %q", "10", res.Stdout)
	}
}

func TestCCWhileLoopSumsToTen(t *testing.T) {
	src := `(set i 0) (set total 0)
(while (lt i 10) (seq (set total (add total i)) (set i (add i 1))))
(print total)`
	res := compileAndRun(t, src, "")
	if strings.TrimRight(res.Stdout, "\n") != "45" {
		t.Fatalf("expected stdout %q, got %q", "45", res.Stdout)
	}
}
