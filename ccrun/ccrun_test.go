package ccrun

import (
	"os/exec"
	"strings"
	"testing"
)

func requireCC(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath(Compiler); err != nil {
		t.Skipf("no %s on PATH, skipping: %s", Compiler, err)
	}
}

const helloUnit = `#include "lisp_def.c"
int main() { printf("%s\n", "hello"); return 0; }
`

func TestBuildAndRunCapturesStdout(t *testing.T) {
	requireCC(t)

	res, err := BuildAndRun(helloUnit, "")
	if err != nil {
		t.Fatalf("build and run: %s", err)
	}
	if strings.TrimRight(res.Stdout, "\n") != "hello" {
		t.Fatalf("expected stdout %q, got %q", "hello", res.Stdout)
	}
	if res.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", res.ExitCode)
	}
}

func TestBuildFailsOnInvalidSource(t *testing.T) {
	requireCC(t)

	if _, _, err := Build("this is not valid C"); err == nil {
		t.Fatalf("expected a build error for invalid source")
	}
}

func TestRunFeedsStdin(t *testing.T) {
	requireCC(t)

	unit := `#include "lisp_def.c"
int main() { int n = __readi(); printf("%d\n", n + 1); return 0; }
`
	res, err := BuildAndRun(unit, "41\n")
	if err != nil {
		t.Fatalf("build and run: %s", err)
	}
	if strings.TrimRight(res.Stdout, "\n") != "42" {
		t.Fatalf("expected stdout %q, got %q", "42", res.Stdout)
	}
}
