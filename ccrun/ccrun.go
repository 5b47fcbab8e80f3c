// Package ccrun drives a real C compiler over an emitted translation unit:
// component J of the spec, used by the shell's :run command and by the
// compiler's own integration tests to observe what a Whisper program
// actually does once built.
//
// Grounded on the teacher's vm package in its role as "the thing that
// actually executes compiled output to produce an observable result" --
// generalized from an in-process bytecode VM to an out-of-process cc
// invocation, since Whisper's target is C, not a Go-hosted VM.
package ccrun

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/PeBraz/whisper/runtime"
)

// Compiler is the external C compiler invoked to build emitted units.
// Overridable for testing against a stub.
var Compiler = "cc"

// Timeout bounds how long a single run may take. Build does not apply it.
var Timeout = 10 * time.Second

// Result holds the outcome of running a built binary.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// EmitRuntime writes the embedded runtime header into dir as lisp_def.c, so
// that an emitted translation unit's `#include "lisp_def.c"` resolves
// alongside it.
func EmitRuntime(dir string) error {
	return os.WriteFile(filepath.Join(dir, "lisp_def.c"), runtime.Header, 0o644)
}

// Build writes source (the output of compiler.Compile) and the runtime
// header into a fresh temporary directory, invokes the C compiler, and
// returns the path to the built binary alongside a cleanup function the
// caller must defer.
func Build(source string) (binPath string, cleanup func(), err error) {
	dir, err := os.MkdirTemp("", "whisper-ccrun-")
	if err != nil {
		return "", nil, fmt.Errorf("ccrun: create build dir: %w", err)
	}
	cleanup = func() { os.RemoveAll(dir) }

	srcPath := filepath.Join(dir, "program.c")
	if err := os.WriteFile(srcPath, []byte(source), 0o644); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("ccrun: write source: %w", err)
	}
	if err := EmitRuntime(dir); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("ccrun: write runtime header: %w", err)
	}

	binPath = filepath.Join(dir, "program")
	cmd := exec.Command(Compiler, "-std=c11", "-o", binPath, srcPath)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("ccrun: %s failed: %w\n%s", Compiler, err, stderr.String())
	}
	return binPath, cleanup, nil
}

// Run executes the binary at binPath with stdin piped from in, capturing
// stdout/stderr and enforcing Timeout.
func Run(binPath string, in string) (Result, error) {
	cmd := exec.Command(binPath)
	cmd.Stdin = bytes.NewBufferString(in)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("ccrun: start: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-time.After(Timeout):
		cmd.Process.Kill()
		<-done
		return Result{}, errors.New("ccrun: program timed out")
	case err := <-done:
		res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				res.ExitCode = exitErr.ExitCode()
				return res, nil
			}
			return res, fmt.Errorf("ccrun: wait: %w", err)
		}
		return res, nil
	}
}

// BuildAndRun is the common case: build source, run it once with in on
// stdin, and tear down the build directory before returning.
func BuildAndRun(source, in string) (Result, error) {
	bin, cleanup, err := Build(source)
	if err != nil {
		return Result{}, err
	}
	defer cleanup()
	return Run(bin, in)
}
