// whisper compiles Whisper source code into portable C.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/PeBraz/whisper/ccrun"
	"github.com/PeBraz/whisper/compiler"
	"github.com/PeBraz/whisper/lexer"
	"github.com/PeBraz/whisper/parser"
	"github.com/PeBraz/whisper/shell"
)

const version = "0.1.0"

// printUsage displays custom usage information
func printUsage() {
	_, _ = fmt.Fprintf(os.Stderr, `Whisper Compiler v%s

USAGE:
    %s [OPTIONS] <source.whisper>

DESCRIPTION:
    Whisper compiles S-expression source into a single portable C
    translation unit, written to stdout unless -o is given.

OPTIONS:
    -o <path>               Write the translation unit to path instead of stdout
    -shell                  Launch the interactive shell
    -emit-runtime <dir>     Write the embedded lisp_def.c runtime header to dir
    -v, --version           Show version information
    -h, --help              Show this help message

EXAMPLES:
    # Compile a file to stdout
    %s program.whisper

    # Compile to a file
    %s -o program.c program.whisper

    # Start the interactive shell
    %s -shell

    # Materialize the runtime header next to a hand-written build
    %s -emit-runtime ./build

`, version, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0])
}

func main() {
	flag.Usage = printUsage

	outFlag := flag.String("o", "", "Write the translation unit to path instead of stdout")
	shellFlag := flag.Bool("shell", false, "Launch the interactive shell")
	emitRuntimeFlag := flag.String("emit-runtime", "", "Write the embedded lisp_def.c runtime header to dir")
	versionFlag := flag.Bool("version", false, "Show version information")
	flag.BoolVar(versionFlag, "v", false, "Show version information")

	flag.Parse()

	if *versionFlag {
		fmt.Printf("Whisper Compiler v%s\n", version)
		return
	}

	if *emitRuntimeFlag != "" {
		if err := ccrun.EmitRuntime(*emitRuntimeFlag); err != nil {
			fmt.Fprintf(os.Stderr, "whisper: %s\n", err)
			os.Exit(1)
		}
		return
	}

	if *shellFlag {
		if err := shell.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "whisper: %s\n", err)
			os.Exit(1)
		}
		return
	}

	if flag.NArg() != 1 {
		printUsage()
		os.Exit(1)
	}

	if err := compileFile(flag.Arg(0), *outFlag); err != nil {
		fmt.Fprintf(os.Stderr, "whisper: %s\n", err)
		os.Exit(1)
	}
}

// compileFile reads, parses, and compiles the Whisper source at path,
// writing the resulting translation unit to outPath, or to stdout when
// outPath is empty.
func compileFile(path, outPath string) error {
	//nolint:gosec // the path is an explicit command-line argument, not user input from a network boundary
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	l := lexer.New(string(content))
	p := parser.New(l)
	program := p.ParseProgram()
	if len(p.Errors()) != 0 {
		printParserErrors(p.Errors())
		return fmt.Errorf("parsing %s failed", path)
	}

	unit, err := compiler.New().Compile(program)
	if err != nil {
		return fmt.Errorf("compiling %s: %w", path, err)
	}

	if outPath == "" {
		fmt.Print(unit)
		return nil
	}
	return os.WriteFile(outPath, []byte(unit), 0o644)
}

// printParserErrors prints parser errors to stderr
func printParserErrors(errors []string) {
	_, _ = fmt.Fprintln(os.Stderr, "Parser errors:")
	for _, msg := range errors {
		_, _ = fmt.Fprintln(os.Stderr, "\t"+msg)
	}
}
