package parser

import (
	"testing"

	"github.com/PeBraz/whisper/ast"
	"github.com/PeBraz/whisper/lexer"
)

func parseProgram(t *testing.T, input string) *ast.Seq {
	t.Helper()
	p := New(lexer.New(input))
	program := p.ParseProgram()
	if len(p.Errors()) != 0 {
		t.Fatalf("parser errors: %v", p.Errors())
	}
	if program == nil {
		t.Fatalf("ParseProgram() returned nil with no errors")
	}
	return program
}

func TestParseLiteralsAndPrint(t *testing.T) {
	program := parseProgram(t, `(print "hello")`)
	if len(program.Exprs) != 1 {
		t.Fatalf("expected 1 top-level expr, got %d", len(program.Exprs))
	}
	pr, ok := program.Exprs[0].(*ast.Print)
	if !ok {
		t.Fatalf("expected *ast.Print, got %T", program.Exprs[0])
	}
	str, ok := pr.Args[0].(*ast.Str)
	if !ok || str.Value != "hello" {
		t.Fatalf("expected Str(hello), got %#v", pr.Args[0])
	}
}

func TestParseSetAndArith(t *testing.T) {
	program := parseProgram(t, `(set x 2) (set y 3) (print (add x y))`)
	if len(program.Exprs) != 3 {
		t.Fatalf("expected 3 top-level exprs, got %d", len(program.Exprs))
	}
	set1, ok := program.Exprs[0].(*ast.Set)
	if !ok || set1.Target.Name != "x" {
		t.Fatalf("expected set x, got %#v", program.Exprs[0])
	}
	pr := program.Exprs[2].(*ast.Print)
	add := pr.Args[0].(*ast.Arith)
	if add.Op != "add" || len(add.Args) != 2 {
		t.Fatalf("expected add with 2 args, got %#v", add)
	}
}

func TestParseDefAndCall(t *testing.T) {
	program := parseProgram(t, `(def inc (n) (add n 1)) (print (inc 5))`)
	def := program.Exprs[0].(*ast.Def)
	if def.Name != "inc" || len(def.Params) != 1 || def.Params[0] != "n" {
		t.Fatalf("unexpected def: %#v", def)
	}
	pr := program.Exprs[1].(*ast.Print)
	call := pr.Args[0].(*ast.Call)
	if call.Name != "inc" || len(call.Args) != 1 {
		t.Fatalf("unexpected call: %#v", call)
	}
}

func TestParseIfWhile(t *testing.T) {
	program := parseProgram(t, `(if (lt 1 2) 10 20)`)
	ifExpr := program.Exprs[0].(*ast.If)
	cmp := ifExpr.Cond.(*ast.Compare)
	if cmp.Op != "lt" {
		t.Fatalf("expected lt comparison, got %#v", cmp)
	}

	program = parseProgram(t, `(while (lt i 10) (seq (print i) (set i (add i 1))))`)
	while := program.Exprs[0].(*ast.While)
	if _, ok := while.Body.(*ast.Seq); !ok {
		t.Fatalf("expected seq body, got %#v", while.Body)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		`(if (lt 1 2) 10)`,    // wrong arity
		`(def noBody ())`,     // missing body
		`(set 5 10)`,          // target must be a variable
		`(add 1)`,             // arithmetic needs >= 2 args
	}
	for _, input := range tests {
		p := New(lexer.New(input))
		p.ParseProgram()
		if len(p.Errors()) == 0 {
			t.Errorf("expected parse error for %q, got none", input)
		}
	}
}
