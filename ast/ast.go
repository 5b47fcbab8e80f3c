// Package ast defines the Abstract Syntax Tree for the Whisper
// S-expression language.
//
// Every Whisper form parses to exactly one of the tagged variants below.
// Unlike a class-per-node design with virtual compile/type/execute methods,
// Whisper's AST is a small closed set of structs dispatched on by a type
// switch in the compiler (see spec.md §9, "polymorphism by class dispatch").
// Arity is enforced at construction time, by the constructors here (and,
// for neg, not and set, by the parser), so every later stage can assume a
// well-formed tree.
package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Node is the base interface implemented by every AST node.
type Node interface {
	// String returns a debug representation of the node.
	String() string
}

// Expr is the interface implemented by every Whisper expression. Whisper
// has no separate statement grammar: Print, Set, Seq and While all produce
// a value (possibly VOID) and so are Exprs like everything else.
type Expr interface {
	Node
	exprNode()
}

// Int is an integer literal.
type Int struct{ Value int64 }

func (*Int) exprNode()        {}
func (n *Int) String() string { return strconv.FormatInt(n.Value, 10) }

// Str is a string literal.
type Str struct{ Value string }

func (*Str) exprNode()        {}
func (n *Str) String() string { return strconv.Quote(n.Value) }

// Var is a variable reference.
type Var struct{ Name string }

func (*Var) exprNode()        {}
func (n *Var) String() string { return n.Name }

// arithOps is the set of variadic (≥2 argument) arithmetic operator names.
var arithOps = map[string]bool{"add": true, "sub": true, "mul": true, "div": true, "mod": true}

// compareOps is the set of binary comparison operator names.
var compareOps = map[string]bool{"lt": true, "le": true, "ge": true, "gt": true, "eq": true, "ne": true}

// IsArithOp reports whether name is a variadic arithmetic operator.
func IsArithOp(name string) bool { return arithOps[name] }

// IsCompareOp reports whether name is a binary comparison operator.
func IsCompareOp(name string) bool { return compareOps[name] }

// Arith is a variadic arithmetic operation: add, sub, mul, div, or mod.
// Folded left-to-right by the emitter; requires at least two arguments.
type Arith struct {
	Op   string
	Args []Expr
}

func (*Arith) exprNode() {}
func (n *Arith) String() string {
	return "(" + n.Op + " " + joinExprs(n.Args) + ")"
}

// NewArith constructs an Arith node, enforcing the ≥2-argument arity rule.
func NewArith(op string, args []Expr) (*Arith, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("%s: expected at least 2 arguments, got %d", op, len(args))
	}
	return &Arith{Op: op, Args: args}, nil
}

// Neg is unary arithmetic negation.
type Neg struct{ Arg Expr }

func (*Neg) exprNode()        {}
func (n *Neg) String() string { return "(neg " + n.Arg.String() + ")" }

// Compare is a binary comparison: lt, le, ge, gt, eq, or ne. Always yields
// INT (0 or 1).
type Compare struct {
	Op          string
	Left, Right Expr
}

func (*Compare) exprNode() {}
func (n *Compare) String() string {
	return "(" + n.Op + " " + n.Left.String() + " " + n.Right.String() + ")"
}

// NewCompare constructs a Compare node, enforcing exact binary arity.
func NewCompare(op string, args []Expr) (*Compare, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("%s: expected exactly 2 arguments, got %d", op, len(args))
	}
	return &Compare{Op: op, Left: args[0], Right: args[1]}, nil
}

// Logical is a binary logical operator: and, or. Yields INT.
type Logical struct {
	Op          string
	Left, Right Expr
}

func (*Logical) exprNode() {}
func (n *Logical) String() string {
	return "(" + n.Op + " " + n.Left.String() + " " + n.Right.String() + ")"
}

// NewLogical constructs a Logical node, enforcing exact binary arity.
func NewLogical(op string, args []Expr) (*Logical, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("%s: expected exactly 2 arguments, got %d", op, len(args))
	}
	return &Logical{Op: op, Left: args[0], Right: args[1]}, nil
}

// Not is unary logical negation. Yields INT.
type Not struct{ Arg Expr }

func (*Not) exprNode()        {}
func (n *Not) String() string { return "(not " + n.Arg.String() + ")" }

// Set assigns the result of Value to the variable Target.
type Set struct {
	Target *Var
	Value  Expr
}

func (*Set) exprNode() {}
func (n *Set) String() string {
	return "(set " + n.Target.String() + " " + n.Value.String() + ")"
}

// NewSet constructs a Set node. target must be a *Var per spec.md §3.
func NewSet(target Expr, value Expr) (*Set, error) {
	v, ok := target.(*Var)
	if !ok {
		return nil, fmt.Errorf("set: first argument must be a variable, got %T", target)
	}
	return &Set{Target: v, Value: value}, nil
}

// Seq is a sequence of expressions, evaluated in order; its value is the
// value of the last expression.
type Seq struct{ Exprs []Expr }

func (*Seq) exprNode() {}
func (n *Seq) String() string {
	return "(seq " + joinExprs(n.Exprs) + ")"
}

// NewSeq constructs a Seq node, enforcing the ≥1-expression arity rule.
func NewSeq(exprs []Expr) (*Seq, error) {
	if len(exprs) < 1 {
		return nil, fmt.Errorf("seq: expected at least 1 expression, got 0")
	}
	return &Seq{Exprs: exprs}, nil
}

// If is a conditional expression. Cond must type as INT; Then and Else
// must type identically.
type If struct {
	Cond, Then, Else Expr
}

func (*If) exprNode() {}
func (n *If) String() string {
	return "(if " + n.Cond.String() + " " + n.Then.String() + " " + n.Else.String() + ")"
}

// NewIf constructs an If node, enforcing exact 3-child arity.
func NewIf(args []Expr) (*If, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("if: expected exactly 3 arguments (cond then else), got %d", len(args))
	}
	return &If{Cond: args[0], Then: args[1], Else: args[2]}, nil
}

// While is a loop expression. Cond must type as INT.
type While struct {
	Cond, Body Expr
}

func (*While) exprNode() {}
func (n *While) String() string {
	return "(while " + n.Cond.String() + " " + n.Body.String() + ")"
}

// NewWhile constructs a While node, enforcing exact 2-child arity.
func NewWhile(args []Expr) (*While, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("while: expected exactly 2 arguments (cond body), got %d", len(args))
	}
	return &While{Cond: args[0], Body: args[1]}, nil
}

// Print prints the given expressions separated by spaces, followed by a
// newline. Always yields VOID.
type Print struct{ Args []Expr }

func (*Print) exprNode() {}
func (n *Print) String() string {
	return "(print " + joinExprs(n.Args) + ")"
}

// NewPrint constructs a Print node, enforcing at-least-one-argument arity.
func NewPrint(args []Expr) (*Print, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("print: expected at least 1 argument, got 0")
	}
	return &Print{Args: args}, nil
}

// Readi reads one integer from standard input. Yields INT.
type Readi struct{}

func (*Readi) exprNode()        {}
func (n *Readi) String() string { return "(readi)" }

// Reads reads one string from standard input. Yields STRING.
type Reads struct{}

func (*Reads) exprNode()        {}
func (n *Reads) String() string { return "(reads)" }

// Def defines a (possibly polymorphic) function. It compiles to nothing in
// the top-level sequence; its actual C functions are produced lazily, one
// per distinct call-site signature, by monomorphization.
type Def struct {
	Name   string
	Params []string
	Body   Expr
}

func (*Def) exprNode() {}
func (n *Def) String() string {
	return "(def " + n.Name + " (" + strings.Join(n.Params, " ") + ") " + n.Body.String() + ")"
}

// NewDef constructs a Def node. A Def with no body is a parse error per
// spec.md's Open Question resolution; the parser never produces a Def
// without one, but NewDef double-checks so the invariant holds regardless
// of caller.
func NewDef(name string, params []string, body Expr) (*Def, error) {
	if body == nil {
		return nil, fmt.Errorf("def %s: function body is required", name)
	}
	return &Def{Name: name, Params: params, Body: body}, nil
}

// Call invokes a user-defined function by name.
type Call struct {
	Name string
	Args []Expr
}

func (*Call) exprNode() {}
func (n *Call) String() string {
	return "(" + n.Name + " " + joinExprs(n.Args) + ")"
}

func joinExprs(exprs []Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, " ")
}
