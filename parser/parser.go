// Package parser implements the syntactic analyzer for the Whisper
// S-expression language described in spec.md §6.
//
// Whisper has no operator precedence to climb: every compound form is
// fully parenthesized and prefix, so parsing is straight recursive descent
// keyed off the leading identifier of each form. Like the teacher parser
// this package accumulates diagnostics into a []string rather than failing
// on the first syntax error, so a caller can report everything malformed
// about a form; the first accumulated error still halts compilation later,
// per spec.md §4's fail-fast policy for semantic errors.
package parser

import (
	"fmt"
	"strconv"

	"github.com/PeBraz/whisper/ast"
	"github.com/PeBraz/whisper/lexer"
	"github.com/PeBraz/whisper/token"
)

// Parser turns a token stream into a Whisper AST.
type Parser struct {
	l      *lexer.Lexer
	errors []string

	currentToken token.Token
	peekToken    token.Token
}

// New creates a new Parser reading from l.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	p.nextToken()
	p.nextToken()
	return p
}

// Errors returns every diagnostic accumulated while parsing.
func (p *Parser) Errors() []string { return p.errors }

func (p *Parser) nextToken() {
	p.currentToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) errorf(format string, args ...interface{}) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *Parser) expectCurrent(t token.Type) bool {
	if p.currentToken.Type != t {
		p.errorf("expected token %s, got %s (%q)", t, p.currentToken.Type, p.currentToken.Literal)
		return false
	}
	return true
}

// ParseProgram parses the whole input as the implicit top-level sequence
// and returns it as a single Seq node. Returns nil if any parse errors were
// accumulated; callers must check Errors() first.
func (p *Parser) ParseProgram() *ast.Seq {
	var exprs []ast.Expr

	for p.currentToken.Type != token.EOF {
		expr := p.parseExpr()
		if expr != nil {
			exprs = append(exprs, expr)
		}
		p.nextToken()
	}

	if len(p.errors) > 0 {
		return nil
	}
	if len(exprs) == 0 {
		p.errorf("empty program")
		return nil
	}

	seq, err := ast.NewSeq(exprs)
	if err != nil {
		p.errorf("%s", err)
		return nil
	}
	return seq
}

// parseExpr parses a single expression: a literal, a variable reference,
// or a parenthesized form. Returns nil (with an error recorded) on
// failure; the caller is expected to keep parsing to accumulate further
// diagnostics.
func (p *Parser) parseExpr() ast.Expr {
	switch p.currentToken.Type {
	case token.Int:
		v, err := strconv.ParseInt(p.currentToken.Literal, 10, 64)
		if err != nil {
			p.errorf("invalid integer literal %q: %s", p.currentToken.Literal, err)
			return nil
		}
		return &ast.Int{Value: v}

	case token.String:
		return &ast.Str{Value: p.currentToken.Literal}

	case token.Ident:
		return &ast.Var{Name: p.currentToken.Literal}

	case token.Lparen:
		return p.parseForm()

	default:
		p.errorf("unexpected token %s (%q)", p.currentToken.Type, p.currentToken.Literal)
		return nil
	}
}

// parseForm parses a parenthesized form, current token on '('.
func (p *Parser) parseForm() ast.Expr {
	p.nextToken() // consume '('

	if !p.expectCurrent(token.Ident) {
		p.skipToMatchingRparen()
		return nil
	}
	head := p.currentToken.Literal
	p.nextToken() // consume head identifier

	var expr ast.Expr
	switch {
	case ast.IsArithOp(head):
		args := p.parseArgs()
		a, err := ast.NewArith(head, args)
		if err != nil {
			p.errorf("%s", err)
			return nil
		}
		expr = a

	case head == "neg":
		args := p.parseArgs()
		if len(args) != 1 {
			p.errorf("neg: expected exactly 1 argument, got %d", len(args))
			return nil
		}
		expr = &ast.Neg{Arg: args[0]}

	case ast.IsCompareOp(head):
		args := p.parseArgs()
		c, err := ast.NewCompare(head, args)
		if err != nil {
			p.errorf("%s", err)
			return nil
		}
		expr = c

	case head == "and" || head == "or":
		args := p.parseArgs()
		l, err := ast.NewLogical(head, args)
		if err != nil {
			p.errorf("%s", err)
			return nil
		}
		expr = l

	case head == "not":
		args := p.parseArgs()
		if len(args) != 1 {
			p.errorf("not: expected exactly 1 argument, got %d", len(args))
			return nil
		}
		expr = &ast.Not{Arg: args[0]}

	case head == "set":
		args := p.parseArgs()
		if len(args) != 2 {
			p.errorf("set: expected exactly 2 arguments, got %d", len(args))
			return nil
		}
		s, err := ast.NewSet(args[0], args[1])
		if err != nil {
			p.errorf("%s", err)
			return nil
		}
		expr = s

	case head == "seq":
		args := p.parseArgs()
		s, err := ast.NewSeq(args)
		if err != nil {
			p.errorf("%s", err)
			return nil
		}
		expr = s

	case head == "if":
		args := p.parseArgs()
		ifExpr, err := ast.NewIf(args)
		if err != nil {
			p.errorf("%s", err)
			return nil
		}
		expr = ifExpr

	case head == "while":
		args := p.parseArgs()
		w, err := ast.NewWhile(args)
		if err != nil {
			p.errorf("%s", err)
			return nil
		}
		expr = w

	case head == "print":
		args := p.parseArgs()
		pr, err := ast.NewPrint(args)
		if err != nil {
			p.errorf("%s", err)
			return nil
		}
		expr = pr

	case head == "readi":
		p.parseArgs()
		expr = &ast.Readi{}

	case head == "reads":
		p.parseArgs()
		expr = &ast.Reads{}

	case head == "def":
		expr = p.parseDef()

	default:
		args := p.parseArgs()
		expr = &ast.Call{Name: head, Args: args}
	}

	if !p.expectCurrent(token.Rparen) {
		return nil
	}
	return expr
}

// parseArgs parses zero or more expressions up to (but not consuming) the
// closing ')'.
func (p *Parser) parseArgs() []ast.Expr {
	var args []ast.Expr
	for p.currentToken.Type != token.Rparen && p.currentToken.Type != token.EOF {
		arg := p.parseExpr()
		if arg != nil {
			args = append(args, arg)
		}
		p.nextToken()
	}
	return args
}

// parseDef parses "(def name (param…) body…)" with current token on the
// token right after the "def" identifier. An empty body is a parse error,
// resolving spec.md's Open Question about partial Def forms explicitly
// rather than letting it fall out of incidental tokenizer behavior.
func (p *Parser) parseDef() ast.Expr {
	if !p.expectCurrent(token.Ident) {
		return nil
	}
	name := p.currentToken.Literal
	p.nextToken()

	if !p.expectCurrent(token.Lparen) {
		return nil
	}
	p.nextToken() // consume '('

	var params []string
	for p.currentToken.Type != token.Rparen && p.currentToken.Type != token.EOF {
		if !p.expectCurrent(token.Ident) {
			return nil
		}
		params = append(params, p.currentToken.Literal)
		p.nextToken()
	}
	if !p.expectCurrent(token.Rparen) {
		return nil
	}
	p.nextToken() // consume ')'

	bodyExprs := p.parseArgs()
	if len(bodyExprs) == 0 {
		p.errorf("def %s: function body is required", name)
		return nil
	}

	var body ast.Expr = bodyExprs[0]
	if len(bodyExprs) > 1 {
		seq, err := ast.NewSeq(bodyExprs)
		if err != nil {
			p.errorf("%s", err)
			return nil
		}
		body = seq
	}

	def, err := ast.NewDef(name, params, body)
	if err != nil {
		p.errorf("%s", err)
		return nil
	}
	return def
}

// skipToMatchingRparen recovers from a malformed form header by consuming
// tokens until the form's closing paren (tracking nesting), so the parser
// can keep accumulating diagnostics for the rest of the program instead of
// desynchronizing entirely.
func (p *Parser) skipToMatchingRparen() {
	depth := 1
	for depth > 0 && p.currentToken.Type != token.EOF {
		switch p.currentToken.Type {
		case token.Lparen:
			depth++
		case token.Rparen:
			depth--
		}
		if depth == 0 {
			return
		}
		p.nextToken()
	}
}
