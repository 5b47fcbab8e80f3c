package lexer

import (
	"testing"

	"github.com/PeBraz/whisper/token"
)

func TestNextToken(t *testing.T) {
	input := `(set x 2) ; comment to end of line
(print "hello world" x)
(def inc (n) (add n -1))`

	tests := []struct {
		expectedType    token.Type
		expectedLiteral string
	}{
		{token.Lparen, "("},
		{token.Ident, "set"},
		{token.Ident, "x"},
		{token.Int, "2"},
		{token.Rparen, ")"},
		{token.Lparen, "("},
		{token.Ident, "print"},
		{token.String, "hello world"},
		{token.Ident, "x"},
		{token.Rparen, ")"},
		{token.Lparen, "("},
		{token.Ident, "def"},
		{token.Ident, "inc"},
		{token.Lparen, "("},
		{token.Ident, "n"},
		{token.Rparen, ")"},
		{token.Lparen, "("},
		{token.Ident, "add"},
		{token.Ident, "n"},
		{token.Int, "-1"},
		{token.Rparen, ")"},
		{token.Rparen, ")"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q (literal %q)",
				i, tt.expectedType, tok.Type, tok.Literal)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestNextTokenUnterminatedString(t *testing.T) {
	l := New(`(print "oops)`)
	var got []token.Token
	for {
		tok := l.NextToken()
		got = append(got, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	if len(got) < 3 {
		t.Fatalf("expected at least 3 tokens, got %d", len(got))
	}
	if got[2].Type != token.String {
		t.Fatalf("expected a string token even when unterminated, got %q", got[2].Type)
	}
}
