package lexer

import "testing"

func TestBasicTokens(t *testing.T) {
	input := `package android.hardware.foo@1.0;

import android.hidl.base@1.0::IBase;

interface IFoo extends @1.0::IBase {
	bar(int32_t x) generates (int32_t y);
};`

	tests := []struct {
		expectedType  TokenType
		expectedValue string
	}{
		{TokenPackage, "package"},
		{TokenIdentifier, "android"},
		{TokenDot, "."},
		{TokenIdentifier, "hardware"},
		{TokenDot, "."},
		{TokenIdentifier, "foo"},
		{TokenAt, "@"},
		{TokenInteger, "1"},
		{TokenDot, "."},
		{TokenInteger, "0"},
		{TokenSemicolon, ";"},
		{TokenImport, "import"},
		{TokenIdentifier, "android"},
		{TokenDot, "."},
		{TokenIdentifier, "hidl"},
		{TokenDot, "."},
		{TokenIdentifier, "base"},
		{TokenAt, "@"},
		{TokenInteger, "1"},
		{TokenDot, "."},
		{TokenInteger, "0"},
		{TokenScope, "::"},
		{TokenIdentifier, "IBase"},
		{TokenSemicolon, ";"},
		{TokenInterface, "interface"},
		{TokenIdentifier, "IFoo"},
		{TokenExtends, "extends"},
		{TokenAt, "@"},
		{TokenInteger, "1"},
		{TokenDot, "."},
		{TokenInteger, "0"},
		{TokenScope, "::"},
		{TokenIdentifier, "IBase"},
		{TokenLBrace, "{"},
		{TokenIdentifier, "bar"},
		{TokenLParen, "("},
		{TokenIdentifier, "int32_t"},
		{TokenIdentifier, "x"},
		{TokenRParen, ")"},
		{TokenGenerates, "generates"},
		{TokenLParen, "("},
		{TokenIdentifier, "int32_t"},
		{TokenIdentifier, "y"},
		{TokenRParen, ")"},
		{TokenSemicolon, ";"},
		{TokenRBrace, "}"},
		{TokenSemicolon, ";"},
		{TokenEOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q (literal %q)",
				i, tt.expectedType, tok.Type, tok.Literal)
		}

		if tok.Literal != tt.expectedValue {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedValue, tok.Literal)
		}
	}
}

func TestNumericLiterals(t *testing.T) {
	input := `0 42 0x1F 0xffUL 017 0b1010 7u`

	expected := []string{"0", "42", "0x1F", "0xffUL", "017", "0b1010", "7u"}

	l := New(input)
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != TokenInteger {
			t.Fatalf("literals[%d]: expected INTEGER, got %q (%q)", i, tok.Type, tok.Literal)
		}
		if tok.Literal != want {
			t.Errorf("literals[%d]: expected %q, got %q", i, want, tok.Literal)
		}
	}
	if tok := l.NextToken(); tok.Type != TokenEOF {
		t.Fatalf("expected EOF, got %q", tok.Type)
	}
}

func TestCommentsAreSkipped(t *testing.T) {
	input := `// line comment
/* block
   comment */ enum /* inline */ Color`

	l := New(input)
	if tok := l.NextToken(); tok.Type != TokenEnum {
		t.Fatalf("expected enum, got %q (%q)", tok.Type, tok.Literal)
	}
	if tok := l.NextToken(); tok.Type != TokenIdentifier || tok.Literal != "Color" {
		t.Fatalf("expected Color, got %q", tok.Literal)
	}
}

func TestStringLiteralEscapes(t *testing.T) {
	l := New(`"a\nb\"c"`)
	tok := l.NextToken()
	if tok.Type != TokenString {
		t.Fatalf("expected STRING, got %q", tok.Type)
	}
	if tok.Literal != "a\nb\"c" {
		t.Errorf("unexpected literal %q", tok.Literal)
	}
}

func TestShiftVersusAngle(t *testing.T) {
	l := New(`vec<int32_t> 1 << 2 >> 3`)

	expect := []TokenType{
		TokenVec, TokenLt, TokenIdentifier, TokenGt,
		TokenInteger, TokenShl, TokenInteger, TokenShr, TokenInteger, TokenEOF,
	}
	for i, want := range expect {
		if tok := l.NextToken(); tok.Type != want {
			t.Fatalf("tok[%d]: expected %q, got %q", i, want, tok.Type)
		}
	}
}

func TestPositions(t *testing.T) {
	l := New("a\n  b")
	a := l.NextToken()
	b := l.NextToken()

	if a.Line != 1 || a.Column != 1 {
		t.Errorf("a at %d:%d, want 1:1", a.Line, a.Column)
	}
	if b.Line != 2 || b.Column != 3 {
		t.Errorf("b at %d:%d, want 2:3", b.Line, b.Column)
	}
}
