// Package lexer implements the .hal tokenizer.
package lexer

import "fmt"

// TokenType represents the type of a token.
type TokenType int

// String returns a string representation of the token type.
func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(tt))
}

// Token types.
const (
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenIdentifier
	TokenInteger
	TokenString

	// Keywords
	TokenPackage
	TokenImport
	TokenInterface
	TokenStruct
	TokenUnion
	TokenEnum
	TokenTypedef
	TokenExtends
	TokenGenerates
	TokenOneway
	TokenConst
	TokenVec

	// Punctuation
	TokenAt
	TokenSemicolon
	TokenComma
	TokenColon
	TokenScope // ::
	TokenDot
	TokenLBrace
	TokenRBrace
	TokenLParen
	TokenRParen
	TokenLBracket
	TokenRBracket
	TokenLt
	TokenGt
	TokenAssign

	// Operators (constant expressions)
	TokenPlus
	TokenMinus
	TokenStar
	TokenSlash
	TokenPercent
	TokenPipe
	TokenAmp
	TokenCaret
	TokenTilde
	TokenShl
	TokenShr
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenIdentifier: "IDENTIFIER",
	TokenInteger:    "INTEGER",
	TokenString:     "STRING",
	TokenPackage:    "package",
	TokenImport:     "import",
	TokenInterface:  "interface",
	TokenStruct:     "struct",
	TokenUnion:      "union",
	TokenEnum:       "enum",
	TokenTypedef:    "typedef",
	TokenExtends:    "extends",
	TokenGenerates:  "generates",
	TokenOneway:     "oneway",
	TokenConst:      "const",
	TokenVec:        "vec",
	TokenAt:         "@",
	TokenSemicolon:  ";",
	TokenComma:      ",",
	TokenColon:      ":",
	TokenScope:      "::",
	TokenDot:        ".",
	TokenLBrace:     "{",
	TokenRBrace:     "}",
	TokenLParen:     "(",
	TokenRParen:     ")",
	TokenLBracket:   "[",
	TokenRBracket:   "]",
	TokenLt:         "<",
	TokenGt:         ">",
	TokenAssign:     "=",
	TokenPlus:       "+",
	TokenMinus:      "-",
	TokenStar:       "*",
	TokenSlash:      "/",
	TokenPercent:    "%",
	TokenPipe:       "|",
	TokenAmp:        "&",
	TokenCaret:      "^",
	TokenTilde:      "~",
	TokenShl:        "<<",
	TokenShr:        ">>",
}

var keywords = map[string]TokenType{
	"package":   TokenPackage,
	"import":    TokenImport,
	"interface": TokenInterface,
	"struct":    TokenStruct,
	"union":     TokenUnion,
	"enum":      TokenEnum,
	"typedef":   TokenTypedef,
	"extends":   TokenExtends,
	"generates": TokenGenerates,
	"oneway":    TokenOneway,
	"const":     TokenConst,
	"vec":       TokenVec,
}

// Token is one lexeme with its source position.
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

// Lexer tokenizes .hal source text. Comments and whitespace are skipped.
type Lexer struct {
	input  string
	pos    int
	line   int
	column int
}

// New creates a lexer over input.
func New(input string) *Lexer {
	return &Lexer{input: input, line: 1, column: 1}
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) peekAt(off int) byte {
	if l.pos+off >= len(l.input) {
		return 0
	}
	return l.input[l.pos+off]
}

func (l *Lexer) advance() byte {
	ch := l.input[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return ch
}

func (l *Lexer) skipSpaceAndComments() {
	for l.pos < len(l.input) {
		switch {
		case l.peek() == ' ' || l.peek() == '\t' || l.peek() == '\r' || l.peek() == '\n':
			l.advance()
		case l.peek() == '/' && l.peekAt(1) == '/':
			for l.pos < len(l.input) && l.peek() != '\n' {
				l.advance()
			}
		case l.peek() == '/' && l.peekAt(1) == '*':
			l.advance()
			l.advance()
			for l.pos < len(l.input) && !(l.peek() == '*' && l.peekAt(1) == '/') {
				l.advance()
			}
			if l.pos < len(l.input) {
				l.advance()
				l.advance()
			}
		default:
			return
		}
	}
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

// NextToken returns the next token, TokenEOF at end of input.
func (l *Lexer) NextToken() Token {
	l.skipSpaceAndComments()

	tok := Token{Line: l.line, Column: l.column}
	if l.pos >= len(l.input) {
		tok.Type = TokenEOF
		return tok
	}

	ch := l.peek()
	switch {
	case isIdentStart(ch):
		start := l.pos
		for l.pos < len(l.input) && isIdentPart(l.peek()) {
			l.advance()
		}
		tok.Literal = l.input[start:l.pos]
		if kw, ok := keywords[tok.Literal]; ok {
			tok.Type = kw
		} else {
			tok.Type = TokenIdentifier
		}
		return tok

	case isDigit(ch):
		return l.lexNumber(tok)

	case ch == '"':
		return l.lexString(tok)
	}

	l.advance()
	two := func(t TokenType, lit string) Token {
		l.advance()
		tok.Type = t
		tok.Literal = lit
		return tok
	}
	one := func(t TokenType) Token {
		tok.Type = t
		tok.Literal = string(ch)
		return tok
	}

	switch ch {
	case '@':
		return one(TokenAt)
	case ';':
		return one(TokenSemicolon)
	case ',':
		return one(TokenComma)
	case ':':
		if l.peek() == ':' {
			return two(TokenScope, "::")
		}
		return one(TokenColon)
	case '.':
		return one(TokenDot)
	case '{':
		return one(TokenLBrace)
	case '}':
		return one(TokenRBrace)
	case '(':
		return one(TokenLParen)
	case ')':
		return one(TokenRParen)
	case '[':
		return one(TokenLBracket)
	case ']':
		return one(TokenRBracket)
	case '<':
		if l.peek() == '<' {
			return two(TokenShl, "<<")
		}
		return one(TokenLt)
	case '>':
		if l.peek() == '>' {
			return two(TokenShr, ">>")
		}
		return one(TokenGt)
	case '=':
		return one(TokenAssign)
	case '+':
		return one(TokenPlus)
	case '-':
		return one(TokenMinus)
	case '*':
		return one(TokenStar)
	case '/':
		return one(TokenSlash)
	case '%':
		return one(TokenPercent)
	case '|':
		return one(TokenPipe)
	case '&':
		return one(TokenAmp)
	case '^':
		return one(TokenCaret)
	case '~':
		return one(TokenTilde)
	}

	tok.Type = TokenError
	tok.Literal = string(ch)
	return tok
}

func (l *Lexer) lexNumber(tok Token) Token {
	start := l.pos
	if l.peek() == '0' && (l.peekAt(1) == 'x' || l.peekAt(1) == 'X') {
		l.advance()
		l.advance()
		for l.pos < len(l.input) && isHexDigit(l.peek()) {
			l.advance()
		}
	} else if l.peek() == '0' && (l.peekAt(1) == 'b' || l.peekAt(1) == 'B') {
		l.advance()
		l.advance()
		for l.pos < len(l.input) && (l.peek() == '0' || l.peek() == '1') {
			l.advance()
		}
	} else {
		// decimal or octal (leading 0)
		for l.pos < len(l.input) && isDigit(l.peek()) {
			l.advance()
		}
	}
	// optional width/sign suffix
	for l.pos < len(l.input) {
		switch l.peek() {
		case 'u', 'U', 'l', 'L':
			l.advance()
			continue
		}
		break
	}
	tok.Type = TokenInteger
	tok.Literal = l.input[start:l.pos]
	return tok
}

func (l *Lexer) lexString(tok Token) Token {
	l.advance() // opening quote
	var out []byte
	for l.pos < len(l.input) && l.peek() != '"' {
		ch := l.advance()
		if ch == '\\' && l.pos < len(l.input) {
			esc := l.advance()
			switch esc {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case '\\', '"':
				out = append(out, esc)
			default:
				out = append(out, '\\', esc)
			}
			continue
		}
		out = append(out, ch)
	}
	if l.pos >= len(l.input) {
		tok.Type = TokenError
		tok.Literal = "unterminated string literal"
		return tok
	}
	l.advance() // closing quote
	tok.Type = TokenString
	tok.Literal = string(out)
	return tok
}
