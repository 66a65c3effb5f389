// Package parser implements the recursive descent parser for .hal
// interface definition files. It produces an ast.AST with unresolved
// cross-package references; the coordinator links imports and triggers
// resolution afterwards.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hidl-lang/hidl/internal/ast"
	"github.com/hidl-lang/hidl/internal/fqn"
	"github.com/hidl-lang/hidl/internal/lexer"
)

// Parser holds the token stream and the AST under construction.
type Parser struct {
	lexer   *lexer.Lexer
	current lexer.Token
	peek    lexer.Token
	errors  []error

	filename string
	ast      *ast.AST
}

// ParseError is a positioned diagnostic.
type ParseError struct {
	File    string
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
}

// New creates a parser over input, attributing positions to filename.
func New(filename, input string) *Parser {
	p := &Parser{
		lexer:    lexer.New(input),
		filename: filename,
		ast:      ast.New(filename),
	}
	// Prime current and peek.
	p.nextToken()
	p.nextToken()
	return p
}

// Parse consumes the whole file. The returned AST may be partial when
// errors are reported; callers must treat a non-empty error list as
// fatal for the file.
func Parse(filename, input string) (*ast.AST, []error) {
	p := New(filename, input)
	p.parseProgram()
	return p.ast, p.errors
}

func (p *Parser) nextToken() {
	p.current = p.peek
	p.peek = p.lexer.NextToken()
}

func (p *Parser) currentIs(t lexer.TokenType) bool { return p.current.Type == t }
func (p *Parser) peekIs(t lexer.TokenType) bool    { return p.peek.Type == t }

// expect consumes the current token if it has the wanted type, otherwise
// reports an error and leaves the stream untouched.
func (p *Parser) expect(t lexer.TokenType) bool {
	if p.current.Type != t {
		p.errorf("expected %s, found %s %q", t, p.current.Type, p.current.Literal)
		return false
	}
	p.nextToken()
	return true
}

func (p *Parser) errorf(format string, args ...interface{}) {
	p.errors = append(p.errors, &ParseError{
		File:    p.filename,
		Line:    p.current.Line,
		Column:  p.current.Column,
		Message: fmt.Sprintf(format, args...),
	})
	p.ast.AddSyntaxError()
}

// recoverTopLevel skips tokens until the start of the next top-level
// declaration, balancing braces so that a malformed body is skipped
// whole.
func (p *Parser) recoverTopLevel() {
	depth := 0
	for !p.currentIs(lexer.TokenEOF) {
		switch p.current.Type {
		case lexer.TokenLBrace:
			depth++
		case lexer.TokenRBrace:
			if depth > 0 {
				depth--
			}
		case lexer.TokenInterface, lexer.TokenStruct, lexer.TokenUnion,
			lexer.TokenEnum, lexer.TokenTypedef, lexer.TokenAt:
			if depth == 0 {
				return
			}
		}
		p.nextToken()
	}
}

func (p *Parser) parseProgram() {
	p.parsePackageDecl()

	for p.currentIs(lexer.TokenImport) {
		p.parseImportDecl()
	}

	for !p.currentIs(lexer.TokenEOF) {
		before := len(p.errors)
		p.parseDeclaration(p.ast.RootScope(), "")
		if len(p.errors) > before {
			p.recoverTopLevel()
		}
	}
}

func (p *Parser) parsePackageDecl() {
	if !p.expect(lexer.TokenPackage) {
		return
	}
	text, ok := p.parseNameText()
	if !ok {
		return
	}
	q, err := fqn.Parse(text)
	if err != nil || !q.IsPackageRoot() {
		p.errorf("malformed package declaration %q", text)
		return
	}
	if err := p.ast.SetPackage(q); err != nil {
		p.errorf("%v", err)
	}
	p.expect(lexer.TokenSemicolon)
}

func (p *Parser) parseImportDecl() {
	p.expect(lexer.TokenImport)
	text, ok := p.parseNameText()
	if !ok {
		p.recoverTo(lexer.TokenSemicolon)
		p.nextToken()
		return
	}
	q, err := fqn.Parse(text)
	if err != nil {
		p.errorf("malformed import %q", text)
	} else {
		p.ast.AddImport(q)
	}
	p.expect(lexer.TokenSemicolon)
}

func (p *Parser) recoverTo(stop ...lexer.TokenType) {
	for !p.currentIs(lexer.TokenEOF) {
		for _, t := range stop {
			if p.currentIs(t) {
				return
			}
		}
		p.nextToken()
	}
}

// parseNameText assembles the textual form of a possibly qualified name:
// a dotted identifier path, an optional @major.minor, and an optional
// ::Type.Path tail. Lexical validation is left to the fqn package.
func (p *Parser) parseNameText() (string, bool) {
	var sb strings.Builder

	if p.currentIs(lexer.TokenIdentifier) {
		sb.WriteString(p.parseDottedPath())
	}
	if p.currentIs(lexer.TokenAt) {
		sb.WriteByte('@')
		p.nextToken()
		if !p.currentIs(lexer.TokenInteger) {
			p.errorf("expected major version after '@'")
			return "", false
		}
		sb.WriteString(p.current.Literal)
		p.nextToken()
		if !p.expect(lexer.TokenDot) {
			return "", false
		}
		sb.WriteByte('.')
		if !p.currentIs(lexer.TokenInteger) {
			p.errorf("expected minor version")
			return "", false
		}
		sb.WriteString(p.current.Literal)
		p.nextToken()
		if p.currentIs(lexer.TokenScope) {
			p.nextToken()
			sb.WriteString("::")
			if !p.currentIs(lexer.TokenIdentifier) {
				p.errorf("expected type name after '::'")
				return "", false
			}
			sb.WriteString(p.parseDottedPath())
		}
	}

	if sb.Len() == 0 {
		p.errorf("expected name, found %s %q", p.current.Type, p.current.Literal)
		return "", false
	}
	return sb.String(), true
}

// parseDottedPath consumes ident('.'ident)*, taking a dot only when an
// identifier follows it.
func (p *Parser) parseDottedPath() string {
	var sb strings.Builder
	sb.WriteString(p.current.Literal)
	p.nextToken()
	for p.currentIs(lexer.TokenDot) && p.peekIs(lexer.TokenIdentifier) {
		p.nextToken()
		sb.WriteByte('.')
		sb.WriteString(p.current.Literal)
		p.nextToken()
	}
	return sb.String()
}

// fullNameFor builds the declared type's fully qualified name. prefix is
// the dotted path of enclosing types, empty at file scope.
func (p *Parser) fullNameFor(prefix, local string) fqn.FQN {
	pkg := p.ast.Package()
	if prefix != "" {
		return pkg.WithName(prefix + "." + local)
	}
	return pkg.WithName(local)
}

// parseDeclaration handles one type declaration in scope. prefix is the
// enclosing type path used to build full names.
func (p *Parser) parseDeclaration(scope *ast.Scope, prefix string) {
	p.parseDeclarationWith(scope, prefix, p.parseAnnotations())
}

func (p *Parser) parseDeclarationWith(scope *ast.Scope, prefix string, annotations []ast.Annotation) {
	switch p.current.Type {
	case lexer.TokenInterface:
		p.parseInterface(scope, prefix, annotations)
	case lexer.TokenStruct:
		p.parseCompound(ast.KindStruct, scope, prefix)
	case lexer.TokenUnion:
		p.parseCompound(ast.KindUnion, scope, prefix)
	case lexer.TokenEnum:
		p.parseEnum(scope, prefix, annotations)
	case lexer.TokenTypedef:
		p.parseTypedef(scope, prefix)
	default:
		p.errorf("expected declaration, found %s %q", p.current.Type, p.current.Literal)
	}
}

func (p *Parser) parseAnnotations() []ast.Annotation {
	var anns []ast.Annotation
	for p.currentIs(lexer.TokenAt) && p.peekIs(lexer.TokenIdentifier) {
		p.nextToken()
		a := ast.Annotation{Name: p.current.Literal, Params: map[string]string{}}
		p.nextToken()
		if p.currentIs(lexer.TokenLParen) {
			p.nextToken()
			for !p.currentIs(lexer.TokenRParen) && !p.currentIs(lexer.TokenEOF) {
				if !p.currentIs(lexer.TokenIdentifier) {
					p.errorf("expected annotation parameter name")
					p.recoverTo(lexer.TokenRParen, lexer.TokenSemicolon)
					break
				}
				key := p.current.Literal
				p.nextToken()
				if !p.expect(lexer.TokenAssign) {
					break
				}
				a.Params[key] = p.parseAnnotationValue()
				if p.currentIs(lexer.TokenComma) {
					p.nextToken()
				}
			}
			p.expect(lexer.TokenRParen)
		}
		anns = append(anns, a)
	}
	return anns
}

func (p *Parser) parseAnnotationValue() string {
	switch p.current.Type {
	case lexer.TokenString, lexer.TokenInteger, lexer.TokenIdentifier:
		v := p.current.Literal
		p.nextToken()
		return v
	default:
		p.errorf("expected annotation value, found %s", p.current.Type)
		return ""
	}
}

func (p *Parser) parseInterface(scope *ast.Scope, prefix string, annotations []ast.Annotation) {
	p.expect(lexer.TokenInterface)
	if !p.currentIs(lexer.TokenIdentifier) {
		p.errorf("expected interface name")
		return
	}
	name := p.current.Literal
	p.nextToken()

	full := p.fullNameFor(prefix, name)

	var super *ast.NamedReference
	if p.currentIs(lexer.TokenExtends) {
		p.nextToken()
		text, ok := p.parseNameText()
		if !ok {
			return
		}
		q, err := fqn.ParsePartial(text)
		if err != nil {
			p.errorf("malformed base interface name %q", text)
			return
		}
		super = ast.NewNamedReference(q)
	} else if !full.Equal(ast.IBaseFQN) {
		// Every interface implicitly extends IBase.
		super = ast.NewNamedReference(ast.IBaseFQN)
	}
	if super != nil {
		p.ast.RegisterReference(super, scope)
	}

	iface := ast.NewInterface(name, full, super, scope)
	iface.Annotations = annotations
	if err := p.ast.AddScopedType(iface, scope); err != nil {
		p.errorf("%v", err)
		return
	}

	if !p.expect(lexer.TokenLBrace) {
		return
	}
	innerPrefix := name
	if prefix != "" {
		innerPrefix = prefix + "." + name
	}
	for !p.currentIs(lexer.TokenRBrace) && !p.currentIs(lexer.TokenEOF) {
		before := len(p.errors)
		anns := p.parseAnnotations()
		switch p.current.Type {
		case lexer.TokenStruct, lexer.TokenUnion, lexer.TokenEnum, lexer.TokenTypedef:
			p.parseDeclarationWith(iface.InnerScope(), innerPrefix, anns)
		case lexer.TokenOneway, lexer.TokenIdentifier:
			p.parseMethod(iface, anns)
		default:
			p.errorf("expected method or type declaration, found %s %q",
				p.current.Type, p.current.Literal)
		}
		if len(p.errors) > before {
			p.recoverTo(lexer.TokenSemicolon, lexer.TokenRBrace)
			if p.currentIs(lexer.TokenSemicolon) {
				p.nextToken()
			}
		}
	}
	p.expect(lexer.TokenRBrace)
	p.expect(lexer.TokenSemicolon)
}

func (p *Parser) parseMethod(iface *ast.Interface, annotations []ast.Annotation) {
	m := &ast.Method{Annotations: annotations}
	if p.currentIs(lexer.TokenOneway) {
		m.Oneway = true
		p.nextToken()
	}
	if !p.currentIs(lexer.TokenIdentifier) {
		p.errorf("expected method name")
		return
	}
	m.Name = p.current.Literal
	p.nextToken()

	if !p.expect(lexer.TokenLParen) {
		return
	}
	m.Args = p.parseArgumentList(iface.InnerScope())
	if !p.expect(lexer.TokenRParen) {
		return
	}

	if p.currentIs(lexer.TokenGenerates) {
		if m.Oneway {
			p.errorf("oneway method %q cannot generate results", m.Name)
		}
		p.nextToken()
		if !p.expect(lexer.TokenLParen) {
			return
		}
		m.Results = p.parseArgumentList(iface.InnerScope())
		if !p.expect(lexer.TokenRParen) {
			return
		}
	}
	p.expect(lexer.TokenSemicolon)

	for _, existing := range iface.Methods {
		if existing.Name == m.Name {
			p.errorf("interface %s redeclares method %q", iface.LocalName(), m.Name)
			return
		}
	}
	iface.AddMethod(m)
}

func (p *Parser) parseArgumentList(scope *ast.Scope) []*ast.Argument {
	var args []*ast.Argument
	for !p.currentIs(lexer.TokenRParen) && !p.currentIs(lexer.TokenEOF) {
		t := p.parseType(scope)
		if t == nil {
			p.recoverTo(lexer.TokenComma, lexer.TokenRParen)
			if p.currentIs(lexer.TokenComma) {
				p.nextToken()
			}
			continue
		}
		if !p.currentIs(lexer.TokenIdentifier) {
			p.errorf("expected argument name")
			return args
		}
		args = append(args, &ast.Argument{Name: p.current.Literal, Type: t})
		p.nextToken()
		if p.currentIs(lexer.TokenComma) {
			p.nextToken()
		}
	}
	return args
}

func (p *Parser) parseCompound(kind ast.CompoundKind, scope *ast.Scope, prefix string) {
	p.nextToken() // struct or union
	if !p.currentIs(lexer.TokenIdentifier) {
		p.errorf("expected type name")
		return
	}
	name := p.current.Literal
	p.nextToken()

	t := ast.NewCompoundType(kind, name, p.fullNameFor(prefix, name), scope)
	if err := p.ast.AddScopedType(t, scope); err != nil {
		p.errorf("%v", err)
		return
	}

	if !p.expect(lexer.TokenLBrace) {
		return
	}
	innerPrefix := name
	if prefix != "" {
		innerPrefix = prefix + "." + name
	}
	for !p.currentIs(lexer.TokenRBrace) && !p.currentIs(lexer.TokenEOF) {
		before := len(p.errors)
		switch p.current.Type {
		case lexer.TokenStruct, lexer.TokenUnion, lexer.TokenEnum, lexer.TokenTypedef:
			p.parseDeclaration(t.InnerScope(), innerPrefix)
		default:
			p.parseField(t)
		}
		if len(p.errors) > before {
			p.recoverTo(lexer.TokenSemicolon, lexer.TokenRBrace)
			if p.currentIs(lexer.TokenSemicolon) {
				p.nextToken()
			}
		}
	}
	p.expect(lexer.TokenRBrace)
	p.expect(lexer.TokenSemicolon)
}

func (p *Parser) parseField(t *ast.CompoundType) {
	ft := p.parseType(t.InnerScope())
	if ft == nil {
		return
	}
	if !p.currentIs(lexer.TokenIdentifier) {
		p.errorf("expected field name")
		return
	}
	name := p.current.Literal
	p.nextToken()

	// Array dimensions follow the field name.
	var dims []ast.ConstExpr
	for p.currentIs(lexer.TokenLBracket) {
		p.nextToken()
		e := p.parseConstExpr()
		if e == nil {
			return
		}
		dims = append(dims, e)
		if !p.expect(lexer.TokenRBracket) {
			return
		}
	}
	if len(dims) > 0 {
		arr := ast.NewArrayType(ft, dims)
		p.ast.RegisterArray(arr, t.InnerScope())
		ft = arr
	}

	if err := t.AddField(name, ft); err != nil {
		p.errorf("%v", err)
		return
	}
	p.expect(lexer.TokenSemicolon)
}

func (p *Parser) parseEnum(scope *ast.Scope, prefix string, annotations []ast.Annotation) {
	p.expect(lexer.TokenEnum)
	if !p.currentIs(lexer.TokenIdentifier) {
		p.errorf("expected enum name")
		return
	}
	name := p.current.Literal
	p.nextToken()

	if !p.expect(lexer.TokenColon) {
		return
	}
	storage := p.parseType(scope)
	if storage == nil {
		return
	}

	e := ast.NewEnumType(name, p.fullNameFor(prefix, name), storage)
	e.Annotations = annotations
	if err := p.ast.AddScopedType(e, scope); err != nil {
		p.errorf("%v", err)
		return
	}
	p.ast.RegisterEnum(e, scope)

	if !p.expect(lexer.TokenLBrace) {
		return
	}
	for !p.currentIs(lexer.TokenRBrace) && !p.currentIs(lexer.TokenEOF) {
		if !p.currentIs(lexer.TokenIdentifier) {
			p.errorf("expected enum value name, found %s %q", p.current.Type, p.current.Literal)
			p.recoverTo(lexer.TokenComma, lexer.TokenRBrace)
			if p.currentIs(lexer.TokenComma) {
				p.nextToken()
			}
			continue
		}
		vname := p.current.Literal
		p.nextToken()

		var expr ast.ConstExpr
		var text string
		if p.currentIs(lexer.TokenAssign) {
			p.nextToken()
			start := p.current
			expr = p.parseConstExpr()
			if expr == nil {
				p.recoverTo(lexer.TokenComma, lexer.TokenRBrace)
			}
			text = start.Literal
		}
		if _, err := e.AddValue(vname, text, expr); err != nil {
			p.errorf("%v", err)
		}
		if p.currentIs(lexer.TokenComma) {
			p.nextToken()
		} else if !p.currentIs(lexer.TokenRBrace) {
			p.errorf("expected ',' or '}' after enum value %q", vname)
			p.recoverTo(lexer.TokenComma, lexer.TokenRBrace)
			if p.currentIs(lexer.TokenComma) {
				p.nextToken()
			}
		}
	}
	p.expect(lexer.TokenRBrace)
	p.expect(lexer.TokenSemicolon)
}

func (p *Parser) parseTypedef(scope *ast.Scope, prefix string) {
	p.expect(lexer.TokenTypedef)
	t := p.parseType(scope)
	if t == nil {
		return
	}
	if !p.currentIs(lexer.TokenIdentifier) {
		p.errorf("expected typedef name")
		return
	}
	name := p.current.Literal
	p.nextToken()

	td := ast.NewTypeDef(name, p.fullNameFor(prefix, name), t)
	if err := p.ast.AddScopedType(td, scope); err != nil {
		p.errorf("%v", err)
		return
	}
	p.expect(lexer.TokenSemicolon)
}

// parseType parses a type use: vec<T>, a scalar keyword, one of the
// builtin types, or a (possibly qualified) reference to a named type.
func (p *Parser) parseType(scope *ast.Scope) ast.Type {
	switch p.current.Type {
	case lexer.TokenVec:
		p.nextToken()
		if !p.expect(lexer.TokenLt) {
			return nil
		}
		elem := p.parseType(scope)
		if elem == nil {
			return nil
		}
		p.closeAngle()
		return &ast.VectorType{Element: elem}

	case lexer.TokenIdentifier:
		switch p.current.Literal {
		case "string":
			p.nextToken()
			return &ast.StringType{}
		case "handle":
			p.nextToken()
			return &ast.HandleType{}
		case "memory":
			p.nextToken()
			return &ast.MemoryType{}
		}
		if s, ok := ast.LookupScalar(p.current.Literal); ok {
			p.nextToken()
			return s
		}
		return p.parseTypeReference(scope)

	case lexer.TokenAt:
		return p.parseTypeReference(scope)
	}
	p.errorf("expected type, found %s %q", p.current.Type, p.current.Literal)
	return nil
}

func (p *Parser) parseTypeReference(scope *ast.Scope) ast.Type {
	text, ok := p.parseNameText()
	if !ok {
		return nil
	}
	q, err := fqn.ParsePartial(text)
	if err != nil {
		p.errorf("malformed type name %q", text)
		return nil
	}
	ref := ast.NewNamedReference(q)
	p.ast.RegisterReference(ref, scope)
	return ref
}

// closeAngle consumes one '>' of a type argument list. A '>>' token from
// a nested vec is split into two closes.
func (p *Parser) closeAngle() {
	switch p.current.Type {
	case lexer.TokenGt:
		p.nextToken()
	case lexer.TokenShr:
		p.current = lexer.Token{
			Type:    lexer.TokenGt,
			Literal: ">",
			Line:    p.current.Line,
			Column:  p.current.Column + 1,
		}
	default:
		p.errorf("expected '>', found %s %q", p.current.Type, p.current.Literal)
	}
}

// Constant expressions use C precedence:
//
//	|  ^  &  <<>>  +-  */%  unary  primary
func (p *Parser) parseConstExpr() ast.ConstExpr { return p.parseBitOr() }

func (p *Parser) parseBitOr() ast.ConstExpr {
	left := p.parseBitXor()
	for left != nil && p.currentIs(lexer.TokenPipe) {
		p.nextToken()
		right := p.parseBitXor()
		if right == nil {
			return nil
		}
		left = ast.BinaryExpr{Op: "|", L: left, R: right}
	}
	return left
}

func (p *Parser) parseBitXor() ast.ConstExpr {
	left := p.parseBitAnd()
	for left != nil && p.currentIs(lexer.TokenCaret) {
		p.nextToken()
		right := p.parseBitAnd()
		if right == nil {
			return nil
		}
		left = ast.BinaryExpr{Op: "^", L: left, R: right}
	}
	return left
}

func (p *Parser) parseBitAnd() ast.ConstExpr {
	left := p.parseShift()
	for left != nil && p.currentIs(lexer.TokenAmp) {
		p.nextToken()
		right := p.parseShift()
		if right == nil {
			return nil
		}
		left = ast.BinaryExpr{Op: "&", L: left, R: right}
	}
	return left
}

func (p *Parser) parseShift() ast.ConstExpr {
	left := p.parseAdditive()
	for left != nil && (p.currentIs(lexer.TokenShl) || p.currentIs(lexer.TokenShr)) {
		op := "<<"
		if p.currentIs(lexer.TokenShr) {
			op = ">>"
		}
		p.nextToken()
		right := p.parseAdditive()
		if right == nil {
			return nil
		}
		left = ast.BinaryExpr{Op: op, L: left, R: right}
	}
	return left
}

func (p *Parser) parseAdditive() ast.ConstExpr {
	left := p.parseMultiplicative()
	for left != nil && (p.currentIs(lexer.TokenPlus) || p.currentIs(lexer.TokenMinus)) {
		op := "+"
		if p.currentIs(lexer.TokenMinus) {
			op = "-"
		}
		p.nextToken()
		right := p.parseMultiplicative()
		if right == nil {
			return nil
		}
		left = ast.BinaryExpr{Op: op, L: left, R: right}
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.ConstExpr {
	left := p.parseUnary()
	for left != nil {
		var op string
		switch p.current.Type {
		case lexer.TokenStar:
			op = "*"
		case lexer.TokenSlash:
			op = "/"
		case lexer.TokenPercent:
			op = "%"
		default:
			return left
		}
		p.nextToken()
		right := p.parseUnary()
		if right == nil {
			return nil
		}
		left = ast.BinaryExpr{Op: op, L: left, R: right}
	}
	return left
}

func (p *Parser) parseUnary() ast.ConstExpr {
	switch p.current.Type {
	case lexer.TokenMinus, lexer.TokenTilde, lexer.TokenPlus:
		op := p.current.Literal[0]
		p.nextToken()
		x := p.parseUnary()
		if x == nil {
			return nil
		}
		return ast.UnaryExpr{Op: op, X: x}
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() ast.ConstExpr {
	switch p.current.Type {
	case lexer.TokenInteger:
		v, err := parseIntLiteral(p.current.Literal)
		if err != nil {
			p.errorf("bad integer literal %q: %v", p.current.Literal, err)
			return nil
		}
		p.nextToken()
		return ast.LiteralExpr{V: v}

	case lexer.TokenLParen:
		p.nextToken()
		e := p.parseConstExpr()
		if e == nil {
			return nil
		}
		if !p.expect(lexer.TokenRParen) {
			return nil
		}
		return e

	case lexer.TokenIdentifier, lexer.TokenAt:
		text, ok := p.parseNameText()
		if !ok {
			return nil
		}
		return ast.RefExpr{Name: text}
	}
	p.errorf("expected constant expression, found %s %q", p.current.Type, p.current.Literal)
	return nil
}

// parseIntLiteral handles decimal, hex, octal and binary literals with
// optional uUlL suffixes. Out-of-range unsigned values wrap into int64.
func parseIntLiteral(lit string) (int64, error) {
	lit = strings.TrimRight(lit, "uUlL")
	u, err := strconv.ParseUint(lit, 0, 64)
	if err == nil {
		return int64(u), nil
	}
	n, err2 := strconv.ParseInt(lit, 0, 64)
	if err2 == nil {
		return n, nil
	}
	return 0, err
}
