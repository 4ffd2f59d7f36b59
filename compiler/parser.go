package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for the bracketed message-send syntax
// ---------------------------------------------------------------------------

// Diagnostic is a single parse error with its location.
type Diagnostic struct {
	Pos     Position
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d:%d: %s", d.Pos.Line, d.Pos.Column, d.Message)
}

// ParseError collects every diagnostic produced while parsing a source.
type ParseError struct {
	Diagnostics []Diagnostic
}

func (e *ParseError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = d.String()
	}
	return "parse error: " + strings.Join(msgs, "; ")
}

// Parser parses oops source code into an AST.
type Parser struct {
	tokens []Token
	pos    int
	errors []Diagnostic
	input  string // original source text (for block source preservation)
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	return &Parser{
		tokens: NewLexer(input).Tokenize(),
		input:  input,
	}
}

// Parse parses a complete program. The returned error, if any, is a
// *ParseError listing every diagnostic.
func Parse(source string) (*Program, error) {
	p := NewParser(source)
	prog := p.ParseProgram()
	if len(p.errors) > 0 {
		return nil, &ParseError{Diagnostics: p.errors}
	}
	return prog, nil
}

// ParseBlockSource parses the source text of a single block literal.
func ParseBlockSource(source string) (*Block, error) {
	p := NewParser(source)
	expr := p.parsePrimary()
	block, ok := expr.(*Block)
	if !ok && len(p.errors) == 0 {
		p.errorf("expected block literal")
	}
	if !p.curTokenIs(TokenEOF) && len(p.errors) == 0 {
		p.errorf("unexpected %s after block literal", p.cur().Type)
	}
	if len(p.errors) > 0 {
		return nil, &ParseError{Diagnostics: p.errors}
	}
	return block, nil
}

// cur returns the current token.
func (p *Parser) cur() Token {
	return p.tokens[p.pos]
}

// peek returns the token after the current one.
func (p *Parser) peek() Token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}
	return p.tokens[len(p.tokens)-1]
}

// nextToken advances to the next token. EOF is sticky.
func (p *Parser) nextToken() {
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.cur().Type == t
}

// peekTokenIs checks if the peek token is of the given type.
func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peek().Type == t
}

// expect advances if the current token matches, otherwise records an error.
func (p *Parser) expect(t TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.errorf("expected %s, got %s", t, p.describe(p.cur()))
	return false
}

// errorf records a parse error at the current token.
func (p *Parser) errorf(format string, args ...interface{}) {
	p.errors = append(p.errors, Diagnostic{
		Pos:     p.cur().Pos,
		Message: fmt.Sprintf(format, args...),
	})
}

// Errors returns accumulated parse errors.
func (p *Parser) Errors() []string {
	msgs := make([]string, len(p.errors))
	for i, d := range p.errors {
		msgs[i] = d.String()
	}
	return msgs
}

// Diagnostics returns accumulated parse errors with positions.
func (p *Parser) Diagnostics() []Diagnostic {
	return p.errors
}

func (p *Parser) describe(tok Token) string {
	if tok.Type == TokenError {
		return tok.Literal
	}
	return tok.String()
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseProgram parses statements until EOF.
func (p *Parser) ParseProgram() *Program {
	start := p.cur().Pos
	stmts := p.parseStatements(TokenEOF)
	return &Program{
		SpanVal:    MakeSpan(start, p.cur().End),
		Statements: stmts,
		Source:     p.input,
	}
}

// ParseExpression parses a single expression.
func (p *Parser) ParseExpression() Expr {
	return p.parseAssignOrSend()
}

// parseStatements parses statements until the closing token (EOF or '}').
func (p *Parser) parseStatements(closing TokenType) []Stmt {
	var stmts []Stmt
	for !p.curTokenIs(closing) && !p.curTokenIs(TokenEOF) {
		before := len(p.errors)
		start := p.pos
		stmt := p.ParseStatement()
		if len(p.errors) > before {
			p.synchronize(closing)
			if p.pos == start {
				p.nextToken()
			}
			continue
		}
		if stmt != nil {
			stmts = append(stmts, stmt)
		}

		switch {
		case p.curTokenIs(TokenSemicolon), p.curTokenIs(TokenPeriod):
			p.nextToken()
		case p.curTokenIs(closing), p.curTokenIs(TokenEOF):
		default:
			p.errorf("expected ';' after statement, got %s", p.describe(p.cur()))
			p.synchronize(closing)
		}
	}
	return stmts
}

// synchronize skips to just past the next statement terminator.
func (p *Parser) synchronize(closing TokenType) {
	depth := 0
	for !p.curTokenIs(TokenEOF) {
		switch p.cur().Type {
		case TokenLBrace, TokenLBracket, TokenLParen:
			depth++
		case TokenRBrace, TokenRBracket, TokenRParen:
			if depth == 0 {
				if p.curTokenIs(closing) {
					return
				}
			} else {
				depth--
			}
		case TokenSemicolon, TokenPeriod:
			if depth == 0 {
				p.nextToken()
				return
			}
		}
		p.nextToken()
	}
}

// ParseStatement parses a single statement without its terminator.
func (p *Parser) ParseStatement() Stmt {
	start := p.cur().Pos

	switch {
	case p.curTokenIs(TokenLet):
		p.nextToken()
		if !p.curTokenIs(TokenIdentifier) {
			p.errorf("expected name after let, got %s", p.describe(p.cur()))
			return nil
		}
		name := p.cur().Literal
		p.nextToken()
		if !p.expect(TokenAssign) {
			return nil
		}
		value := p.parseSend()
		if value == nil {
			return nil
		}
		return &Let{SpanVal: MakeSpan(start, value.Span().End), Name: name, Value: value}

	case p.curTokenIs(TokenReturn), p.curTokenIs(TokenCaret):
		p.nextToken()
		value := p.parseAssignOrSend()
		if value == nil {
			return nil
		}
		return &Return{SpanVal: MakeSpan(start, value.Span().End), Value: value}
	}

	expr := p.parseAssignOrSend()
	if expr == nil {
		return nil
	}
	return &ExprStmt{SpanVal: expr.Span(), Expr: expr}
}

// parseAssignOrSend parses `target = send` or a plain send.
func (p *Parser) parseAssignOrSend() Expr {
	if (p.curTokenIs(TokenIdentifier) || p.curTokenIs(TokenIVar)) && p.peekTokenIs(TokenAssign) {
		tok := p.cur()
		var target Expr
		span := MakeSpan(tok.Pos, tok.End)
		if tok.Type == TokenIVar {
			target = &IVar{SpanVal: span, Name: tok.Literal}
		} else {
			target = &Variable{SpanVal: span, Name: tok.Literal}
		}
		p.nextToken() // name
		p.nextToken() // = or :=
		value := p.parseAssignOrSend()
		if value == nil {
			return nil
		}
		return &Assignment{SpanVal: MakeSpan(tok.Pos, value.Span().End), Target: target, Value: value}
	}
	return p.parseSend()
}

// ---------------------------------------------------------------------------
// Expression parsing (message precedence: unary > binary > keyword)
// ---------------------------------------------------------------------------

// parseSend parses a keyword send, optionally headed by a name
// (`u set id: 1`), or falls through to a binary expression.
func (p *Parser) parseSend() Expr {
	receiver := p.parseBinary()
	if receiver == nil {
		return nil
	}

	name := ""
	if p.curTokenIs(TokenIdentifier) && p.peekTokenIs(TokenKeyword) {
		name = p.cur().Literal
		p.nextToken()
	}
	if !p.curTokenIs(TokenKeyword) {
		return receiver
	}

	var keywords []string
	var args []Expr
	for p.curTokenIs(TokenKeyword) {
		keywords = append(keywords, p.cur().Literal)
		p.nextToken()
		arg := p.parseBinary()
		if arg == nil {
			return nil
		}
		args = append(args, arg)

		// Comma-separated keyword parts: `def: #foo, do: ...`
		if p.curTokenIs(TokenComma) && p.peekTokenIs(TokenKeyword) {
			p.nextToken()
		}
	}

	return &MessageSend{
		SpanVal:   MakeSpan(receiver.Span().Start, args[len(args)-1].Span().End),
		Receiver:  receiver,
		Name:      name,
		Keywords:  keywords,
		Arguments: args,
	}
}

// parseBinary parses left-associative binary sends.
func (p *Parser) parseBinary() Expr {
	left := p.parseUnary()
	if left == nil {
		return nil
	}
	for p.curTokenIs(TokenBinarySelector) {
		op := p.cur().Literal
		p.nextToken()
		right := p.parseUnary()
		if right == nil {
			return nil
		}
		left = &MessageSend{
			SpanVal:   MakeSpan(left.Span().Start, right.Span().End),
			Receiver:  left,
			Name:      op,
			Arguments: []Expr{right},
		}
	}
	return left
}

// parseUnary parses a primary followed by unary sends. A name followed by
// a keyword is left for parseSend as the head of a keyword send.
func (p *Parser) parseUnary() Expr {
	recv := p.parsePrimary()
	if recv == nil {
		return nil
	}
	for p.curTokenIs(TokenIdentifier) && !p.peekTokenIs(TokenKeyword) {
		tok := p.cur()
		p.nextToken()
		recv = &MessageSend{
			SpanVal:  MakeSpan(recv.Span().Start, tok.End),
			Receiver: recv,
			Name:     tok.Literal,
		}
	}
	return recv
}

// parsePrimary parses literals, variables, blocks and bracketed forms.
func (p *Parser) parsePrimary() Expr {
	tok := p.cur()
	span := MakeSpan(tok.Pos, tok.End)

	switch tok.Type {
	case TokenInteger:
		p.nextToken()
		return p.intLiteral(tok.Literal, span)

	case TokenBinarySelector:
		// Negative integer literal: -5
		if tok.Literal == "-" && p.peekTokenIs(TokenInteger) && p.peek().Pos.Offset == tok.End.Offset {
			p.nextToken()
			num := p.cur()
			p.nextToken()
			return p.intLiteral("-"+num.Literal, MakeSpan(tok.Pos, num.End))
		}
		p.errorf("unexpected operator %q", tok.Literal)
		return nil

	case TokenString:
		p.nextToken()
		return &StringLiteral{SpanVal: span, Value: tok.Literal}

	case TokenSymbol:
		p.nextToken()
		return &SymbolLiteral{SpanVal: span, Value: tok.Literal}

	case TokenTrue:
		p.nextToken()
		return &TrueLiteral{SpanVal: span}

	case TokenFalse:
		p.nextToken()
		return &FalseLiteral{SpanVal: span}

	case TokenNil:
		p.nextToken()
		return &NilLiteral{SpanVal: span}

	case TokenSelf:
		p.nextToken()
		return &Self{SpanVal: span}

	case TokenIdentifier:
		p.nextToken()
		return &Variable{SpanVal: span, Name: tok.Literal}

	case TokenIVar:
		p.nextToken()
		return &IVar{SpanVal: span, Name: tok.Literal}

	case TokenLParen:
		p.nextToken()
		expr := p.parseAssignOrSend()
		if expr == nil {
			return nil
		}
		if !p.expect(TokenRParen) {
			return nil
		}
		return expr

	case TokenBar, TokenLBrace:
		return p.parseBlock()

	case TokenLBracket:
		return p.parseBracket()

	case TokenError:
		p.errorf("%s", tok.Literal)
		return nil

	default:
		p.errorf("unexpected %s", p.describe(tok))
		return nil
	}
}

func (p *Parser) intLiteral(lit string, span Span) Expr {
	n, err := strconv.ParseInt(lit, 10, 64)
	if err != nil {
		p.errors = append(p.errors, Diagnostic{Pos: span.Start, Message: fmt.Sprintf("integer literal out of range: %s", lit)})
		return nil
	}
	return &IntLiteral{SpanVal: span, Value: n}
}

// parseBracket parses `[]`, `[a, b]`, `[x = send]` and `[recv selector...]`.
// A bracket holding a single non-send operand is a one-element list.
func (p *Parser) parseBracket() Expr {
	start := p.cur().Pos
	p.nextToken() // consume [

	if p.curTokenIs(TokenRBracket) {
		end := p.cur().End
		p.nextToken()
		return &ListLiteral{SpanVal: MakeSpan(start, end)}
	}

	first := p.parseAssignOrSend()
	if first == nil {
		return nil
	}

	if p.curTokenIs(TokenComma) {
		elems := []Expr{first}
		for p.curTokenIs(TokenComma) {
			p.nextToken()
			elem := p.parseSend()
			if elem == nil {
				return nil
			}
			elems = append(elems, elem)
		}
		end := p.cur().End
		if !p.expect(TokenRBracket) {
			return nil
		}
		return &ListLiteral{SpanVal: MakeSpan(start, end), Elements: elems}
	}

	end := p.cur().End
	if !p.expect(TokenRBracket) {
		return nil
	}

	switch e := first.(type) {
	case *MessageSend:
		e.SpanVal = MakeSpan(start, end)
		return e
	case *Assignment:
		e.SpanVal = MakeSpan(start, end)
		return e
	}
	return &ListLiteral{SpanVal: MakeSpan(start, end), Elements: []Expr{first}}
}

// parseBlock parses |a, b| { stmts } or { stmts }.
func (p *Parser) parseBlock() Expr {
	start := p.cur().Pos

	var params []string
	if p.curTokenIs(TokenBar) {
		p.nextToken()
		for p.curTokenIs(TokenIdentifier) {
			params = append(params, p.cur().Literal)
			p.nextToken()
			if p.curTokenIs(TokenComma) {
				p.nextToken()
			}
		}
		if !p.expect(TokenBar) {
			return nil
		}
	}

	if !p.expect(TokenLBrace) {
		return nil
	}
	stmts := p.parseStatements(TokenRBrace)
	end := p.cur().End
	if !p.expect(TokenRBrace) {
		return nil
	}

	return &Block{
		SpanVal:    MakeSpan(start, end),
		Parameters: params,
		Statements: stmts,
		Source:     p.input[start.Offset:end.Offset],
	}
}
