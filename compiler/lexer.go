package compiler

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for the bracketed message-send syntax
// ---------------------------------------------------------------------------

// Lexer tokenizes oops source code.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      rune // current character
	line    int  // current line (1-based)
	col     int  // current column (1-based)
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
		l.pos = l.readPos
		l.col++
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
	l.col++
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

// position returns the current position.
func (l *Lexer) position() Position {
	return Position{
		Offset: l.pos,
		Line:   l.line,
		Column: l.col,
	}
}

// Tokenize returns every token of the input, ending with EOF.
func (l *Lexer) Tokenize() []Token {
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens
		}
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	pos := l.position()
	tok := l.scan(pos)
	tok.End = l.position()
	return tok
}

func (l *Lexer) scan(pos Position) Token {
	switch {
	case l.ch == 0:
		return Token{Type: TokenEOF, Literal: "", Pos: pos}

	case l.ch == '(':
		l.readChar()
		return Token{Type: TokenLParen, Literal: "(", Pos: pos}

	case l.ch == ')':
		l.readChar()
		return Token{Type: TokenRParen, Literal: ")", Pos: pos}

	case l.ch == '[':
		l.readChar()
		return Token{Type: TokenLBracket, Literal: "[", Pos: pos}

	case l.ch == ']':
		l.readChar()
		return Token{Type: TokenRBracket, Literal: "]", Pos: pos}

	case l.ch == '{':
		l.readChar()
		return Token{Type: TokenLBrace, Literal: "{", Pos: pos}

	case l.ch == '}':
		l.readChar()
		return Token{Type: TokenRBrace, Literal: "}", Pos: pos}

	case l.ch == '^':
		l.readChar()
		return Token{Type: TokenCaret, Literal: "^", Pos: pos}

	case l.ch == '.':
		l.readChar()
		return Token{Type: TokenPeriod, Literal: ".", Pos: pos}

	case l.ch == ';':
		l.readChar()
		return Token{Type: TokenSemicolon, Literal: ";", Pos: pos}

	case l.ch == ',':
		l.readChar()
		return Token{Type: TokenComma, Literal: ",", Pos: pos}

	case l.ch == '|':
		l.readChar()
		return Token{Type: TokenBar, Literal: "|", Pos: pos}

	case l.ch == ':':
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return Token{Type: TokenAssign, Literal: ":=", Pos: pos}
		}
		return Token{Type: TokenError, Literal: "unexpected ':'", Pos: pos}

	case l.ch == '=' && l.peekChar() != '=':
		l.readChar()
		return Token{Type: TokenAssign, Literal: "=", Pos: pos}

	case l.ch == '#':
		return l.readSymbol(pos)

	case l.ch == '@':
		return l.readIVar(pos)

	case l.ch == '"' || l.ch == '\'':
		return l.readString(pos)

	case isDigit(l.ch):
		return l.readNumber(pos)

	case isLetter(l.ch) || l.ch == '_':
		return l.readIdentifierOrKeyword(pos)

	case IsBinaryChar(l.ch):
		return l.readBinarySelector(pos)

	default:
		ch := l.ch
		l.readChar()
		return Token{Type: TokenError, Literal: fmt.Sprintf("unexpected character: %c", ch), Pos: pos}
	}
}

// skipWhitespaceAndComments skips whitespace and // line comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}

		if l.ch == '/' && l.peekChar() == '/' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}

		break
	}
}

// readSymbol reads #foo or #at:put:.
func (l *Lexer) readSymbol(pos Position) Token {
	l.readChar() // consume #

	// Binary selector symbols: #+ #== #<=
	if IsBinaryChar(l.ch) {
		start := l.pos
		for IsBinaryChar(l.ch) {
			l.readChar()
		}
		return Token{Type: TokenSymbol, Literal: l.input[start:l.pos], Pos: pos}
	}

	if !isLetter(l.ch) && l.ch != '_' {
		return Token{Type: TokenError, Literal: "expected symbol name after #", Pos: pos}
	}

	var sb strings.Builder
	for {
		for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
			sb.WriteRune(l.ch)
			l.readChar()
		}
		if l.ch == ':' && l.peekChar() != '=' {
			sb.WriteRune(':')
			l.readChar()
			if isLetter(l.ch) || l.ch == '_' {
				continue
			}
		}
		break
	}

	return Token{Type: TokenSymbol, Literal: sb.String(), Pos: pos}
}

// readIVar reads @name.
func (l *Lexer) readIVar(pos Position) Token {
	l.readChar() // consume @
	if !isLetter(l.ch) && l.ch != '_' {
		return Token{Type: TokenError, Literal: "expected instance variable name after @", Pos: pos}
	}
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return Token{Type: TokenIVar, Literal: l.input[start:l.pos], Pos: pos}
}

// readString reads a string delimited by " or '.
func (l *Lexer) readString(pos Position) Token {
	quote := l.ch
	l.readChar() // consume opening quote

	var sb strings.Builder
	for l.ch != quote {
		if l.ch == 0 {
			return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 0:
				return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
			default:
				sb.WriteRune(l.ch)
			}
			l.readChar()
			continue
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
	l.readChar() // consume closing quote

	return Token{Type: TokenString, Literal: sb.String(), Pos: pos}
}

// readNumber reads a decimal integer.
func (l *Lexer) readNumber(pos Position) Token {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	if isLetter(l.ch) {
		return Token{Type: TokenError, Literal: fmt.Sprintf("malformed number: %s%c", l.input[start:l.pos], l.ch), Pos: pos}
	}
	return Token{Type: TokenInteger, Literal: l.input[start:l.pos], Pos: pos}
}

// readIdentifierOrKeyword reads an identifier, reserved word, or keyword (foo:).
func (l *Lexer) readIdentifierOrKeyword(pos Position) Token {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	name := l.input[start:l.pos]

	// foo: is a keyword, but foo:= is an identifier followed by assignment.
	if l.ch == ':' && l.peekChar() != '=' {
		l.readChar()
		return Token{Type: TokenKeyword, Literal: name, Pos: pos}
	}

	if tt, ok := reservedWords[name]; ok {
		return Token{Type: tt, Literal: name, Pos: pos}
	}
	return Token{Type: TokenIdentifier, Literal: name, Pos: pos}
}

// readBinarySelector reads one of the fixed binary operators.
func (l *Lexer) readBinarySelector(pos Position) Token {
	first := l.ch
	l.readChar()
	if l.ch == '=' {
		switch first {
		case '<', '>', '=', '!':
			l.readChar()
			return Token{Type: TokenBinarySelector, Literal: string(first) + "=", Pos: pos}
		}
	}
	if first == '!' {
		return Token{Type: TokenError, Literal: "unexpected character: !", Pos: pos}
	}
	return Token{Type: TokenBinarySelector, Literal: string(first), Pos: pos}
}

func isLetter(r rune) bool {
	return unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
