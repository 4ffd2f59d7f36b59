package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the oops lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenInteger    // 42
	TokenString     // "hello", 'hello'
	TokenSymbol     // #foo, #at:put:
	TokenIdentifier // foo, Bar
	TokenIVar       // @name

	// Keywords and selectors
	TokenKeyword        // foo:
	TokenBinarySelector // +, -, *, /, %, <, >, <=, >=, ==, !=

	// Delimiters
	TokenLParen    // (
	TokenRParen    // )
	TokenLBracket  // [
	TokenRBracket  // ]
	TokenLBrace    // {
	TokenRBrace    // }
	TokenCaret     // ^
	TokenPeriod    // .
	TokenSemicolon // ;
	TokenComma     // ,
	TokenAssign    // := or =
	TokenBar       // |

	// Reserved identifiers
	TokenLet
	TokenReturn
	TokenSelf
	TokenNil
	TokenTrue
	TokenFalse
)

var tokenNames = map[TokenType]string{
	TokenEOF:            "EOF",
	TokenError:          "ERROR",
	TokenInteger:        "INTEGER",
	TokenString:         "STRING",
	TokenSymbol:         "SYMBOL",
	TokenIdentifier:     "IDENTIFIER",
	TokenIVar:           "IVAR",
	TokenKeyword:        "KEYWORD",
	TokenBinarySelector: "BINARY",
	TokenLParen:         "(",
	TokenRParen:         ")",
	TokenLBracket:       "[",
	TokenRBracket:       "]",
	TokenLBrace:         "{",
	TokenRBrace:         "}",
	TokenCaret:          "^",
	TokenPeriod:         ".",
	TokenSemicolon:      ";",
	TokenComma:          ",",
	TokenAssign:         "=",
	TokenBar:            "|",
	TokenLet:            "let",
	TokenReturn:         "return",
	TokenSelf:           "self",
	TokenNil:            "nil",
	TokenTrue:           "true",
	TokenFalse:          "false",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string   // the raw text (without sigils or trailing colon)
	Pos     Position // start position
	End     Position // position just past the last character
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Reserved words mapped to their token types.
var reservedWords = map[string]TokenType{
	"let":    TokenLet,
	"return": TokenReturn,
	"self":   TokenSelf,
	"nil":    TokenNil,
	"true":   TokenTrue,
	"false":  TokenFalse,
}

// IsBinaryChar returns true if r can start a binary selector.
func IsBinaryChar(r rune) bool {
	switch r {
	case '+', '-', '*', '/', '%', '<', '>', '=', '!':
		return true
	}
	return false
}
