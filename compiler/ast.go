package compiler

import "strings"

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for oops programs
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() Span
	node() // marker method
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// IntLiteral represents an integer literal.
type IntLiteral struct {
	SpanVal Span
	Value   int64
}

func (n *IntLiteral) Span() Span { return n.SpanVal }
func (n *IntLiteral) node()      {}
func (n *IntLiteral) expr()      {}

// StringLiteral represents a string literal.
type StringLiteral struct {
	SpanVal Span
	Value   string
}

func (n *StringLiteral) Span() Span { return n.SpanVal }
func (n *StringLiteral) node()      {}
func (n *StringLiteral) expr()      {}

// SymbolLiteral represents a symbol literal (#foo).
type SymbolLiteral struct {
	SpanVal Span
	Value   string
}

func (n *SymbolLiteral) Span() Span { return n.SpanVal }
func (n *SymbolLiteral) node()      {}
func (n *SymbolLiteral) expr()      {}

// ListLiteral represents a list literal [a, b, c].
type ListLiteral struct {
	SpanVal  Span
	Elements []Expr
}

func (n *ListLiteral) Span() Span { return n.SpanVal }
func (n *ListLiteral) node()      {}
func (n *ListLiteral) expr()      {}

// Variable represents a variable reference.
type Variable struct {
	SpanVal Span
	Name    string
}

func (n *Variable) Span() Span { return n.SpanVal }
func (n *Variable) node()      {}
func (n *Variable) expr()      {}

// IVar represents an instance variable reference (@name).
type IVar struct {
	SpanVal Span
	Name    string
}

func (n *IVar) Span() Span { return n.SpanVal }
func (n *IVar) node()      {}
func (n *IVar) expr()      {}

// Assignment mutates an existing binding (x = expr, @x = expr).
// Target is either *Variable or *IVar.
type Assignment struct {
	SpanVal Span
	Target  Expr
	Value   Expr
}

func (n *Assignment) Span() Span { return n.SpanVal }
func (n *Assignment) node()      {}
func (n *Assignment) expr()      {}

// MessageSend represents a message send.
//
// Name is the leading unary or binary part ("set" in `u set id: 1`, "+" in
// `1 + 2`) and is empty for pure keyword sends such as `b if: x else: y`.
// Keywords holds keyword parts without their colons, paired with Arguments.
type MessageSend struct {
	SpanVal   Span
	Receiver  Expr
	Name      string
	Keywords  []string
	Arguments []Expr
}

func (n *MessageSend) Span() Span { return n.SpanVal }
func (n *MessageSend) node()      {}
func (n *MessageSend) expr()      {}

// Selector returns the lookup key for the send: the head name when present,
// otherwise the keyword parts joined Smalltalk-style ("if:else:").
func (n *MessageSend) Selector() string {
	return SelectorFor(n.Name, n.Keywords)
}

// SelectorFor builds a lookup key from a head name and keyword parts.
func SelectorFor(name string, keywords []string) string {
	if name != "" {
		return name
	}
	var sb strings.Builder
	for _, kw := range keywords {
		sb.WriteString(kw)
		sb.WriteByte(':')
	}
	return sb.String()
}

// Block represents a block closure |a, b| { stmts }.
type Block struct {
	SpanVal    Span
	Parameters []string
	Statements []Stmt
	Source     string // original text of the block literal
}

func (n *Block) Span() Span { return n.SpanVal }
func (n *Block) node()      {}
func (n *Block) expr()      {}

// Self represents the 'self' pseudo-variable.
type Self struct {
	SpanVal Span
}

func (n *Self) Span() Span { return n.SpanVal }
func (n *Self) node()      {}
func (n *Self) expr()      {}

// NilLiteral represents the 'nil' literal.
type NilLiteral struct {
	SpanVal Span
}

func (n *NilLiteral) Span() Span { return n.SpanVal }
func (n *NilLiteral) node()      {}
func (n *NilLiteral) expr()      {}

// TrueLiteral represents the 'true' literal.
type TrueLiteral struct {
	SpanVal Span
}

func (n *TrueLiteral) Span() Span { return n.SpanVal }
func (n *TrueLiteral) node()      {}
func (n *TrueLiteral) expr()      {}

// FalseLiteral represents the 'false' literal.
type FalseLiteral struct {
	SpanVal Span
}

func (n *FalseLiteral) Span() Span { return n.SpanVal }
func (n *FalseLiteral) node()      {}
func (n *FalseLiteral) expr()      {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// ExprStmt is an expression used as a statement.
type ExprStmt struct {
	SpanVal Span
	Expr    Expr
}

func (n *ExprStmt) Span() Span { return n.SpanVal }
func (n *ExprStmt) node()      {}
func (n *ExprStmt) stmt()      {}

// Let introduces a new binding in the current scope (let x = expr).
type Let struct {
	SpanVal Span
	Name    string
	Value   Expr
}

func (n *Let) Span() Span { return n.SpanVal }
func (n *Let) node()      {}
func (n *Let) stmt()      {}

// Return represents an explicit early return (return expr, ^expr).
type Return struct {
	SpanVal Span
	Value   Expr
}

func (n *Return) Span() Span { return n.SpanVal }
func (n *Return) node()      {}
func (n *Return) stmt()      {}

// ---------------------------------------------------------------------------
// Top-level structure
// ---------------------------------------------------------------------------

// Program is a parsed source file: a sequence of top-level statements.
type Program struct {
	SpanVal    Span
	Statements []Stmt
	Source     string
}

func (n *Program) Span() Span { return n.SpanVal }
func (n *Program) node()      {}

// ---------------------------------------------------------------------------
// Helper functions
// ---------------------------------------------------------------------------

// MakeSpan creates a span from start and end positions.
func MakeSpan(start, end Position) Span {
	return Span{Start: start, End: end}
}

// ZeroSpan returns an empty span.
func ZeroSpan() Span {
	return Span{}
}
