package vm

import (
	"errors"
	"fmt"

	"github.com/chazu/oops/compiler"
)

// ---------------------------------------------------------------------------
// Runtime errors
// ---------------------------------------------------------------------------

// Kind classifies a runtime error.
type Kind int

const (
	KindNone Kind = iota
	KindDuplicateClass
	KindUnknownClass
	KindDuplicateIvar
	KindDoesNotUnderstand
	KindUnknownIvar
	KindArityMismatch
	KindUnboundVariable
	KindStackOverflow
	KindUnexpectedArgument
	KindMissingArgument
	KindNoSelf
	KindTypeMismatch
	KindDivisionByZero
	KindIndexOutOfRange
)

var kindNames = map[Kind]string{
	KindNone:               "None",
	KindDuplicateClass:     "DuplicateClass",
	KindUnknownClass:       "UnknownClass",
	KindDuplicateIvar:      "DuplicateIvar",
	KindDoesNotUnderstand:  "DoesNotUnderstand",
	KindUnknownIvar:        "UnknownIvar",
	KindArityMismatch:      "ArityMismatch",
	KindUnboundVariable:    "UnboundVariable",
	KindStackOverflow:      "StackOverflow",
	KindUnexpectedArgument: "UnexpectedArgument",
	KindMissingArgument:    "MissingArgument",
	KindNoSelf:             "NoSelf",
	KindTypeMismatch:       "TypeMismatch",
	KindDivisionByZero:     "DivisionByZero",
	KindIndexOutOfRange:    "IndexOutOfRange",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is a recoverable runtime error. Only the fields relevant to Kind
// are set.
type Error struct {
	Kind     Kind
	Class    string // class or receiver type involved
	Selector string // selector for DoesNotUnderstand and TypeMismatch
	Name     string // variable, ivar or argument name
	Expected int    // ArityMismatch, IndexOutOfRange (size)
	Got      int
	Detail   string // free-form detail for TypeMismatch
	Span     compiler.Span
}

func (e *Error) Error() string {
	msg := e.message()
	if e.Span.Start.Line > 0 {
		return fmt.Sprintf("line %d:%d: %s", e.Span.Start.Line, e.Span.Start.Column, msg)
	}
	return msg
}

func (e *Error) message() string {
	switch e.Kind {
	case KindDuplicateClass:
		return fmt.Sprintf("class %s is already defined", e.Class)
	case KindUnknownClass:
		return fmt.Sprintf("class %s is not defined", e.Class)
	case KindDuplicateIvar:
		return fmt.Sprintf("instance variable %s is already declared by %s", e.Name, e.Class)
	case KindDoesNotUnderstand:
		return fmt.Sprintf("%s does not understand #%s", e.Class, e.Selector)
	case KindUnknownIvar:
		return fmt.Sprintf("instance variable @%s is not declared by %s", e.Name, e.Class)
	case KindArityMismatch:
		if e.Selector != "" {
			return fmt.Sprintf("#%s expects %d argument(s), got %d", e.Selector, e.Expected, e.Got)
		}
		return fmt.Sprintf("expected %d argument(s), got %d", e.Expected, e.Got)
	case KindUnboundVariable:
		return fmt.Sprintf("undefined variable %s", e.Name)
	case KindStackOverflow:
		return fmt.Sprintf("stack overflow (depth %d)", e.Expected)
	case KindUnexpectedArgument:
		return fmt.Sprintf("unexpected argument %s:", e.Name)
	case KindMissingArgument:
		return fmt.Sprintf("missing argument %s:", e.Name)
	case KindNoSelf:
		if e.Name != "" {
			return fmt.Sprintf("instance variable @%s accessed outside a method", e.Name)
		}
		return "self used outside a method"
	case KindTypeMismatch:
		return fmt.Sprintf("#%s: %s", e.Selector, e.Detail)
	case KindDivisionByZero:
		return "division by zero"
	case KindIndexOutOfRange:
		return fmt.Sprintf("index %d out of range for size %d", e.Got, e.Expected)
	}
	return e.Kind.String()
}

// at attaches a source span if the error does not carry one yet.
func (e *Error) at(span compiler.Span) *Error {
	if e.Span.Start.Line == 0 {
		e.Span = span
	}
	return e
}

// KindOf returns the Kind of a runtime error, looking through wrapping.
// It returns KindNone for nil and non-runtime errors.
func KindOf(err error) Kind {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.Kind
	}
	return KindNone
}

// withSpan attaches span to err if it is a runtime error without one.
func withSpan(err error, span compiler.Span) error {
	var rerr *Error
	if errors.As(err, &rerr) {
		rerr.at(span)
	}
	return err
}

func errDuplicateClass(name string) *Error {
	return &Error{Kind: KindDuplicateClass, Class: name}
}

func errUnknownClass(name string) *Error {
	return &Error{Kind: KindUnknownClass, Class: name}
}

func errDuplicateIvar(class, name string) *Error {
	return &Error{Kind: KindDuplicateIvar, Class: class, Name: name}
}

func errDoesNotUnderstand(recv Value, selector string) *Error {
	return &Error{Kind: KindDoesNotUnderstand, Class: recv.TypeName(), Selector: selector}
}

func errUnknownIvar(class, name string) *Error {
	return &Error{Kind: KindUnknownIvar, Class: class, Name: name}
}

func errArity(selector string, expected, got int) *Error {
	return &Error{Kind: KindArityMismatch, Selector: selector, Expected: expected, Got: got}
}

func errUnbound(name string) *Error {
	return &Error{Kind: KindUnboundVariable, Name: name}
}

func errStackOverflow(depth int) *Error {
	return &Error{Kind: KindStackOverflow, Expected: depth}
}

func errUnexpectedArgument(name string) *Error {
	return &Error{Kind: KindUnexpectedArgument, Name: name}
}

func errMissingArgument(name string) *Error {
	return &Error{Kind: KindMissingArgument, Name: name}
}

func errNoSelf(ivar string) *Error {
	return &Error{Kind: KindNoSelf, Name: ivar}
}

func errTypeMismatch(selector, format string, args ...interface{}) *Error {
	return &Error{Kind: KindTypeMismatch, Selector: selector, Detail: fmt.Sprintf(format, args...)}
}

func errDivisionByZero() *Error {
	return &Error{Kind: KindDivisionByZero}
}

func errIndexOutOfRange(index, size int) *Error {
	return &Error{Kind: KindIndexOutOfRange, Got: index, Expected: size}
}
