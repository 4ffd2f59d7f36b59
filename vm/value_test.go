package vm

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/chazu/oops/compiler"
)

// ---------------------------------------------------------------------------
// Value tests
// ---------------------------------------------------------------------------

func TestValuePrintString(t *testing.T) {
	ct := NewClassTable()
	user, _ := ct.CreateClass("User")

	tests := []struct {
		v    Value
		want string
	}{
		{Nil, "nil"},
		{IntValue(-12), "-12"},
		{StringValue("hi\n"), `"hi\n"`},
		{SymbolValue("at:put:"), "#at:put:"},
		{True, "true"},
		{False, "false"},
		{ClassValue(user), "User"},
		{InstanceValue(NewInstance(user)), "a User"},
		{ListValue(NewList(IntValue(1), StringValue("a"))), `[1, "a"]`},
		{NativeValue(NewNative("Transcript")), "Transcript"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}

	if got := StringValue("plain").DisplayString(); got != "plain" {
		t.Errorf("DisplayString() = %q", got)
	}
}

func TestValueTypeName(t *testing.T) {
	ct := NewClassTable()
	user, _ := ct.CreateClass("User")

	tests := []struct {
		v    Value
		want string
	}{
		{Nil, "Nil"},
		{IntValue(1), "Integer"},
		{StringValue(""), "String"},
		{SymbolValue("x"), "Symbol"},
		{True, "Boolean"},
		{InstanceValue(NewInstance(user)), "User"},
		{ClassValue(user), "User class"},
		{ListValue(NewList()), "List"},
	}
	for _, tt := range tests {
		if got := tt.v.TypeName(); got != tt.want {
			t.Errorf("TypeName() = %q, want %q", got, tt.want)
		}
	}
}

func TestValueIdentical(t *testing.T) {
	ct := NewClassTable()
	user, _ := ct.CreateClass("User")
	a := NewInstance(user)
	b := NewInstance(user)
	l := NewList()

	tests := []struct {
		x, y Value
		want bool
	}{
		{IntValue(3), IntValue(3), true},
		{IntValue(3), IntValue(4), false},
		{StringValue("a"), StringValue("a"), true},
		{StringValue("a"), SymbolValue("a"), false},
		{True, BoolValue(true), true},
		{Nil, NilValue(), true},
		{InstanceValue(a), InstanceValue(a), true},
		{InstanceValue(a), InstanceValue(b), false},
		{ListValue(l), ListValue(l), true},
		{ListValue(NewList()), ListValue(NewList()), false},
		{IntValue(0), False, false},
	}
	for i, tt := range tests {
		if got := tt.x.Identical(tt.y); got != tt.want {
			t.Errorf("case %d: Identical(%v, %v) = %v, want %v", i, tt.x, tt.y, got, tt.want)
		}
	}
}

func TestValueTruthiness(t *testing.T) {
	if !True.IsTrue() || False.IsTrue() {
		t.Error("boolean truthiness wrong")
	}
	if IntValue(1).IsTrue() {
		t.Error("only the boolean true is true")
	}
	if !Nil.IsNil() || IntValue(0).IsNil() {
		t.Error("IsNil wrong")
	}
}

func TestListPrintsCyclesAndDeepNesting(t *testing.T) {
	l := NewList(IntValue(1))
	l.Add(ListValue(l))
	if got, want := ListValue(l).String(), "[1, [...]]"; got != want {
		t.Errorf("self-containing list = %s, want %s", got, want)
	}

	// A list shared twice without a cycle prints in full both times.
	shared := NewList(IntValue(2))
	pair := NewList(ListValue(shared), ListValue(shared))
	if got, want := ListValue(pair).String(), "[[2], [2]]"; got != want {
		t.Errorf("shared list = %s, want %s", got, want)
	}

	deep := NewList()
	for i := 0; i < 100000; i++ {
		deep = NewList(ListValue(deep))
	}
	s := ListValue(deep).String()
	if !strings.Contains(s, "[...]") || strings.Count(s, "[") > MaxPrintDepth+1 {
		t.Errorf("deep list printed %d levels", strings.Count(s, "["))
	}
}

func TestPrintStringOfSelfContainingList(t *testing.T) {
	in := New()
	v, err := in.EvalString("let l = [1]; [l add: l]; [l printString]")
	if err != nil {
		t.Fatalf("EvalString: %v", err)
	}
	if v.StringVal != "[1, [...]]" {
		t.Errorf("printString = %q, want %q", v.StringVal, "[1, [...]]")
	}
}

func TestListBounds(t *testing.T) {
	l := NewList(IntValue(1))
	if _, ok := l.At(1); ok {
		t.Error("At past the end should fail")
	}
	if l.AtPut(-1, Nil) {
		t.Error("AtPut before the start should fail")
	}
	l.Add(IntValue(2))
	if v, ok := l.At(1); !ok || v.IntVal != 2 {
		t.Errorf("At(1) = %v, %v", v, ok)
	}
}

// ---------------------------------------------------------------------------
// Frames
// ---------------------------------------------------------------------------

func TestFrameLookupAndAssign(t *testing.T) {
	globals := NewFrame(nil)
	globals.Define("x", IntValue(1))
	inner := NewFrame(globals)
	inner.Define("y", IntValue(2))

	if v, ok := inner.Lookup("x"); !ok || v.IntVal != 1 {
		t.Errorf("Lookup(x) = %v, %v", v, ok)
	}
	if !inner.Assign("x", IntValue(10)) {
		t.Fatal("Assign to an outer binding should succeed")
	}
	if v, _ := globals.Lookup("x"); v.IntVal != 10 {
		t.Errorf("outer x = %v, want 10", v)
	}
	if inner.Assign("z", Nil) {
		t.Error("Assign to an unbound name should fail")
	}
	if _, ok := globals.Lookup("y"); ok {
		t.Error("inner binding leaked to the outer frame")
	}
	if _, ok := inner.Self(); ok {
		t.Error("a plain frame has no self")
	}
	if inner.parent != globals {
		t.Error("inner frame should chain to globals")
	}
}

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

func TestMessageSelectors(t *testing.T) {
	tests := []struct {
		msg  *Message
		want string
	}{
		{UnaryMessage("id"), "id"},
		{KeywordMessage("at:put:", IntValue(1), Nil), "at:put:"},
		{NewMessage("set", []string{"id"}, []Value{IntValue(1)}), "set"},
		{NewMessage("", []string{"if", "else"}, []Value{Nil, Nil}), "if:else:"},
	}
	for _, tt := range tests {
		if tt.msg.Selector != tt.want {
			t.Errorf("Selector = %q, want %q", tt.msg.Selector, tt.want)
		}
	}

	msg := KeywordMessage("at:put:", IntValue(1), Nil)
	if !reflect.DeepEqual(msg.Keywords, []string{"at", "put"}) {
		t.Errorf("Keywords = %v, want [at put]", msg.Keywords)
	}
}

func TestBindParams(t *testing.T) {
	params := []string{"author", "title"}
	two := []Value{StringValue("a"), StringValue("t")}

	tests := []struct {
		name string
		msg  *Message
		want Kind
	}{
		{"headed match", NewMessage("set", []string{"author", "title"}, two), KindNone},
		{"keyword positional", NewMessage("", []string{"x", "y"}, two), KindNone},
		{"too few", NewMessage("set", []string{"author"}, two[:1]), KindArityMismatch},
		{"unknown name", NewMessage("set", []string{"writer", "title"}, two), KindUnexpectedArgument},
		{"swapped", NewMessage("set", []string{"title", "author"}, two), KindMissingArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := NewFrame(nil)
			err := bindParams(frame, params, tt.msg)
			if got := KindOf(err); got != tt.want {
				t.Fatalf("kind = %s, want %s (%v)", got, tt.want, err)
			}
			if err == nil {
				if v, _ := frame.Lookup("title"); v.StringVal != "t" {
					t.Errorf("title = %v", v)
				}
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

func TestKindOfThroughWrapping(t *testing.T) {
	base := errUnknownClass("Ghost")
	wrapped := fmt.Errorf("loading: %w", base)
	if KindOf(wrapped) != KindUnknownClass {
		t.Errorf("KindOf(wrapped) = %s", KindOf(wrapped))
	}
	if KindOf(errors.New("plain")) != KindNone {
		t.Error("non-runtime errors have no kind")
	}
	if KindOf(nil) != KindNone {
		t.Error("KindOf(nil) should be None")
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{errDuplicateClass("User"), "User"},
		{errUnknownClass("Ghost"), "Ghost"},
		{errDuplicateIvar("Admin", "id"), "id"},
		{errUnknownIvar("User", "nope"), "@nope"},
		{errArity("foo:", 1, 2), "foo:"},
		{errUnbound("zz"), "zz"},
		{errIndexOutOfRange(5, 2), "5"},
	}
	for _, tt := range tests {
		if msg := tt.err.Error(); !strings.Contains(msg, tt.want) {
			t.Errorf("%s error %q does not mention %q", tt.err.Kind, msg, tt.want)
		}
	}
}

func TestErrorSpanIsSetOnce(t *testing.T) {
	first := compiler.Span{Start: compiler.Position{Line: 3, Column: 4}}
	second := compiler.Span{Start: compiler.Position{Line: 9, Column: 1}}

	err := withSpan(withSpan(errUnbound("x"), first), second)
	if !strings.HasPrefix(err.Error(), "line 3:4: ") {
		t.Errorf("Error() = %q, want innermost position", err.Error())
	}
}
