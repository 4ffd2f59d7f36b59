package vm

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ---------------------------------------------------------------------------
// String and Symbol Primitives
// ---------------------------------------------------------------------------

var (
	upperCaser = cases.Upper(language.Und)
	lowerCaser = cases.Lower(language.Und)
)

func stringArg(selector string, arg Value) (string, error) {
	if arg.Type != TypeString && arg.Type != TypeSymbol {
		return "", errTypeMismatch(selector, "expected String argument, got %s", arg.TypeName())
	}
	return arg.StringVal, nil
}

func (d *Dispatcher) registerStringPrimitives() {
	t := d.primitives[TypeString]

	// + and concat: accept any argument, using its display form.
	concat := func(_ *Interpreter, recv, arg Value) (Value, error) {
		return StringValue(recv.StringVal + arg.DisplayString()), nil
	}
	t.add1("+", concat)
	t.add1("concat:", concat)

	t.add0("size", func(_ *Interpreter, recv Value) (Value, error) {
		return IntValue(int64(utf8.RuneCountInString(recv.StringVal))), nil
	})

	t.add0("isEmpty", func(_ *Interpreter, recv Value) (Value, error) {
		return BoolValue(recv.StringVal == ""), nil
	})

	t.add1("includes:", func(_ *Interpreter, recv, arg Value) (Value, error) {
		s, err := stringArg("includes:", arg)
		if err != nil {
			return Nil, err
		}
		return BoolValue(strings.Contains(recv.StringVal, s)), nil
	})

	// Case mapping is done with x/text so that non-ASCII text is handled
	// by the full Unicode rules (e.g. German sharp s).
	t.add0("upcase", func(_ *Interpreter, recv Value) (Value, error) {
		return StringValue(upperCaser.String(recv.StringVal)), nil
	})

	t.add0("downcase", func(_ *Interpreter, recv Value) (Value, error) {
		return StringValue(lowerCaser.String(recv.StringVal)), nil
	})

	t.add0("reversed", func(_ *Interpreter, recv Value) (Value, error) {
		runes := []rune(recv.StringVal)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return StringValue(string(runes)), nil
	})

	t.add1("<", func(_ *Interpreter, recv, arg Value) (Value, error) {
		s, err := stringArg("<", arg)
		if err != nil {
			return Nil, err
		}
		return BoolValue(recv.StringVal < s), nil
	})

	t.add1(">", func(_ *Interpreter, recv, arg Value) (Value, error) {
		s, err := stringArg(">", arg)
		if err != nil {
			return Nil, err
		}
		return BoolValue(recv.StringVal > s), nil
	})

	t.add0("asSymbol", func(_ *Interpreter, recv Value) (Value, error) {
		return SymbolValue(recv.StringVal), nil
	})

	t.add0("asString", func(_ *Interpreter, recv Value) (Value, error) {
		return recv, nil
	})
}

func (d *Dispatcher) registerSymbolPrimitives() {
	t := d.primitives[TypeSymbol]

	t.add0("asString", func(_ *Interpreter, recv Value) (Value, error) {
		return StringValue(recv.StringVal), nil
	})

	t.add0("asSymbol", func(_ *Interpreter, recv Value) (Value, error) {
		return recv, nil
	})

	t.add0("size", func(_ *Interpreter, recv Value) (Value, error) {
		return IntValue(int64(utf8.RuneCountInString(recv.StringVal))), nil
	})
}
