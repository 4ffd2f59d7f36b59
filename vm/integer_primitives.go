package vm

import "strconv"

// ---------------------------------------------------------------------------
// Integer Primitives
// ---------------------------------------------------------------------------

// intArg returns arg as an int64 or a TypeMismatch naming selector.
func intArg(selector string, arg Value) (int64, error) {
	if arg.Type != TypeInt {
		return 0, errTypeMismatch(selector, "expected Integer argument, got %s", arg.TypeName())
	}
	return arg.IntVal, nil
}

// blockArg returns arg as a block or a TypeMismatch naming selector.
func blockArg(selector string, arg Value) (*Block, error) {
	if arg.Type != TypeBlock {
		return nil, errTypeMismatch(selector, "expected Block argument, got %s", arg.TypeName())
	}
	return arg.BlockVal, nil
}

func (d *Dispatcher) registerIntegerPrimitives() {
	t := d.primitives[TypeInt]

	arith := func(selector string, op func(a, b int64) (int64, error)) {
		t.add1(selector, func(_ *Interpreter, recv, arg Value) (Value, error) {
			b, err := intArg(selector, arg)
			if err != nil {
				return Nil, err
			}
			n, err := op(recv.IntVal, b)
			if err != nil {
				return Nil, err
			}
			return IntValue(n), nil
		})
	}

	arith("+", func(a, b int64) (int64, error) { return a + b, nil })
	arith("-", func(a, b int64) (int64, error) { return a - b, nil })
	arith("*", func(a, b int64) (int64, error) { return a * b, nil })

	// Integer division truncates toward zero.
	arith("/", func(a, b int64) (int64, error) {
		if b == 0 {
			return 0, errDivisionByZero()
		}
		return a / b, nil
	})

	arith("%", func(a, b int64) (int64, error) {
		if b == 0 {
			return 0, errDivisionByZero()
		}
		return a % b, nil
	})

	compare := func(selector string, op func(a, b int64) bool) {
		t.add1(selector, func(_ *Interpreter, recv, arg Value) (Value, error) {
			b, err := intArg(selector, arg)
			if err != nil {
				return Nil, err
			}
			return BoolValue(op(recv.IntVal, b)), nil
		})
	}

	compare("<", func(a, b int64) bool { return a < b })
	compare(">", func(a, b int64) bool { return a > b })
	compare("<=", func(a, b int64) bool { return a <= b })
	compare(">=", func(a, b int64) bool { return a >= b })

	arith("max:", func(a, b int64) (int64, error) {
		if a > b {
			return a, nil
		}
		return b, nil
	})

	arith("min:", func(a, b int64) (int64, error) {
		if a < b {
			return a, nil
		}
		return b, nil
	})

	t.add0("negated", func(_ *Interpreter, recv Value) (Value, error) {
		return IntValue(-recv.IntVal), nil
	})

	t.add0("abs", func(_ *Interpreter, recv Value) (Value, error) {
		if recv.IntVal < 0 {
			return IntValue(-recv.IntVal), nil
		}
		return recv, nil
	})

	t.add0("isZero", func(_ *Interpreter, recv Value) (Value, error) {
		return BoolValue(recv.IntVal == 0), nil
	})

	t.add0("even", func(_ *Interpreter, recv Value) (Value, error) {
		return BoolValue(recv.IntVal%2 == 0), nil
	})

	t.add0("odd", func(_ *Interpreter, recv Value) (Value, error) {
		return BoolValue(recv.IntVal%2 != 0), nil
	})

	t.add0("asString", func(_ *Interpreter, recv Value) (Value, error) {
		return StringValue(strconv.FormatInt(recv.IntVal, 10)), nil
	})

	// timesRepeat: - evaluate block n times, answer the receiver
	t.add1("timesRepeat:", func(in *Interpreter, recv, arg Value) (Value, error) {
		b, err := blockArg("timesRepeat:", arg)
		if err != nil {
			return Nil, err
		}
		for i := int64(0); i < recv.IntVal; i++ {
			if _, err := in.callBlockWith(b); err != nil {
				return Nil, err
			}
		}
		return recv, nil
	})

	// to:do: - evaluate block with each integer from receiver to limit
	t.add2("to:do:", func(in *Interpreter, recv, limit, arg Value) (Value, error) {
		stop, err := intArg("to:do:", limit)
		if err != nil {
			return Nil, err
		}
		b, err := blockArg("to:do:", arg)
		if err != nil {
			return Nil, err
		}
		for i := recv.IntVal; i <= stop; i++ {
			if _, err := in.callBlockWith(b, IntValue(i)); err != nil {
				return Nil, err
			}
			if i == stop {
				break
			}
		}
		return recv, nil
	})
}
