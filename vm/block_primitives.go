package vm

// ---------------------------------------------------------------------------
// Block Primitives
// ---------------------------------------------------------------------------

func (d *Dispatcher) registerBlockPrimitives() {
	t := d.primitives[TypeBlock]

	// call - with no arguments, or with keyword arguments named after the
	// block's parameters: [blk call x: 1 y: 2]
	t.add("call", -1, func(in *Interpreter, recv Value, msg *Message) (Value, error) {
		return in.callBlock(recv.BlockVal, msg)
	})

	// call: - a single positional argument
	t.add1("call:", func(in *Interpreter, recv, arg Value) (Value, error) {
		return in.callBlockWith(recv.BlockVal, arg)
	})

	// Smalltalk-style positional evaluation
	t.add0("value", func(in *Interpreter, recv Value) (Value, error) {
		return in.callBlockWith(recv.BlockVal)
	})

	t.add1("value:", func(in *Interpreter, recv, arg Value) (Value, error) {
		return in.callBlockWith(recv.BlockVal, arg)
	})

	t.add2("value:value:", func(in *Interpreter, recv, arg1, arg2 Value) (Value, error) {
		return in.callBlockWith(recv.BlockVal, arg1, arg2)
	})

	t.add0("arity", func(_ *Interpreter, recv Value) (Value, error) {
		return IntValue(int64(recv.BlockVal.Arity())), nil
	})

	loop := func(selector string, want bool) {
		t.add1(selector, func(in *Interpreter, recv, body Value) (Value, error) {
			for {
				cond, err := in.callBlockWith(recv.BlockVal)
				if err != nil {
					return Nil, err
				}
				if !cond.IsBool() {
					return Nil, errTypeMismatch(selector, "condition answered %s, not Boolean", cond.TypeName())
				}
				if cond.IsTrue() != want {
					return Nil, nil
				}
				if _, err := in.valueOf(body); err != nil {
					return Nil, err
				}
			}
		})
	}

	loop("whileTrue:", true)
	loop("whileFalse:", false)
}
