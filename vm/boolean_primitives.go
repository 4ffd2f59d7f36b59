package vm

// ---------------------------------------------------------------------------
// Boolean and Nil Primitives
// ---------------------------------------------------------------------------

func (d *Dispatcher) registerBooleanPrimitives() {
	t := d.primitives[TypeBool]

	// if: - answer the value of the argument when true, nil otherwise
	t.add1("if:", func(in *Interpreter, recv, then Value) (Value, error) {
		if recv.IsTrue() {
			return in.valueOf(then)
		}
		return Nil, nil
	})

	t.add2("if:else:", func(in *Interpreter, recv, then, otherwise Value) (Value, error) {
		if recv.IsTrue() {
			return in.valueOf(then)
		}
		return in.valueOf(otherwise)
	})

	t.add1("ifTrue:", func(in *Interpreter, recv, block Value) (Value, error) {
		if recv.IsTrue() {
			return in.valueOf(block)
		}
		return Nil, nil
	})

	t.add1("ifFalse:", func(in *Interpreter, recv, block Value) (Value, error) {
		if !recv.IsTrue() {
			return in.valueOf(block)
		}
		return Nil, nil
	})

	t.add2("ifTrue:ifFalse:", func(in *Interpreter, recv, trueBlock, falseBlock Value) (Value, error) {
		if recv.IsTrue() {
			return in.valueOf(trueBlock)
		}
		return in.valueOf(falseBlock)
	})

	t.add2("ifFalse:ifTrue:", func(in *Interpreter, recv, falseBlock, trueBlock Value) (Value, error) {
		if recv.IsTrue() {
			return in.valueOf(trueBlock)
		}
		return in.valueOf(falseBlock)
	})

	// and: - short-circuit and (evaluate block only if receiver is true)
	t.add1("and:", func(in *Interpreter, recv, block Value) (Value, error) {
		if !recv.IsTrue() {
			return False, nil
		}
		return in.valueOf(block)
	})

	// or: - short-circuit or (evaluate block only if receiver is false)
	t.add1("or:", func(in *Interpreter, recv, block Value) (Value, error) {
		if recv.IsTrue() {
			return True, nil
		}
		return in.valueOf(block)
	})

	t.add0("not", func(_ *Interpreter, recv Value) (Value, error) {
		return BoolValue(!recv.IsTrue()), nil
	})
}

func (d *Dispatcher) registerNilPrimitives() {
	t := d.primitives[TypeNil]

	// The non-nil branches of these live in the universal table.
	t.add1("ifNil:", func(in *Interpreter, _, block Value) (Value, error) {
		return in.valueOf(block)
	})

	t.add1("ifNotNil:", func(_ *Interpreter, _, _ Value) (Value, error) {
		return Nil, nil
	})

	t.add2("ifNil:ifNotNil:", func(in *Interpreter, _, nilBlock, _ Value) (Value, error) {
		return in.valueOf(nilBlock)
	})
}
