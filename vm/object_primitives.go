package vm

// ---------------------------------------------------------------------------
// Object Primitives: understood by every receiver
// ---------------------------------------------------------------------------

// notNilValue evaluates the ifNotNil: branch, passing the receiver to a
// one-argument block.
func (in *Interpreter) notNilValue(recv, branch Value) (Value, error) {
	if branch.Type == TypeBlock && branch.BlockVal.Arity() == 1 {
		return in.callBlockWith(branch.BlockVal, recv)
	}
	return in.valueOf(branch)
}

func (d *Dispatcher) registerObjectPrimitives() {
	u := d.universal

	u.add1("==", func(_ *Interpreter, recv, arg Value) (Value, error) {
		return BoolValue(recv.Identical(arg)), nil
	})

	u.add1("!=", func(_ *Interpreter, recv, arg Value) (Value, error) {
		return BoolValue(!recv.Identical(arg)), nil
	})

	u.add0("isNil", func(_ *Interpreter, recv Value) (Value, error) {
		return BoolValue(recv.IsNil()), nil
	})

	u.add0("notNil", func(_ *Interpreter, recv Value) (Value, error) {
		return BoolValue(!recv.IsNil()), nil
	})

	// Non-nil receivers; nil overrides these in its own table.
	u.add1("ifNil:", func(_ *Interpreter, recv, _ Value) (Value, error) {
		return recv, nil
	})

	u.add1("ifNotNil:", func(in *Interpreter, recv, branch Value) (Value, error) {
		return in.notNilValue(recv, branch)
	})

	u.add2("ifNil:ifNotNil:", func(in *Interpreter, recv, _, branch Value) (Value, error) {
		return in.notNilValue(recv, branch)
	})

	// class - the class of an instance; a symbol naming the type otherwise
	u.add0("class", func(_ *Interpreter, recv Value) (Value, error) {
		if recv.Type == TypeInstance {
			return ClassValue(recv.InstanceVal.Class), nil
		}
		return SymbolValue(recv.TypeName()), nil
	})

	u.add1("respondsTo:", func(in *Interpreter, recv, arg Value) (Value, error) {
		selector, err := nameArg("respondsTo:", arg)
		if err != nil {
			return Nil, err
		}
		return BoolValue(in.dispatcher.RespondsTo(recv, selector)), nil
	})

	u.add0("printString", func(_ *Interpreter, recv Value) (Value, error) {
		return StringValue(recv.String()), nil
	})

	u.add0("displayString", func(_ *Interpreter, recv Value) (Value, error) {
		return StringValue(recv.DisplayString()), nil
	})

	u.add0("yourself", func(_ *Interpreter, recv Value) (Value, error) {
		return recv, nil
	})
}
