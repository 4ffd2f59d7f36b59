package vm

// ---------------------------------------------------------------------------
// List Primitives
// ---------------------------------------------------------------------------

// listIndex converts a 1-based index argument to a 0-based slice index.
func listIndex(selector string, l *List, arg Value) (int, error) {
	n, err := intArg(selector, arg)
	if err != nil {
		return 0, err
	}
	if n < 1 || n > int64(l.Len()) {
		return 0, errIndexOutOfRange(int(n), l.Len())
	}
	return int(n - 1), nil
}

func (d *Dispatcher) registerListPrimitives() {
	t := d.primitives[TypeList]

	t.add0("size", func(_ *Interpreter, recv Value) (Value, error) {
		return IntValue(int64(recv.ListVal.Len())), nil
	})

	t.add0("isEmpty", func(_ *Interpreter, recv Value) (Value, error) {
		return BoolValue(recv.ListVal.Len() == 0), nil
	})

	t.add1("at:", func(_ *Interpreter, recv, idx Value) (Value, error) {
		i, err := listIndex("at:", recv.ListVal, idx)
		if err != nil {
			return Nil, err
		}
		v, _ := recv.ListVal.At(i)
		return v, nil
	})

	t.add2("at:put:", func(_ *Interpreter, recv, idx, v Value) (Value, error) {
		i, err := listIndex("at:put:", recv.ListVal, idx)
		if err != nil {
			return Nil, err
		}
		recv.ListVal.AtPut(i, v)
		return v, nil
	})

	// add: - append, answering the added element
	t.add1("add:", func(_ *Interpreter, recv, v Value) (Value, error) {
		recv.ListVal.Add(v)
		return v, nil
	})

	t.add0("first", func(_ *Interpreter, recv Value) (Value, error) {
		v, ok := recv.ListVal.At(0)
		if !ok {
			return Nil, errIndexOutOfRange(1, 0)
		}
		return v, nil
	})

	t.add0("last", func(_ *Interpreter, recv Value) (Value, error) {
		n := recv.ListVal.Len()
		v, ok := recv.ListVal.At(n - 1)
		if !ok {
			return Nil, errIndexOutOfRange(n, n)
		}
		return v, nil
	})

	t.add1("includes:", func(_ *Interpreter, recv, v Value) (Value, error) {
		for _, elem := range recv.ListVal.Elements {
			if elem.Identical(v) {
				return True, nil
			}
		}
		return False, nil
	})

	// Iteration works on a snapshot so blocks may modify the list.
	t.add1("do:", func(in *Interpreter, recv, arg Value) (Value, error) {
		b, err := blockArg("do:", arg)
		if err != nil {
			return Nil, err
		}
		for _, elem := range append([]Value(nil), recv.ListVal.Elements...) {
			if _, err := in.callBlockWith(b, elem); err != nil {
				return Nil, err
			}
		}
		return recv, nil
	})

	t.add1("collect:", func(in *Interpreter, recv, arg Value) (Value, error) {
		b, err := blockArg("collect:", arg)
		if err != nil {
			return Nil, err
		}
		elems := append([]Value(nil), recv.ListVal.Elements...)
		result := NewList()
		for _, elem := range elems {
			v, err := in.callBlockWith(b, elem)
			if err != nil {
				return Nil, err
			}
			result.Add(v)
		}
		return ListValue(result), nil
	})

	t.add1("select:", func(in *Interpreter, recv, arg Value) (Value, error) {
		b, err := blockArg("select:", arg)
		if err != nil {
			return Nil, err
		}
		elems := append([]Value(nil), recv.ListVal.Elements...)
		result := NewList()
		for _, elem := range elems {
			v, err := in.callBlockWith(b, elem)
			if err != nil {
				return Nil, err
			}
			if v.IsTrue() {
				result.Add(elem)
			}
		}
		return ListValue(result), nil
	})

	t.add2("inject:into:", func(in *Interpreter, recv, initial, arg Value) (Value, error) {
		b, err := blockArg("inject:into:", arg)
		if err != nil {
			return Nil, err
		}
		acc := initial
		for _, elem := range append([]Value(nil), recv.ListVal.Elements...) {
			acc, err = in.callBlockWith(b, acc, elem)
			if err != nil {
				return Nil, err
			}
		}
		return acc, nil
	})
}
