package vm

// ---------------------------------------------------------------------------
// Class Reflection Primitives
// ---------------------------------------------------------------------------

func symbolList(names []string) Value {
	elems := make([]Value, len(names))
	for i, name := range names {
		elems[i] = SymbolValue(name)
	}
	return ListValue(NewList(elems...))
}

func (d *Dispatcher) registerClassReflectionPrimitives() {
	m := d.meta

	m.add0("name", func(_ *Interpreter, recv Value) (Value, error) {
		return StringValue(recv.ClassVal.Name), nil
	})

	// superclass - nil for the root class
	m.add0("superclass", func(_ *Interpreter, recv Value) (Value, error) {
		if super := recv.ClassVal.Super(); super != nil {
			return ClassValue(super), nil
		}
		return Nil, nil
	})

	// ivars - every instance variable, inherited ones first
	m.add0("ivars", func(_ *Interpreter, recv Value) (Value, error) {
		return symbolList(recv.ClassVal.AllIVarNames()), nil
	})

	// selectors - methods defined directly on the class
	m.add0("selectors", func(_ *Interpreter, recv Value) (Value, error) {
		return symbolList(recv.ClassVal.Selectors()), nil
	})

	// canUnderstand: - whether instances respond to a user-defined selector
	m.add1("canUnderstand:", func(in *Interpreter, recv, arg Value) (Value, error) {
		selector, err := nameArg("canUnderstand:", arg)
		if err != nil {
			return Nil, err
		}
		return BoolValue(in.classes.Lookup(recv.ClassVal.Name, selector) != nil), nil
	})

	m.add1("inheritsFrom:", func(_ *Interpreter, recv, arg Value) (Value, error) {
		if arg.Type != TypeClass {
			return Nil, errTypeMismatch("inheritsFrom:", "expected Class, got %s", arg.TypeName())
		}
		c := recv.ClassVal
		return BoolValue(c != arg.ClassVal && c.IsSubclassOf(arg.ClassVal)), nil
	})

	// sourceOf: - the source text of a method defined on this class
	m.add1("sourceOf:", func(_ *Interpreter, recv, arg Value) (Value, error) {
		selector, err := nameArg("sourceOf:", arg)
		if err != nil {
			return Nil, err
		}
		method := recv.ClassVal.LocalMethod(selector)
		if method == nil {
			return Nil, nil
		}
		return StringValue(method.Source()), nil
	})
}
