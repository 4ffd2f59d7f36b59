package vm

// ---------------------------------------------------------------------------
// Class meta-operations: subclass, def:do:, new
// ---------------------------------------------------------------------------

// nameArg accepts a Symbol or String naming a class or selector.
func nameArg(selector string, arg Value) (string, error) {
	if arg.Type != TypeSymbol && arg.Type != TypeString {
		return "", errTypeMismatch(selector, "expected Symbol, got %s", arg.TypeName())
	}
	return arg.StringVal, nil
}

// namesArg accepts a list of Symbols or Strings, or nil for none.
func namesArg(selector string, arg Value) ([]string, error) {
	if arg.IsNil() {
		return nil, nil
	}
	if arg.Type != TypeList {
		return nil, errTypeMismatch(selector, "expected List of Symbols, got %s", arg.TypeName())
	}
	names := make([]string, 0, arg.ListVal.Len())
	for _, elem := range arg.ListVal.Elements {
		name, err := nameArg(selector, elem)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

func (d *Dispatcher) registerClassPrimitives() {
	m := d.meta

	// subclass - [Class subclass name: #User ivars: [#id]]
	// name: is optional; ivars: and fields: are synonyms.
	m.add("subclass", -1, func(in *Interpreter, recv Value, msg *Message) (Value, error) {
		if len(msg.Keywords) != len(msg.Args) {
			return Nil, errArity("subclass", len(msg.Keywords), len(msg.Args))
		}
		var name string
		var fields []string
		for i, kw := range msg.Keywords {
			var err error
			switch kw {
			case "name":
				name, err = nameArg("subclass", msg.Args[i])
			case "ivars", "fields":
				fields, err = namesArg("subclass", msg.Args[i])
			default:
				err = errUnexpectedArgument(kw)
			}
			if err != nil {
				return Nil, err
			}
		}
		return in.defineClass(recv.ClassVal, name, fields)
	})

	// subclass: - [Object subclass: #Point]
	m.add1("subclass:", func(in *Interpreter, recv, arg Value) (Value, error) {
		name, err := nameArg("subclass:", arg)
		if err != nil {
			return Nil, err
		}
		return in.defineClass(recv.ClassVal, name, nil)
	})

	withIVars := func(selector string) {
		m.add2(selector, func(in *Interpreter, recv, nameVal, ivars Value) (Value, error) {
			name, err := nameArg(selector, nameVal)
			if err != nil {
				return Nil, err
			}
			fields, err := namesArg(selector, ivars)
			if err != nil {
				return Nil, err
			}
			return in.defineClass(recv.ClassVal, name, fields)
		})
	}
	withIVars("subclass:ivars:")
	withIVars("subclass:fields:")

	// def:do: - install or replace a method. The block's parameters become
	// the method's parameters; its captured scope is not kept.
	m.add2("def:do:", func(in *Interpreter, recv, selVal, body Value) (Value, error) {
		selector, err := nameArg("def:do:", selVal)
		if err != nil {
			return Nil, err
		}
		b, err := blockArg("def:do:", body)
		if err != nil {
			return Nil, err
		}
		method, err := in.classes.DefineMethod(recv.ClassVal.Name, selector, b.Params, b.Body)
		if err != nil {
			return Nil, err
		}
		in.log.Debugf("defined method %s", method)
		return recv, nil
	})

	// new - allocate an instance with every ivar nil, then send initialize
	// if the class chain defines it.
	m.add0("new", func(in *Interpreter, recv Value) (Value, error) {
		inst := InstanceValue(NewInstance(recv.ClassVal))
		if init := in.classes.Lookup(recv.ClassVal.Name, "initialize"); init != nil {
			if _, err := in.invokeMethod(inst, init, UnaryMessage("initialize")); err != nil {
				return Nil, err
			}
		}
		return inst, nil
	})

	// basicNew - allocate without sending initialize
	m.add0("basicNew", func(_ *Interpreter, recv Value) (Value, error) {
		return InstanceValue(NewInstance(recv.ClassVal)), nil
	})

	d.registerClassReflectionPrimitives()
}

func (in *Interpreter) defineClass(parent *Class, name string, fields []string) (Value, error) {
	c, err := in.classes.Subclass(parent.Name, name, fields)
	if err != nil {
		return Nil, err
	}
	in.log.Debugf("defined class %s < %s", c.Name, parent.Name)
	return ClassValue(c), nil
}
