package vm

// ---------------------------------------------------------------------------
// Dispatcher: resolves a selector against a receiver and invokes it
// ---------------------------------------------------------------------------

// PrimitiveFunc implements a built-in method.
type PrimitiveFunc func(in *Interpreter, recv Value, msg *Message) (Value, error)

// primitive is a built-in method with a fixed arity (-1 for any).
type primitive struct {
	arity int
	fn    PrimitiveFunc
}

type primitiveTable map[string]primitive

func (t primitiveTable) add(selector string, arity int, fn PrimitiveFunc) {
	t[selector] = primitive{arity: arity, fn: fn}
}

func (t primitiveTable) add0(selector string, fn func(in *Interpreter, recv Value) (Value, error)) {
	t.add(selector, 0, func(in *Interpreter, recv Value, _ *Message) (Value, error) {
		return fn(in, recv)
	})
}

func (t primitiveTable) add1(selector string, fn func(in *Interpreter, recv, arg Value) (Value, error)) {
	t.add(selector, 1, func(in *Interpreter, recv Value, msg *Message) (Value, error) {
		return fn(in, recv, msg.Args[0])
	})
}

func (t primitiveTable) add2(selector string, fn func(in *Interpreter, recv, a, b Value) (Value, error)) {
	t.add(selector, 2, func(in *Interpreter, recv Value, msg *Message) (Value, error) {
		return fn(in, recv, msg.Args[0], msg.Args[1])
	})
}

// Dispatcher owns the primitive tables and routes sends to them or to
// user-defined methods in the ClassTable.
type Dispatcher struct {
	interp  *Interpreter
	classes *ClassTable

	primitives map[ValueType]primitiveTable
	meta       primitiveTable // class-side intrinsics: subclass, def:do:, new
	universal  primitiveTable // understood by every receiver
}

func newDispatcher(in *Interpreter) *Dispatcher {
	d := &Dispatcher{
		interp:     in,
		classes:    in.classes,
		primitives: make(map[ValueType]primitiveTable),
		meta:       make(primitiveTable),
		universal:  make(primitiveTable),
	}
	for _, t := range []ValueType{TypeNil, TypeInt, TypeString, TypeSymbol, TypeBool, TypeBlock, TypeList} {
		d.primitives[t] = make(primitiveTable)
	}

	d.registerIntegerPrimitives()
	d.registerStringPrimitives()
	d.registerSymbolPrimitives()
	d.registerBooleanPrimitives()
	d.registerNilPrimitives()
	d.registerBlockPrimitives()
	d.registerListPrimitives()
	d.registerClassPrimitives()
	d.registerObjectPrimitives()
	return d
}

// Send delivers msg to recv.
//
// Instances resolve through the ClassTable, most-derived class first.
// Classes use the intrinsic meta-operations, natives their own table, and
// every other value its type's primitives. The universal table is the
// last resort before DoesNotUnderstand.
func (d *Dispatcher) Send(recv Value, msg *Message) (Value, error) {
	switch recv.Type {
	case TypeInstance:
		if m := d.classes.Lookup(recv.InstanceVal.Class.Name, msg.Selector); m != nil {
			return d.interp.invokeMethod(recv, m, msg)
		}
	case TypeClass:
		if p, ok := d.meta[msg.Selector]; ok {
			return d.callPrimitive(p, recv, msg)
		}
	case TypeNative:
		if p, ok := recv.NativeVal.methods[msg.Selector]; ok {
			return d.callPrimitive(p, recv, msg)
		}
	default:
		if p, ok := d.primitives[recv.Type][msg.Selector]; ok {
			return d.callPrimitive(p, recv, msg)
		}
	}

	if p, ok := d.universal[msg.Selector]; ok {
		return d.callPrimitive(p, recv, msg)
	}
	return Nil, errDoesNotUnderstand(recv, msg.Selector)
}

func (d *Dispatcher) callPrimitive(p primitive, recv Value, msg *Message) (Value, error) {
	if p.arity >= 0 && p.arity != len(msg.Args) {
		return Nil, errArity(msg.Selector, p.arity, len(msg.Args))
	}
	return p.fn(d.interp, recv, msg)
}

// RespondsTo reports whether recv understands selector.
func (d *Dispatcher) RespondsTo(recv Value, selector string) bool {
	if _, ok := d.universal[selector]; ok {
		return true
	}
	switch recv.Type {
	case TypeInstance:
		return d.classes.Lookup(recv.InstanceVal.Class.Name, selector) != nil
	case TypeClass:
		_, ok := d.meta[selector]
		return ok
	case TypeNative:
		_, ok := recv.NativeVal.methods[selector]
		return ok
	default:
		_, ok := d.primitives[recv.Type][selector]
		return ok
	}
}

// PrimitiveSelectors returns the built-in selectors understood by values
// of type t, for completion and introspection.
func (d *Dispatcher) PrimitiveSelectors(t ValueType) []string {
	var table primitiveTable
	if t == TypeClass {
		table = d.meta
	} else {
		table = d.primitives[t]
	}
	names := make([]string, 0, len(table)+len(d.universal))
	for sel := range table {
		names = append(names, sel)
	}
	for sel := range d.universal {
		names = append(names, sel)
	}
	return names
}
