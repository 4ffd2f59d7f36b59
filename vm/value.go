package vm

import (
	"strconv"
	"strings"
)

// ValueType represents the type of an oops value
type ValueType int

const (
	TypeNil ValueType = iota
	TypeInt
	TypeString
	TypeSymbol
	TypeBool
	TypeInstance
	TypeBlock
	TypeClass
	TypeList
	TypeNative
)

var typeNames = [...]string{
	TypeNil:      "Nil",
	TypeInt:      "Integer",
	TypeString:   "String",
	TypeSymbol:   "Symbol",
	TypeBool:     "Boolean",
	TypeInstance: "Instance",
	TypeBlock:    "Block",
	TypeClass:    "Class",
	TypeList:     "List",
	TypeNative:   "Native",
}

func (t ValueType) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Value is the Go representation of an oops value.
// Booleans are stored in IntVal (0 or 1); strings and symbols in StringVal.
type Value struct {
	Type        ValueType
	IntVal      int64
	StringVal   string
	InstanceVal *Instance
	BlockVal    *Block
	ClassVal    *Class
	ListVal     *List
	NativeVal   *Native
}

// Nil is the absence value.
var Nil = Value{Type: TypeNil}

// True and False are the two boolean values.
var (
	True  = Value{Type: TypeBool, IntVal: 1}
	False = Value{Type: TypeBool, IntVal: 0}
)

// NilValue returns a nil value
func NilValue() Value {
	return Nil
}

// IntValue creates an integer value
func IntValue(n int64) Value {
	return Value{Type: TypeInt, IntVal: n}
}

// StringValue creates a string value
func StringValue(s string) Value {
	return Value{Type: TypeString, StringVal: s}
}

// SymbolValue creates a symbol value
func SymbolValue(s string) Value {
	return Value{Type: TypeSymbol, StringVal: s}
}

// BoolValue creates a boolean value
func BoolValue(b bool) Value {
	if b {
		return True
	}
	return False
}

// InstanceValue creates an instance reference value
func InstanceValue(inst *Instance) Value {
	return Value{Type: TypeInstance, InstanceVal: inst}
}

// BlockValue creates a block reference value
func BlockValue(block *Block) Value {
	return Value{Type: TypeBlock, BlockVal: block}
}

// ClassValue creates a class reference value
func ClassValue(c *Class) Value {
	return Value{Type: TypeClass, ClassVal: c}
}

// ListValue creates a list value
func ListValue(l *List) Value {
	return Value{Type: TypeList, ListVal: l}
}

// NativeValue wraps a host-provided object
func NativeValue(n *Native) Value {
	return Value{Type: TypeNative, NativeVal: n}
}

// IsNil returns true if the value is nil
func (v Value) IsNil() bool {
	return v.Type == TypeNil
}

// IsBool returns true if the value is a boolean
func (v Value) IsBool() bool {
	return v.Type == TypeBool
}

// IsTrue returns true only for the boolean true.
func (v Value) IsTrue() bool {
	return v.Type == TypeBool && v.IntVal != 0
}

// TypeName returns the name used for the value in error messages:
// the class name for instances, the primitive type otherwise.
func (v Value) TypeName() string {
	switch v.Type {
	case TypeInstance:
		if v.InstanceVal != nil && v.InstanceVal.Class != nil {
			return v.InstanceVal.Class.Name
		}
	case TypeClass:
		if v.ClassVal != nil {
			return v.ClassVal.Name + " class"
		}
	case TypeNative:
		if v.NativeVal != nil {
			return v.NativeVal.Name
		}
	}
	return v.Type.String()
}

// Identical reports whether two values are the same object. Integers,
// booleans, strings and symbols compare by value; everything else by
// reference.
func (v Value) Identical(other Value) bool {
	if v.Type != other.Type {
		return false
	}
	switch v.Type {
	case TypeNil:
		return true
	case TypeInt, TypeBool:
		return v.IntVal == other.IntVal
	case TypeString, TypeSymbol:
		return v.StringVal == other.StringVal
	case TypeInstance:
		return v.InstanceVal == other.InstanceVal
	case TypeBlock:
		return v.BlockVal == other.BlockVal
	case TypeClass:
		return v.ClassVal == other.ClassVal
	case TypeList:
		return v.ListVal == other.ListVal
	case TypeNative:
		return v.NativeVal == other.NativeVal
	}
	return false
}

// String returns the printString representation of the value.
func (v Value) String() string {
	switch v.Type {
	case TypeNil:
		return "nil"
	case TypeInt:
		return strconv.FormatInt(v.IntVal, 10)
	case TypeString:
		return strconv.Quote(v.StringVal)
	case TypeSymbol:
		return "#" + v.StringVal
	case TypeBool:
		if v.IntVal != 0 {
			return "true"
		}
		return "false"
	case TypeInstance:
		if v.InstanceVal != nil {
			return v.InstanceVal.String()
		}
	case TypeBlock:
		if v.BlockVal != nil {
			return v.BlockVal.String()
		}
	case TypeClass:
		if v.ClassVal != nil {
			return v.ClassVal.Name
		}
	case TypeList:
		if v.ListVal != nil {
			return v.ListVal.String()
		}
	case TypeNative:
		if v.NativeVal != nil {
			return v.NativeVal.Name
		}
	}
	return "nil"
}

// DisplayString is like String but leaves strings unquoted, for output.
func (v Value) DisplayString() string {
	if v.Type == TypeString {
		return v.StringVal
	}
	return v.String()
}

// ---------------------------------------------------------------------------
// List
// ---------------------------------------------------------------------------

// List is a mutable, ordered collection of values.
type List struct {
	Elements []Value
}

// NewList creates a list holding the given values
func NewList(elems ...Value) *List {
	l := &List{Elements: make([]Value, 0, len(elems))}
	l.Elements = append(l.Elements, elems...)
	return l
}

// Add appends an element to the list
func (l *List) Add(v Value) {
	l.Elements = append(l.Elements, v)
}

// At returns the element at the given 0-based index
func (l *List) At(idx int) (Value, bool) {
	if idx < 0 || idx >= len(l.Elements) {
		return Nil, false
	}
	return l.Elements[idx], true
}

// AtPut sets the element at the given 0-based index
func (l *List) AtPut(idx int, v Value) bool {
	if idx < 0 || idx >= len(l.Elements) {
		return false
	}
	l.Elements[idx] = v
	return true
}

// Len returns the length of the list
func (l *List) Len() int {
	return len(l.Elements)
}

// MaxPrintDepth bounds how deeply nested lists are printed. Deeper lists,
// and lists that contain themselves, print as [...].
const MaxPrintDepth = 64

func (l *List) String() string {
	var sb strings.Builder
	l.writeTo(&sb, make(map[*List]bool))
	return sb.String()
}

// writeTo prints l, where active holds the lists already being printed
// further out.
func (l *List) writeTo(sb *strings.Builder, active map[*List]bool) {
	if active[l] || len(active) >= MaxPrintDepth {
		sb.WriteString("[...]")
		return
	}
	active[l] = true
	defer delete(active, l)

	sb.WriteByte('[')
	for i, elem := range l.Elements {
		if i > 0 {
			sb.WriteString(", ")
		}
		if elem.Type == TypeList && elem.ListVal != nil {
			elem.ListVal.writeTo(sb, active)
			continue
		}
		sb.WriteString(elem.String())
	}
	sb.WriteByte(']')
}

// ---------------------------------------------------------------------------
// Native
// ---------------------------------------------------------------------------

// Native is a host-provided object, such as Transcript, whose behaviour is
// a fixed table of primitives.
type Native struct {
	Name    string
	methods primitiveTable
}

// NewNative creates a native object with no methods.
func NewNative(name string) *Native {
	return &Native{Name: name, methods: make(primitiveTable)}
}

// Define installs a primitive. An arity of -1 accepts any argument count.
func (n *Native) Define(selector string, arity int, fn PrimitiveFunc) {
	n.methods.add(selector, arity, fn)
}
