package vm

import "sort"

// ---------------------------------------------------------------------------
// Frame: one lexical scope in the environment chain
// ---------------------------------------------------------------------------

// activation records a running method invocation. Frames created for the
// method body, and every block frame nested inside it, share it.
type activation struct {
	self   Value
	method *Method
	done   bool
}

// Frame maps names to values and links to its enclosing scope. The root
// frame holds the globals.
type Frame struct {
	vars   map[string]Value
	parent *Frame
	act    *activation
}

// NewFrame creates a scope whose parent is parent (nil for the root).
func NewFrame(parent *Frame) *Frame {
	return &Frame{
		vars:   make(map[string]Value),
		parent: parent,
	}
}

// newMethodFrame creates the scope for a method activation.
func newMethodFrame(globals *Frame, act *activation) *Frame {
	f := NewFrame(globals)
	f.act = act
	return f
}

// Define binds name in this frame, shadowing any outer binding.
func (f *Frame) Define(name string, v Value) {
	f.vars[name] = v
}

// Lookup walks outward to the root looking for name.
func (f *Frame) Lookup(name string) (Value, bool) {
	for current := f; current != nil; current = current.parent {
		if v, ok := current.vars[name]; ok {
			return v, true
		}
	}
	return Nil, false
}

// Assign updates the nearest existing binding of name. It returns false
// if name is unbound; assignment never creates a binding.
func (f *Frame) Assign(name string, v Value) bool {
	for current := f; current != nil; current = current.parent {
		if _, ok := current.vars[name]; ok {
			current.vars[name] = v
			return true
		}
	}
	return false
}

// activation returns the method activation this frame runs under, or nil
// at top level.
func (f *Frame) activation() *activation {
	for current := f; current != nil; current = current.parent {
		if current.act != nil {
			return current.act
		}
	}
	return nil
}

// Self returns the receiver of the enclosing method activation.
func (f *Frame) Self() (Value, bool) {
	act := f.activation()
	if act == nil {
		return Nil, false
	}
	return act.self, true
}

// Names returns the names bound directly in this frame, sorted.
func (f *Frame) Names() []string {
	names := make([]string, 0, len(f.vars))
	for name := range f.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
