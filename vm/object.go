package vm

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// Instance: an object created by sending new to a class
// ---------------------------------------------------------------------------

var instanceCounter uint64

// Instance is a class reference plus its instance variable storage.
type Instance struct {
	ID    uint64
	Class *Class
	vars  map[string]Value
	mu    sync.RWMutex
}

// NewInstance creates an instance of c with every declared instance
// variable, inherited ones included, set to nil.
func NewInstance(c *Class) *Instance {
	inst := &Instance{
		ID:    atomic.AddUint64(&instanceCounter, 1),
		Class: c,
		vars:  make(map[string]Value),
	}
	for _, name := range c.AllIVarNames() {
		inst.vars[name] = Nil
	}
	return inst
}

// GetVar reads an instance variable.
func (inst *Instance) GetVar(name string) (Value, error) {
	inst.mu.RLock()
	defer inst.mu.RUnlock()
	v, ok := inst.vars[name]
	if !ok {
		return Nil, errUnknownIvar(inst.Class.Name, name)
	}
	return v, nil
}

// SetVar writes an instance variable. Only declared names may be written.
func (inst *Instance) SetVar(name string, v Value) error {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if _, ok := inst.vars[name]; !ok {
		return errUnknownIvar(inst.Class.Name, name)
	}
	inst.vars[name] = v
	return nil
}

// VarNames returns the instance variable names in declaration order.
func (inst *Instance) VarNames() []string {
	return inst.Class.AllIVarNames()
}

func (inst *Instance) String() string {
	return fmt.Sprintf("a %s", inst.Class.Name)
}
