package vm

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/chazu/oops/compiler"
)

// RootClassName is the name of the class every other class descends from.
const RootClassName = "Object"

// ---------------------------------------------------------------------------
// Method
// ---------------------------------------------------------------------------

// Method is a user-defined method installed on exactly one class.
type Method struct {
	Class    *Class
	Selector string
	Params   []string
	Body     *compiler.Block
}

// IsKeywordSelector returns true for Smalltalk-style selectors such as
// "at:put:", whose arguments bind by position only.
func IsKeywordSelector(selector string) bool {
	return strings.HasSuffix(selector, ":")
}

// keywordArity returns the number of arguments a keyword selector takes.
func keywordArity(selector string) int {
	return strings.Count(selector, ":")
}

// Source returns the source text of the method body.
func (m *Method) Source() string {
	if m.Body == nil {
		return ""
	}
	return m.Body.Source
}

func (m *Method) String() string {
	return m.Class.Name + ">>" + m.Selector
}

// ---------------------------------------------------------------------------
// Class
// ---------------------------------------------------------------------------

// Class is a mutable, run-time defined class. The superclass is held by
// name and resolved through the owning ClassTable.
type Class struct {
	Name       string
	Superclass string // empty for the root class
	IVars      []string

	table   *ClassTable
	methods map[string]*Method
}

// Super returns the superclass, or nil for the root class.
func (c *Class) Super() *Class {
	if c.Superclass == "" {
		return nil
	}
	return c.table.Get(c.Superclass)
}

// Superclasses returns all superclasses from immediate parent to root.
func (c *Class) Superclasses() []*Class {
	var result []*Class
	for current := c.Super(); current != nil; current = current.Super() {
		result = append(result, current)
	}
	return result
}

// AllIVarNames returns all instance variable names including inherited
// ones, ancestors first.
func (c *Class) AllIVarNames() []string {
	chain := append([]*Class{c}, c.Superclasses()...)
	var result []string
	for i := len(chain) - 1; i >= 0; i-- {
		result = append(result, chain[i].IVars...)
	}
	return result
}

// HasIVar returns true if c or an ancestor declares name.
func (c *Class) HasIVar(name string) bool {
	for current := c; current != nil; current = current.Super() {
		for _, n := range current.IVars {
			if n == name {
				return true
			}
		}
	}
	return false
}

// IsSubclassOf returns true if c is a subclass of other (or is the same class).
func (c *Class) IsSubclassOf(other *Class) bool {
	for current := c; current != nil; current = current.Super() {
		if current == other {
			return true
		}
	}
	return false
}

// LocalMethod returns the method defined directly on c, without walking
// the superclass chain.
func (c *Class) LocalMethod(selector string) *Method {
	c.table.mu.RLock()
	defer c.table.mu.RUnlock()
	return c.methods[selector]
}

// Selectors returns the selectors defined directly on c, sorted.
func (c *Class) Selectors() []string {
	c.table.mu.RLock()
	defer c.table.mu.RUnlock()
	names := make([]string, 0, len(c.methods))
	for name := range c.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Methods returns the methods defined directly on c, sorted by selector.
func (c *Class) Methods() []*Method {
	selectors := c.Selectors()
	result := make([]*Method, 0, len(selectors))
	for _, sel := range selectors {
		if m := c.LocalMethod(sel); m != nil {
			result = append(result, m)
		}
	}
	return result
}

// Depth returns the inheritance depth (0 for the root class).
func (c *Class) Depth() int {
	return len(c.Superclasses())
}

// String implements the Stringer interface.
func (c *Class) String() string {
	return c.Name
}

// ---------------------------------------------------------------------------
// ClassTable: Global class registry
// ---------------------------------------------------------------------------

// ClassTable manages registered classes by name.
// It's safe for concurrent access.
type ClassTable struct {
	mu        sync.RWMutex
	classes   map[string]*Class
	root      *Class
	anonymous int
}

// NewClassTable creates a class table holding only the root class.
func NewClassTable() *ClassTable {
	ct := &ClassTable{
		classes: make(map[string]*Class),
	}
	ct.root = ct.newClass(RootClassName, "", nil)
	ct.classes[RootClassName] = ct.root
	return ct
}

func (ct *ClassTable) newClass(name, superclass string, ivars []string) *Class {
	return &Class{
		Name:       name,
		Superclass: superclass,
		IVars:      append([]string(nil), ivars...),
		table:      ct,
		methods:    make(map[string]*Method),
	}
}

// Root returns the root class.
func (ct *ClassTable) Root() *Class {
	return ct.root
}

// CreateClass registers a new direct child of the root class.
func (ct *ClassTable) CreateClass(name string) (*Class, error) {
	return ct.Subclass(RootClassName, name, nil)
}

// Subclass registers a new class named name under parentName, declaring
// fields in addition to the inherited instance variables. An empty name
// allocates a fresh anonymous one.
func (ct *ClassTable) Subclass(parentName, name string, fields []string) (*Class, error) {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	parent, ok := ct.classes[parentName]
	if !ok {
		return nil, errUnknownClass(parentName)
	}
	if name == "" {
		name = ct.anonymousName(parentName)
	}
	if _, exists := ct.classes[name]; exists {
		return nil, errDuplicateClass(name)
	}

	// declaredBy maps each inherited ivar to the nearest ancestor declaring it.
	declaredBy := make(map[string]string)
	for current := parent; current != nil; current = ct.classes[current.Superclass] {
		for _, iv := range current.IVars {
			if _, ok := declaredBy[iv]; !ok {
				declaredBy[iv] = current.Name
			}
		}
	}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if owner, ok := declaredBy[f]; ok {
			return nil, errDuplicateIvar(owner, f)
		}
		if seen[f] {
			return nil, errDuplicateIvar(name, f)
		}
		seen[f] = true
	}

	c := ct.newClass(name, parentName, fields)
	ct.classes[name] = c
	return c, nil
}

// anonymousName returns an unused name for a class created without one.
// Caller holds ct.mu.
func (ct *ClassTable) anonymousName(parentName string) string {
	for {
		ct.anonymous++
		name := fmt.Sprintf("%s%d", parentName, ct.anonymous)
		if _, exists := ct.classes[name]; !exists {
			return name
		}
	}
}

// DefineMethod installs a method on the named class, replacing any method
// with the same selector on that exact class.
func (ct *ClassTable) DefineMethod(className, selector string, params []string, body *compiler.Block) (*Method, error) {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	c, ok := ct.classes[className]
	if !ok {
		return nil, errUnknownClass(className)
	}
	if IsKeywordSelector(selector) && keywordArity(selector) != len(params) {
		return nil, errArity(selector, keywordArity(selector), len(params))
	}

	m := &Method{
		Class:    c,
		Selector: selector,
		Params:   append([]string(nil), params...),
		Body:     body,
	}
	c.methods[selector] = m
	return m, nil
}

// DefineMethodSource parses source as a block literal and installs it as
// a method.
func (ct *ClassTable) DefineMethodSource(className, selector, source string) (*Method, error) {
	block, err := compiler.ParseBlockSource(source)
	if err != nil {
		return nil, fmt.Errorf("method %s>>%s: %w", className, selector, err)
	}
	return ct.DefineMethod(className, selector, block.Parameters, block)
}

// Lookup finds the method for selector starting at className and walking
// up the superclass chain, most-derived first. It returns nil when no
// class in the chain defines selector or className is not registered.
func (ct *ClassTable) Lookup(className, selector string) *Method {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	c := ct.classes[className]
	for c != nil {
		if m, ok := c.methods[selector]; ok {
			return m
		}
		if c.Superclass == "" {
			return nil
		}
		c = ct.classes[c.Superclass]
	}
	return nil
}

// Get finds a class by name.
func (ct *ClassTable) Get(name string) *Class {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.classes[name]
}

// Has returns true if a class with this name is registered.
func (ct *ClassTable) Has(name string) bool {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	_, ok := ct.classes[name]
	return ok
}

// All returns all registered classes ordered so that every class follows
// its superclass, ties broken by name.
func (ct *ClassTable) All() []*Class {
	ct.mu.RLock()
	result := make([]*Class, 0, len(ct.classes))
	for _, c := range ct.classes {
		result = append(result, c)
	}
	ct.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		di, dj := result[i].Depth(), result[j].Depth()
		if di != dj {
			return di < dj
		}
		return result[i].Name < result[j].Name
	})
	return result
}

// Names returns all registered class names, sorted.
func (ct *ClassTable) Names() []string {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	names := make([]string, 0, len(ct.classes))
	for name := range ct.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered classes.
func (ct *ClassTable) Len() int {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return len(ct.classes)
}
