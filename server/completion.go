package server

import (
	"sort"
	"strings"

	"github.com/chazu/oops/vm"
)

// Completion kinds.
const (
	CompletionClass    = "class"
	CompletionGlobal   = "global"
	CompletionSelector = "selector"
)

// Completion is one candidate for a name prefix.
type Completion struct {
	Label  string
	Kind   string
	Detail string
}

const maxCompletions = 100

// complete returns classes, globals and selectors starting with prefix,
// case-insensitively. Must be called on the session's worker.
func complete(in *vm.Interpreter, prefix string) []Completion {
	lower := strings.ToLower(prefix)
	match := func(name string) bool {
		return name != "" && strings.HasPrefix(strings.ToLower(name), lower)
	}

	var items []Completion
	seen := make(map[string]bool)
	add := func(c Completion) {
		if !seen[c.Label] && len(items) < maxCompletions {
			seen[c.Label] = true
			items = append(items, c)
		}
	}

	for _, c := range in.Classes().All() {
		if match(c.Name) {
			detail := "class"
			if c.Superclass != "" {
				detail = "class (< " + c.Superclass + ")"
			}
			add(Completion{Label: c.Name, Kind: CompletionClass, Detail: detail})
		}
	}

	for _, name := range in.Globals().Names() {
		if match(name) {
			add(Completion{Label: name, Kind: CompletionGlobal, Detail: "global"})
		}
	}

	for _, sel := range allSelectors(in) {
		if match(sel) {
			add(Completion{Label: sel, Kind: CompletionSelector, Detail: "selector"})
		}
	}

	return items
}

// allSelectors returns user-defined and built-in selectors, sorted.
func allSelectors(in *vm.Interpreter) []string {
	set := make(map[string]bool)
	for _, c := range in.Classes().All() {
		for _, sel := range c.Selectors() {
			set[sel] = true
		}
	}
	for t := vm.TypeNil; t <= vm.TypeNative; t++ {
		for _, sel := range in.Dispatcher().PrimitiveSelectors(t) {
			set[sel] = true
		}
	}
	result := make([]string, 0, len(set))
	for sel := range set {
		result = append(result, sel)
	}
	sort.Strings(result)
	return result
}

// implementors returns the classes that define selector directly.
func implementors(in *vm.Interpreter, selector string) []string {
	var result []string
	for _, c := range in.Classes().All() {
		if c.LocalMethod(selector) != nil {
			result = append(result, c.Name)
		}
	}
	return result
}
