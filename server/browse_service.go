package server

import (
	"context"
	"fmt"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/chazu/oops/vm"
)

// BrowseService gives read-only access to a session's classes.
type BrowseService struct {
	sessions *SessionStore
}

// NewBrowseService creates a BrowseService.
func NewBrowseService(sessions *SessionStore) *BrowseService {
	return &BrowseService{sessions: sessions}
}

// browse runs fn on the requested session's worker.
func (s *BrowseService) browse(msg *structpb.Struct, fn func(in *vm.Interpreter) (fields, error)) (*connect.Response[structpb.Struct], error) {
	session, err := lookupSession(s.sessions, stringField(msg, "session"))
	if err != nil {
		return nil, err
	}
	type outcome struct {
		f   fields
		err error
	}
	result, err := session.worker.Do(func(in *vm.Interpreter) any {
		f, err := fn(in)
		return outcome{f, err}
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	out := result.(outcome)
	if out.err != nil {
		return nil, out.err
	}
	return response(out.f), nil
}

func classNotFound(name string) error {
	return connect.NewError(connect.CodeNotFound, fmt.Errorf("class %q not found", name))
}

func classSummary(c *vm.Class) fields {
	return fields{
		"name":       str(c.Name),
		"superclass": str(c.Superclass),
		"ivars":      strList(c.IVars),
		"methods":    number(float64(len(c.Selectors()))),
	}
}

// ListClasses returns every class, parents before children.
//
// Request: {session?}  Response: {classes: [{name, superclass, ivars, methods}]}
func (s *BrowseService) ListClasses(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	return s.browse(req.Msg, func(in *vm.Interpreter) (fields, error) {
		var items []*structpb.Value
		for _, c := range in.Classes().All() {
			items = append(items, object(classSummary(c)))
		}
		return fields{"classes": list(items...)}, nil
	})
}

// GetClass describes one class.
//
// Request: {name, session?}
// Response: {name, superclass, ivars, allIvars, selectors, hierarchy}
func (s *BrowseService) GetClass(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	name, err := requireString(req.Msg, "name")
	if err != nil {
		return nil, err
	}
	return s.browse(req.Msg, func(in *vm.Interpreter) (fields, error) {
		c := in.Classes().Get(name)
		if c == nil {
			return nil, classNotFound(name)
		}
		var hierarchy []string
		for _, sup := range c.Superclasses() {
			hierarchy = append([]string{sup.Name}, hierarchy...)
		}
		f := classSummary(c)
		f["allIvars"] = strList(c.AllIVarNames())
		f["selectors"] = strList(c.Selectors())
		f["hierarchy"] = strList(append(hierarchy, c.Name))
		return f, nil
	})
}

// GetMethod returns the source of a method, looked up through the
// superclass chain.
//
// Request: {class, selector, session?}
// Response: {class, selector, params, source, definedIn}
func (s *BrowseService) GetMethod(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	className, err := requireString(req.Msg, "class")
	if err != nil {
		return nil, err
	}
	selector, err := requireString(req.Msg, "selector")
	if err != nil {
		return nil, err
	}
	return s.browse(req.Msg, func(in *vm.Interpreter) (fields, error) {
		if !in.Classes().Has(className) {
			return nil, classNotFound(className)
		}
		m := in.Classes().Lookup(className, selector)
		if m == nil {
			return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("%s does not understand #%s", className, selector))
		}
		return fields{
			"class":     str(className),
			"selector":  str(m.Selector),
			"params":    strList(m.Params),
			"source":    str(m.Source()),
			"definedIn": str(m.Class.Name),
		}, nil
	})
}

// FindImplementors lists the classes that define a selector directly.
//
// Request: {selector, session?}  Response: {classes: [name]}
func (s *BrowseService) FindImplementors(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	selector, err := requireString(req.Msg, "selector")
	if err != nil {
		return nil, err
	}
	return s.browse(req.Msg, func(in *vm.Interpreter) (fields, error) {
		return fields{"classes": strList(implementors(in, selector))}, nil
	})
}
