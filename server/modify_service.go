package server

import (
	"context"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/chazu/oops/vm"
	"github.com/chazu/oops/vm/image"
)

// ModifyService changes a session's class table without going through
// source evaluation, and saves or restores it as an image.
type ModifyService struct {
	sessions *SessionStore
	browse   *BrowseService
}

// NewModifyService creates a ModifyService.
func NewModifyService(sessions *SessionStore) *ModifyService {
	return &ModifyService{sessions: sessions, browse: NewBrowseService(sessions)}
}

// runtimeError maps a runtime error to a Connect error code.
func runtimeError(err error) error {
	code := connect.CodeInvalidArgument
	switch vm.KindOf(err) {
	case vm.KindDuplicateClass:
		code = connect.CodeAlreadyExists
	case vm.KindUnknownClass:
		code = connect.CodeNotFound
	}
	return connect.NewError(code, err)
}

// CreateClass defines a class.
//
// Request: {name?, superclass?, ivars?, session?}  Response: {name, superclass, ivars, methods}
// An empty name creates an anonymous class; the superclass defaults to
// the root class.
func (s *ModifyService) CreateClass(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	name := stringField(req.Msg, "name")
	parent := stringField(req.Msg, "superclass")
	if parent == "" {
		parent = vm.RootClassName
	}
	ivars := stringListField(req.Msg, "ivars")

	return s.browse.browse(req.Msg, func(in *vm.Interpreter) (fields, error) {
		c, err := in.Classes().Subclass(parent, name, ivars)
		if err != nil {
			return nil, runtimeError(err)
		}
		return classSummary(c), nil
	})
}

// CompileMethod parses a block literal and installs it as a method,
// replacing any method with the same selector on that class.
//
// Request: {class, selector, source, session?}  Response: {class, selector, params}
func (s *ModifyService) CompileMethod(
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
	source, err := requireString(req.Msg, "source")
	if err != nil {
		return nil, err
	}

	return s.browse.browse(req.Msg, func(in *vm.Interpreter) (fields, error) {
		m, err := in.Classes().DefineMethodSource(className, selector, source)
		if err != nil {
			return nil, runtimeError(err)
		}
		return fields{
			"class":    str(className),
			"selector": str(m.Selector),
			"params":   strList(m.Params),
		}, nil
	})
}

// SaveImage writes the session's classes to an image file on the server.
//
// Request: {path, session?}  Response: {path, classes}
func (s *ModifyService) SaveImage(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	path, err := requireString(req.Msg, "path")
	if err != nil {
		return nil, err
	}
	return s.browse.browse(req.Msg, func(in *vm.Interpreter) (fields, error) {
		if err := image.Save(path, in.Classes()); err != nil {
			return nil, connect.NewError(connect.CodeInternal, err)
		}
		return fields{
			"path":    str(path),
			"classes": number(float64(in.Classes().Len())),
		}, nil
	})
}

// LoadImage restores an image file into the session.
//
// Request: {path, session?}  Response: {path, classes}
func (s *ModifyService) LoadImage(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	path, err := requireString(req.Msg, "path")
	if err != nil {
		return nil, err
	}
	return s.browse.browse(req.Msg, func(in *vm.Interpreter) (fields, error) {
		if err := image.Load(path, in.Classes()); err != nil {
			if vm.KindOf(err) != vm.KindNone {
				return nil, runtimeError(err)
			}
			return nil, connect.NewError(connect.CodeFailedPrecondition, err)
		}
		return fields{
			"path":    str(path),
			"classes": number(float64(in.Classes().Len())),
		}, nil
	})
}
