package server

import (
	"context"
	"fmt"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/chazu/oops/vm"
)

// InspectService looks inside values held by handles and sends them
// messages.
type InspectService struct {
	sessions *SessionStore
	handles  *HandleStore
}

// NewInspectService creates an InspectService.
func NewInspectService(sessions *SessionStore, handles *HandleStore) *InspectService {
	return &InspectService{sessions: sessions, handles: handles}
}

// resolve finds a handle's value and the session that owns it.
func (s *InspectService) resolve(msg *structpb.Struct) (vm.Value, *Session, error) {
	id, err := requireString(msg, "handle")
	if err != nil {
		return vm.Nil, nil, err
	}
	v, sessionID, ok := s.handles.Lookup(id)
	if !ok {
		return vm.Nil, nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("handle %q not found", id))
	}
	session, err := lookupSession(s.sessions, sessionID)
	if err != nil {
		return vm.Nil, nil, err
	}
	return v, session, nil
}

// Inspect describes a value: its class, printString and, for instances
// and lists, its slots. Each slot carries a handle of its own.
//
// Request: {handle}
// Response: {class, display, value, slots: [{name, class, display, handle}]}
func (s *InspectService) Inspect(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	v, session, err := s.resolve(req.Msg)
	if err != nil {
		return nil, err
	}

	result, err := session.worker.Do(func(in *vm.Interpreter) any {
		slot := func(name string, sv vm.Value) *structpb.Value {
			return object(fields{
				"name":    str(name),
				"class":   str(sv.TypeName()),
				"display": str(sv.String()),
				"handle":  str(s.handles.Create(sv, session.ID)),
			})
		}

		var slots []*structpb.Value
		switch v.Type {
		case vm.TypeInstance:
			for _, name := range v.InstanceVal.VarNames() {
				iv, _ := v.InstanceVal.GetVar(name)
				slots = append(slots, slot(name, iv))
			}
		case vm.TypeList:
			for i, elem := range v.ListVal.Elements {
				slots = append(slots, slot(fmt.Sprint(i+1), elem))
			}
		}
		return fields{
			"class":   str(v.TypeName()),
			"display": str(v.String()),
			"value":   valueToProto(v),
			"slots":   list(slots...),
		}
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return response(result.(fields)), nil
}

// SendMessage sends a message to a handle's value. Arguments are JSON
// values; the result is reported like Evaluate's.
//
// Request: {handle, selector, args?}
func (s *InspectService) SendMessage(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	recv, session, err := s.resolve(req.Msg)
	if err != nil {
		return nil, err
	}
	selector, err := requireString(req.Msg, "selector")
	if err != nil {
		return nil, err
	}

	var args []vm.Value
	for _, p := range req.Msg.GetFields()["args"].GetListValue().GetValues() {
		arg, err := protoToValue(p)
		if err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		args = append(args, arg)
	}

	msg := vm.UnaryMessage(selector)
	if vm.IsKeywordSelector(selector) {
		msg = vm.KeywordMessage(selector, args...)
	} else if len(args) > 0 {
		msg = &vm.Message{Selector: selector, Name: selector, Args: args}
	}

	result, err := session.worker.Do(func(in *vm.Interpreter) any {
		session.out.Reset()
		v, sendErr := in.Send(recv, msg)
		output := session.out.String()
		if sendErr != nil {
			f := errorFields(sendErr)
			f["output"] = str(output)
			return f
		}
		return fields{
			"success": boolean(true),
			"result":  str(v.String()),
			"class":   str(v.TypeName()),
			"value":   valueToProto(v),
			"handle":  str(s.handles.Create(v, session.ID)),
			"output":  str(output),
		}
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return response(result.(fields)), nil
}

// ReleaseHandle drops a handle.
//
// Request: {handle}  Response: {released}
func (s *InspectService) ReleaseHandle(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	id, err := requireString(req.Msg, "handle")
	if err != nil {
		return nil, err
	}
	return response(fields{"released": boolean(s.handles.Release(id))}), nil
}
