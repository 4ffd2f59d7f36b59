package server

import (
	"context"
	"fmt"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/chazu/oops/compiler"
	"github.com/chazu/oops/vm"
)

// EvalService evaluates source in a session.
//
// Evaluate request:  {source, session?}
// Evaluate response: {success, result, class, value, handle, output}
// or, on failure,    {success: false, error, kind?, line?, column?, output}
type EvalService struct {
	sessions *SessionStore
	handles  *HandleStore
}

// NewEvalService creates an EvalService.
func NewEvalService(sessions *SessionStore, handles *HandleStore) *EvalService {
	return &EvalService{sessions: sessions, handles: handles}
}

// Evaluate parses and runs a program in the requested session. Runtime
// and parse errors are reported in the response, not as RPC errors;
// definitions made before a failing statement are kept.
func (s *EvalService) Evaluate(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	source, err := requireString(req.Msg, "source")
	if err != nil {
		return nil, err
	}
	session, err := lookupSession(s.sessions, stringField(req.Msg, "session"))
	if err != nil {
		return nil, err
	}

	result, err := session.worker.Do(func(in *vm.Interpreter) any {
		session.out.Reset()
		v, evalErr := in.EvalString(source)
		output := session.out.String()
		if evalErr != nil {
			f := errorFields(evalErr)
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

// CheckSyntax parses source without running it.
//
// Response: {valid, diagnostics: [{line, column, message}]}
func (s *EvalService) CheckSyntax(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	source, err := requireString(req.Msg, "source")
	if err != nil {
		return nil, err
	}

	p := compiler.NewParser(source)
	p.ParseProgram()
	diags := p.Diagnostics()
	return response(fields{
		"valid":       boolean(len(diags) == 0),
		"diagnostics": diagnosticsValue(diags),
	}), nil
}

// lookupSession resolves a session ID, the empty ID meaning the default
// session.
func lookupSession(sessions *SessionStore, id string) (*Session, error) {
	session, ok := sessions.Get(id)
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("session %q not found", id))
	}
	return session, nil
}
