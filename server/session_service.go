package server

import (
	"context"
	"fmt"
	"time"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/chazu/oops/vm"
)

// SessionService manages sessions and offers completion within one.
type SessionService struct {
	sessions *SessionStore
	log      commonlog.Logger
}

// NewSessionService creates a SessionService.
func NewSessionService(sessions *SessionStore, log commonlog.Logger) *SessionService {
	return &SessionService{sessions: sessions, log: log}
}

func sessionFields(s *Session) fields {
	return fields{
		"id":      str(s.ID),
		"name":    str(s.Name),
		"created": str(s.Created.UTC().Format(time.RFC3339)),
	}
}

// CreateSession starts a session with a fresh interpreter.
//
// Request: {name?}  Response: {id, name, created}
func (s *SessionService) CreateSession(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	session := s.sessions.Create(stringField(req.Msg, "name"))
	s.log.Infof("created session %s (%q)", session.ID, session.Name)
	return response(sessionFields(session)), nil
}

// DestroySession stops a session and releases its handles.
//
// Request: {id}  Response: {}
func (s *SessionService) DestroySession(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	id, err := requireString(req.Msg, "id")
	if err != nil {
		return nil, err
	}
	if !s.sessions.Destroy(id) {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("session %q not found or not destroyable", id))
	}
	s.log.Infof("destroyed session %s", id)
	return response(fields{}), nil
}

// ListSessions returns every live session, oldest first.
//
// Response: {sessions: [{id, name, created}]}
func (s *SessionService) ListSessions(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	var items []*structpb.Value
	for _, session := range s.sessions.List() {
		items = append(items, object(sessionFields(session)))
	}
	return response(fields{"sessions": list(items...)}), nil
}

// Complete returns completion candidates for a prefix.
//
// Request: {prefix, session?}  Response: {completions: [{label, kind, detail}]}
func (s *SessionService) Complete(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	prefix := stringField(req.Msg, "prefix")
	session, err := lookupSession(s.sessions, stringField(req.Msg, "session"))
	if err != nil {
		return nil, err
	}

	result, err := session.worker.Do(func(in *vm.Interpreter) any {
		return complete(in, prefix)
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	var items []*structpb.Value
	for _, c := range result.([]Completion) {
		items = append(items, object(fields{
			"label":  str(c.Label),
			"kind":   str(c.Kind),
			"detail": str(c.Detail),
		}))
	}
	return response(fields{"completions": list(items...)}), nil
}
