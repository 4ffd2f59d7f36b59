package server

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"
	"google.golang.org/protobuf/types/known/structpb"
)

// ---------------------------------------------------------------------------
// Shared test infrastructure for server package tests.
//
// Interpreters are cheap, so every test gets its own stores and default
// session rather than sharing one across the package.
// ---------------------------------------------------------------------------

// testEnv bundles a session store and handle store with the services
// built on them.
type testEnv struct {
	Sessions *SessionStore
	Handles  *HandleStore

	Eval    *EvalService
	Session *SessionService
	Browse  *BrowseService
	Modify  *ModifyService
	Inspect *InspectService
}

// newTestEnv creates fresh stores whose sessions are stopped when the
// test ends.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	h := NewHandleStore()
	s := NewSessionStore(h)
	t.Cleanup(s.StopAll)
	return &testEnv{
		Sessions: s,
		Handles:  h,
		Eval:     NewEvalService(s, h),
		Session:  NewSessionService(s, commonlog.GetLogger("oops.server.test")),
		Browse:   NewBrowseService(s),
		Modify:   NewModifyService(s),
		Inspect:  NewInspectService(s, h),
	}
}

// mustEval evaluates source in the default session and fails the test
// unless it succeeds.
func (e *testEnv) mustEval(t *testing.T, source string) *structpb.Struct {
	t.Helper()
	resp, err := e.Eval.Evaluate(bg(), req(t, map[string]any{"source": source}))
	if err != nil {
		t.Fatalf("Evaluate(%q) returned error: %v", source, err)
	}
	if !getBool(resp.Msg, "success") {
		t.Fatalf("Evaluate(%q) failed: %s", source, getString(resp.Msg, "error"))
	}
	return resp.Msg
}

// ---------------------------------------------------------------------------
// Request builder and response reader helpers
// ---------------------------------------------------------------------------

func req(t *testing.T, m map[string]any) *connect.Request[structpb.Struct] {
	t.Helper()
	msg, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	return connect.NewRequest(msg)
}

func bg() context.Context {
	return context.Background()
}

func getString(msg *structpb.Struct, key string) string {
	return msg.GetFields()[key].GetStringValue()
}

func getBool(msg *structpb.Struct, key string) bool {
	return msg.GetFields()[key].GetBoolValue()
}

func getNumber(msg *structpb.Struct, key string) float64 {
	return msg.GetFields()[key].GetNumberValue()
}

func getList(msg *structpb.Struct, key string) []*structpb.Value {
	return msg.GetFields()[key].GetListValue().GetValues()
}

func getStrings(msg *structpb.Struct, key string) []string {
	var result []string
	for _, v := range getList(msg, key) {
		result = append(result, v.GetStringValue())
	}
	return result
}

// connectCode returns the Connect code of err, or 0 for nil.
func connectCode(err error) connect.Code {
	if err == nil {
		return 0
	}
	return connect.CodeOf(err)
}
