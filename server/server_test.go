package server

import (
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"

	"github.com/chazu/oops/vm"
)

func newTestServer(t *testing.T) *Client {
	t.Helper()
	srv := New(WithInterpreterOptions(vm.WithMaxDepth(200)))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Stop()
	})
	return NewClient(ts.Client(), ts.URL)
}

func TestServer_EvaluateOverHTTP(t *testing.T) {
	client := newTestServer(t)

	resp, err := client.Evaluate(bg(), "", "[6 * 7]")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if resp["success"] != true || resp["result"] != "42" {
		t.Errorf("response = %v", resp)
	}
	if resp["value"] != float64(42) {
		t.Errorf("value = %v, want 42", resp["value"])
	}
}

func TestServer_SessionsOverHTTP(t *testing.T) {
	client := newTestServer(t)

	created, err := client.Call(bg(), CreateSessionProcedure, map[string]any{"name": "work"})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	id := created["id"].(string)

	if _, err := client.Evaluate(bg(), id, "let only = 1"); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	resp, err := client.Evaluate(bg(), "", "only")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if resp["success"] != false {
		t.Error("binding leaked into the default session")
	}
}

func TestServer_ErrorCodes(t *testing.T) {
	client := newTestServer(t)

	_, err := client.Call(bg(), GetClassProcedure, map[string]any{"name": "Missing"})
	if got := connect.CodeOf(err); got != connect.CodeNotFound {
		t.Errorf("code = %v, want NotFound", got)
	}

	_, err = client.Call(bg(), EvaluateProcedure, map[string]any{})
	if got := connect.CodeOf(err); got != connect.CodeInvalidArgument {
		t.Errorf("code = %v, want InvalidArgument", got)
	}
}

func TestServer_StackDepthOption(t *testing.T) {
	client := newTestServer(t)

	resp, err := client.Evaluate(bg(), "", `
let R = [Class subclass name: #R];
[R def: #down do: { [self down] }];
[[R new] down]
`)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if resp["kind"] != "StackOverflow" {
		t.Errorf("kind = %v, want StackOverflow", resp["kind"])
	}
}
