package server

import (
	"path/filepath"
	"reflect"
	"testing"

	"connectrpc.com/connect"
)

func TestCreateClass(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.Modify.CreateClass(bg(), req(t, map[string]any{
		"name":  "Point",
		"ivars": []any{"x", "y"},
	}))
	if err != nil {
		t.Fatalf("CreateClass: %v", err)
	}
	if got := getString(resp.Msg, "superclass"); got != "Object" {
		t.Errorf("superclass = %q, want Object", got)
	}
	if got := getStrings(resp.Msg, "ivars"); !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Errorf("ivars = %v", got)
	}

	// The class is visible to evaluated code by name.
	msg := env.mustEval(t, "[[Point new] class]")
	if got := getString(msg, "result"); got != "Point" {
		t.Errorf("[[Point new] class] = %q, want Point", got)
	}
}

func TestCreateClass_Anonymous(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.Modify.CreateClass(bg(), req(t, map[string]any{}))
	if err != nil {
		t.Fatalf("CreateClass: %v", err)
	}
	if got := getString(resp.Msg, "name"); got != "Object1" {
		t.Errorf("name = %q, want Object1", got)
	}
}

func TestCreateClass_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.mustEval(t, "[Class subclass name: #Base ivars: [#id]]")

	tests := []struct {
		name string
		req  map[string]any
		want connect.Code
	}{
		{"duplicate", map[string]any{"name": "Base"}, connect.CodeAlreadyExists},
		{"unknown parent", map[string]any{"name": "Orphan", "superclass": "Nobody"}, connect.CodeNotFound},
		{"inherited ivar", map[string]any{"name": "Sub", "superclass": "Base", "ivars": []any{"id"}}, connect.CodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Modify.CreateClass(bg(), req(t, tt.req))
			if got := connectCode(err); got != tt.want {
				t.Errorf("code = %v, want %v (%v)", got, tt.want, err)
			}
		})
	}
}

func TestCompileMethod(t *testing.T) {
	env := newTestEnv(t)
	env.mustEval(t, "[Class subclass name: #Greeter ivars: [#name]]")

	resp, err := env.Modify.CompileMethod(bg(), req(t, map[string]any{
		"class":    "Greeter",
		"selector": "greet:",
		"source":   `|who| { ["hello " + who] }`,
	}))
	if err != nil {
		t.Fatalf("CompileMethod: %v", err)
	}
	if got := getStrings(resp.Msg, "params"); !reflect.DeepEqual(got, []string{"who"}) {
		t.Errorf("params = %v", got)
	}

	msg := env.mustEval(t, `[[Greeter new] greet: "bob"]`)
	if got := getString(msg, "result"); got != `"hello bob"` {
		t.Errorf("result = %q", got)
	}
}

func TestCompileMethod_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.mustEval(t, "[Class subclass name: #Box]")

	tests := []struct {
		name string
		req  map[string]any
		want connect.Code
	}{
		{"unknown class", map[string]any{"class": "Crate", "selector": "x", "source": "{ 1 }"}, connect.CodeNotFound},
		{"parse error", map[string]any{"class": "Box", "selector": "x", "source": "{ [1 + }"}, connect.CodeInvalidArgument},
		{"arity", map[string]any{"class": "Box", "selector": "at:put:", "source": "|i| { i }"}, connect.CodeInvalidArgument},
		{"missing source", map[string]any{"class": "Box", "selector": "x"}, connect.CodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Modify.CompileMethod(bg(), req(t, tt.req))
			if got := connectCode(err); got != tt.want {
				t.Errorf("code = %v, want %v (%v)", got, tt.want, err)
			}
		})
	}
}

func TestSaveAndLoadImage(t *testing.T) {
	env := newTestEnv(t)
	env.mustEval(t, `
let Pair = [Class subclass name: #Pair ivars: [#a, #b]];
[Pair def: #set do: |a b| { @a = a; @b = b; self }];
[Pair def: #sum do: { [@a + @b] }];
`)
	path := filepath.Join(t.TempDir(), "pair.image")

	resp, err := env.Modify.SaveImage(bg(), req(t, map[string]any{"path": path}))
	if err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
	if getNumber(resp.Msg, "classes") != 2 {
		t.Errorf("classes = %v, want 2", getNumber(resp.Msg, "classes"))
	}

	fresh := env.Sessions.Create("fresh")
	if _, err := env.Modify.LoadImage(bg(), req(t, map[string]any{"path": path, "session": fresh.ID})); err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	eval, err := env.Eval.Evaluate(bg(), req(t, map[string]any{
		"source":  "[[[Pair new] set a: 3 b: 4] sum]",
		"session": fresh.ID,
	}))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got := getString(eval.Msg, "result"); got != "7" {
		t.Errorf("result = %q (%s), want 7", got, getString(eval.Msg, "error"))
	}

	// Loading over existing classes conflicts.
	_, err = env.Modify.LoadImage(bg(), req(t, map[string]any{"path": path}))
	if got := connectCode(err); got != connect.CodeAlreadyExists {
		t.Errorf("conflicting load code = %v, want AlreadyExists", got)
	}
}

func TestLoadImage_MissingFile(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Modify.LoadImage(bg(), req(t, map[string]any{
		"path": filepath.Join(t.TempDir(), "nope.image"),
	}))
	if got := connectCode(err); got != connect.CodeFailedPrecondition {
		t.Errorf("code = %v, want FailedPrecondition", got)
	}
}
