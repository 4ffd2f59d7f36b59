package server

import (
	"testing"

	"connectrpc.com/connect"
)

// ---------------------------------------------------------------------------
// Evaluate: happy paths
// ---------------------------------------------------------------------------

func TestEvaluate_Results(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		source string
		result string
		class  string
	}{
		{"42", "42", "Integer"},
		{"[3 + 4]", "7", "Integer"},
		{`"hello"`, `"hello"`, "String"},
		{"#name", "#name", "Symbol"},
		{"true", "true", "Boolean"},
		{"nil", "nil", "Nil"},
		{"[1, 2]", "[1, 2]", "List"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			msg := env.mustEval(t, tt.source)
			if got := getString(msg, "result"); got != tt.result {
				t.Errorf("result = %q, want %q", got, tt.result)
			}
			if got := getString(msg, "class"); got != tt.class {
				t.Errorf("class = %q, want %q", got, tt.class)
			}
			if getString(msg, "handle") == "" {
				t.Error("Evaluate should return a handle")
			}
		})
	}
}

func TestEvaluate_JSONValue(t *testing.T) {
	env := newTestEnv(t)

	msg := env.mustEval(t, `[7, "a", [true, nil]]`)
	got := msg.GetFields()["value"].AsInterface()
	want := []any{float64(7), "a", []any{true, nil}}
	if len(got.([]any)) != 3 {
		t.Fatalf("value = %v, want %v", got, want)
	}
	nested := got.([]any)[2].([]any)
	if nested[0] != true || nested[1] != nil {
		t.Errorf("nested value = %v", nested)
	}
}

func TestEvaluate_SelfContainingList(t *testing.T) {
	env := newTestEnv(t)

	msg := env.mustEval(t, "let l = [1]; [l add: l]; l")
	if got := getString(msg, "result"); got != "[1, [...]]" {
		t.Errorf("result = %q, want %q", got, "[1, [...]]")
	}
	value := getList(msg, "value")
	if len(value) != 2 {
		t.Fatalf("value = %v, want two elements", value)
	}
	if got := value[1].GetStringValue(); got != "[1, [...]]" {
		t.Errorf("inner value = %q, want the printString", got)
	}
}

func TestEvaluate_CapturesTranscript(t *testing.T) {
	env := newTestEnv(t)

	msg := env.mustEval(t, `[Transcript show: "hi"]; 1`)
	if got := getString(msg, "output"); got != "hi\n" {
		t.Errorf("output = %q, want %q", got, "hi\n")
	}

	// Output is per request.
	msg = env.mustEval(t, "2")
	if got := getString(msg, "output"); got != "" {
		t.Errorf("second output = %q, want empty", got)
	}
}

func TestEvaluate_DefinitionsPersist(t *testing.T) {
	env := newTestEnv(t)

	env.mustEval(t, `
let Counter = [Class subclass name: #Counter ivars: [#n]];
[Counter def: #initialize do: { @n = 0 }];
[Counter def: #bump do: { @n = [@n + 1]; @n }];
let c = [Counter new];
`)
	env.mustEval(t, "[c bump]")
	msg := env.mustEval(t, "[c bump]")
	if got := getString(msg, "result"); got != "2" {
		t.Errorf("result = %q, want 2", got)
	}
}

// ---------------------------------------------------------------------------
// Evaluate: failures
// ---------------------------------------------------------------------------

func TestEvaluate_RuntimeError(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.Eval.Evaluate(bg(), req(t, map[string]any{
		"source": "let kept = 5;\n[1 / 0]",
	}))
	if err != nil {
		t.Fatalf("runtime errors should be reported in the response, got %v", err)
	}
	if getBool(resp.Msg, "success") {
		t.Fatal("Evaluate should fail")
	}
	if got := getString(resp.Msg, "kind"); got != "DivisionByZero" {
		t.Errorf("kind = %q, want DivisionByZero", got)
	}
	if getNumber(resp.Msg, "line") != 2 {
		t.Errorf("line = %v, want 2", getNumber(resp.Msg, "line"))
	}

	msg := env.mustEval(t, "kept")
	if got := getString(msg, "result"); got != "5" {
		t.Errorf("definitions before the failure should be kept, kept = %q", got)
	}
}

func TestEvaluate_ParseError(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.Eval.Evaluate(bg(), req(t, map[string]any{"source": "[1 +"}))
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if getBool(resp.Msg, "success") {
		t.Fatal("Evaluate should fail")
	}
	if got := getString(resp.Msg, "kind"); got != "ParseError" {
		t.Errorf("kind = %q, want ParseError", got)
	}
	if len(getList(resp.Msg, "diagnostics")) == 0 {
		t.Error("parse failures should carry diagnostics")
	}
}

func TestEvaluate_RequestErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		req  map[string]any
		want connect.Code
	}{
		{"missing source", map[string]any{}, connect.CodeInvalidArgument},
		{"unknown session", map[string]any{"source": "1", "session": "nope"}, connect.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Eval.Evaluate(bg(), req(t, tt.req))
			if got := connectCode(err); got != tt.want {
				t.Errorf("code = %v, want %v (%v)", got, tt.want, err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// CheckSyntax
// ---------------------------------------------------------------------------

func TestCheckSyntax(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.Eval.CheckSyntax(bg(), req(t, map[string]any{"source": "[1 + 2]"}))
	if err != nil {
		t.Fatalf("CheckSyntax: %v", err)
	}
	if !getBool(resp.Msg, "valid") {
		t.Error("valid source reported invalid")
	}

	resp, err = env.Eval.CheckSyntax(bg(), req(t, map[string]any{"source": "let x = 1;\n[x +"}))
	if err != nil {
		t.Fatalf("CheckSyntax: %v", err)
	}
	if getBool(resp.Msg, "valid") {
		t.Fatal("invalid source reported valid")
	}
	diags := getList(resp.Msg, "diagnostics")
	if len(diags) == 0 {
		t.Fatal("expected diagnostics")
	}
	if line := diags[0].GetStructValue().GetFields()["line"].GetNumberValue(); line != 2 {
		t.Errorf("diagnostic line = %v, want 2", line)
	}
}

func TestCheckSyntax_DoesNotEvaluate(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.Eval.CheckSyntax(bg(), req(t, map[string]any{"source": "let y = 1"})); err != nil {
		t.Fatalf("CheckSyntax: %v", err)
	}
	resp, _ := env.Eval.Evaluate(bg(), req(t, map[string]any{"source": "y"}))
	if getBool(resp.Msg, "success") {
		t.Error("CheckSyntax should not define anything")
	}
}
