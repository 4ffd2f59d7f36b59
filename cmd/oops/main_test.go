package main

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/docopt/docopt-go"

	"github.com/chazu/oops/manifest"
	"github.com/chazu/oops/vm"
)

var testParser = &docopt.Parser{HelpHandler: docopt.NoHelpHandler}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// ---------------------------------------------------------------------------
// Command line
// ---------------------------------------------------------------------------

func TestParseOptions(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		want options
	}{
		{"no arguments", nil, options{}},
		{"files in order", []string{"a.oops", "b.oops"}, options{Files: []string{"a.oops", "b.oops"}}},
		{"eval", []string{"-e", "[1 + 2]"}, options{Eval: "[1 + 2]"}},
		{"interactive", []string{"-i", "boot.oops"}, options{Interactive: true, Files: []string{"boot.oops"}}},
		{"serve", []string{"--serve", "--addr=:8080"}, options{Serve: true, Addr: ":8080"}},
		{"lsp", []string{"--lsp"}, options{LSP: true}},
		{"images", []string{"--load-image=in.image", "--save-image=out.image"}, options{LoadImage: "in.image", SaveImage: "out.image"}},
		{"max depth", []string{"--max-depth=50"}, options{MaxDepth: 50}},
		{"verbosity", []string{"-vv", "--log=oops.log"}, options{Verbosity: 2, LogFile: "oops.log"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := parseOptions(testParser, tt.argv)
			if err != nil {
				t.Fatalf("parseOptions: %v", err)
			}
			if len(o.Files) == 0 {
				o.Files = nil
			}
			if !reflect.DeepEqual(*o, tt.want) {
				t.Errorf("options = %+v, want %+v", *o, tt.want)
			}
		})
	}
}

func TestParseOptionsErrors(t *testing.T) {
	for _, argv := range [][]string{
		{"--max-depth=zero"},
		{"--max-depth=-3"},
		{"--max-depth=12abc"},
		{"--no-such-flag"},
	} {
		if _, err := parseOptions(testParser, argv); err == nil {
			t.Errorf("parseOptions(%v) should fail", argv)
		}
	}
}

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

func TestResolveConfigWithoutManifest(t *testing.T) {
	cfg, err := resolveConfig(&options{Files: []string{"a.oops"}, MaxDepth: 10}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.addr != manifest.DefaultServerAddr {
		t.Errorf("addr = %q, want %q", cfg.addr, manifest.DefaultServerAddr)
	}
	if cfg.maxDepth != 10 || !reflect.DeepEqual(cfg.files, []string{"a.oops"}) {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestResolveConfigFromManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, manifest.FileName), `
[project]
name = "app"

[runtime]
max-depth = 300

[log]
verbosity = 1
file = "app.log"

[server]
addr = ":9100"
`)
	writeFile(t, filepath.Join(dir, "src", "b.oops"), "2")
	writeFile(t, filepath.Join(dir, "src", "a.oops"), "1")

	m, err := manifest.Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := resolveConfig(&options{Verbosity: 1}, m)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(m.Dir, "src", "a.oops"), filepath.Join(m.Dir, "src", "b.oops")}
	if !reflect.DeepEqual(cfg.files, want) {
		t.Errorf("files = %v, want %v", cfg.files, want)
	}
	if cfg.maxDepth != 300 || cfg.verbosity != 2 || cfg.logFile != "app.log" || cfg.addr != ":9100" {
		t.Errorf("cfg = %+v", cfg)
	}

	// Command line settings win, and named files replace project sources.
	cfg, err = resolveConfig(&options{Files: []string{"x.oops"}, MaxDepth: 5, Addr: ":1", LogFile: "cli.log"}, m)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg.files, []string{"x.oops"}) || cfg.maxDepth != 5 || cfg.addr != ":1" || cfg.logFile != "cli.log" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestResolveConfigBadDependency(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, manifest.FileName), `
[dependencies]
missing = { path = "../nowhere" }
`)
	m, err := manifest.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := resolveConfig(&options{}, m); err == nil || !strings.Contains(err.Error(), "project") {
		t.Errorf("error = %v, want a project error", err)
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

func TestLoadFilesInOrder(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "user.oops")
	second := filepath.Join(dir, "main.oops")
	writeFile(t, first, `
let User = [Class subclass name: #User ivars: [#id]];
[User def: #id do: { @id }];
[User def: #set do: |id| { @id = id; self }];
`)
	writeFile(t, second, `let u = [[User new] set id: 7];`)

	in := vm.New()
	if err := loadFiles(in, []string{first, second}); err != nil {
		t.Fatalf("loadFiles: %v", err)
	}
	v, err := in.EvalString("[u id]")
	if err != nil {
		t.Fatal(err)
	}
	if v.IntVal != 7 {
		t.Errorf("[u id] = %v, want 7", v)
	}
}

func TestLoadFilesErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.oops")
	writeFile(t, bad, "[Ghost new]")

	in := vm.New()
	err := loadFiles(in, []string{bad})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.HasPrefix(err.Error(), bad+": ") {
		t.Errorf("error %q should name the file", err)
	}
	if vm.KindOf(err) == vm.KindNone {
		t.Errorf("error %v should keep its runtime kind", err)
	}

	if err := loadFiles(in, []string{filepath.Join(dir, "absent.oops")}); !os.IsNotExist(err) {
		t.Errorf("missing file error = %v", err)
	}
}

func TestPrepareWithImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.image")

	src := vm.New()
	if _, err := src.EvalString(`let P = [Class subclass name: #Point ivars: [#x]]; [P def: #x do: { @x }];`); err != nil {
		t.Fatal(err)
	}
	if err := saveImage(src, path); err != nil {
		t.Fatalf("saveImage: %v", err)
	}

	in := vm.New()
	if err := prepare(in, config{loadImage: path}); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if in.Classes().Lookup("Point", "x") == nil {
		t.Error("Point>>x should be restored from the image")
	}
}

func TestRunEvalWithFiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "count.oops")
	writeFile(t, file, `let n = 0; [3 timesRepeat: { n = [n + 1] }]; [Transcript show: "loaded"];`)

	var out, errOut bytes.Buffer
	code := run(&options{Files: []string{file}, Eval: "[n * 10]"}, stdio{
		in:  strings.NewReader(""),
		out: &out,
		err: &errOut,
	})
	if code != 0 {
		t.Fatalf("exit code = %d, stderr %q", code, errOut.String())
	}
	if got, want := out.String(), "loaded\n30\n"; got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
}

func TestRunReadsStdin(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run(&options{}, stdio{
		in:  strings.NewReader(`[Transcript show: [2 + 2]]`),
		out: &out,
		err: &errOut,
	})
	if code != 0 {
		t.Fatalf("exit code = %d, stderr %q", code, errOut.String())
	}
	if out.String() != "4\n" {
		t.Errorf("stdout = %q", out.String())
	}
}

func TestRunReportsErrors(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run(&options{}, stdio{
		in:  strings.NewReader(`[1 / 0]`),
		out: &out,
		err: &errOut,
	})
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.HasPrefix(errOut.String(), "Error: <stdin>: ") {
		t.Errorf("stderr = %q", errOut.String())
	}
}

// ---------------------------------------------------------------------------
// REPL
// ---------------------------------------------------------------------------

func TestREPLEval(t *testing.T) {
	var out bytes.Buffer
	r := newREPL(vm.New(), &out)

	if r.handle("let x = [3 + 4]") {
		t.Fatal("evaluation should not exit")
	}
	r.handle("[x * 2]")
	r.handle("[nobody here]")

	got := out.String()
	for _, want := range []string{"7\n", "14\n", "UnboundVariable"} {
		if !strings.Contains(got, want) {
			t.Errorf("output %q missing %q", got, want)
		}
	}
}

func TestREPLCommands(t *testing.T) {
	in := vm.New()
	if _, err := in.EvalString(`let Dog = [Class subclass name: #Dog ivars: [#name]]; [Dog def: #bark do: { "woof" }];`); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		input string
		want  string
		quit  bool
	}{
		{":help", ":classes", false},
		{":classes", "Dog", false},
		{":class Dog", "bark", false},
		{":class Ghost", "no class named Ghost", false},
		{":class", "usage", false},
		{":globals", "Dog", false},
		{":frob", "unknown command", false},
		{":quit", "", true},
		{"exit", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var out bytes.Buffer
			r := newREPL(in, &out)
			if quit := r.handle(tt.input); quit != tt.quit {
				t.Errorf("handle(%q) quit = %v, want %v", tt.input, quit, tt.quit)
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("output %q missing %q", out.String(), tt.want)
			}
		})
	}
}

func TestREPLReset(t *testing.T) {
	var out bytes.Buffer
	in := vm.New()
	r := newREPL(in, &out)
	r.handle(`[Class subclass name: #Temp]`)
	r.handle(":reset")
	if in.Classes().Has("Temp") {
		t.Error(":reset should discard user classes")
	}
}

func TestNeedsMore(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"[3 + 4]", false},
		{"[3 +", true},
		{"[Dog def: #bark do: {", true},
		{"[Dog def: #bark do: { \"woof\" }]", false},
		{"(1", true},
		{`"open`, true},
		{"let x = 1", false},
		{"]", false},
	}
	for _, tt := range tests {
		if got := needsMore(tt.src); got != tt.want {
			t.Errorf("needsMore(%q) = %v, want %v", tt.src, got, tt.want)
		}
	}
}

func TestCompleteWord(t *testing.T) {
	in := vm.New()
	if _, err := in.EvalString(`let Doggo = [Class subclass name: #Dog]; [Dog def: #dig do: { 1 }];`); err != nil {
		t.Fatal(err)
	}
	r := newREPL(in, &bytes.Buffer{})

	head, completions, tail := r.completeWord("[x Do", 5)
	if head != "[x " || tail != "" {
		t.Errorf("head %q tail %q", head, tail)
	}
	if !reflect.DeepEqual(completions, []string{"Dog", "Doggo"}) {
		t.Errorf("completions = %v", completions)
	}

	_, completions, _ = r.completeWord("[d di]", 5)
	found := false
	for _, c := range completions {
		if c == "dig" {
			found = true
		}
	}
	if !found {
		t.Errorf("completions %v should include dig", completions)
	}
}
