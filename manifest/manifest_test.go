package manifest

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), `
[project]
name = "test-app"
version = "0.1.0"

[source]
dirs = ["src", "lib"]
entry = "main.oops"
prelude = ["boot.oops"]

[runtime]
max-depth = 500

[log]
verbosity = 2
file = "oops.log"

[server]
addr = ":9000"

[dependencies]
helper = { path = "../helper" }

[image]
output = "test.image"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "test-app" {
		t.Errorf("project name = %q, want test-app", m.Project.Name)
	}
	if m.Project.Version != "0.1.0" {
		t.Errorf("project version = %q, want 0.1.0", m.Project.Version)
	}
	if !reflect.DeepEqual(m.Source.Dirs, []string{"src", "lib"}) {
		t.Errorf("source dirs = %v", m.Source.Dirs)
	}
	if m.Source.Entry != "main.oops" {
		t.Errorf("source entry = %q, want main.oops", m.Source.Entry)
	}
	if !reflect.DeepEqual(m.Source.Prelude, []string{"boot.oops"}) {
		t.Errorf("prelude = %v", m.Source.Prelude)
	}
	if m.Runtime.MaxDepth != 500 {
		t.Errorf("max-depth = %d, want 500", m.Runtime.MaxDepth)
	}
	if m.Log.Verbosity != 2 || m.Log.File != "oops.log" {
		t.Errorf("log = %+v", m.Log)
	}
	if m.Server.Addr != ":9000" {
		t.Errorf("server addr = %q", m.Server.Addr)
	}
	if dep, ok := m.Dependencies["helper"]; !ok || dep.Path != "../helper" {
		t.Errorf("helper dep = %v, want path ../helper", m.Dependencies["helper"])
	}
	if m.Image.Output != "test.image" {
		t.Errorf("image output = %q, want test.image", m.Image.Output)
	}
	if m.ImagePath() != filepath.Join(m.Dir, "test.image") {
		t.Errorf("ImagePath() = %q", m.ImagePath())
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), `
[project]
name = "minimal"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(m.Source.Dirs, []string{DefaultSourceDir}) {
		t.Errorf("default source dirs = %v", m.Source.Dirs)
	}
	if m.Server.Addr != DefaultServerAddr {
		t.Errorf("default addr = %q", m.Server.Addr)
	}
	if m.Image.Output != DefaultImage {
		t.Errorf("default image = %q", m.Image.Output)
	}
	if m.Runtime.MaxDepth != 0 {
		t.Errorf("max-depth = %d, want 0 (interpreter default)", m.Runtime.MaxDepth)
	}
	if !filepath.IsAbs(m.Dir) {
		t.Errorf("Dir = %q, want absolute", m.Dir)
	}
}

func TestLoadManifestErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", "[project\nname = 1", "parse error"},
		{"unknown key", "[project]\nnmae = \"typo\"", "unknown keys"},
		{"negative depth", "[runtime]\nmax-depth = -1", "max-depth"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, FileName), tt.content)
			_, err := Load(dir)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load error = %v, want %q", err, tt.want)
			}
		})
	}

	if _, err := Load(t.TempDir()); err == nil {
		t.Error("Load of a directory without oops.toml should fail")
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, FileName), "[project]\nname = \"found\"\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad: %v", err)
	}
	if m == nil || m.Project.Name != "found" {
		t.Fatalf("FindAndLoad = %+v", m)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("FindAndLoad: %v", err)
	}
	if m != nil {
		// A parent of the temp dir may carry an oops.toml; only fail
		// when the result points inside the temp dir.
		t.Logf("found manifest outside the test dir at %s", m.Dir)
	}
}

func TestSourceFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), `
[source]
dirs = ["src", "missing"]
entry = "src/main.oops"
prelude = ["boot.oops"]
`)
	writeFile(t, filepath.Join(dir, "boot.oops"), "")
	writeFile(t, filepath.Join(dir, "src", "main.oops"), "")
	writeFile(t, filepath.Join(dir, "src", "b.oops"), "")
	writeFile(t, filepath.Join(dir, "src", "a.oops"), "")
	writeFile(t, filepath.Join(dir, "src", "nested", "c.oops"), "")
	writeFile(t, filepath.Join(dir, "src", "notes.txt"), "")

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	files, err := m.SourceFiles()
	if err != nil {
		t.Fatalf("SourceFiles: %v", err)
	}

	var rel []string
	for _, f := range files {
		r, _ := filepath.Rel(m.Dir, f)
		rel = append(rel, filepath.ToSlash(r))
	}
	want := []string{"boot.oops", "src/a.oops", "src/b.oops", "src/nested/c.oops", "src/main.oops"}
	if !reflect.DeepEqual(rel, want) {
		t.Errorf("SourceFiles() = %v, want %v", rel, want)
	}
}

func TestDefaultManifest(t *testing.T) {
	m := Default("/tmp/project")
	if m.Dir != "/tmp/project" || m.Image.Output != DefaultImage {
		t.Errorf("Default() = %+v", m)
	}
	if got := m.SourceDirPaths(); !reflect.DeepEqual(got, []string{filepath.Join("/tmp/project", "src")}) {
		t.Errorf("SourceDirPaths() = %v", got)
	}
}
