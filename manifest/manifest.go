// Package manifest handles oops.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the project configuration file.
const FileName = "oops.toml"

// SourceExt is the extension of oops source files.
const SourceExt = ".oops"

// Defaults applied by Load and Default.
const (
	DefaultSourceDir  = "src"
	DefaultServerAddr = "127.0.0.1:7117"
	DefaultImage      = "oops.image"
)

// Manifest represents an oops.toml project configuration.
type Manifest struct {
	Project      Project               `toml:"project"`
	Source       Source                `toml:"source"`
	Runtime      Runtime               `toml:"runtime"`
	Log          Log                   `toml:"log"`
	Server       Server                `toml:"server"`
	Image        ImageConfig           `toml:"image"`
	Dependencies map[string]Dependency `toml:"dependencies"`

	// Dir is the directory containing the oops.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Source configures source file locations. Prelude files are evaluated
// first, then every file under Dirs, then Entry.
type Source struct {
	Dirs    []string `toml:"dirs"`
	Entry   string   `toml:"entry"`
	Prelude []string `toml:"prelude"`
}

// Runtime configures the interpreter.
type Runtime struct {
	MaxDepth int `toml:"max-depth"`
}

// Log configures logging. Verbosity follows commonlog: 0 is errors only.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Server configures the evaluation server.
type Server struct {
	Addr string `toml:"addr"`
}

// ImageConfig configures image output.
type ImageConfig struct {
	Output string `toml:"output"`
}

// Dependency is another oops project whose sources load before this one.
type Dependency struct {
	Path string `toml:"path"`
}

// Default returns the manifest used when no oops.toml exists.
func Default(dir string) *Manifest {
	m := &Manifest{Dir: dir}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if len(m.Source.Dirs) == 0 {
		m.Source.Dirs = []string{DefaultSourceDir}
	}
	if m.Server.Addr == "" {
		m.Server.Addr = DefaultServerAddr
	}
	if m.Image.Output == "" {
		m.Image.Output = DefaultImage
	}
}

// Load parses an oops.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	if m.Runtime.MaxDepth < 0 {
		return nil, fmt.Errorf("%s: runtime.max-depth must not be negative", path)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	return &m, nil
}

// FindAndLoad walks up from startDir to find an oops.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// resolve makes p absolute relative to the manifest directory.
func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// SourceDirPaths returns absolute paths for the configured source directories.
func (m *Manifest) SourceDirPaths() []string {
	var paths []string
	for _, d := range m.Source.Dirs {
		paths = append(paths, m.resolve(d))
	}
	return paths
}

// ImagePath returns the absolute path of the image output.
func (m *Manifest) ImagePath() string {
	return m.resolve(m.Image.Output)
}

// SourceFiles returns the files to evaluate, in order: prelude files,
// then the .oops files under each source directory sorted by path, then
// the entry file. Missing source directories are skipped. A file is
// listed at most once.
func (m *Manifest) SourceFiles() ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, p := range m.Source.Prelude {
		add(m.resolve(p))
	}

	entry := ""
	if m.Source.Entry != "" {
		entry = m.resolve(m.Source.Entry)
	}

	for _, dir := range m.SourceDirPaths() {
		var found []string
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) && path == dir {
					return filepath.SkipDir
				}
				return err
			}
			if !d.IsDir() && filepath.Ext(path) == SourceExt && path != entry {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", dir, err)
		}
		sort.Strings(found)
		for _, p := range found {
			add(p)
		}
	}

	if entry != "" {
		add(entry)
	}
	return files, nil
}
