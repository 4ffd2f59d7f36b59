package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ResolvedDep is a dependency resolved to a local project directory.
type ResolvedDep struct {
	Name      string    // dependency name
	LocalPath string    // absolute project directory
	Manifest  *Manifest // the dependency's manifest, or defaults if it has none
}

// Resolve returns m's dependencies, transitive ones included, in load
// order: every dependency comes before the projects that use it. Each
// project directory appears once. A dependency cycle is an error.
func (m *Manifest) Resolve() ([]ResolvedDep, error) {
	r := &resolver{
		state: make(map[string]int),
	}
	if err := r.visitDeps(m, []string{m.Dir}); err != nil {
		return nil, err
	}
	return r.order, nil
}

const (
	visiting = 1
	done     = 2
)

type resolver struct {
	state map[string]int // keyed by absolute project directory
	order []ResolvedDep
}

func (r *resolver) visitDeps(m *Manifest, stack []string) error {
	r.state[m.Dir] = visiting

	names := make([]string, 0, len(m.Dependencies))
	for name := range m.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		rd, err := resolveOne(m, name, m.Dependencies[name])
		if err != nil {
			return fmt.Errorf("resolving %s: %w", name, err)
		}
		switch r.state[rd.LocalPath] {
		case done:
			continue
		case visiting:
			return fmt.Errorf("dependency cycle: %s -> %s", strings.Join(stack, " -> "), rd.LocalPath)
		}
		if err := r.visitDeps(rd.Manifest, append(stack, rd.LocalPath)); err != nil {
			return err
		}
		r.order = append(r.order, *rd)
	}

	r.state[m.Dir] = done
	return nil
}

// resolveOne resolves a single path dependency relative to m.
func resolveOne(m *Manifest, name string, dep Dependency) (*ResolvedDep, error) {
	if dep.Path == "" {
		return nil, fmt.Errorf("dependency %q has no path specified", name)
	}

	localPath, err := filepath.Abs(m.resolve(dep.Path))
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", dep.Path, err)
	}
	if _, err := os.Stat(localPath); err != nil {
		return nil, fmt.Errorf("local dependency %q not found at %s: %w", name, localPath, err)
	}

	depManifest := Default(localPath)
	if _, err := os.Stat(filepath.Join(localPath, FileName)); err == nil {
		depManifest, err = Load(localPath)
		if err != nil {
			return nil, err
		}
	}

	return &ResolvedDep{
		Name:      name,
		LocalPath: localPath,
		Manifest:  depManifest,
	}, nil
}

// LoadOrder returns every source file to evaluate for m: the files of
// each resolved dependency in load order, then m's own.
func (m *Manifest) LoadOrder() ([]string, error) {
	deps, err := m.Resolve()
	if err != nil {
		return nil, err
	}
	var files []string
	for _, d := range deps {
		df, err := d.Manifest.SourceFiles()
		if err != nil {
			return nil, fmt.Errorf("dependency %s: %w", d.Name, err)
		}
		files = append(files, df...)
	}
	own, err := m.SourceFiles()
	if err != nil {
		return nil, err
	}
	return append(files, own...), nil
}
