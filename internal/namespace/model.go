// Package namespace merges scan results from every source root into one
// immutable view of the module universe. The snapshot is built completely
// before any import resolution starts; resolvers never observe a partially
// merged model.
package namespace

import (
	"fmt"
	"sort"

	errs "deptree/internal/core/errors"
	"deptree/internal/scanner"
)

// LookupResult describes the outcome of a name lookup.
type LookupResult int

const (
	Missing LookupResult = iota
	FoundModule
	FoundPackage
	Ambiguous
)

// Target is the entity a name resolved to. Exactly one of File and Package
// is set for FoundModule / FoundPackage.
type Target struct {
	File    *scanner.SourceFile
	Package *scanner.PackageNode
}

// Snapshot is the merged, read-only namespace model.
type Snapshot struct {
	files     map[string]scanner.SourceFile
	packages  map[string]scanner.PackageNode
	ambiguous map[string]bool
}

// Build merges files and packages from all roots. Conflicts are reported as
// NAMESPACE_AMBIGUITY file errors; the colliding names stay in the snapshot
// marked ambiguous so resolution can report them per import site.
func Build(files []scanner.SourceFile, packages []scanner.PackageNode) (*Snapshot, []errs.FileError) {
	s := &Snapshot{
		files:     make(map[string]scanner.SourceFile),
		packages:  make(map[string]scanner.PackageNode),
		ambiguous: make(map[string]bool),
	}
	var conflicts []errs.FileError

	byName := make(map[string][]scanner.PackageNode)
	for _, pkg := range packages {
		byName[pkg.Name] = append(byName[pkg.Name], pkg)
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		nodes := byName[name]
		merged, conflict := merge(name, nodes)
		if conflict != nil {
			s.ambiguous[name] = true
			conflicts = append(conflicts, *conflict)
			continue
		}
		s.packages[name] = merged
	}

	for _, f := range files {
		if f.IsPackageInit {
			// The package's own __init__.py and the package node are the
			// same logical target; the node already carries the name.
			continue
		}
		if existing, dup := s.files[f.Module]; dup && existing.Path != f.Path {
			s.ambiguous[f.Module] = true
			conflicts = append(conflicts, errs.FileError{
				Path:    f.Path,
				Code:    errs.CodeAmbiguous,
				Message: fmt.Sprintf("module %q is defined by both %s and %s", f.Module, existing.Path, f.Path),
			})
			continue
		}
		if pkg, clash := s.packages[f.Module]; clash {
			s.ambiguous[f.Module] = true
			delete(s.packages, f.Module)
			conflicts = append(conflicts, errs.FileError{
				Path:    f.Path,
				Code:    errs.CodeAmbiguous,
				Message: fmt.Sprintf("name %q is both a module file and a %s package", f.Module, pkg.Kind),
			})
			continue
		}
		if s.ambiguous[f.Module] {
			continue
		}
		s.files[f.Module] = f
	}

	return s, conflicts
}

// merge combines all occurrences of one package name. Namespace kinds merge
// with a roots union; a regular package tolerates no second occurrence.
func merge(name string, nodes []scanner.PackageNode) (scanner.PackageNode, *errs.FileError) {
	if len(nodes) == 1 {
		return nodes[0], nil
	}

	regulars := 0
	legacy := false
	roots := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n.Kind == scanner.Regular {
			regulars++
		}
		if n.Kind == scanner.LegacyNamespace {
			legacy = true
		}
		roots = append(roots, n.Roots...)
	}

	if regulars > 0 {
		return scanner.PackageNode{}, &errs.FileError{
			Code:    errs.CodeAmbiguous,
			Message: fmt.Sprintf("package %q has a regular definition colliding with %d other root(s)", name, len(nodes)-1),
		}
	}

	kind := scanner.ImplicitNamespace
	if legacy {
		kind = scanner.LegacyNamespace
	}
	sort.Strings(roots)
	return scanner.PackageNode{Name: name, Kind: kind, Roots: dedup(roots)}, nil
}

func dedup(sorted []string) []string {
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || sorted[i-1] != v {
			out = append(out, v)
		}
	}
	return out
}

// Lookup resolves a dotted name against the snapshot.
func (s *Snapshot) Lookup(name string) (Target, LookupResult) {
	if s.ambiguous[name] {
		return Target{}, Ambiguous
	}
	if f, ok := s.files[name]; ok {
		return Target{File: &f}, FoundModule
	}
	if p, ok := s.packages[name]; ok {
		return Target{Package: &p}, FoundPackage
	}
	return Target{}, Missing
}

// Contains reports whether the name is known at all, ambiguous included.
func (s *Snapshot) Contains(name string) bool {
	if s.ambiguous[name] {
		return true
	}
	if _, ok := s.files[name]; ok {
		return true
	}
	_, ok := s.packages[name]
	return ok
}

// Modules returns every non-ambiguous module file keyed by dotted name.
func (s *Snapshot) Modules() map[string]scanner.SourceFile {
	out := make(map[string]scanner.SourceFile, len(s.files))
	for k, v := range s.files {
		out[k] = v
	}
	return out
}

// Packages returns every non-ambiguous package keyed by dotted name.
func (s *Snapshot) Packages() map[string]scanner.PackageNode {
	out := make(map[string]scanner.PackageNode, len(s.packages))
	for k, v := range s.packages {
		out[k] = v
	}
	return out
}
