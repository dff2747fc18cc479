package scanner

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	errs "deptree/internal/core/errors"
	"deptree/internal/shared/util"
)

const initFile = "__init__.py"

// Markers that turn an __init__.py into a legacy namespace package.
var legacyMarkers = []string{
	"pkgutil.extend_path",
	"pkg_resources.declare_namespace",
}

// Scanner walks source roots and classifies the Python tree into source
// files and package nodes. It is stateless apart from the compiled exclude
// patterns and safe for concurrent use.
type Scanner struct {
	excludes []glob.Glob
}

// Result is the raw output of a scan, before namespace merging.
type Result struct {
	Files    []SourceFile
	Packages []PackageNode
	Errors   []errs.FileError
}

func New(excludePatterns []string) (*Scanner, error) {
	s := &Scanner{}
	for _, pattern := range excludePatterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, errs.AddContext(errs.Wrap(err, errs.CodeValidationError, "invalid exclude pattern"), "pattern", pattern)
		}
		s.excludes = append(s.excludes, g)
	}
	return s, nil
}

// Scan walks every root. A missing or unreadable root is fatal; everything
// else (unreadable subdirectories, undecodable files) is collected as a
// FileError and the walk continues.
func (s *Scanner) Scan(ctx context.Context, roots []string) (*Result, error) {
	res := &Result{}

	for _, root := range roots {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return nil, errs.AddContext(errs.Wrap(err, errs.CodeRootNotFound, "cannot resolve source root"), errs.CtxRoot, root)
		}
		info, err := os.Stat(absRoot)
		if err != nil || !info.IsDir() {
			return nil, errs.AddContext(errs.Wrap(err, errs.CodeRootNotFound, "source root is not a readable directory"), errs.CtxRoot, root)
		}

		visited := make(map[string]bool)
		if real, err := filepath.EvalSymlinks(absRoot); err == nil {
			visited[real] = true
		}
		if _, err := s.walkDir(ctx, absRoot, absRoot, "", visited, res); err != nil {
			return nil, err
		}
	}

	return res, nil
}

// walkDir recurses into dir and returns whether the subtree contains any
// Python file. prefix is the dotted name of dir relative to root, empty for
// the root itself.
func (s *Scanner) walkDir(ctx context.Context, root, dir, prefix string, visited map[string]bool, res *Result) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		res.Errors = append(res.Errors, errs.FileError{
			Path:    dir,
			Code:    errs.CodeInternal,
			Message: "cannot read directory: " + err.Error(),
		})
		return false, nil
	}

	containsPy := false
	hasInit := false

	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(dir, name)

		if entry.IsDir() || isDirSymlink(path, entry) {
			if s.excluded(name) {
				continue
			}
			// Symlink loops would otherwise recurse forever.
			real, err := filepath.EvalSymlinks(path)
			if err != nil {
				continue
			}
			if visited[real] {
				continue
			}
			visited[real] = true

			childPrefix := name
			if prefix != "" {
				childPrefix = prefix + "." + name
			}
			sub, err := s.walkDir(ctx, root, path, childPrefix, visited, res)
			if err != nil {
				return false, err
			}
			containsPy = containsPy || sub
			continue
		}

		if !strings.HasSuffix(name, ".py") {
			continue
		}
		containsPy = true

		if name == initFile {
			hasInit = true
			if prefix != "" {
				res.Files = append(res.Files, SourceFile{
					Path:          path,
					Root:          root,
					Module:        prefix,
					IsPackageInit: true,
				})
			}
			continue
		}

		module := strings.TrimSuffix(name, ".py")
		if prefix != "" {
			module = prefix + "." + module
		}
		res.Files = append(res.Files, SourceFile{
			Path:   path,
			Root:   root,
			Module: module,
		})
	}

	if prefix != "" {
		if hasInit {
			kind := Regular
			if s.isLegacyInit(filepath.Join(dir, initFile), res) {
				kind = LegacyNamespace
			}
			res.Packages = append(res.Packages, PackageNode{Name: prefix, Kind: kind, Roots: []string{root}})
		} else if containsPy {
			res.Packages = append(res.Packages, PackageNode{Name: prefix, Kind: ImplicitNamespace, Roots: []string{root}})
		}
	}

	return containsPy, nil
}

func (s *Scanner) isLegacyInit(path string, res *Result) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		res.Errors = append(res.Errors, errs.FileError{
			Path:    path,
			Code:    errs.CodeInternal,
			Message: "cannot read __init__.py: " + err.Error(),
		})
		return false
	}
	text := string(data)
	for _, marker := range legacyMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// ScanScripts finds Python files under the project root that live outside
// every source root. Those are entry points and tooling, not importable
// modules; they get path-derived dotted names.
func (s *Scanner) ScanScripts(ctx context.Context, projectRoot string, sourceRoots []string) ([]SourceFile, []errs.FileError) {
	absProject, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, []errs.FileError{{Path: projectRoot, Code: errs.CodeInternal, Message: err.Error()}}
	}

	var files []SourceFile
	var ferrs []errs.FileError

	_ = filepath.WalkDir(absProject, func(path string, d os.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			ferrs = append(ferrs, errs.FileError{Path: path, Code: errs.CodeInternal, Message: err.Error()})
			return nil
		}
		if d.IsDir() {
			if path != absProject && s.excluded(d.Name()) {
				return filepath.SkipDir
			}
			for _, root := range sourceRoots {
				if sameOrUnder(path, root) && root != absProject {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".py") {
			return nil
		}
		for _, root := range sourceRoots {
			if sameOrUnder(path, root) {
				return nil
			}
		}

		rel, relErr := filepath.Rel(absProject, path)
		if relErr != nil {
			return nil
		}
		module := strings.TrimSuffix(filepath.ToSlash(rel), ".py")
		module = strings.ReplaceAll(module, "/", ".")
		files = append(files, SourceFile{
			Path:     path,
			Root:     absProject,
			Module:   module,
			IsScript: true,
		})
		return nil
	})

	return files, ferrs
}

func (s *Scanner) excluded(base string) bool {
	for _, g := range s.excludes {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func isDirSymlink(path string, entry os.DirEntry) bool {
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func sameOrUnder(path, root string) bool {
	return util.HasPathPrefix(filepath.ToSlash(path), filepath.ToSlash(root))
}
