package resolver

import (
	"testing"

	"deptree/internal/namespace"
	"deptree/internal/parser"
	"deptree/internal/scanner"
)

func snapshot(t *testing.T) *namespace.Snapshot {
	t.Helper()
	snap, conflicts := namespace.Build(
		[]scanner.SourceFile{
			{Path: "/r/pkg/mod.py", Root: "/r", Module: "pkg.mod"},
			{Path: "/r/pkg/sib.py", Root: "/r", Module: "pkg.sib"},
			{Path: "/r/pkg/sub/leaf.py", Root: "/r", Module: "pkg.sub.leaf"},
			{Path: "/r/pkg/__init__.py", Root: "/r", Module: "pkg", IsPackageInit: true},
			{Path: "/r/other.py", Root: "/r", Module: "other"},
		},
		[]scanner.PackageNode{
			{Name: "pkg", Kind: scanner.Regular, Roots: []string{"/r"}},
			{Name: "pkg.sub", Kind: scanner.Regular, Roots: []string{"/r"}},
			{Name: "clash", Kind: scanner.Regular, Roots: []string{"/r"}},
			{Name: "clash", Kind: scanner.ImplicitNamespace, Roots: []string{"/r2"}},
		},
	)
	if len(conflicts) != 1 {
		t.Fatalf("fixture expected exactly one conflict, got %v", conflicts)
	}
	return snap
}

func TestResolve_AbsoluteImport(t *testing.T) {
	r := New(snapshot(t))

	res := r.Resolve("pkg.mod", "/r/pkg/mod.py", parser.RawImport{Module: "pkg.sib"})
	if !res.Resolved() || res.Target != "pkg.sib" {
		t.Errorf("unexpected resolution: %+v", res)
	}

	res = r.Resolve("pkg.mod", "/r/pkg/mod.py", parser.RawImport{Module: "pkg"})
	if !res.Resolved() || res.Result != namespace.FoundPackage {
		t.Errorf("expected package target, got %+v", res)
	}
}

func TestResolve_FromImportSubmoduleFirst(t *testing.T) {
	r := New(snapshot(t))

	// pkg.sub.leaf exists, so `from pkg.sub import leaf` lands on it.
	res := r.Resolve("other", "/r/other.py", parser.RawImport{Module: "pkg.sub", Symbol: "leaf"})
	if !res.Resolved() || res.Target != "pkg.sub.leaf" || res.SymbolUnverified {
		t.Errorf("unexpected resolution: %+v", res)
	}

	// pkg.sib has no submodule `helper`, so the import falls back to the
	// module with the symbol unverified.
	res = r.Resolve("other", "/r/other.py", parser.RawImport{Module: "pkg.sib", Symbol: "helper"})
	if !res.Resolved() || res.Target != "pkg.sib" || !res.SymbolUnverified {
		t.Errorf("expected fallback with unverified symbol, got %+v", res)
	}
}

func TestResolve_RelativeImports(t *testing.T) {
	r := New(snapshot(t))

	// from . import sib, inside pkg.mod
	res := r.Resolve("pkg.mod", "/r/pkg/mod.py", parser.RawImport{Level: 1, Symbol: "sib"})
	if !res.Resolved() || res.Target != "pkg.sib" {
		t.Errorf("unexpected resolution: %+v", res)
	}

	// from ..sub import leaf, inside pkg.sub.leaf's sibling depth
	res = r.Resolve("pkg.sub.leaf", "/r/pkg/sub/leaf.py", parser.RawImport{Level: 2, Module: "sub", Symbol: "leaf"})
	if !res.Resolved() || res.Target != "pkg.sub.leaf" {
		t.Errorf("unexpected resolution: %+v", res)
	}
}

func TestResolve_RelativePastTop(t *testing.T) {
	r := New(snapshot(t))

	res := r.Resolve("pkg.mod", "/r/pkg/mod.py", parser.RawImport{Level: 3, Module: "x"})
	if res.Reason != ReasonInvalidRelative {
		t.Errorf("expected invalid relative, got %+v", res)
	}
}

func TestResolve_NotFound(t *testing.T) {
	r := New(snapshot(t))

	res := r.Resolve("pkg.mod", "/r/pkg/mod.py", parser.RawImport{Module: "requests"})
	if res.Reason != ReasonNotFound || res.Target != "requests" {
		t.Errorf("expected not-found for external module, got %+v", res)
	}
}

func TestResolve_Ambiguous(t *testing.T) {
	r := New(snapshot(t))

	res := r.Resolve("other", "/r/other.py", parser.RawImport{Module: "clash"})
	if res.Reason != ReasonAmbiguous {
		t.Errorf("expected ambiguous, got %+v", res)
	}
}

func TestResolve_WildcardImport(t *testing.T) {
	r := New(snapshot(t))

	res := r.Resolve("other", "/r/other.py", parser.RawImport{Module: "pkg.sib", Symbol: "*"})
	if !res.Resolved() || res.Target != "pkg.sib" {
		t.Errorf("unexpected wildcard resolution: %+v", res)
	}
}
