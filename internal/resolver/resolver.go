package resolver

import (
	"strings"

	"deptree/internal/namespace"
	"deptree/internal/parser"
)

// UnresolvedReason explains why an import did not land on a known module.
// None of these are fatal; unresolved imports become external edges or are
// dropped, depending on configuration.
type UnresolvedReason int

const (
	ReasonNone UnresolvedReason = iota
	ReasonNotFound
	ReasonAmbiguous
	ReasonInvalidRelative
)

func (r UnresolvedReason) String() string {
	switch r {
	case ReasonNone:
		return "resolved"
	case ReasonNotFound:
		return "not-found"
	case ReasonAmbiguous:
		return "ambiguous"
	case ReasonInvalidRelative:
		return "invalid-relative"
	default:
		return "unknown"
	}
}

// Resolution ties one raw import to its target module name.
type Resolution struct {
	Import     parser.RawImport
	FromModule string
	FromPath   string

	// Target is the dotted name the import resolved to, or for NotFound
	// the absolute name that was looked up (the external module name).
	Target string
	Result namespace.LookupResult

	// SymbolUnverified marks a from-import whose name fell back to the
	// containing module because no such submodule exists. The symbol may
	// be a function, a class, or a typo; symbol existence is not checked.
	SymbolUnverified bool

	Reason UnresolvedReason
}

// Resolved reports whether the import landed on a known internal target.
func (r Resolution) Resolved() bool {
	return r.Reason == ReasonNone
}

// Resolver maps raw imports to modules using an immutable namespace
// snapshot. Safe for concurrent use; the snapshot is never mutated.
type Resolver struct {
	snap *namespace.Snapshot
}

func New(snap *namespace.Snapshot) *Resolver {
	return &Resolver{snap: snap}
}

// Resolve resolves one import found in fromModule.
//
// Relative imports ascend the importer's dotted name one level per leading
// dot; ascending past the top of the tree is invalid. From-imports first try
// the imported name as a submodule and only then fall back to the containing
// module with the symbol unverified.
func (r *Resolver) Resolve(fromModule, fromPath string, imp parser.RawImport) Resolution {
	res := Resolution{
		Import:     imp,
		FromModule: fromModule,
		FromPath:   fromPath,
	}

	base := imp.Module
	if imp.Level > 0 {
		parts := strings.Split(fromModule, ".")
		if imp.Level > len(parts) {
			res.Reason = ReasonInvalidRelative
			return res
		}
		anchor := strings.Join(parts[:len(parts)-imp.Level], ".")
		base = joinDotted(anchor, imp.Module)
	}

	// from X import Y: try X.Y as a submodule before settling for X.
	if imp.Symbol != "" && imp.Symbol != "*" {
		candidate := joinDotted(base, imp.Symbol)
		if r.snap.Contains(candidate) {
			return r.lookup(res, candidate, false)
		}
		return r.lookup(res, base, true)
	}

	return r.lookup(res, base, false)
}

func (r *Resolver) lookup(res Resolution, name string, fellBack bool) Resolution {
	res.Target = name
	if name == "" {
		// `from . import x` with x missing as a submodule has nowhere
		// left to point.
		res.Reason = ReasonNotFound
		return res
	}

	_, result := r.snap.Lookup(name)
	res.Result = result
	switch result {
	case namespace.Ambiguous:
		res.Reason = ReasonAmbiguous
	case namespace.Missing:
		res.Reason = ReasonNotFound
	default:
		res.SymbolUnverified = fellBack
	}
	return res
}

func joinDotted(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "." + b
	}
}
