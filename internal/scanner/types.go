package scanner

// PackageKind describes how a directory participates in the Python package
// hierarchy.
type PackageKind int

const (
	// Regular is a directory with an __init__.py.
	Regular PackageKind = iota
	// ImplicitNamespace is a PEP 420 namespace directory: no __init__.py,
	// but Python files somewhere below it.
	ImplicitNamespace
	// LegacyNamespace has an __init__.py that extends the package search
	// path via pkgutil or pkg_resources.
	LegacyNamespace
)

func (k PackageKind) String() string {
	switch k {
	case Regular:
		return "regular"
	case ImplicitNamespace:
		return "namespace"
	case LegacyNamespace:
		return "legacy-namespace"
	default:
		return "unknown"
	}
}

// IsNamespace reports whether the kind is one of the namespace variants.
func (k PackageKind) IsNamespace() bool {
	return k == ImplicitNamespace || k == LegacyNamespace
}

// SourceFile is a single Python file discovered under a source root.
type SourceFile struct {
	Path   string // absolute path
	Root   string // source root the file was found under
	Module string // dotted module name relative to Root

	// IsPackageInit marks a package's own __init__.py. Its Module is the
	// package name itself, not package.__init__.
	IsPackageInit bool

	// IsScript marks a file found outside every source root. Its dotted
	// name is derived from the project-root relative path.
	IsScript bool
}

// PackageNode is a package directory discovered under a source root. The
// same dotted name may appear under several roots; the namespace model is
// responsible for merging those occurrences.
type PackageNode struct {
	Name  string // dotted package name
	Kind  PackageKind
	Roots []string
}
