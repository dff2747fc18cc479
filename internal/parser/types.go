package parser

// ImportContext classifies where in the file an import statement executes.
// The values are ordered by precedence: when constructs nest, the highest
// enclosing context wins.
type ImportContext int

const (
	ModuleLevel ImportContext = iota
	ConditionalBranch
	ExceptionHandler
	FunctionBody
)

func (c ImportContext) String() string {
	switch c {
	case ModuleLevel:
		return "module"
	case ConditionalBranch:
		return "conditional"
	case ExceptionHandler:
		return "exception"
	case FunctionBody:
		return "function"
	default:
		return "unknown"
	}
}

// Promote returns the stronger of two contexts.
func Promote(a, b ImportContext) ImportContext {
	if b > a {
		return b
	}
	return a
}

// RawImport is one imported target as written in the source, before
// resolution. `import a.b as x` and each name of `from .p import a, b`
// produce separate records.
type RawImport struct {
	// Module is the dotted path after the import keyword, without leading
	// dots. Empty for `from . import x`.
	Module string
	// Symbol is the imported name for from-imports, "*" for wildcard
	// imports, empty for plain imports.
	Symbol string
	Alias  string
	// Level counts the leading dots of a relative import. Zero means
	// absolute.
	Level   int
	Context ImportContext
	Line    int
}

// FileImports is the extraction result for one file.
type FileImports struct {
	Path    string
	Imports []RawImport
	// HadSyntaxError is set when tree-sitter recovered from a parse
	// error. The imports that did parse are still included.
	HadSyntaxError bool
}
