package parser

import (
	"testing"
)

func parse(t *testing.T, source string) *FileImports {
	t.Helper()
	p := NewPythonParser()
	file, err := p.ParseFile("test.py", []byte(source))
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	return file
}

func TestExtract_PlainImports(t *testing.T) {
	file := parse(t, "import os\nimport a.b.c as abc, sys\n")

	if len(file.Imports) != 3 {
		t.Fatalf("expected 3 imports, got %d: %+v", len(file.Imports), file.Imports)
	}

	if file.Imports[0].Module != "os" || file.Imports[0].Level != 0 {
		t.Errorf("unexpected first import: %+v", file.Imports[0])
	}
	if file.Imports[1].Module != "a.b.c" || file.Imports[1].Alias != "abc" {
		t.Errorf("unexpected aliased import: %+v", file.Imports[1])
	}
	if file.Imports[2].Module != "sys" {
		t.Errorf("unexpected second target: %+v", file.Imports[2])
	}
	for _, imp := range file.Imports {
		if imp.Context != ModuleLevel {
			t.Errorf("expected module-level context, got %v", imp.Context)
		}
		if imp.Symbol != "" {
			t.Errorf("plain import should have no symbol: %+v", imp)
		}
	}
}

func TestExtract_FromImports(t *testing.T) {
	file := parse(t, "from pkg.sub import a, b as bb\n")

	if len(file.Imports) != 2 {
		t.Fatalf("expected 2 imports, got %d: %+v", len(file.Imports), file.Imports)
	}
	if file.Imports[0].Module != "pkg.sub" || file.Imports[0].Symbol != "a" {
		t.Errorf("unexpected first record: %+v", file.Imports[0])
	}
	if file.Imports[1].Symbol != "b" || file.Imports[1].Alias != "bb" {
		t.Errorf("unexpected second record: %+v", file.Imports[1])
	}
}

func TestExtract_RelativeImports(t *testing.T) {
	file := parse(t, "from ..sibling import thing\nfrom . import local\n")

	if len(file.Imports) != 2 {
		t.Fatalf("expected 2 imports, got %d: %+v", len(file.Imports), file.Imports)
	}
	first := file.Imports[0]
	if first.Level != 2 || first.Module != "sibling" || first.Symbol != "thing" {
		t.Errorf("unexpected relative import: %+v", first)
	}
	second := file.Imports[1]
	if second.Level != 1 || second.Module != "" || second.Symbol != "local" {
		t.Errorf("unexpected dot import: %+v", second)
	}
}

func TestExtract_WildcardImport(t *testing.T) {
	file := parse(t, "from pkg import *\n")

	if len(file.Imports) != 1 {
		t.Fatalf("expected 1 import, got %d", len(file.Imports))
	}
	if file.Imports[0].Symbol != "*" || file.Imports[0].Module != "pkg" {
		t.Errorf("unexpected wildcard record: %+v", file.Imports[0])
	}
}

func TestExtract_Contexts(t *testing.T) {
	source := `import top

if True:
    import cond
else:
    import cond_else

try:
    import tried
except ImportError:
    import fallback

def handler():
    import inside

class Thing:
    import in_class

while True:
    import looped
    break
`
	file := parse(t, source)

	contexts := map[string]ImportContext{}
	for _, imp := range file.Imports {
		contexts[imp.Module] = imp.Context
	}

	expected := map[string]ImportContext{
		"top":       ModuleLevel,
		"cond":      ConditionalBranch,
		"cond_else": ConditionalBranch,
		"tried":     ExceptionHandler,
		"fallback":  ExceptionHandler,
		"inside":    FunctionBody,
		"in_class":  ModuleLevel,
		"looped":    ModuleLevel,
	}
	for module, want := range expected {
		got, ok := contexts[module]
		if !ok {
			t.Errorf("import %s not extracted", module)
			continue
		}
		if got != want {
			t.Errorf("import %s: expected context %v, got %v", module, want, got)
		}
	}
}

func TestExtract_NestedContextPrecedence(t *testing.T) {
	source := `if True:
    def loader():
        try:
            import deep
        except ImportError:
            pass
`
	file := parse(t, source)

	if len(file.Imports) != 1 {
		t.Fatalf("expected 1 import, got %d", len(file.Imports))
	}
	// Function wins over the enclosing conditional and the inner try.
	if file.Imports[0].Context != FunctionBody {
		t.Errorf("expected function context, got %v", file.Imports[0].Context)
	}
}

func TestExtract_SyntaxErrorRecovery(t *testing.T) {
	file := parse(t, "def broken(:\n    pass\n\nimport survivor\n")

	if !file.HadSyntaxError {
		t.Error("expected syntax error flag")
	}
	found := false
	for _, imp := range file.Imports {
		if imp.Module == "survivor" {
			found = true
		}
	}
	if !found {
		t.Error("expected import after the broken region to be extracted")
	}
}

func TestPromote(t *testing.T) {
	if Promote(ConditionalBranch, ModuleLevel) != ConditionalBranch {
		t.Error("promote must keep the stronger context")
	}
	if Promote(ExceptionHandler, FunctionBody) != FunctionBody {
		t.Error("function body outranks exception handler")
	}
}
