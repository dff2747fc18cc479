package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// pythonExtractor walks a parsed tree and collects every import statement,
// however deeply nested, annotated with its execution context.
type pythonExtractor struct{}

func (e *pythonExtractor) extract(root *sitter.Node, source []byte, path string) *FileImports {
	file := &FileImports{
		Path:           path,
		HadSyntaxError: root.HasError(),
	}
	e.walk(root, source, ModuleLevel, file)
	return file
}

func (e *pythonExtractor) walk(node *sitter.Node, source []byte, ctx ImportContext, file *FileImports) {
	switch node.Kind() {
	case "import_statement":
		e.extractImport(node, source, ctx, file)
		return
	case "import_from_statement":
		e.extractFromImport(node, source, ctx, file)
		return
	case "function_definition", "lambda":
		ctx = Promote(ctx, FunctionBody)
	case "try_statement":
		// Both the try body and its handlers count as guarded.
		ctx = Promote(ctx, ExceptionHandler)
	case "if_statement", "match_statement":
		ctx = Promote(ctx, ConditionalBranch)
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		e.walk(node.Child(i), source, ctx, file)
	}
}

// extractImport handles `import a.b.c` and `import a.b as x, d`.
func (e *pythonExtractor) extractImport(node *sitter.Node, source []byte, ctx ImportContext, file *FileImports) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)

		switch child.Kind() {
		case "dotted_name", "identifier":
			file.Imports = append(file.Imports, RawImport{
				Module:  e.text(child, source),
				Context: ctx,
				Line:    line(child),
			})
		case "aliased_import":
			module, alias := e.aliasedParts(child, source)
			file.Imports = append(file.Imports, RawImport{
				Module:  module,
				Alias:   alias,
				Context: ctx,
				Line:    line(child),
			})
		}
	}
}

// extractFromImport handles `from .a import b as c, d` and `from x import *`.
// One record is produced per imported name, all sharing module and level.
func (e *pythonExtractor) extractFromImport(node *sitter.Node, source []byte, ctx ImportContext, file *FileImports) {
	var module string
	level := 0
	afterImport := false

	record := func(symbol, alias string, at *sitter.Node) {
		file.Imports = append(file.Imports, RawImport{
			Module:  module,
			Symbol:  symbol,
			Alias:   alias,
			Level:   level,
			Context: ctx,
			Line:    line(at),
		})
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)

		if child.Kind() == "import" {
			afterImport = true
			continue
		}

		if !afterImport {
			switch child.Kind() {
			case "relative_import":
				text := e.text(child, source)
				trimmed := strings.TrimLeft(text, ".")
				level = len(text) - len(trimmed)
				module = trimmed
			case "dotted_name", "identifier":
				module = e.text(child, source)
			}
			continue
		}

		switch child.Kind() {
		case "wildcard_import":
			record("*", "", child)
		case "dotted_name", "identifier":
			record(e.text(child, source), "", child)
		case "aliased_import":
			symbol, alias := e.aliasedParts(child, source)
			record(symbol, alias, child)
		case "import_list":
			for j := uint(0); j < child.ChildCount(); j++ {
				item := child.Child(j)
				switch item.Kind() {
				case "dotted_name", "identifier":
					record(e.text(item, source), "", item)
				case "aliased_import":
					symbol, alias := e.aliasedParts(item, source)
					record(symbol, alias, item)
				}
			}
		}
	}
}

func (e *pythonExtractor) aliasedParts(node *sitter.Node, source []byte) (name, alias string) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "dotted_name" || child.Kind() == "identifier" {
			if name == "" {
				name = e.text(child, source)
			} else {
				alias = e.text(child, source)
			}
		}
	}
	return name, alias
}

func (e *pythonExtractor) text(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

func line(node *sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}
