package parser

import (
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	errs "deptree/internal/core/errors"
	"deptree/internal/shared/observability"
)

// Parser extracts imports from Python sources. It owns a pool of tree-sitter
// parsers and is safe for concurrent use.
type Parser struct {
	pool      *parserPool
	extractor pythonExtractor
}

func NewPythonParser() *Parser {
	lang := sitter.NewLanguage(tree_sitter_python.Language())
	return &Parser{pool: newParserPool(lang)}
}

// ParseFile parses content and returns every import found. A recoverable
// syntax error is reported through FileImports.HadSyntaxError, not the error
// return; only a completely failed parse returns an error.
func (p *Parser) ParseFile(path string, content []byte) (*FileImports, error) {
	start := time.Now()
	defer func() {
		observability.ParsingDuration.Observe(time.Since(start).Seconds())
	}()

	sp := p.pool.get()
	defer p.pool.put(sp)

	tree := sp.Parse(content, nil)
	if tree == nil {
		return nil, errs.AddContext(errs.New(errs.CodeParseError, "tree-sitter parse failed"), errs.CtxPath, path)
	}
	defer tree.Close()

	return p.extractor.extract(tree.RootNode(), content, path), nil
}
