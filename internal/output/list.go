package output

import (
	"fmt"
	"strings"

	errs "deptree/internal/core/errors"
	"deptree/internal/graph"
	"deptree/internal/resolver"
	"deptree/internal/shared/util"
)

type ListGenerator struct {
	graph *graph.Graph
}

func NewListGenerator(g *graph.Graph) *ListGenerator {
	return &ListGenerator{graph: g}
}

// Generate renders a plain-text report: per-module dependency lists followed
// by cycles, unresolved imports and collected file errors. The error list is
// always part of the output, even when empty sections are skipped.
func (l *ListGenerator) Generate(cycles [][]string, unresolved []resolver.Resolution, fileErrors []errs.FileError) (string, error) {
	var b strings.Builder

	nodes := l.graph.Nodes()
	edges := l.graph.Edges()

	b.WriteString("Dependency Tree\n")
	b.WriteString("===============\n")
	for _, from := range util.SortedStringKeys(edges) {
		node := nodes[from]
		b.WriteString(fmt.Sprintf("%s (%s)\n", from, node.Kind))
		for _, to := range util.SortedStringKeys(edges[from]) {
			edge := edges[from][to]
			marker := ""
			if edge.ConditionalOnly() {
				marker = " [conditional]"
			}
			if edge.External {
				marker += " [external]"
			}
			if edge.SelfImport {
				marker += " [self]"
			}
			b.WriteString(fmt.Sprintf("  -> %s%s\n", to, marker))
		}
	}

	b.WriteString(fmt.Sprintf("\nModules: %d  Edges: %d\n", l.graph.NodeCount(), l.graph.EdgeCount()))

	if len(cycles) > 0 {
		b.WriteString(fmt.Sprintf("\nCycles (%d)\n", len(cycles)))
		for _, cycle := range cycles {
			b.WriteString("  " + strings.Join(cycle, " -> ") + "\n")
		}
	}

	if len(unresolved) > 0 {
		b.WriteString(fmt.Sprintf("\nUnresolved imports (%d)\n", len(unresolved)))
		for _, res := range unresolved {
			b.WriteString(fmt.Sprintf("  %s:%d: %s (%s)\n",
				res.FromPath, res.Import.Line, res.Target, res.Reason))
		}
	}

	if len(fileErrors) > 0 {
		b.WriteString(fmt.Sprintf("\nErrors (%d)\n", len(fileErrors)))
		for _, fe := range fileErrors {
			b.WriteString("  " + fe.String() + "\n")
		}
	}

	return b.String(), nil
}
