package output

import (
	"fmt"
	"sort"
	"strings"

	"deptree/internal/graph"
	"deptree/internal/parser"
	"deptree/internal/shared/util"
)

type TSVGenerator struct {
	graph *graph.Graph
}

func NewTSVGenerator(g *graph.Graph) *TSVGenerator {
	return &TSVGenerator{graph: g}
}

// Generate renders one row per deduplicated edge.
func (t *TSVGenerator) Generate() (string, error) {
	var buf strings.Builder

	buf.WriteString("From\tTo\tContexts\tOccurrences\tConditionalOnly\tExternal\n")

	edges := t.graph.Edges()
	for _, from := range util.SortedStringKeys(edges) {
		for _, to := range util.SortedStringKeys(edges[from]) {
			edge := edges[from][to]
			buf.WriteString(fmt.Sprintf("%s\t%s\t%s\t%d\t%t\t%t\n",
				from, to, contextList(edge.Contexts), edge.Occurrences, edge.ConditionalOnly(), edge.External))
		}
	}

	return buf.String(), nil
}

func contextList(contexts map[parser.ImportContext]bool) string {
	names := make([]string, 0, len(contexts))
	for ctx := range contexts {
		names = append(names, ctx.String())
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}
