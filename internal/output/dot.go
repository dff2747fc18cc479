package output

import (
	"fmt"
	"sort"
	"strings"

	"deptree/internal/graph"
	"deptree/internal/shared/util"
)

type DOTGenerator struct {
	graph *graph.Graph
}

func NewDOTGenerator(g *graph.Graph) *DOTGenerator {
	return &DOTGenerator{graph: g}
}

// Generate renders the graph in Graphviz DOT. Internal modules cluster
// together, scripts are plain boxes, namespace packages dashed hexagons,
// external modules grey. Cycle edges are highlighted red, edges that only
// exist under guarded contexts are dashed.
func (d *DOTGenerator) Generate(cycles [][]string) (string, error) {
	var buf strings.Builder

	buf.WriteString("digraph dependencies {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=rounded, fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=8, penwidth=1.2];\n")
	buf.WriteString("  ranksep=1.5;\n")
	buf.WriteString("  nodesep=0.6;\n")
	buf.WriteString("  splines=polyline;\n")
	buf.WriteString("  overlap=false;\n\n")

	cycleEdges := cycleEdgeSet(cycles)
	cycleNodes := cycleNodeSet(cycles)

	nodes := d.graph.Nodes()
	edges := d.graph.Edges()

	internal := make([]string, 0, len(nodes))
	external := make([]string, 0)
	for name, node := range nodes {
		if node.Kind == graph.NodeExternal {
			external = append(external, name)
		} else {
			internal = append(internal, name)
		}
	}
	sort.Strings(internal)
	sort.Strings(external)

	buf.WriteString("  subgraph cluster_internal {\n")
	buf.WriteString("    label=\"Project Modules\";\n")
	buf.WriteString("    style=filled;\n")
	buf.WriteString("    color=\"whitesmoke\";\n")
	buf.WriteString("    node [fillcolor=\"white\", style=\"rounded,filled\"];\n")
	for _, name := range internal {
		buf.WriteString(fmt.Sprintf("    \"%s\" %s;\n", name, d.nodeAttrs(nodes[name], cycleNodes[name])))
	}
	buf.WriteString("  }\n\n")

	buf.WriteString("  // External and unresolved\n")
	buf.WriteString("  node [fillcolor=\"gainsboro\", style=\"rounded,filled\", color=\"grey\"];\n")
	for _, name := range external {
		buf.WriteString(fmt.Sprintf("  \"%s\" [label=\"%s\"];\n", name, name))
	}
	buf.WriteString("\n")

	for _, from := range util.SortedStringKeys(edges) {
		for _, to := range util.SortedStringKeys(edges[from]) {
			edge := edges[from][to]
			switch {
			case cycleEdges[from+"->"+to]:
				buf.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [color=\"red\", penwidth=3.0, label=\"CYCLE\"];\n", from, to))
			case edge.External:
				buf.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [color=\"grey\", style=dashed];\n", from, to))
			case edge.ConditionalOnly():
				buf.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [color=\"forestgreen\", style=dashed, label=\"cond\"];\n", from, to))
			default:
				buf.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [color=\"forestgreen\", penwidth=1.8];\n", from, to))
			}
		}
	}

	buf.WriteString("\n  subgraph cluster_legend {\n")
	buf.WriteString("    label=\"Legend\";\n")
	buf.WriteString("    style=dashed;\n")
	buf.WriteString("    legend_module [label=\"Module/Package\", fillcolor=\"white\", style=\"rounded,filled\"];\n")
	buf.WriteString("    legend_namespace [label=\"Namespace Package\", shape=hexagon, style=\"dashed\"];\n")
	buf.WriteString("    legend_script [label=\"Script\", shape=box, style=\"filled\", fillcolor=\"lightyellow\"];\n")
	buf.WriteString("    legend_external [label=\"External\", fillcolor=\"gainsboro\", style=\"rounded,filled\"];\n")
	buf.WriteString("    legend_cycle [label=\"Import Cycle\", fillcolor=\"mistyrose\", color=\"red\", style=\"rounded,filled\"];\n")
	buf.WriteString("    legend_cond [label=\"cond = guarded import only\", shape=plaintext, fontcolor=\"forestgreen\"];\n")
	buf.WriteString("  }\n")

	buf.WriteString("}\n")

	return buf.String(), nil
}

func (d *DOTGenerator) nodeAttrs(node graph.Node, inCycle bool) string {
	if inCycle {
		return fmt.Sprintf("[label=\"%s\", fillcolor=\"mistyrose\", color=\"red\", penwidth=2.0]", node.Name)
	}
	switch node.Kind {
	case graph.NodeNamespacePackage:
		return fmt.Sprintf("[label=\"%s\", shape=hexagon, style=\"dashed\"]", node.Name)
	case graph.NodeScript:
		return fmt.Sprintf("[label=\"%s\", shape=box, style=\"filled\", fillcolor=\"lightyellow\"]", node.Name)
	default:
		return fmt.Sprintf("[label=\"%s\", color=\"darkslategrey\"]", node.Name)
	}
}

func cycleEdgeSet(cycles [][]string) map[string]bool {
	out := make(map[string]bool)
	for _, cycle := range cycles {
		for i := 0; i+1 < len(cycle); i++ {
			out[cycle[i]+"->"+cycle[i+1]] = true
		}
	}
	return out
}

func cycleNodeSet(cycles [][]string) map[string]bool {
	out := make(map[string]bool)
	for _, cycle := range cycles {
		for _, name := range cycle {
			out[name] = true
		}
	}
	return out
}
