package output

import (
	"fmt"
	"strings"
	"unicode"

	"deptree/internal/graph"
	"deptree/internal/shared/util"
)

type MermaidGenerator struct {
	graph *graph.Graph
}

func NewMermaidGenerator(g *graph.Graph) *MermaidGenerator {
	return &MermaidGenerator{graph: g}
}

func (m *MermaidGenerator) Generate(cycles [][]string) (string, error) {
	var b strings.Builder
	b.WriteString("%%{init: {'flowchart': {'nodeSpacing': 80, 'rankSpacing': 110, 'curve': 'basis'}}}%%\n")
	b.WriteString("flowchart LR\n")

	nodes := m.graph.Nodes()
	edges := m.graph.Edges()
	names := util.SortedStringKeys(nodes)
	ids := makeMermaidIDs(names)

	cycleEdges := cycleEdgeSet(cycles)
	cycleNodes := cycleNodeSet(cycles)

	var internal, external, namespaces, scripts []string
	for _, name := range names {
		switch nodes[name].Kind {
		case graph.NodeExternal:
			external = append(external, name)
		case graph.NodeNamespacePackage:
			namespaces = append(namespaces, name)
			internal = append(internal, name)
		case graph.NodeScript:
			scripts = append(scripts, name)
			internal = append(internal, name)
		default:
			internal = append(internal, name)
		}
	}

	for _, name := range names {
		label := escapeMermaidLabel(name)
		switch nodes[name].Kind {
		case graph.NodeNamespacePackage:
			b.WriteString(fmt.Sprintf("  %s{{\"%s\"}}\n", ids[name], label))
		case graph.NodeScript:
			b.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", ids[name], label))
		default:
			b.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", ids[name], label))
		}
	}

	b.WriteString("\n")
	if len(internal) > 0 {
		b.WriteString("  classDef internalNode fill:#f7fbff,stroke:#4d6480,stroke-width:1px;\n")
		b.WriteString("  class " + strings.Join(toIDs(internal, ids), ",") + " internalNode;\n")
	}
	if len(external) > 0 {
		b.WriteString("  classDef externalNode fill:#efefef,stroke:#808080,stroke-dasharray:4 3;\n")
		b.WriteString("  class " + strings.Join(toIDs(external, ids), ",") + " externalNode;\n")
	}
	if len(namespaces) > 0 {
		b.WriteString("  classDef namespaceNode stroke-dasharray:6 3;\n")
		b.WriteString("  class " + strings.Join(toIDs(namespaces, ids), ",") + " namespaceNode;\n")
	}
	if len(scripts) > 0 {
		b.WriteString("  classDef scriptNode fill:#fffbe6,stroke:#b8a24c;\n")
		b.WriteString("  class " + strings.Join(toIDs(scripts, ids), ",") + " scriptNode;\n")
	}
	if len(cycleNodes) > 0 {
		cycleNames := intersectOrdered(names, cycleNodes)
		if len(cycleNames) > 0 {
			b.WriteString("  classDef cycleNode fill:#ffecec,stroke:#cc0000,stroke-width:2px;\n")
			b.WriteString("  class " + strings.Join(toIDs(cycleNames, ids), ",") + " cycleNode;\n")
		}
	}

	b.WriteString("\n")
	linkIndex := 0
	var cycleLinks, externalLinks, condLinks []int
	for _, from := range util.SortedStringKeys(edges) {
		for _, to := range util.SortedStringKeys(edges[from]) {
			edge := edges[from][to]
			label := ""
			switch {
			case cycleEdges[from+"->"+to]:
				label = "|CYCLE|"
				cycleLinks = append(cycleLinks, linkIndex)
			case edge.External:
				externalLinks = append(externalLinks, linkIndex)
			case edge.ConditionalOnly():
				label = "|cond|"
				condLinks = append(condLinks, linkIndex)
			}
			b.WriteString(fmt.Sprintf("  %s -->%s %s\n", ids[from], label, ids[to]))
			linkIndex++
		}
	}

	if len(cycleLinks) > 0 {
		b.WriteString(fmt.Sprintf("  linkStyle %s stroke:#cc0000,stroke-width:3px;\n", joinInts(cycleLinks)))
	}
	if len(externalLinks) > 0 {
		b.WriteString(fmt.Sprintf("  linkStyle %s stroke:#777777,stroke-dasharray:4 3;\n", joinInts(externalLinks)))
	}
	if len(condLinks) > 0 {
		b.WriteString(fmt.Sprintf("  linkStyle %s stroke:#2f7d33,stroke-dasharray:5 3;\n", joinInts(condLinks)))
	}

	return b.String(), nil
}

func escapeMermaidLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(name string) string {
	if name == "" {
		return "m"
	}
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	out := b.String()
	if out == "" {
		return "m"
	}
	if unicode.IsDigit(rune(out[0])) {
		return "m_" + out
	}
	return out
}

func makeMermaidIDs(names []string) map[string]string {
	ids := make(map[string]string, len(names))
	used := make(map[string]int, len(names))
	for _, name := range names {
		base := sanitizeMermaidID(name)
		idx := used[base]
		used[base] = idx + 1
		if idx == 0 {
			ids[name] = base
			continue
		}
		ids[name] = fmt.Sprintf("%s_%d", base, idx+1)
	}
	return ids
}

func toIDs(names []string, ids map[string]string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if id, ok := ids[name]; ok {
			out = append(out, id)
		}
	}
	return out
}

func intersectOrdered(ordered []string, set map[string]bool) []string {
	out := make([]string, 0)
	for _, item := range ordered {
		if set[item] {
			out = append(out, item)
		}
	}
	return out
}

func joinInts(v []int) string {
	if len(v) == 0 {
		return ""
	}
	parts := make([]string, 0, len(v))
	for _, n := range v {
		parts = append(parts, fmt.Sprintf("%d", n))
	}
	return strings.Join(parts, ",")
}
