package graph

import "sort"

// DetectCycles finds import cycles with a DFS over the internal edges.
// External nodes cannot close a cycle and are skipped. Each cycle is
// returned as a closed path, first module repeated at the end: [A B A].
func (g *Graph) DetectCycles() [][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var cycles [][]string
	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	names := make([]string, 0, len(g.nodes))
	for name, node := range g.nodes {
		if node.Kind != NodeExternal {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if !visited[name] {
			g.findCycles(name, visited, onStack, []string{}, &cycles)
		}
	}

	return cycles
}

func (g *Graph) findCycles(curr string, visited, onStack map[string]bool, path []string, cycles *[][]string) {
	visited[curr] = true
	onStack[curr] = true
	path = append(path, curr)

	targets := make([]string, 0, len(g.edges[curr]))
	for next := range g.edges[curr] {
		if next == curr {
			// Self-imports are flagged on the edge, not reported as cycles.
			continue
		}
		if node, ok := g.nodes[next]; ok && node.Kind != NodeExternal {
			targets = append(targets, next)
		}
	}
	sort.Strings(targets)

	for _, next := range targets {
		if onStack[next] {
			cycleStart := -1
			for i, mod := range path {
				if mod == next {
					cycleStart = i
					break
				}
			}
			if cycleStart != -1 {
				cycle := make([]string, 0, len(path)-cycleStart+1)
				cycle = append(cycle, path[cycleStart:]...)
				cycle = append(cycle, next)
				*cycles = append(*cycles, cycle)
			}
		} else if !visited[next] {
			g.findCycles(next, visited, onStack, path, cycles)
		}
	}

	onStack[curr] = false
}

// CycleReport summarizes cycle detection for the analysis report.
type CycleReport struct {
	Cycles [][]string
	// Example is one closed path, present when any cycle exists.
	Example []string
}

func (g *Graph) Cycles() CycleReport {
	cycles := g.DetectCycles()
	report := CycleReport{Cycles: cycles}
	if len(cycles) > 0 {
		report.Example = cycles[0]
	}
	return report
}

func (r CycleReport) HasCycle() bool {
	return len(r.Cycles) > 0
}
