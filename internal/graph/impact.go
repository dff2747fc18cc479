package graph

// Upstream returns every module that depends on target, directly or
// transitively, mapped to its BFS rank (1 = direct importer). maxDepth <= 0
// means unbounded.
func (g *Graph) Upstream(target string, maxDepth int) map[string]int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.closure(target, maxDepth, func(name string) map[string]bool {
		return g.importedBy[name]
	})
}

// Downstream returns every module target depends on, directly or
// transitively, mapped to its BFS rank (1 = direct import).
func (g *Graph) Downstream(target string, maxDepth int) map[string]int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.closure(target, maxDepth, func(name string) map[string]bool {
		out := make(map[string]bool, len(g.edges[name]))
		for to := range g.edges[name] {
			out[to] = true
		}
		return out
	})
}

func (g *Graph) closure(start string, maxDepth int, neighbors func(string) map[string]bool) map[string]int {
	if _, ok := g.nodes[start]; !ok {
		return nil
	}

	ranks := make(map[string]int)
	queue := []string{start}
	depth := 0

	for len(queue) > 0 {
		depth++
		if maxDepth > 0 && depth > maxDepth {
			break
		}
		var next []string
		for _, name := range queue {
			for neighbor := range neighbors(name) {
				if neighbor == start {
					continue
				}
				if _, seen := ranks[neighbor]; seen {
					continue
				}
				ranks[neighbor] = depth
				next = append(next, neighbor)
			}
		}
		queue = next
	}

	return ranks
}
