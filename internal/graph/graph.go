package graph

import (
	"sync"

	"deptree/internal/parser"
)

// NodeKind tells how a graph node entered the module universe.
type NodeKind int

const (
	NodeModule NodeKind = iota
	NodePackage
	NodeNamespacePackage
	NodeScript
	NodeExternal
)

func (k NodeKind) String() string {
	switch k {
	case NodeModule:
		return "module"
	case NodePackage:
		return "package"
	case NodeNamespacePackage:
		return "namespace"
	case NodeScript:
		return "script"
	case NodeExternal:
		return "external"
	default:
		return "unknown"
	}
}

type Node struct {
	Name string
	Kind NodeKind
}

// Edge aggregates every import of To seen in From. Contexts is the set of
// execution contexts the import appeared under; Occurrences counts the
// individual import statements behind the edge.
type Edge struct {
	From        string
	To          string
	Contexts    map[parser.ImportContext]bool
	Occurrences int
	External    bool
	SelfImport  bool
}

// ConditionalOnly reports whether the edge was never seen at module level:
// every occurrence is inside a conditional, a try block, or a function.
func (e *Edge) ConditionalOnly() bool {
	return len(e.Contexts) > 0 && !e.Contexts[parser.ModuleLevel]
}

// Graph is the deduplicated module dependency graph. All mutation happens
// under the mutex; accessors return clones so callers can iterate without
// holding locks.
type Graph struct {
	mu sync.RWMutex

	nodes      map[string]*Node
	edges      map[string]map[string]*Edge // from -> to -> edge
	importedBy map[string]map[string]bool  // to -> from
}

func NewGraph() *Graph {
	return &Graph{
		nodes:      make(map[string]*Node),
		edges:      make(map[string]map[string]*Edge),
		importedBy: make(map[string]map[string]bool),
	}
}

func (g *Graph) AddNode(name string, kind NodeKind) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addNodeLocked(name, kind)
}

func (g *Graph) addNodeLocked(name string, kind NodeKind) {
	if existing, ok := g.nodes[name]; ok {
		// A resolved internal kind wins over a provisional external node.
		if existing.Kind == NodeExternal && kind != NodeExternal {
			existing.Kind = kind
		}
		return
	}
	g.nodes[name] = &Node{Name: name, Kind: kind}
}

// AddEdge records one import occurrence. Repeated (from, to) pairs fold into
// a single edge whose context set and occurrence count grow.
func (g *Graph) AddEdge(from, to string, ctx parser.ImportContext, external bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[from]; !ok {
		g.addNodeLocked(from, NodeModule)
	}
	if _, ok := g.nodes[to]; !ok {
		kind := NodeModule
		if external {
			kind = NodeExternal
		}
		g.addNodeLocked(to, kind)
	}

	if g.edges[from] == nil {
		g.edges[from] = make(map[string]*Edge)
	}
	edge, ok := g.edges[from][to]
	if !ok {
		edge = &Edge{
			From:     from,
			To:       to,
			Contexts: make(map[parser.ImportContext]bool),
			External: external,
		}
		g.edges[from][to] = edge
	}
	edge.Contexts[ctx] = true
	edge.Occurrences++
	if from == to {
		edge.SelfImport = true
	}

	if g.importedBy[to] == nil {
		g.importedBy[to] = make(map[string]bool)
	}
	g.importedBy[to][from] = true
}

// Merge folds another graph into this one. The pipeline builds per-worker
// graphs in parallel and merges them serially.
func (g *Graph) Merge(other *Graph) {
	other.mu.RLock()
	nodes := make([]Node, 0, len(other.nodes))
	for _, n := range other.nodes {
		nodes = append(nodes, *n)
	}
	type occurrence struct {
		edge Edge
	}
	edges := make([]occurrence, 0)
	for _, targets := range other.edges {
		for _, e := range targets {
			edges = append(edges, occurrence{edge: *e})
		}
	}
	other.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()
	for _, n := range nodes {
		g.addNodeLocked(n.Name, n.Kind)
	}
	for _, occ := range edges {
		if g.edges[occ.edge.From] == nil {
			g.edges[occ.edge.From] = make(map[string]*Edge)
		}
		dst, ok := g.edges[occ.edge.From][occ.edge.To]
		if !ok {
			dst = &Edge{
				From:     occ.edge.From,
				To:       occ.edge.To,
				Contexts: make(map[parser.ImportContext]bool),
				External: occ.edge.External,
			}
			g.edges[occ.edge.From][occ.edge.To] = dst
		}
		for ctx := range occ.edge.Contexts {
			dst.Contexts[ctx] = true
		}
		dst.Occurrences += occ.edge.Occurrences
		dst.SelfImport = dst.SelfImport || occ.edge.SelfImport

		if g.importedBy[occ.edge.To] == nil {
			g.importedBy[occ.edge.To] = make(map[string]bool)
		}
		g.importedBy[occ.edge.To][occ.edge.From] = true
	}
}

func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	count := 0
	for _, targets := range g.edges {
		count += len(targets)
	}
	return count
}

func (g *Graph) GetNode(name string) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[name]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Nodes returns a copy of all nodes keyed by name.
func (g *Graph) Nodes() map[string]Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string]Node, len(g.nodes))
	for name, n := range g.nodes {
		out[name] = *n
	}
	return out
}

// Edges returns a deep copy of the adjacency map.
func (g *Graph) Edges() map[string]map[string]*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string]map[string]*Edge, len(g.edges))
	for from, targets := range g.edges {
		out[from] = make(map[string]*Edge, len(targets))
		for to, e := range targets {
			out[from][to] = cloneEdge(e)
		}
	}
	return out
}

func cloneEdge(e *Edge) *Edge {
	c := *e
	c.Contexts = make(map[parser.ImportContext]bool, len(e.Contexts))
	for ctx := range e.Contexts {
		c.Contexts[ctx] = true
	}
	return &c
}
