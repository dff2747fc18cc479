package output

import (
	"strings"
	"testing"

	errs "deptree/internal/core/errors"
	"deptree/internal/graph"
	"deptree/internal/parser"
	"deptree/internal/resolver"
)

func fixtureGraph() (*graph.Graph, [][]string) {
	g := graph.NewGraph()
	g.AddNode("app", graph.NodeModule)
	g.AddNode("app.core", graph.NodeModule)
	g.AddNode("shared", graph.NodeNamespacePackage)
	g.AddNode("scripts.deploy", graph.NodeScript)
	g.AddEdge("app", "app.core", parser.ModuleLevel, false)
	g.AddEdge("app.core", "app", parser.ModuleLevel, false)
	g.AddEdge("app", "shared", parser.ConditionalBranch, false)
	g.AddEdge("scripts.deploy", "app", parser.ModuleLevel, false)
	g.AddEdge("app", "requests", parser.ModuleLevel, true)
	return g, g.DetectCycles()
}

func TestDOTGenerator(t *testing.T) {
	g, cycles := fixtureGraph()
	out, err := NewDOTGenerator(g).Generate(cycles)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	for _, want := range []string{
		"digraph dependencies {",
		`"app" -> "app.core" [color="red", penwidth=3.0, label="CYCLE"];`,
		`"app" -> "requests" [color="grey", style=dashed];`,
		"shape=hexagon",
		"fillcolor=\"lightyellow\"",
		"cluster_legend",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("DOT output missing %q", want)
		}
	}

	if !strings.Contains(out, `label="cond"`) {
		t.Error("conditional-only edge not marked in DOT output")
	}
}

func TestMermaidGenerator(t *testing.T) {
	g, cycles := fixtureGraph()
	out, err := NewMermaidGenerator(g).Generate(cycles)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !strings.Contains(out, "flowchart LR") {
		t.Error("missing flowchart header")
	}
	if !strings.Contains(out, "{{\"shared\"}}") {
		t.Error("namespace package should render as hexagon")
	}
	if !strings.Contains(out, "|CYCLE|") {
		t.Error("cycle edge not labelled")
	}
	if !strings.Contains(out, "classDef externalNode") {
		t.Error("external class missing")
	}
}

func TestTSVGenerator(t *testing.T) {
	g, _ := fixtureGraph()
	out, err := NewTSVGenerator(g).Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if lines[0] != "From\tTo\tContexts\tOccurrences\tConditionalOnly\tExternal" {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if len(lines) != 6 {
		t.Errorf("expected 5 edge rows, got %d", len(lines)-1)
	}
	if !strings.Contains(out, "app\tshared\tconditional\t1\ttrue\tfalse") {
		t.Errorf("conditional-only row missing:\n%s", out)
	}
}

func TestListGenerator(t *testing.T) {
	g, cycles := fixtureGraph()
	unresolved := []resolver.Resolution{
		{FromPath: "/r/app.py", Target: "requests", Reason: resolver.ReasonNotFound,
			Import: parser.RawImport{Module: "requests", Line: 3}},
	}
	fileErrors := []errs.FileError{
		{Path: "/r/broken.py", Line: 1, Code: errs.CodeParseError, Message: "syntax error"},
	}

	out, err := NewListGenerator(g).Generate(cycles, unresolved, fileErrors)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	for _, want := range []string{
		"Dependency Tree",
		"-> shared [conditional]",
		"-> requests [external]",
		"Cycles (1)",
		"Unresolved imports (1)",
		"Errors (1)",
		"[PARSE_ERROR] syntax error",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}
}
