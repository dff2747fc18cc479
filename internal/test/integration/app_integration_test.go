package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"deptree/internal/app"
	"deptree/internal/config"
	errs "deptree/internal/core/errors"
	"deptree/internal/graph"
	"deptree/internal/history"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestProject lays out a src-style Python project with a package
// cycle, a namespace package, a script outside the source root, an
// external import and a broken relative import.
func createTestProject(t *testing.T, tmpDir string) {
	t.Helper()

	writeFile := func(rel, content string) {
		path := filepath.Join(tmpDir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	writeFile("src/app/__init__.py", "")
	writeFile("src/app/core.py", `import app.api

if True:
    from shared import util
`)
	writeFile("src/app/api.py", `from app import core

try:
    import requests
except ImportError:
    requests = None
`)
	writeFile("src/app/bad.py", "from ... import anything\n")
	writeFile("src/shared/util.py", "import os\n")
	writeFile("tools/deploy.py", "import app.core\n")
}

func TestFullPipelineIntegration(t *testing.T) {
	tmpDir := t.TempDir()
	createTestProject(t, tmpDir)

	cfg := config.Default()
	cfg.ProjectRoot = tmpDir
	cfg.History.Path = filepath.Join(t.TempDir(), "history.db")
	cfg.History.ProjectKey = "itest"

	a, err := app.New(cfg)
	require.NoError(t, err)
	defer a.Close()

	// src/ layout is picked up without configured roots.
	roots := a.Roots()
	require.Len(t, roots, 1)
	assert.Equal(t, "src", filepath.Base(roots[0]))

	report, err := a.Analyze(context.Background())
	require.NoError(t, err)

	nodes := report.Graph.Nodes()
	wantKinds := map[string]graph.NodeKind{
		"app":          graph.NodePackage,
		"app.core":     graph.NodeModule,
		"app.api":      graph.NodeModule,
		"shared":       graph.NodeNamespacePackage,
		"shared.util":  graph.NodeModule,
		"tools.deploy": graph.NodeScript,
		"requests":     graph.NodeExternal,
		"os":           graph.NodeExternal,
	}
	for name, kind := range wantKinds {
		node, ok := report.Graph.GetNode(name)
		require.True(t, ok, "missing node %q in %v", name, nodes)
		assert.Equal(t, kind, node.Kind, "kind of %q", name)
	}

	// app.core and app.api import each other.
	require.Len(t, report.Cycles.Cycles, 1)
	cycle := report.Cycles.Cycles[0]
	require.Len(t, cycle, 3)
	assert.Equal(t, cycle[0], cycle[len(cycle)-1], "cycle path is closed")
	assert.Contains(t, cycle, "app.core")
	assert.Contains(t, cycle, "app.api")

	edges := report.Graph.Edges()

	// The shared.util import only appears inside an if branch.
	condEdge := edges["app.core"]["shared.util"]
	require.NotNil(t, condEdge)
	assert.True(t, condEdge.ConditionalOnly())

	// The requests import is guarded by try/except and does not resolve.
	extEdge := edges["app.api"]["requests"]
	require.NotNil(t, extEdge)
	assert.True(t, extEdge.External)
	assert.True(t, extEdge.ConditionalOnly())

	// The script participates in the graph like any other node.
	require.NotNil(t, edges["tools.deploy"]["app.core"])

	unresolvedTargets := make([]string, 0, len(report.Unresolved))
	for _, u := range report.Unresolved {
		unresolvedTargets = append(unresolvedTargets, u.Target)
	}
	assert.Contains(t, unresolvedTargets, "requests")
	assert.Contains(t, unresolvedTargets, "os")

	foundRelativeErr := false
	for _, fe := range report.Errors {
		if fe.Code == errs.CodeInvalidRelative {
			foundRelativeErr = true
			assert.Contains(t, fe.Path, "bad.py")
			assert.Equal(t, 1, fe.Line)
		}
	}
	assert.True(t, foundRelativeErr, "expected an invalid relative import error, got %v", report.Errors)

	// Every run lands in the history store.
	store, err := history.Open(cfg.History.Path)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.LoadRuns("itest", time.Time{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].CycleCount)
	assert.Equal(t, report.Stats.Files, runs[0].FileCount)
}

func TestDropUnresolvedIntegration(t *testing.T) {
	tmpDir := t.TempDir()
	createTestProject(t, tmpDir)

	cfg := config.Default()
	cfg.ProjectRoot = tmpDir
	cfg.Resolve.DropUnresolved = true

	a, err := app.New(cfg)
	require.NoError(t, err)
	defer a.Close()

	report, err := a.Analyze(context.Background())
	require.NoError(t, err)

	_, ok := report.Graph.GetNode("requests")
	assert.False(t, ok, "external nodes should be dropped")

	// The unresolved imports are still reported even without edges.
	assert.NotEmpty(t, report.Unresolved)
}

func TestRenderFormatsIntegration(t *testing.T) {
	tmpDir := t.TempDir()
	createTestProject(t, tmpDir)

	cfg := config.Default()
	cfg.ProjectRoot = tmpDir

	a, err := app.New(cfg)
	require.NoError(t, err)
	defer a.Close()

	report, err := a.Analyze(context.Background())
	require.NoError(t, err)

	dot, err := a.Render(report, "dot")
	require.NoError(t, err)
	assert.Contains(t, dot, "digraph dependencies")
	assert.Contains(t, dot, `"app.core" -> "app.api"`)

	mermaid, err := a.Render(report, "mermaid")
	require.NoError(t, err)
	assert.Contains(t, mermaid, "flowchart LR")

	tsv, err := a.Render(report, "tsv")
	require.NoError(t, err)
	assert.Contains(t, tsv, "From\tTo\tContexts")

	list, err := a.Render(report, "list")
	require.NoError(t, err)
	assert.Contains(t, list, "Cycles")

	_, err = a.Render(report, "png")
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeValidationError))
}

func TestImpactIntegration(t *testing.T) {
	tmpDir := t.TempDir()
	createTestProject(t, tmpDir)

	cfg := config.Default()
	cfg.ProjectRoot = tmpDir

	a, err := app.New(cfg)
	require.NoError(t, err)
	defer a.Close()

	impact, err := a.AnalyzeImpact(context.Background(), "app.core")
	require.NoError(t, err)

	assert.Contains(t, impact.Upstream, "tools.deploy")
	assert.Contains(t, impact.Downstream, "shared.util")

	_, err = a.AnalyzeImpact(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeNotFound))
}

func TestMissingRootIsFatal(t *testing.T) {
	cfg := config.Default()
	cfg.ProjectRoot = t.TempDir()
	cfg.SourceRoots = []string{"does-not-exist"}

	a, err := app.New(cfg)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Analyze(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeRootNotFound))
}
