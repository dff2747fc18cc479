package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"deptree/internal/config"
	errs "deptree/internal/core/errors"
	"deptree/internal/graph"
	"deptree/internal/history"
	"deptree/internal/namespace"
	"deptree/internal/output"
	"deptree/internal/parser"
	"deptree/internal/resolver"
	"deptree/internal/scanner"
	"deptree/internal/shared/observability"
	"deptree/internal/shared/util"
	"deptree/internal/watcher"
)

// App wires the pipeline together: scan, extract, build the namespace
// model, resolve, assemble the graph.
type App struct {
	cfg     *config.Config
	scanner *scanner.Scanner
	parser  *parser.Parser
	store   *history.Store
	limiter *util.Limiter
	watcher *watcher.Watcher

	mu         sync.Mutex
	lastReport *Report
}

// Stats summarizes one analysis run.
type Stats struct {
	Files    int
	Packages int
	Scripts  int
	Duration time.Duration
}

// Report is the complete result of one analysis: the graph together with
// every non-fatal finding. The two always travel together; callers never
// get a graph without the error list.
type Report struct {
	Graph      *graph.Graph
	Cycles     graph.CycleReport
	Unresolved []resolver.Resolution
	Errors     []errs.FileError
	Stats      Stats
}

func New(cfg *config.Config) (*App, error) {
	sc, err := scanner.New(cfg.ExcludePatterns())
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:     cfg,
		scanner: sc,
		parser:  parser.NewPythonParser(),
		// At most one watch-triggered re-analysis per 2 seconds.
		limiter: util.NewLimiter(0.5, 1),
	}

	if cfg.History.Path != "" {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, err
		}
		a.store = store
	}

	return a, nil
}

func (a *App) Close() error {
	if a.watcher != nil {
		_ = a.watcher.Close()
	}
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// Roots returns the effective source roots as absolute paths: configured
// ones resolved against the project root, or the autodetected layout.
func (a *App) Roots() []string {
	if len(a.cfg.SourceRoots) == 0 {
		return scanner.DetectSourceRoots(a.cfg.ProjectRoot)
	}
	roots := make([]string, 0, len(a.cfg.SourceRoots))
	for _, r := range a.cfg.SourceRoots {
		if !filepath.IsAbs(r) {
			r = filepath.Join(a.cfg.ProjectRoot, r)
		}
		if abs, err := filepath.Abs(r); err == nil {
			r = abs
		}
		roots = append(roots, r)
	}
	return roots
}

type extraction struct {
	file    scanner.SourceFile
	imports *parser.FileImports
}

// Analyze runs the full pipeline once. Only a missing source root (or a
// cancelled context) returns an error; everything else lands in the
// report's error list.
func (a *App) Analyze(ctx context.Context) (*Report, error) {
	start := time.Now()
	roots := a.Roots()
	slog.Debug("starting analysis", "roots", roots)

	// Phase 1: scan.
	scanStart := time.Now()
	scanRes, err := a.scanner.Scan(ctx, roots)
	if err != nil {
		return nil, err
	}
	scripts, scriptErrs := a.scanner.ScanScripts(ctx, a.cfg.ProjectRoot, roots)
	observability.ScanDuration.Observe(time.Since(scanStart).Seconds())

	fileErrors := append([]errs.FileError{}, scanRes.Errors...)
	fileErrors = append(fileErrors, scriptErrs...)

	// Phase 2: extract imports in parallel, collect serially.
	extractStart := time.Now()
	allFiles := append(append([]scanner.SourceFile{}, scanRes.Files...), scripts...)
	extracted, parseErrs := a.extractAll(ctx, allFiles)
	fileErrors = append(fileErrors, parseErrs...)
	observability.AnalysisDuration.WithLabelValues("extract").Observe(time.Since(extractStart).Seconds())

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase 3: namespace model. The snapshot is complete before any
	// resolution below starts; scripts stay out of the importable
	// namespace.
	snap, conflicts := namespace.Build(scanRes.Files, scanRes.Packages)
	fileErrors = append(fileErrors, conflicts...)

	// Phase 4: resolve in parallel, merge into one graph serially.
	resolveStart := time.Now()
	g := a.baseGraph(snap, scripts)
	unresolved, resolveErrs := a.resolveAll(ctx, g, snap, extracted)
	fileErrors = append(fileErrors, resolveErrs...)
	observability.AnalysisDuration.WithLabelValues("resolve").Observe(time.Since(resolveStart).Seconds())

	// Phase 5: cycles and bookkeeping.
	cycles := g.Cycles()

	report := &Report{
		Graph:      g,
		Cycles:     cycles,
		Unresolved: unresolved,
		Errors:     fileErrors,
		Stats: Stats{
			Files:    len(scanRes.Files),
			Packages: len(scanRes.Packages),
			Scripts:  len(scripts),
			Duration: time.Since(start),
		},
	}

	a.publishMetrics(report)
	a.saveRun(report)

	a.mu.Lock()
	a.lastReport = report
	a.mu.Unlock()

	slog.Info("analysis complete",
		"files", report.Stats.Files,
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"cycles", len(cycles.Cycles),
		"unresolved", len(unresolved),
		"errors", len(fileErrors),
		"duration", report.Stats.Duration)

	return report, nil
}

// extractAll fans the files out to a worker pool and collects the results
// on a single channel. Workers never touch shared state.
func (a *App) extractAll(ctx context.Context, files []scanner.SourceFile) ([]extraction, []errs.FileError) {
	type result struct {
		ex  extraction
		err *errs.FileError
	}

	jobs := make(chan scanner.SourceFile)
	results := make(chan result)

	var wg sync.WaitGroup
	for i := 0; i < a.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range jobs {
				content, err := os.ReadFile(f.Path)
				if err != nil {
					results <- result{err: &errs.FileError{
						Path: f.Path, Code: errs.CodeInternal,
						Message: "cannot read file: " + err.Error(),
					}}
					continue
				}
				imports, err := a.parser.ParseFile(f.Path, content)
				if err != nil {
					results <- result{err: &errs.FileError{
						Path: f.Path, Code: errs.CodeParseError,
						Message: err.Error(),
					}}
					continue
				}
				results <- result{ex: extraction{file: f, imports: imports}}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, f := range files {
			select {
			case jobs <- f:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var extracted []extraction
	var ferrs []errs.FileError
	for r := range results {
		if r.err != nil {
			ferrs = append(ferrs, *r.err)
			continue
		}
		if r.ex.imports.HadSyntaxError {
			ferrs = append(ferrs, errs.FileError{
				Path: r.ex.file.Path, Code: errs.CodeParseError,
				Message: "recovered from syntax errors, imports may be incomplete",
			})
		}
		extracted = append(extracted, r.ex)
	}

	sort.Slice(extracted, func(i, j int) bool { return extracted[i].file.Path < extracted[j].file.Path })
	return extracted, ferrs
}

// baseGraph seeds the result graph with a node for every known module,
// package and script so orphans appear in the output too.
func (a *App) baseGraph(snap *namespace.Snapshot, scripts []scanner.SourceFile) *graph.Graph {
	g := graph.NewGraph()
	for name := range snap.Modules() {
		g.AddNode(name, graph.NodeModule)
	}
	for name, pkg := range snap.Packages() {
		if pkg.Kind.IsNamespace() {
			g.AddNode(name, graph.NodeNamespacePackage)
		} else {
			g.AddNode(name, graph.NodePackage)
		}
	}
	for _, s := range scripts {
		g.AddNode(s.Module, graph.NodeScript)
	}
	return g
}

// resolveAll resolves every extracted import. Workers accumulate into
// private graphs; the merge into g is serialized here.
func (a *App) resolveAll(ctx context.Context, g *graph.Graph, snap *namespace.Snapshot, extracted []extraction) ([]resolver.Resolution, []errs.FileError) {
	r := resolver.New(snap)

	type result struct {
		graph      *graph.Graph
		unresolved []resolver.Resolution
		errors     []errs.FileError
	}

	jobs := make(chan extraction)
	results := make(chan result)

	var wg sync.WaitGroup
	for i := 0; i < a.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ex := range jobs {
				res := result{graph: graph.NewGraph()}
				for _, imp := range ex.imports.Imports {
					resolution := r.Resolve(ex.file.Module, ex.file.Path, imp)
					switch resolution.Reason {
					case resolver.ReasonNone:
						res.graph.AddEdge(ex.file.Module, resolution.Target, imp.Context, false)
					case resolver.ReasonNotFound:
						res.unresolved = append(res.unresolved, resolution)
						if !a.cfg.Resolve.DropUnresolved {
							res.graph.AddEdge(ex.file.Module, resolution.Target, imp.Context, true)
						}
					case resolver.ReasonAmbiguous:
						res.unresolved = append(res.unresolved, resolution)
					case resolver.ReasonInvalidRelative:
						res.unresolved = append(res.unresolved, resolution)
						res.errors = append(res.errors, errs.FileError{
							Path: ex.file.Path, Line: imp.Line,
							Code:    errs.CodeInvalidRelative,
							Message: fmt.Sprintf("relative import with %d dots escapes the package tree of %q", imp.Level, ex.file.Module),
						})
					}
				}
				results <- res
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, ex := range extracted {
			select {
			case jobs <- ex:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var unresolved []resolver.Resolution
	var ferrs []errs.FileError
	for res := range results {
		g.Merge(res.graph)
		unresolved = append(unresolved, res.unresolved...)
		ferrs = append(ferrs, res.errors...)
	}

	sort.Slice(unresolved, func(i, j int) bool {
		if unresolved[i].FromPath != unresolved[j].FromPath {
			return unresolved[i].FromPath < unresolved[j].FromPath
		}
		return unresolved[i].Import.Line < unresolved[j].Import.Line
	})
	return unresolved, ferrs
}

func (a *App) publishMetrics(report *Report) {
	observability.GraphNodes.Set(float64(report.Graph.NodeCount()))
	observability.GraphEdges.Set(float64(report.Graph.EdgeCount()))
	observability.CyclesDetected.Set(float64(len(report.Cycles.Cycles)))
	observability.UnresolvedImports.Set(float64(len(report.Unresolved)))
	observability.FileErrors.Set(float64(len(report.Errors)))
	observability.AnalysisRunsTotal.Inc()
}

func (a *App) saveRun(report *Report) {
	if a.store == nil {
		return
	}
	_, err := a.store.SaveRun(history.Run{
		ProjectKey:  a.cfg.History.ProjectKey,
		FileCount:   report.Stats.Files,
		ModuleCount: report.Graph.NodeCount(),
		EdgeCount:   report.Graph.EdgeCount(),
		CycleCount:  len(report.Cycles.Cycles),
		Unresolved:  len(report.Unresolved),
		ErrorCount:  len(report.Errors),
		Duration:    report.Stats.Duration,
	})
	if err != nil {
		slog.Warn("failed to persist run history", "error", err)
	}
}

// History returns the run store, or nil when history is not configured.
func (a *App) History() *history.Store {
	return a.store
}

// LastReport returns the most recent analysis, or nil before the first run.
func (a *App) LastReport() *Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastReport
}

// WriteOutputs renders every configured output format.
func (a *App) WriteOutputs(report *Report) error {
	if path := a.cfg.Output.DOT; path != "" {
		content, err := output.NewDOTGenerator(report.Graph).Generate(report.Cycles.Cycles)
		if err != nil {
			return err
		}
		if err := util.WriteStringWithDirs(path, content, 0o644); err != nil {
			return err
		}
	}
	if path := a.cfg.Output.Mermaid; path != "" {
		content, err := output.NewMermaidGenerator(report.Graph).Generate(report.Cycles.Cycles)
		if err != nil {
			return err
		}
		if err := util.WriteStringWithDirs(path, content, 0o644); err != nil {
			return err
		}
	}
	if path := a.cfg.Output.TSV; path != "" {
		content, err := output.NewTSVGenerator(report.Graph).Generate()
		if err != nil {
			return err
		}
		if err := util.WriteStringWithDirs(path, content, 0o644); err != nil {
			return err
		}
	}
	if path := a.cfg.Output.List; path != "" {
		content, err := output.NewListGenerator(report.Graph).Generate(report.Cycles.Cycles, report.Unresolved, report.Errors)
		if err != nil {
			return err
		}
		if err := util.WriteStringWithDirs(path, content, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// Render returns the report in the requested format.
func (a *App) Render(report *Report, format string) (string, error) {
	switch format {
	case "dot":
		return output.NewDOTGenerator(report.Graph).Generate(report.Cycles.Cycles)
	case "mermaid":
		return output.NewMermaidGenerator(report.Graph).Generate(report.Cycles.Cycles)
	case "tsv":
		return output.NewTSVGenerator(report.Graph).Generate()
	case "list":
		return output.NewListGenerator(report.Graph).Generate(report.Cycles.Cycles, report.Unresolved, report.Errors)
	default:
		return "", errs.AddContext(errs.New(errs.CodeValidationError, "unknown output format"), "format", format)
	}
}

// ImpactReport lists who depends on a module and what it depends on.
type ImpactReport struct {
	Target     string
	Upstream   map[string]int
	Downstream map[string]int
}

func (a *App) AnalyzeImpact(ctx context.Context, module string) (*ImpactReport, error) {
	report := a.LastReport()
	if report == nil {
		var err error
		report, err = a.Analyze(ctx)
		if err != nil {
			return nil, err
		}
	}

	if _, ok := report.Graph.GetNode(module); !ok {
		return nil, errs.AddContext(errs.New(errs.CodeNotFound, "module not in graph"), errs.CtxModule, module)
	}

	return &ImpactReport{
		Target:     module,
		Upstream:   report.Graph.Upstream(module, 0),
		Downstream: report.Graph.Downstream(module, 0),
	}, nil
}

// StartWatcher re-runs the analysis when Python files change. onReport
// receives every fresh report; re-analysis is rate limited so bulk
// operations (branch switches, formatters) do not thrash the pipeline.
func (a *App) StartWatcher(ctx context.Context, onReport func(*Report)) error {
	w, err := watcher.NewWatcher(a.cfg.Watch.Debounce, a.cfg.ExcludePatterns(), func(paths []string) {
		if !a.limiter.Allow(1) {
			slog.Debug("re-analysis throttled", "changed", len(paths))
			return
		}
		slog.Debug("files changed, re-analyzing", "changed", len(paths))
		report, err := a.Analyze(ctx)
		if err != nil {
			slog.Error("re-analysis failed", "error", err)
			return
		}
		if err := a.WriteOutputs(report); err != nil {
			slog.Error("failed to write outputs", "error", err)
		}
		if onReport != nil {
			onReport(report)
		}
	})
	if err != nil {
		return err
	}
	a.watcher = w

	watchRoots := a.Roots()
	if a.cfg.ProjectRoot != "" {
		watchRoots = []string{a.cfg.ProjectRoot}
	}
	return w.Watch(watchRoots)
}

// PrintSummary writes a human-readable digest to stdout.
func (a *App) PrintSummary(report *Report) {
	fmt.Printf("Scanned %d files, %d packages, %d scripts in %v\n",
		report.Stats.Files, report.Stats.Packages, report.Stats.Scripts, report.Stats.Duration.Round(time.Millisecond))
	fmt.Printf("Graph: %d nodes, %d edges\n", report.Graph.NodeCount(), report.Graph.EdgeCount())

	if report.Cycles.HasCycle() {
		fmt.Printf("Cycles: %d (e.g. %v)\n", len(report.Cycles.Cycles), report.Cycles.Example)
	} else {
		fmt.Println("Cycles: none")
	}

	if len(report.Unresolved) > 0 {
		fmt.Printf("Unresolved imports: %d\n", len(report.Unresolved))
	}
	if len(report.Errors) > 0 {
		fmt.Printf("Errors: %d\n", len(report.Errors))
		for _, fe := range report.Errors {
			fmt.Println("  " + fe.String())
		}
	}
}
