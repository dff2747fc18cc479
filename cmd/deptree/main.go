package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"deptree/internal/app"
	"deptree/internal/config"
)

var (
	configPath     = flag.String("config", "./deptree.toml", "Path to config file")
	projectRoot    = flag.String("root", "", "Project root (overrides config)")
	sourceRoots    = flag.String("source-root", "", "Comma-separated source roots relative to the project root (overrides config and autodetection)")
	format         = flag.String("format", "", "Render the graph in the given format: dot, mermaid, tsv, list")
	outPath        = flag.String("o", "", "Write the rendered format to this file instead of stdout")
	impact         = flag.String("impact", "", "Report importers and dependencies of the given module")
	dropUnresolved = flag.Bool("drop-unresolved", false, "Omit edges to imports that did not resolve to a project module")
	watch          = flag.Bool("watch", false, "Re-analyze when Python files change")
	ui             = flag.Bool("ui", false, "Enable terminal UI mode (implies -watch)")
	trends         = flag.Bool("trends", false, "Print run history for the configured project key")
	metricsAddr    = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	workers        = flag.Int("workers", 0, "Number of parallel workers (overrides config)")
	verbose        = flag.Bool("verbose", false, "Enable verbose logging")
	version        = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "1.0.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("deptree v%s\n", VERSION)
		os.Exit(0)
	}

	setupLogging(*ui, *verbose)

	cfg, err := loadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	applyFlagOverrides(cfg)

	a, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if *trends {
		if err := printTrends(a, cfg); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		os.Exit(0)
	}

	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr)
	}

	ctx := context.Background()
	report, err := a.Analyze(ctx)
	if err != nil {
		slog.Error("analysis failed", "error", err)
		os.Exit(1)
	}

	if err := a.WriteOutputs(report); err != nil {
		slog.Error("failed to write outputs", "error", err)
	}

	if *impact != "" {
		ir, err := a.AnalyzeImpact(ctx, *impact)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		fmt.Print(formatImpactReport(ir))
		os.Exit(0)
	}

	if *format != "" {
		rendered, err := a.Render(report, *format)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		if *outPath != "" {
			if err := os.WriteFile(*outPath, []byte(rendered), 0644); err != nil {
				fmt.Fprintln(os.Stderr, err.Error())
				os.Exit(1)
			}
		} else {
			fmt.Print(rendered)
		}
	} else if !*ui {
		a.PrintSummary(report)
	}

	if !*watch && !*ui {
		return
	}

	if *ui {
		if err := runUI(ctx, a, report); err != nil {
			slog.Error("failed to run UI", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := a.StartWatcher(ctx, func(r *app.Report) {
		a.PrintSummary(r)
	}); err != nil {
		slog.Error("failed to start watcher", "error", err)
		os.Exit(1)
	}
	select {}
}

func setupLogging(uiMode, verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	output := os.Stdout
	if uiMode {
		// In UI mode, avoid stdout logs corrupting the TUI.
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else {
			if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
				fmt.Fprintf(os.Stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
			} else {
				f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
				if err == nil {
					output = f
				} else {
					fmt.Fprintf(os.Stderr, "warning: failed to open log file %s: %v\n", logPath, err)
				}
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err == nil {
		return cfg, nil
	}
	if *configPath == "./deptree.toml" {
		if cfg, exErr := config.Load("./deptree.example.toml"); exErr == nil {
			return cfg, nil
		}
		if os.IsNotExist(err) {
			// Running without a config file is fine; flags and defaults apply.
			return config.Default(), nil
		}
	}
	return nil, err
}

func applyFlagOverrides(cfg *config.Config) {
	if *projectRoot != "" {
		cfg.ProjectRoot = *projectRoot
	} else if flag.NArg() > 0 {
		cfg.ProjectRoot = flag.Arg(0)
	}
	if *sourceRoots != "" {
		cfg.SourceRoots = nil
		for _, r := range strings.Split(*sourceRoots, ",") {
			if r = strings.TrimSpace(r); r != "" {
				cfg.SourceRoots = append(cfg.SourceRoots, r)
			}
		}
	}
	if *dropUnresolved {
		cfg.Resolve.DropUnresolved = true
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	slog.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("metrics server failed", "error", err)
	}
}

func printTrends(a *app.App, cfg *config.Config) error {
	store := a.History()
	if store == nil {
		return fmt.Errorf("trends require history.path to be configured")
	}

	runs, err := store.LoadRuns(cfg.History.ProjectKey, time.Time{})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Printf("No recorded runs for project %q in %s\n", cfg.History.ProjectKey, store.Path())
		return nil
	}

	fmt.Printf("Run history for %q (%d runs)\n", cfg.History.ProjectKey, len(runs))
	fmt.Println("Timestamp            Files  Modules  Edges  Cycles  Unresolved  Errors  Duration")
	for _, r := range runs {
		fmt.Printf("%-20s %6d %8d %6d %7d %11d %7d  %v\n",
			r.Timestamp.Format("2006-01-02 15:04:05"),
			r.FileCount, r.ModuleCount, r.EdgeCount,
			r.CycleCount, r.Unresolved, r.ErrorCount,
			r.Duration.Round(time.Millisecond))
	}

	first, last := runs[0], runs[len(runs)-1]
	fmt.Printf("\nSince %s: edges %+d, cycles %+d, unresolved %+d\n",
		first.Timestamp.Format("2006-01-02"),
		last.EdgeCount-first.EdgeCount,
		last.CycleCount-first.CycleCount,
		last.Unresolved-first.Unresolved)
	return nil
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "deptree", "deptree.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "deptree", "deptree.log")
	}

	return "deptree.log"
}

func formatImpactReport(report *app.ImpactReport) string {
	var b strings.Builder

	b.WriteString("Impact Analysis\n")
	b.WriteString("==============\n")
	b.WriteString(fmt.Sprintf("Target module: %s\n\n", report.Target))

	b.WriteString(fmt.Sprintf("Importers (%d)\n", len(report.Upstream)))
	for _, line := range rankedLines(report.Upstream) {
		b.WriteString(line)
	}
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("Dependencies (%d)\n", len(report.Downstream)))
	for _, line := range rankedLines(report.Downstream) {
		b.WriteString(line)
	}

	return b.String()
}

// rankedLines orders modules by distance from the target, then by name.
func rankedLines(ranks map[string]int) []string {
	type entry struct {
		module string
		rank   int
	}
	entries := make([]entry, 0, len(ranks))
	for m, r := range ranks {
		entries = append(entries, entry{module: m, rank: r})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].rank == entries[j].rank {
			return entries[i].module < entries[j].module
		}
		return entries[i].rank < entries[j].rank
	})

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("- %s (distance %d)\n", e.module, e.rank))
	}
	return lines
}
