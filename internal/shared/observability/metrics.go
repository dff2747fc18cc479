package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "deptree_scan_seconds",
		Help:    "Time spent walking source roots and classifying packages.",
		Buckets: prometheus.DefBuckets,
	})

	ParsingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "deptree_parsing_seconds",
		Help:    "Time spent parsing a single Python file.",
		Buckets: prometheus.DefBuckets,
	})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "deptree_analysis_seconds",
		Help:    "Time spent on a pipeline phase.",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "deptree_graph_nodes_total",
		Help: "Total number of nodes in the dependency graph.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "deptree_graph_edges_total",
		Help: "Total number of edges in the dependency graph.",
	})

	CyclesDetected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "deptree_cycles_total",
		Help: "Number of import cycles found in the last analysis.",
	})

	UnresolvedImports = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "deptree_unresolved_imports_total",
		Help: "Number of imports that did not resolve in the last analysis.",
	})

	FileErrors = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "deptree_file_errors_total",
		Help: "Number of non-fatal file errors collected in the last analysis.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deptree_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	AnalysisRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deptree_analysis_runs_total",
		Help: "Total number of completed analysis runs.",
	})
)
