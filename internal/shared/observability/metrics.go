package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crashmap_stage_seconds",
		Help:    "Time spent in a run stage.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	DocumentsProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crashmap_documents_processed_total",
		Help: "Total number of crash logs parsed and resolved.",
	})

	CrashReportsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crashmap_crash_reports_total",
		Help: "Total number of crash blocks parsed into reports.",
	})

	ReferencesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crashmap_references_total",
		Help: "Total number of package path references by resolution status.",
	}, []string{"status"})

	SourceMapLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crashmap_sourcemap_loads_total",
		Help: "Total number of sourcemap lookups by result.",
	}, []string{"result"})

	ReportsWrittenTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crashmap_reports_written_total",
		Help: "Total number of report files written by reporter.",
	}, []string{"reporter"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crashmap_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)

const (
	StageDiscover = "discover"
	StageParse    = "parse"
	StageResolve  = "resolve"
	StageReport   = "report"

	StatusResolved   = "resolved"
	StatusUnresolved = "unresolved"

	SourceMapLoaded  = "loaded"
	SourceMapMissing = "missing"
	SourceMapError   = "error"
)
