package app

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"crashmap/internal/core/config"
	"crashmap/internal/core/errors"
	"crashmap/internal/core/ports"
	"crashmap/internal/data/filesystem"
	"crashmap/internal/engine/crashlog"
	"crashmap/internal/engine/parser"
	"crashmap/internal/engine/resolver"
	"crashmap/internal/shared/observability"
	"crashmap/internal/shared/util"
	"crashmap/internal/ui/report"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Dependencies lets callers replace the collaborators New would build. Nil
// fields fall back to the defaults.
type Dependencies struct {
	FileSystem ports.FileSystem
	Reporters  []ports.Reporter
	Platforms  ports.PlatformIdentifier
}

// App runs crash logs through parsing, resolution against the configured
// source projects and the reporters.
type App struct {
	Config *config.Config

	paths     config.ResolvedPaths
	runID     string
	fs        ports.FileSystem
	maps      *resolver.SourceMapCache
	resolver  *resolver.Resolver
	projects  []*resolver.SourceProject
	reporters []ports.Reporter
	excludes  *util.ExcludeMatcher
	includes  []string
	negations []string

	loadOnce sync.Once

	docsMu    sync.RWMutex
	documents map[string]*crashlog.Document
}

func New(cfg *config.Config) (*App, error) {
	return NewWithDependencies(cfg, Dependencies{})
}

// NewWithDependencies validates cfg before touching the disk. An empty
// crash log list is rejected; an empty project list is allowed and simply
// resolves nothing.
func NewWithDependencies(cfg *config.Config, deps Dependencies) (*App, error) {
	if cfg == nil {
		return nil, errors.New(errors.CodeValidationError, "config is required")
	}

	includes, negations := splitPatterns(cfg.Crashlogs)
	if len(includes) == 0 {
		return nil, errors.New(errors.CodeValidationError, "crashlogs list may not be empty")
	}

	paths, err := config.ResolvePaths(cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "resolve paths")
	}

	excludes, err := util.NewExcludeMatcher(cfg.Exclude.Dirs, cfg.Exclude.Files)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "invalid exclude pattern")
	}

	fs := deps.FileSystem
	if fs == nil {
		fs = filesystem.New()
	}

	maps := resolver.NewSourceMapCache(fs)
	res, projects := resolver.NewProjectResolver(cfg.Projects, paths.Cwd, fs, maps)
	runID := uuid.NewString()

	reporters := deps.Reporters
	if reporters == nil {
		reporters = []ports.Reporter{report.NewStandardReporter(paths.OutDir)}
		if cfg.Output.JSON {
			reporters = append(reporters, report.NewJSONReporter(paths.OutDir, runID, deps.Platforms))
		}
	}

	return &App{
		Config:    cfg,
		paths:     paths,
		runID:     runID,
		fs:        fs,
		maps:      maps,
		resolver:  res,
		projects:  projects,
		reporters: reporters,
		excludes:  excludes,
		includes:  absolutePatterns(paths.Cwd, includes),
		negations: absolutePatterns(paths.Cwd, negations),
		documents: make(map[string]*crashlog.Document),
	}, nil
}

func (a *App) RunID() string {
	return a.runID
}

func (a *App) Paths() config.ResolvedPaths {
	return a.paths
}

func (a *App) Projects() []*resolver.SourceProject {
	return a.projects
}

// Run performs one complete pass: clean the output directory, load the
// projects, discover and parse the crash logs, resolve them and run every
// reporter.
func (a *App) Run(ctx context.Context) (report.Summary, error) {
	ctx, span := observability.Tracer.Start(ctx, "App.Run",
		trace.WithAttributes(attribute.String("run_id", a.runID)))
	defer span.End()

	if a.Config.Output.CleanEnabled() {
		if err := util.EmptyDir(a.paths.OutDir); err != nil {
			return report.Summary{RunID: a.runID}, errors.AddContext(
				errors.Wrap(err, errors.CodeInternal, "failed to clean output directory"),
				errors.CtxPath, a.paths.OutDir)
		}
	}

	a.LoadProjects(ctx)

	started := time.Now()
	files, err := a.DiscoverCrashLogs(ctx)
	if err != nil {
		return report.Summary{RunID: a.runID}, err
	}
	observability.StageDuration.WithLabelValues(observability.StageDiscover).Observe(time.Since(started).Seconds())
	slog.Info("discovered crash logs", "run_id", a.runID, "count", len(files))

	return a.ProcessFiles(ctx, files)
}

// LoadProjects loads every configured project once, concurrently.
func (a *App) LoadProjects(ctx context.Context) {
	a.loadOnce.Do(func() {
		resolver.LoadProjects(ctx, a.projects)
		for _, p := range a.projects {
			slog.Debug("loaded project", "path", p.SrcPath(), "prefix", p.Prefix().String())
		}
	})
}

// OriginalLocations asks every project about loc and returns the answers in
// configuration order.
func (a *App) OriginalLocations(ctx context.Context, loc parser.Location) []parser.Location {
	return a.resolver.OriginalLocations(ctx, loc)
}

// ProcessFile parses, resolves and reports a single crash log or zip archive.
func (a *App) ProcessFile(ctx context.Context, path string) (report.Summary, error) {
	a.LoadProjects(ctx)
	return a.ProcessFiles(ctx, []string{path})
}

// ProcessFiles runs the given crash logs through parsing, resolution and the
// reporters. Zip archives are expanded first. Unreadable files are logged and
// left out.
func (a *App) ProcessFiles(ctx context.Context, paths []string) (report.Summary, error) {
	started := time.Now()
	summary := report.Summary{RunID: a.runID}

	files, err := a.expandArchives(ctx, paths)
	if err != nil {
		return summary, err
	}

	parseStarted := time.Now()
	docs := a.loadDocuments(ctx, files)
	observability.StageDuration.WithLabelValues(observability.StageParse).Observe(time.Since(parseStarted).Seconds())

	resolveStarted := time.Now()
	if err := a.processDocuments(ctx, docs); err != nil {
		return summary, err
	}
	observability.StageDuration.WithLabelValues(observability.StageResolve).Observe(time.Since(resolveStarted).Seconds())

	reportStarted := time.Now()
	written, reportErr := a.runReporters(ctx, docs)
	observability.StageDuration.WithLabelValues(observability.StageReport).Observe(time.Since(reportStarted).Seconds())

	a.docsMu.Lock()
	for _, doc := range docs {
		a.documents[doc.SrcPath()] = doc
	}
	a.docsMu.Unlock()

	summary.Documents = len(docs)
	summary.Written = written
	for _, doc := range docs {
		stats := doc.Stats()
		summary.References += stats.References
		summary.Resolved += stats.Resolved
		summary.Unresolved += stats.Unresolved
		summary.CrashReports += stats.CrashReports
		if _, ok := doc.DestPath(); !ok {
			summary.Skipped = append(summary.Skipped, doc.SrcPath())
		}
	}
	summary.Duration = time.Since(started)
	return summary, reportErr
}

func (a *App) loadDocuments(ctx context.Context, files []string) []*crashlog.Document {
	slots := make([]*crashlog.Document, len(files))

	var g errgroup.Group
	g.SetLimit(a.concurrency())
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			text, err := a.fs.ReadText(path)
			if err != nil {
				slog.Warn("failed to read crash log", "path", path, "error", err)
				return nil
			}
			doc := crashlog.NewDocument(path)
			doc.Parse(text)
			slots[i] = doc
			return nil
		})
	}
	_ = g.Wait()

	docs := make([]*crashlog.Document, 0, len(slots))
	for _, doc := range slots {
		if doc != nil {
			docs = append(docs, doc)
		}
	}
	return docs
}

func (a *App) processDocuments(ctx context.Context, docs []*crashlog.Document) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency())
	for _, doc := range docs {
		doc := doc
		g.Go(func() error {
			return doc.Process(gctx, a, a.Config.Resolve.Concurrency)
		})
	}
	return g.Wait()
}

// runReporters runs every reporter even when an earlier one fails and
// returns the first failure.
func (a *App) runReporters(ctx context.Context, docs []*crashlog.Document) ([]string, error) {
	views := make([]ports.ReportDocument, len(docs))
	for i, doc := range docs {
		views[i] = doc
	}

	var written []string
	var firstErr error
	for _, r := range a.reporters {
		paths, err := r.Report(ctx, views)
		written = append(written, paths...)
		if err != nil {
			slog.Error("reporter failed", "reporter", r.Name(), "error", err)
			if firstErr == nil {
				firstErr = errors.AddContext(errors.Wrap(err, errors.CodeInternal, "reporter "+r.Name()+" failed"), errors.CtxOperation, "report")
			}
		}
	}
	return written, firstErr
}

func (a *App) concurrency() int {
	if a.Config.Resolve.Concurrency > 0 {
		return a.Config.Resolve.Concurrency
	}
	return crashlog.DefaultConcurrency
}

// Document returns the most recently processed document for path.
func (a *App) Document(path string) (*crashlog.Document, bool) {
	a.docsMu.RLock()
	defer a.docsMu.RUnlock()
	doc, ok := a.documents[path]
	return doc, ok
}

func (a *App) documentCount() int {
	a.docsMu.RLock()
	defer a.docsMu.RUnlock()
	return len(a.documents)
}

// splitPatterns separates "!"-prefixed exclusions from inclusion globs and
// drops blank entries.
func splitPatterns(patterns []string) (includes, negations []string) {
	for _, raw := range patterns {
		pattern := strings.TrimSpace(raw)
		if pattern == "" {
			continue
		}
		if strings.HasPrefix(pattern, "!") {
			if negated := strings.TrimSpace(pattern[1:]); negated != "" {
				negations = append(negations, negated)
			}
			continue
		}
		includes = append(includes, pattern)
	}
	return includes, negations
}
