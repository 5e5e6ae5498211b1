package crashlog

import (
	"context"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"crashmap/internal/core/ports"
	"crashmap/internal/engine/parser"
	"crashmap/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency caps in-flight reference lookups per document.
const DefaultConcurrency = 16

// Crash logs are exported into folders like "OSCrashes.2022-02-12".
var crashFolderPattern = regexp.MustCompile(`(?i)oscrashes.(\d{4}-\d{2}-\d{2})`)

// Document is one crash log file. It owns the references found in its text;
// stack frames point into that same list.
type Document struct {
	srcPath string
	text    string

	index      *parser.LineIndex
	references []*parser.FileReference
	reports    []parser.CrashReport
}

func NewDocument(srcPath string) *Document {
	d := &Document{srcPath: srcPath}
	d.Parse("")
	return d
}

// Parse replaces the document text and rebuilds everything derived from it.
func (d *Document) Parse(text string) {
	d.text = text
	d.index = parser.NewLineIndex(text)
	if text == "" {
		d.references = []*parser.FileReference{}
	} else {
		d.references = d.index.References()
	}
	d.reports = d.index.CrashReports()
	parser.LinkFrames(d.reports, d.references)
	observability.CrashReportsTotal.Add(float64(len(d.reports)))
}

func (d *Document) SrcPath() string {
	return d.srcPath
}

func (d *Document) Text() string {
	return d.text
}

func (d *Document) LineIndex() *parser.LineIndex {
	return d.index
}

func (d *Document) References() []*parser.FileReference {
	return d.references
}

func (d *Document) CrashReports() []parser.CrashReport {
	return d.reports
}

// Process resolves every unresolved reference through r, with at most
// concurrency lookups in flight. The first location r returns wins. A
// reference nobody can resolve stays unresolved; only cancellation is an
// error.
func (d *Document) Process(ctx context.Context, r ports.LocationResolver, concurrency int) error {
	ctx, span := observability.Tracer.Start(ctx, "Document.Process",
		trace.WithAttributes(
			attribute.String("path", d.srcPath),
			attribute.Int("references", len(d.references)),
		))
	defer span.End()

	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, ref := range d.references {
		if ref.Resolved() {
			continue
		}
		ref := ref
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			locations := r.OriginalLocations(gctx, ref.PkgLocation)
			if len(locations) == 0 {
				observability.ReferencesTotal.WithLabelValues(observability.StatusUnresolved).Inc()
				return nil
			}
			first := locations[0]
			ref.SrcLocation = &first
			observability.ReferencesTotal.WithLabelValues(observability.StatusResolved).Inc()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	observability.DocumentsProcessedTotal.Inc()
	return nil
}

// DestPath derives the output path "<app>/<date>-<firmware><ext>" from a log
// named "<app>_<firmware><ext>" inside an "OSCrashes.<date>" folder.
func (d *Document) DestPath() (string, bool) {
	base := filepath.Base(d.srcPath)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)

	sep := strings.LastIndex(name, "_")
	if sep < 0 {
		return "", false
	}
	appName, firmware := name[:sep], name[sep+1:]

	m := crashFolderPattern.FindStringSubmatch(filepath.Base(filepath.Dir(d.srcPath)))
	if m == nil {
		return "", false
	}
	return filepath.Join(appName, m[1]+"-"+firmware+ext), true
}

// Render returns the text with every resolved reference replaced by
// "<source path>(<1-based line>)".
func (d *Document) Render() string {
	text := d.text
	// Right to left, so earlier offsets stay valid.
	for i := len(d.references) - 1; i >= 0; i-- {
		ref := d.references[i]
		if !ref.Resolved() || ref.Offset < 0 || ref.Offset+ref.Length > len(text) {
			continue
		}
		replacement := filepath.FromSlash(ref.SrcLocation.Path) + "(" + strconv.Itoa(ref.SrcLocation.Line+1) + ")"
		text = text[:ref.Offset] + replacement + text[ref.Offset+ref.Length:]
	}
	return text
}

// Stats summarizes reference resolution for the document.
type Stats struct {
	References   int
	Resolved     int
	Unresolved   int
	CrashReports int
}

func (d *Document) Stats() Stats {
	s := Stats{References: len(d.references), CrashReports: len(d.reports)}
	for _, ref := range d.references {
		if ref.Resolved() {
			s.Resolved++
		}
	}
	s.Unresolved = s.References - s.Resolved
	return s
}
