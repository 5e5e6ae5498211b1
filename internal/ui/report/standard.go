package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"crashmap/internal/core/ports"
	"crashmap/internal/shared/observability"
	"crashmap/internal/shared/util"
)

// StandardReporter writes each processed crash log, with resolved package
// paths rewritten to source paths, to outDir/<destPath>.
type StandardReporter struct {
	outDir string
}

func NewStandardReporter(outDir string) *StandardReporter {
	return &StandardReporter{outDir: outDir}
}

func (r *StandardReporter) Name() string {
	return "standard"
}

// Report writes every document that has a destination path. Documents
// without one are logged and skipped. Write failures do not stop the
// remaining documents; they are joined into the returned error.
func (r *StandardReporter) Report(ctx context.Context, docs []ports.ReportDocument) ([]string, error) {
	var written []string
	var errs []error
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		dest, ok := doc.DestPath()
		if !ok {
			slog.Error("could not compute destPath", "path", doc.SrcPath())
			continue
		}

		for _, ref := range doc.References() {
			if ref.Resolved() {
				slog.Debug("replaced", "reference", ref.PkgLocation.Path, "line", ref.PkgLocation.Line+1, "source", ref.SrcLocation.Path)
			} else {
				slog.Debug("not replaced", "reference", ref.PkgLocation.Path, "line", ref.PkgLocation.Line+1)
			}
		}

		outPath := filepath.Join(r.outDir, dest)
		if err := util.WriteStringWithDirs(outPath, doc.Render(), 0o644); err != nil {
			errs = append(errs, fmt.Errorf("write %q: %w", outPath, err))
			continue
		}
		observability.ReportsWrittenTotal.WithLabelValues(r.Name()).Inc()
		written = append(written, outPath)
	}
	return written, errors.Join(errs...)
}
