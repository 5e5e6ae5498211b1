package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"crashmap/internal/core/ports"
	"crashmap/internal/engine/parser"
	"crashmap/internal/engine/platform"
	"crashmap/internal/shared/observability"
	"crashmap/internal/shared/util"
)

// JSONReporter writes outDir/<destPath>.json with the parsed crash reports,
// identified hardware platforms and every reference of a document.
type JSONReporter struct {
	outDir    string
	runID     string
	platforms ports.PlatformIdentifier
	now       func() time.Time
}

// NewJSONReporter uses the built-in platform table when platforms is nil.
func NewJSONReporter(outDir, runID string, platforms ports.PlatformIdentifier) *JSONReporter {
	if platforms == nil {
		platforms = platform.Default
	}
	return &JSONReporter{
		outDir:    outDir,
		runID:     runID,
		platforms: platforms,
		now:       time.Now,
	}
}

func (r *JSONReporter) Name() string {
	return "json"
}

type jsonDocument struct {
	RunID        string                   `json:"runId"`
	GeneratedAt  time.Time                `json:"generatedAt"`
	SrcPath      string                   `json:"srcPath"`
	DestPath     string                   `json:"destPath"`
	Stats        jsonStats                `json:"stats"`
	CrashReports []jsonCrashReport        `json:"crashReports"`
	References   []*parser.FileReference `json:"references"`
}

type jsonStats struct {
	References   int `json:"references"`
	Resolved     int `json:"resolved"`
	Unresolved   int `json:"unresolved"`
	CrashReports int `json:"crashReports"`
}

type jsonCrashReport struct {
	parser.CrashReport
	Platforms []jsonPlatformCount `json:"platforms"`
}

type jsonPlatformCount struct {
	Count    int               `json:"count"`
	Platform platform.Platform `json:"platform"`
}

func (r *JSONReporter) Report(ctx context.Context, docs []ports.ReportDocument) ([]string, error) {
	var written []string
	var errs []error
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		dest, ok := doc.DestPath()
		if !ok {
			continue
		}

		data, err := json.MarshalIndent(r.build(doc, dest), "", "  ")
		if err != nil {
			errs = append(errs, fmt.Errorf("encode %q: %w", doc.SrcPath(), err))
			continue
		}
		outPath := filepath.Join(r.outDir, dest+".json")
		if err := util.WriteFileWithDirs(outPath, append(data, '\n'), 0o644); err != nil {
			errs = append(errs, fmt.Errorf("write %q: %w", outPath, err))
			continue
		}
		observability.ReportsWrittenTotal.WithLabelValues(r.Name()).Inc()
		written = append(written, outPath)
	}
	return written, errors.Join(errs...)
}

func (r *JSONReporter) build(doc ports.ReportDocument, dest string) jsonDocument {
	refs := doc.References()
	if refs == nil {
		refs = []*parser.FileReference{}
	}
	out := jsonDocument{
		RunID:        r.runID,
		GeneratedAt:  r.now().UTC(),
		SrcPath:      doc.SrcPath(),
		DestPath:     dest,
		CrashReports: make([]jsonCrashReport, 0, len(doc.CrashReports())),
		References:   refs,
	}

	for _, ref := range refs {
		out.Stats.References++
		if ref.Resolved() {
			out.Stats.Resolved++
		}
	}
	out.Stats.Unresolved = out.Stats.References - out.Stats.Resolved

	for _, report := range doc.CrashReports() {
		platforms := make([]jsonPlatformCount, 0, len(report.Count.Details))
		for _, detail := range report.Count.Details {
			platforms = append(platforms, jsonPlatformCount{
				Count:    detail.Count,
				Platform: r.platforms.Identify(detail.HardwarePlatform),
			})
		}
		out.CrashReports = append(out.CrashReports, jsonCrashReport{CrashReport: report, Platforms: platforms})
	}
	out.Stats.CrashReports = len(out.CrashReports)
	return out
}
