package ports

import (
	"context"

	"crashmap/internal/engine/parser"
	"crashmap/internal/engine/platform"
)

// FileSystem abstracts the disk reads needed to resolve package paths:
// manifests, sourcemaps and plain destination files.
type FileSystem interface {
	Exists(path string) bool
	ReadText(path string) (string, error)
}

// LocationResolver maps a package location to every source location the
// configured projects can produce, in configuration order. An empty result
// means the location is unresolved.
type LocationResolver interface {
	OriginalLocations(ctx context.Context, loc parser.Location) []parser.Location
}

// PlatformIdentifier looks up a hardware platform by its device code name.
type PlatformIdentifier interface {
	Identify(codeName string) platform.Platform
}

// ReportDocument is the read-only view of a processed crash log that
// reporters consume.
type ReportDocument interface {
	SrcPath() string
	Text() string
	DestPath() (string, bool)
	References() []*parser.FileReference
	CrashReports() []parser.CrashReport
	Render() string
}

// Reporter turns processed documents into output files and returns the paths
// it wrote.
type Reporter interface {
	Name() string
	Report(ctx context.Context, docs []ReportDocument) ([]string, error)
}
