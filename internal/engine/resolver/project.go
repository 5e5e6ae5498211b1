package resolver

import (
	"context"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"crashmap/internal/core/errors"
	"crashmap/internal/core/ports"
	"crashmap/internal/engine/parser"
	"crashmap/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const manifestFileName = "manifest"

var (
	// "[prefix:]path". The prefix needs at least two characters so a Windows
	// drive letter ("C:/projects/app") stays part of the path.
	projectSpecPattern = regexp.MustCompile(`^(.{2,999}?):(.*)$`)

	// Manifest entry naming the component library this project provides.
	componentLibPattern = regexp.MustCompile(`(?m)^\s*sg_component_libs_provided\s*=\s*(.*)$`)
)

// SourceProject is one configured source directory, addressed from crash logs
// through its package prefix.
type SourceProject struct {
	spec    string
	srcPath string
	fs      ports.FileSystem
	maps    *SourceMapCache

	loadOnce sync.Once
	mu       sync.RWMutex
	prefix   Prefix
}

// NewSourceProject parses a "[prefix:]path" spec. Relative paths resolve
// against cwd. No disk access happens until Load.
func NewSourceProject(spec, cwd string, fs ports.FileSystem, maps *SourceMapCache) *SourceProject {
	p := &SourceProject{spec: spec, fs: fs, maps: maps}

	path := spec
	if m := projectSpecPattern.FindStringSubmatch(spec); m != nil {
		p.prefix = ExplicitPrefix(m[1])
		path = m[2]
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(cwd, path)
	}
	p.srcPath = filepath.Clean(path)
	return p
}

func (p *SourceProject) Spec() string {
	return p.spec
}

func (p *SourceProject) SrcPath() string {
	return p.srcPath
}

func (p *SourceProject) Prefix() Prefix {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.prefix
}

// Load settles the prefix: an explicit prefix is kept, otherwise the
// manifest's sg_component_libs_provided value, otherwise DefaultPrefix. Only
// the first call does any work.
func (p *SourceProject) Load(ctx context.Context) {
	p.loadOnce.Do(func() {
		_, span := observability.Tracer.Start(ctx, "SourceProject.Load",
			trace.WithAttributes(attribute.String("project", p.srcPath)))
		defer span.End()

		p.mu.Lock()
		defer p.mu.Unlock()
		if p.prefix.IsExplicit() {
			return
		}
		value := p.manifestPrefix()
		if value == "" {
			value = DefaultPrefix
		}
		p.prefix = resolvedPrefix(value)
		slog.Debug("project loaded", "project", p.srcPath, "prefix", value)
	})
}

func (p *SourceProject) manifestPrefix() string {
	manifestPath := filepath.Join(p.srcPath, manifestFileName)
	if !p.fs.Exists(manifestPath) {
		return ""
	}
	text, err := p.fs.ReadText(manifestPath)
	if err != nil {
		slog.Warn("failed to read manifest", "path", manifestPath, "error", err)
		return ""
	}
	m := componentLibPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// DestPath rewrites a package path ("pkg:/source/main.brs") into this
// project's directory. It reports false when the path uses another prefix.
func (p *SourceProject) DestPath(pkgPath string) (string, bool) {
	prefix, ok := p.Prefix().Value()
	if !ok {
		return "", false
	}
	head := prefix + ":"
	if len(pkgPath) < len(head) || !strings.EqualFold(pkgPath[:len(head)], head) {
		return "", false
	}
	rest := filepath.FromSlash(pkgPath[len(head):])
	return filepath.Clean(p.srcPath + string(filepath.Separator) + rest), true
}

// OriginalLocation maps a package location to its source location. A
// sourcemap next to the destination file wins; without one, an existing
// destination file maps 1:1. A nil location means this project cannot
// resolve it; errors come only from unreadable or corrupt sourcemaps.
func (p *SourceProject) OriginalLocation(ctx context.Context, loc parser.Location) (*parser.Location, error) {
	p.Load(ctx)

	destPath, ok := p.DestPath(loc.Path)
	if !ok {
		return nil, nil
	}

	mapPath := destPath + ".map"
	if p.fs.Exists(mapPath) {
		sm, err := p.maps.Get(ctx, mapPath)
		if err != nil {
			// The cached error is shared; wrap it rather than adding context to it.
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeOf(err), "sourcemap unavailable"), errors.CtxProject, p.srcPath)
		}
		pos, found := sm.OriginalPositionFor(loc.Line+1, loc.Character)
		if !found {
			return nil, nil
		}
		line := pos.Line - 1
		if line < 0 {
			line = 0
		}
		return &parser.Location{
			Path:      sourcePath(mapPath, pos.Source),
			Line:      line,
			Character: pos.Column,
		}, nil
	}
	p.maps.MarkMissing(mapPath)

	if p.fs.Exists(destPath) {
		return &parser.Location{Path: destPath, Line: loc.Line, Character: loc.Character}, nil
	}
	return nil, nil
}

// sourcePath resolves a sourcemap source entry against the map's directory.
func sourcePath(mapPath, source string) string {
	source = filepath.FromSlash(source)
	if filepath.IsAbs(source) {
		return filepath.Clean(source)
	}
	return filepath.Join(filepath.Dir(mapPath), source)
}
