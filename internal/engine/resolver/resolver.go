package resolver

import (
	"context"
	"log/slog"

	"crashmap/internal/core/ports"
	"crashmap/internal/engine/parser"

	"golang.org/x/sync/errgroup"
)

// Locator resolves a package location within one project. A nil location
// with a nil error means "not mine".
type Locator interface {
	OriginalLocation(ctx context.Context, loc parser.Location) (*parser.Location, error)
}

// Resolver asks every configured locator about a location in parallel and
// keeps the answers in configuration order.
type Resolver struct {
	locators []Locator
}

func NewResolver(locators ...Locator) *Resolver {
	return &Resolver{locators: locators}
}

// NewProjectResolver builds one SourceProject per spec, in order, sharing
// maps between them.
func NewProjectResolver(specs []string, cwd string, fs ports.FileSystem, maps *SourceMapCache) (*Resolver, []*SourceProject) {
	projects := make([]*SourceProject, 0, len(specs))
	locators := make([]Locator, 0, len(specs))
	for _, spec := range specs {
		p := NewSourceProject(spec, cwd, fs, maps)
		projects = append(projects, p)
		locators = append(locators, p)
	}
	return NewResolver(locators...), projects
}

// LoadProjects loads every project concurrently.
func LoadProjects(ctx context.Context, projects []*SourceProject) {
	var g errgroup.Group
	for _, p := range projects {
		p := p
		g.Go(func() error {
			p.Load(ctx)
			return nil
		})
	}
	_ = g.Wait()
}

// OriginalLocations returns every successful resolution of loc, in
// configuration order. Locator errors are logged and count as no answer.
func (r *Resolver) OriginalLocations(ctx context.Context, loc parser.Location) []parser.Location {
	slots := make([]*parser.Location, len(r.locators))

	var g errgroup.Group
	for i, locator := range r.locators {
		i, locator := i, locator
		g.Go(func() error {
			found, err := locator.OriginalLocation(ctx, loc)
			if err != nil {
				slog.Debug("project could not resolve reference", "reference", loc.Path, "line", loc.Line+1, "error", err)
				return nil
			}
			slots[i] = found
			return nil
		})
	}
	_ = g.Wait()

	out := make([]parser.Location, 0, len(slots))
	for _, found := range slots {
		if found != nil {
			out = append(out, *found)
		}
	}
	return out
}

// Resolve returns the first configured project's answer for loc.
func (r *Resolver) Resolve(ctx context.Context, loc parser.Location) (*parser.Location, bool) {
	locations := r.OriginalLocations(ctx, loc)
	if len(locations) == 0 {
		return nil, false
	}
	first := locations[0]
	return &first, true
}
