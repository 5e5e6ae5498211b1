package resolver

import (
	"context"
	"log/slog"
	"sync"

	"crashmap/internal/core/errors"
	"crashmap/internal/core/ports"
	"crashmap/internal/shared/observability"

	"golang.org/x/sync/singleflight"
)

type cacheEntry struct {
	sourceMap *SourceMap
	err       error
}

// SourceMapCache memoizes parsed sourcemaps by map path. Each path is read
// and parsed at most once; concurrent first lookups share the in-flight load.
// Failed loads are memoized too.
type SourceMapCache struct {
	fs      ports.FileSystem
	group   singleflight.Group
	mu      sync.RWMutex
	entries map[string]cacheEntry
	missing map[string]struct{}
	loads   int
}

func NewSourceMapCache(fs ports.FileSystem) *SourceMapCache {
	return &SourceMapCache{
		fs:      fs,
		entries: make(map[string]cacheEntry),
		missing: make(map[string]struct{}),
	}
}

// Get returns the sourcemap stored at mapPath. Callers check that the file
// exists first; a missing file surfaces as a read error here.
func (c *SourceMapCache) Get(ctx context.Context, mapPath string) (*SourceMap, error) {
	if entry, ok := c.lookup(mapPath); ok {
		return entry.sourceMap, entry.err
	}

	v, _, _ := c.group.Do(mapPath, func() (interface{}, error) {
		// A load may have finished between lookup and Do.
		if entry, ok := c.lookup(mapPath); ok {
			return entry, nil
		}
		entry := c.load(ctx, mapPath)
		c.mu.Lock()
		c.entries[mapPath] = entry
		c.loads++
		c.mu.Unlock()
		return entry, nil
	})
	entry := v.(cacheEntry)
	return entry.sourceMap, entry.err
}

func (c *SourceMapCache) lookup(mapPath string) (cacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[mapPath]
	return entry, ok
}

func (c *SourceMapCache) load(ctx context.Context, mapPath string) cacheEntry {
	_, span := observability.Tracer.Start(ctx, "SourceMapCache.load")
	defer span.End()

	text, err := c.fs.ReadText(mapPath)
	if err != nil {
		observability.SourceMapLoadsTotal.WithLabelValues(observability.SourceMapError).Inc()
		slog.Warn("failed to read sourcemap", "path", mapPath, "error", err)
		return cacheEntry{err: errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "failed to read sourcemap"), errors.CtxPath, mapPath)}
	}
	sm, err := ParseSourceMap([]byte(text))
	if err != nil {
		observability.SourceMapLoadsTotal.WithLabelValues(observability.SourceMapError).Inc()
		slog.Warn("failed to parse sourcemap", "path", mapPath, "error", err)
		return cacheEntry{err: errors.AddContext(errors.Wrap(err, errors.CodeParseError, "failed to parse sourcemap"), errors.CtxPath, mapPath)}
	}
	observability.SourceMapLoadsTotal.WithLabelValues(observability.SourceMapLoaded).Inc()
	slog.Debug("loaded sourcemap", "path", mapPath)
	return cacheEntry{sourceMap: sm}
}

// MarkMissing records that no sourcemap exists at mapPath. The missing
// counter moves once per path.
func (c *SourceMapCache) MarkMissing(mapPath string) {
	c.mu.Lock()
	_, seen := c.missing[mapPath]
	c.missing[mapPath] = struct{}{}
	c.mu.Unlock()
	if !seen {
		observability.SourceMapLoadsTotal.WithLabelValues(observability.SourceMapMissing).Inc()
	}
}

// Loads reports how many distinct load attempts have been made.
func (c *SourceMapCache) Loads() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loads
}

// Len reports the number of memoized paths.
func (c *SourceMapCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
