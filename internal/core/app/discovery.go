package app

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"crashmap/internal/core/errors"
	"crashmap/internal/shared/util"

	"github.com/bmatcuk/doublestar/v4"
)

// DiscoverCrashLogs expands the crash log globs relative to the working
// directory. Matches keep glob order, duplicates are dropped, and files
// that hit a "!" pattern, an exclude glob or the output directory are left
// out. Zip archives are returned as-is; ProcessFiles expands them.
func (a *App) DiscoverCrashLogs(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	files := make([]string, 0)
	for _, pattern := range a.includes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, errors.AddContext(
				errors.Wrap(err, errors.CodeValidationError, "invalid crashlog glob"),
				errors.CtxPath, pattern)
		}
		for _, match := range matches {
			path := filepath.Clean(match)
			if seen[path] || a.skipDiscovered(path) {
				continue
			}
			seen[path] = true
			files = append(files, path)
		}
	}
	return files, nil
}

// MatchesCrashLog reports whether path would be picked up by discovery.
func (a *App) MatchesCrashLog(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	if a.skipDiscovered(abs) {
		return false
	}
	return matchAny(a.includes, abs)
}

func (a *App) skipDiscovered(path string) bool {
	if util.HasPathPrefix(path, a.paths.OutDir) && a.paths.OutDir != a.paths.Cwd {
		return true
	}
	if matchAny(a.negations, path) {
		return true
	}
	if a.excludes.ExcludesFile(path) {
		return true
	}
	return a.excludedByDir(path)
}

// excludedByDir checks the directories between the working directory and
// path. Files outside the working directory only have their parent checked.
func (a *App) excludedByDir(path string) bool {
	dir := filepath.Dir(path)
	rel, err := filepath.Rel(a.paths.Cwd, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return a.excludes.ExcludesDir(dir)
	}
	if rel == "." {
		return false
	}
	current := a.paths.Cwd
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		current = filepath.Join(current, part)
		if a.excludes.ExcludesDir(current) {
			return true
		}
	}
	return false
}

// WatchRoots returns the existing static base directory of every inclusion
// glob, with roots nested in another root removed.
func (a *App) WatchRoots() []string {
	candidates := make([]string, 0, len(a.includes))
	for _, pattern := range a.includes {
		base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
		dir := filepath.FromSlash(base)
		if !util.IsDir(dir) {
			slog.Warn("crashlog glob base is not a directory, not watching", "path", dir)
			continue
		}
		candidates = append(candidates, filepath.Clean(dir))
	}

	roots := make([]string, 0, len(candidates))
	for i, candidate := range candidates {
		nested := false
		for j, other := range candidates {
			if i == j {
				continue
			}
			if candidate == other {
				nested = j < i
			} else if util.HasPathPrefix(candidate, other) {
				nested = true
			}
			if nested {
				break
			}
		}
		if !nested {
			roots = append(roots, candidate)
		}
	}
	return roots
}

func absolutePatterns(cwd string, patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if filepath.IsAbs(pattern) {
			out = append(out, filepath.Clean(pattern))
			continue
		}
		out = append(out, filepath.Join(cwd, pattern))
	}
	return out
}

func matchAny(patterns []string, path string) bool {
	name := filepath.ToSlash(path)
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(filepath.ToSlash(pattern), name); err == nil && ok {
			return true
		}
	}
	return false
}
