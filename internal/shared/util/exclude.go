package util

import (
	"path/filepath"

	"github.com/gobwas/glob"
)

// ExcludeMatcher decides whether directories and files are skipped during
// discovery and watching. Patterns without a separator match the base name;
// patterns with one match the slash-normalized path.
type ExcludeMatcher struct {
	dirs  []excludePattern
	files []excludePattern
}

type excludePattern struct {
	glob     glob.Glob
	pathWide bool
}

// NewExcludeMatcher compiles the directory and file exclude globs.
func NewExcludeMatcher(dirs, files []string) (*ExcludeMatcher, error) {
	compiledDirs, err := compileExcludes(dirs)
	if err != nil {
		return nil, err
	}
	compiledFiles, err := compileExcludes(files)
	if err != nil {
		return nil, err
	}
	return &ExcludeMatcher{dirs: compiledDirs, files: compiledFiles}, nil
}

func compileExcludes(patterns []string) ([]excludePattern, error) {
	compiled := make([]excludePattern, 0, len(patterns))
	for _, pattern := range patterns {
		if ContainsPathSeparator(pattern) {
			g, err := glob.Compile(NormalizePatternPath(pattern), '/')
			if err != nil {
				return nil, err
			}
			compiled = append(compiled, excludePattern{glob: g, pathWide: true})
			continue
		}
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, excludePattern{glob: g})
	}
	return compiled, nil
}

// ExcludesDir reports whether the directory at path should be skipped.
func (m *ExcludeMatcher) ExcludesDir(path string) bool {
	if m == nil {
		return false
	}
	return matchExcludes(m.dirs, path)
}

// ExcludesFile reports whether the file at path should be skipped.
func (m *ExcludeMatcher) ExcludesFile(path string) bool {
	if m == nil {
		return false
	}
	return matchExcludes(m.files, path)
}

func matchExcludes(patterns []excludePattern, path string) bool {
	if len(patterns) == 0 {
		return false
	}
	base := filepath.Base(path)
	normalized := NormalizePatternPath(path)
	for _, p := range patterns {
		if p.pathWide {
			if p.glob.Match(normalized) {
				return true
			}
			continue
		}
		if p.glob.Match(base) {
			return true
		}
	}
	return false
}
