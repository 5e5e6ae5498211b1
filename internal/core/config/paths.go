package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type ResolvedPaths struct {
	Cwd    string
	OutDir string
}

// ResolvePaths makes cwd absolute (defaulting to the process working
// directory) and places out_dir under it.
func ResolvePaths(cfg *Config) (ResolvedPaths, error) {
	cwd := strings.TrimSpace(cfg.Cwd)
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return ResolvedPaths{}, fmt.Errorf("resolve working directory: %w", err)
		}
		cwd = wd
	}
	abs, err := filepath.Abs(cwd)
	if err != nil {
		return ResolvedPaths{}, fmt.Errorf("resolve cwd %q: %w", cwd, err)
	}

	return ResolvedPaths{
		Cwd:    filepath.Clean(abs),
		OutDir: ResolveRelative(abs, cfg.OutDir),
	}, nil
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}
