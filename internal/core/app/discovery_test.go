package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"crashmap/internal/core/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverCrashLogs(t *testing.T) {
	cwd, cfg := newFixture(t)
	cfg.Crashlogs = append(cfg.Crashlogs, "logs/OSCrashes.2023-06-01/*.txt")

	a, err := New(cfg)
	require.NoError(t, err)

	files, err := a.DiscoverCrashLogs(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(cwd, "logs", "OSCrashes.2023-06-01", "myapp_4.2.txt"),
		filepath.Join(cwd, "logs", "loose.txt"),
		filepath.Join(cwd, "archive.zip"),
	}, files)
}

func TestDiscoverCrashLogs_ExcludeDirs(t *testing.T) {
	cwd, cfg := newFixture(t)
	cfg.Crashlogs = []string{"logs/**/*.txt"}
	cfg.Exclude.Dirs = []string{"OSCrashes.*"}

	a, err := New(cfg)
	require.NoError(t, err)

	files, err := a.DiscoverCrashLogs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(cwd, "logs", "loose.txt")}, files)
}

func TestDiscoverCrashLogs_InvalidGlob(t *testing.T) {
	cfg := config.Default()
	cfg.Cwd = t.TempDir()
	cfg.Crashlogs = []string{"logs/[.txt"}
	writeFile(t, filepath.Join(cfg.Cwd, "logs", "a.txt"), "x")

	a, err := New(cfg)
	require.NoError(t, err)
	_, err = a.DiscoverCrashLogs(context.Background())
	assert.Error(t, err)
}

func TestMatchesCrashLog(t *testing.T) {
	cwd, cfg := newFixture(t)
	a, err := New(cfg)
	require.NoError(t, err)

	assert.True(t, a.MatchesCrashLog(filepath.Join(cwd, "logs", "OSCrashes.2024-01-01", "app_1.txt")))
	assert.True(t, a.MatchesCrashLog(filepath.Join(cwd, "new.zip")))
	assert.False(t, a.MatchesCrashLog(filepath.Join(cwd, "logs", "notes.md")))
	assert.False(t, a.MatchesCrashLog(filepath.Join(cwd, "logs", "app_old.txt")))
	assert.False(t, a.MatchesCrashLog(filepath.Join(cwd, "logs", "skip", "a.txt")))
	assert.False(t, a.MatchesCrashLog(filepath.Join(cwd, "dist", "logs", "a.txt")))
}

func TestWatchRoots(t *testing.T) {
	cwd, cfg := newFixture(t)
	cfg.Crashlogs = []string{"logs/**/*.txt", "logs/OSCrashes.2023-06-01/*.txt", "missing/*.txt"}

	a, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(cwd, "logs")}, a.WatchRoots())
}

func TestExtractZip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "logs.zip")
	writeZip(t, src, map[string]string{
		"OSCrashes.2023-06-01/app_1.txt": "one",
		"nested/":                        "",
	})

	dest := filepath.Join(dir, "out", "logs.zip")
	files, err := extractZip(src, dest)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dest, "OSCrashes.2023-06-01", "app_1.txt")}, files)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))
	assert.DirExists(t, filepath.Join(dest, "nested"))
}

func TestExtractZip_RejectsEscapingEntries(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "evil.zip")
	writeZip(t, src, map[string]string{"../../evil.txt": "boom"})

	_, err := extractZip(src, filepath.Join(dir, "out", "evil.zip"))
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "evil.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestExpandArchives_Nested(t *testing.T) {
	cwd, cfg := newFixture(t)
	inner := filepath.Join(t.TempDir(), "inner.zip")
	writeZip(t, inner, map[string]string{"OSCrashes.2023-10-01/app_2.txt": "two"})
	innerBytes, err := os.ReadFile(inner)
	require.NoError(t, err)

	outer := filepath.Join(cwd, "outer.zip")
	writeZip(t, outer, map[string]string{
		"inner.zip": string(innerBytes),
		"top.txt":   "top",
	})

	a, err := New(cfg)
	require.NoError(t, err)
	files, err := a.expandArchives(context.Background(), []string{outer, outer})
	require.NoError(t, err)

	outDir := filepath.Join(cwd, "dist")
	assert.ElementsMatch(t, []string{
		filepath.Join(outDir, "outer.zip", "top.txt"),
		filepath.Join(outDir, "inner.zip", "OSCrashes.2023-10-01", "app_2.txt"),
	}, files)
}

func TestSplitPatterns(t *testing.T) {
	includes, negations := splitPatterns([]string{" a/*.txt ", "", "!b/**", "!", "c.zip"})
	assert.Equal(t, []string{"a/*.txt", "c.zip"}, includes)
	assert.Equal(t, []string{"b/**"}, negations)
}
