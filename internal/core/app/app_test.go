package app

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"crashmap/internal/core/config"
	"crashmap/internal/core/errors"
	"crashmap/internal/core/ports"
	"crashmap/internal/engine/parser"
	"crashmap/internal/ui/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pipelineCrashLog = `count   Hardware Platform
-----   -----------------
    2   Austin

count   Application Version
-----   -------------------
    2   4.2.0

Stack Trace
-----------
Divide by Zero. (runtime error &h14) in pkg:/source/main.brs(3)
Backtrace:
#1  Function play() As Void
   file/line: complib1:/components/Player.brs(10)
#0  Function main() As Void
   file/line: pkg:/source/main.brs(3)
Local Variables:
global           Interface:ifGlobal
see also pkg:/source/missing.brs(1)
______________________________________________________________________________
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

// newFixture lays out two projects and a few crash logs below a temp
// working directory.
func newFixture(t *testing.T) (string, *config.Config) {
	t.Helper()
	cwd := t.TempDir()

	writeFile(t, filepath.Join(cwd, "app", "manifest"), "title=My App\n")
	writeFile(t, filepath.Join(cwd, "app", "source", "main.brs"), "sub main()\nend sub\n")
	writeFile(t, filepath.Join(cwd, "lib", "manifest"), "sg_component_libs_provided=complib1\n")
	writeFile(t, filepath.Join(cwd, "lib", "components", "Player.brs"), "sub play()\nend sub\n")

	writeFile(t, filepath.Join(cwd, "logs", "OSCrashes.2023-06-01", "myapp_4.2.txt"), pipelineCrashLog)
	writeFile(t, filepath.Join(cwd, "logs", "OSCrashes.2023-06-01", "myapp_old.txt"), pipelineCrashLog)
	writeFile(t, filepath.Join(cwd, "logs", "loose.txt"), "at pkg:/source/main.brs(2)\n")
	writeFile(t, filepath.Join(cwd, "logs", "skip", "OSCrashes.2023-06-01", "other_1.txt"), pipelineCrashLog)
	writeZip(t, filepath.Join(cwd, "archive.zip"), map[string]string{
		"OSCrashes.2023-07-01/myapp_5.0.txt": "crash at pkg:/source/main.brs(1)\n",
	})

	cfg := config.Default()
	cfg.Cwd = cwd
	cfg.Crashlogs = []string{"logs/**/*.txt", "*.zip", "!logs/skip/**"}
	cfg.Projects = []string{"app", "lib"}
	cfg.Exclude.Files = []string{"*_old.txt"}
	cfg.Resolve.Concurrency = 4
	return cwd, cfg
}

func TestNew_RejectsEmptyCrashlogs(t *testing.T) {
	cfg := config.Default()
	_, err := New(cfg)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
	assert.Contains(t, err.Error(), "crashlogs list may not be empty")

	cfg.Crashlogs = []string{"  ", "!logs/**"}
	_, err = New(cfg)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))

	_, err = New(nil)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestNew_AllowsNoProjects(t *testing.T) {
	cfg := config.Default()
	cfg.Cwd = t.TempDir()
	cfg.Crashlogs = []string{"*.txt"}

	a, err := New(cfg)
	require.NoError(t, err)
	assert.Empty(t, a.Projects())
	assert.Equal(t, filepath.Join(cfg.Cwd, "dist"), a.Paths().OutDir)
	assert.NotEmpty(t, a.RunID())
}

func TestApp_RunFullPipeline(t *testing.T) {
	cwd, cfg := newFixture(t)
	a, err := New(cfg)
	require.NoError(t, err)

	summary, err := a.Run(context.Background())
	require.NoError(t, err)

	outDir := filepath.Join(cwd, "dist")
	first := filepath.Join(outDir, "myapp", "2023-06-01-4.2.txt")
	zipped := filepath.Join(outDir, "myapp", "2023-07-01-5.0.txt")

	assert.Equal(t, a.RunID(), summary.RunID)
	assert.Equal(t, 3, summary.Documents)
	assert.Equal(t, 6, summary.References)
	assert.Equal(t, 5, summary.Resolved)
	assert.Equal(t, 1, summary.Unresolved)
	assert.Equal(t, 1, summary.CrashReports)
	assert.ElementsMatch(t, []string{first, zipped}, summary.Written)
	assert.Equal(t, []string{filepath.Join(cwd, "logs", "loose.txt")}, summary.Skipped)

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	content := string(data)
	mainPath := filepath.Join(cwd, "app", "source", "main.brs")
	playerPath := filepath.Join(cwd, "lib", "components", "Player.brs")
	assert.Contains(t, content, "in "+mainPath+"(3)\n")
	assert.Contains(t, content, "file/line: "+playerPath+"(10)\n")
	assert.Contains(t, content, "file/line: "+mainPath+"(3)\n")
	assert.Contains(t, content, "see also pkg:/source/missing.brs(1)\n")

	data, err = os.ReadFile(zipped)
	require.NoError(t, err)
	assert.Equal(t, "crash at "+mainPath+"(1)\n", string(data))

	// Excluded and negated logs never reach the output.
	_, err = os.Stat(filepath.Join(outDir, "other", "2023-06-01-1.txt"))
	assert.True(t, os.IsNotExist(err))

	doc, ok := a.Document(filepath.Join(cwd, "logs", "OSCrashes.2023-06-01", "myapp_4.2.txt"))
	require.True(t, ok)
	frames := doc.CrashReports()[0].StackFrame
	require.Len(t, frames, 2)
	require.NotNil(t, frames[0].Reference)
	assert.Equal(t, playerPath, frames[0].Reference.SrcLocation.Path)
}

func TestApp_RunCleansOutputDirectory(t *testing.T) {
	cwd, cfg := newFixture(t)
	stale := filepath.Join(cwd, "dist", "stale.txt")
	writeFile(t, stale, "old")

	a, err := New(cfg)
	require.NoError(t, err)
	_, err = a.Run(context.Background())
	require.NoError(t, err)

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}

func TestApp_RunKeepsOutputWhenCleanDisabled(t *testing.T) {
	cwd, cfg := newFixture(t)
	stale := filepath.Join(cwd, "dist", "stale.txt")
	writeFile(t, stale, "old")
	clean := false
	cfg.Output.Clean = &clean

	a, err := New(cfg)
	require.NoError(t, err)
	_, err = a.Run(context.Background())
	require.NoError(t, err)

	_, err = os.Stat(stale)
	assert.NoError(t, err)
}

func TestApp_RunWithJSONOutput(t *testing.T) {
	cwd, cfg := newFixture(t)
	cfg.Output.JSON = true

	a, err := New(cfg)
	require.NoError(t, err)
	summary, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.Contains(t, summary.Written, filepath.Join(cwd, "dist", "myapp", "2023-06-01-4.2.txt.json"))
	assert.Len(t, summary.Written, 4)
}

type failingReporter struct{}

func (failingReporter) Name() string { return "failing" }

func (failingReporter) Report(context.Context, []ports.ReportDocument) ([]string, error) {
	return nil, os.ErrPermission
}

type recordingReporter struct {
	mu   sync.Mutex
	docs []string
}

func (r *recordingReporter) Name() string { return "recording" }

func (r *recordingReporter) Report(_ context.Context, docs []ports.ReportDocument) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range docs {
		r.docs = append(r.docs, doc.SrcPath())
	}
	return nil, nil
}

func TestApp_ReporterFailureStillRunsOtherReporters(t *testing.T) {
	_, cfg := newFixture(t)
	rec := &recordingReporter{}

	a, err := NewWithDependencies(cfg, Dependencies{
		Reporters: []ports.Reporter{failingReporter{}, rec},
	})
	require.NoError(t, err)

	_, err = a.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.Len(t, rec.docs, 3)
}

func TestApp_RunCancelled(t *testing.T) {
	_, cfg := newFixture(t)
	a, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestApp_ProcessFile(t *testing.T) {
	cwd, cfg := newFixture(t)
	a, err := New(cfg)
	require.NoError(t, err)

	path := filepath.Join(cwd, "logs", "OSCrashes.2023-08-01", "myapp_6.0.txt")
	writeFile(t, path, "crash at pkg:/source/main.brs(2)\ncrash at complib1:/components/Gone.brs(2)\n")

	summary, err := a.ProcessFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Documents)
	assert.Equal(t, 1, summary.Resolved)
	assert.Equal(t, 1, summary.Unresolved)
	assert.Equal(t, []string{filepath.Join(cwd, "dist", "myapp", "2023-08-01-6.0.txt")}, summary.Written)
}

func TestApp_OriginalLocationsFollowsConfigurationOrder(t *testing.T) {
	cwd, cfg := newFixture(t)
	writeFile(t, filepath.Join(cwd, "app2", "source", "main.brs"), "sub main()\nend sub\n")
	cfg.Projects = []string{"app", "app2"}

	a, err := New(cfg)
	require.NoError(t, err)
	a.LoadProjects(context.Background())

	locs := a.OriginalLocations(context.Background(), parser.Location{Path: "pkg:/source/main.brs", Line: 1})
	require.Len(t, locs, 2)
	assert.Equal(t, filepath.Join(cwd, "app", "source", "main.brs"), locs[0].Path)
	assert.Equal(t, filepath.Join(cwd, "app2", "source", "main.brs"), locs[1].Path)
}

func TestHealthService_Check(t *testing.T) {
	_, cfg := newFixture(t)
	a, err := New(cfg)
	require.NoError(t, err)
	_, err = a.Run(context.Background())
	require.NoError(t, err)

	status := NewHealthService(a).Check(context.Background())
	assert.Equal(t, "up", status.Status)
	assert.Equal(t, a.RunID(), status.RunID)
	assert.Equal(t, "ok (2/2 loaded)", status.Components["projects"])
	assert.Equal(t, "ok (3 processed)", status.Components["documents"])

	cfg.Projects = nil
	empty, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "degraded", NewHealthService(empty).Check(context.Background()).Status)
}

func TestApp_Watch(t *testing.T) {
	cwd, cfg := newFixture(t)
	cfg.Watch.Debounce = 50 * time.Millisecond

	a, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan report.Summary, 8)
	done := make(chan error, 1)
	go func() {
		done <- a.Watch(ctx, func(s report.Summary) {
			select {
			case updates <- s:
			default:
			}
		})
	}()

	path := filepath.Join(cwd, "logs", "OSCrashes.2023-09-01", "myapp_7.0.txt")
	want := filepath.Join(cwd, "dist", "myapp", "2023-09-01-7.0.txt")

	timeout := time.After(5 * time.Second)
	tick := time.NewTicker(300 * time.Millisecond)
	defer tick.Stop()
	writeFile(t, path, "crash at pkg:/source/main.brs(2)\n")
	for found := false; !found; {
		select {
		case s := <-updates:
			for _, written := range s.Written {
				if written == want {
					found = true
				}
			}
		case <-tick.C:
			// The watcher registers its roots asynchronously; touch the file
			// until an event gets through.
			writeFile(t, path, "crash at pkg:/source/main.brs(2)\n")
		case <-timeout:
			t.Fatal("timed out waiting for watch update")
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
