package resolver

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// Generated lines 1 and 2 map to lines 5 and 10 of main.bs.
const mainSourceMap = `{"version":3,"sources":["../../src/source/main.bs"],"names":[],"mappings":"AAIA;AAKA"}`

type memFS struct {
	mu    sync.Mutex
	files map[string]string
	reads map[string]int
	calls int
}

func newMemFS(files map[string]string) *memFS {
	if files == nil {
		files = map[string]string{}
	}
	return &memFS{files: files, reads: map[string]int{}}
}

func (m *memFS) Exists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	_, ok := m.files[path]
	return ok
}

func (m *memFS) ReadText(path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.reads[path]++
	text, ok := m.files[path]
	if !ok {
		return "", os.ErrNotExist
	}
	return text, nil
}

func (m *memFS) readCount(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads[path]
}

func (m *memFS) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
