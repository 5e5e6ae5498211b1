package app

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"crashmap/internal/core/errors"
	"crashmap/internal/shared/util"
)

func isZip(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".zip")
}

// expandArchives replaces every zip archive in paths with the regular files
// it contains. Archives are extracted to <outDir>/<archive file name>;
// archives found inside archives are expanded too.
func (a *App) expandArchives(ctx context.Context, paths []string) ([]string, error) {
	seen := make(map[string]bool, len(paths))
	queue := append([]string(nil), paths...)
	files := make([]string, 0, len(paths))

	for i := 0; i < len(queue); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := queue[i]
		if seen[path] {
			continue
		}
		seen[path] = true

		if !isZip(path) {
			files = append(files, path)
			continue
		}

		dest := filepath.Join(a.paths.OutDir, filepath.Base(path))
		extracted, err := extractZip(path, dest)
		if err != nil {
			slog.Warn("failed to extract zip archive", "path", path, "error", err)
			continue
		}
		slog.Debug("extracted zip archive", "path", path, "dest", dest, "files", len(extracted))
		queue = append(queue, extracted...)
	}
	return files, nil
}

// extractZip writes the regular files of the archive at src below dest and
// returns their paths in archive order. Entries that would land outside dest
// fail the whole archive.
func extractZip(src, dest string) ([]string, error) {
	r, err := zip.OpenReader(src)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeParseError, "open zip archive"), errors.CtxPath, src)
	}
	defer r.Close()

	files := make([]string, 0, len(r.File))
	for _, f := range r.File {
		target := filepath.Join(dest, filepath.FromSlash(f.Name))
		if !util.HasPathPrefix(target, dest) || target == filepath.Clean(dest) {
			return nil, errors.AddContext(
				errors.Newf(errors.CodePermissionDenied, "zip entry %q escapes the extraction directory", f.Name),
				errors.CtxPath, src)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, err
			}
			continue
		}
		if !f.Mode().IsRegular() {
			continue
		}
		if err := writeZipEntry(f, target); err != nil {
			return nil, err
		}
		files = append(files, target)
	}
	return files, nil
}

func writeZipEntry(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open zip entry %q: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return fmt.Errorf("extract zip entry %q: %w", f.Name, err)
	}
	return out.Close()
}
