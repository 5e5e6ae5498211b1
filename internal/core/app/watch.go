package app

import (
	"context"
	"log/slog"
	"time"

	"crashmap/internal/core/watcher"
	"crashmap/internal/shared/util"
	"crashmap/internal/ui/report"
)

// Watch re-processes crash logs that appear or change below the glob roots
// until ctx is cancelled. Each path is throttled by its own rate limiter.
// onUpdate, when set, receives the summary of every batch.
func (a *App) Watch(ctx context.Context, onUpdate func(report.Summary)) error {
	limiters := util.NewLimiterRegistry(a.Config.Watch.Rate, a.Config.Watch.Burst, time.Minute)
	defer limiters.Close()

	w, err := watcher.NewWatcher(a.Config.Watch.Debounce, a.excludes, a.MatchesCrashLog, func(paths []string) {
		a.handleChanges(ctx, limiters, paths, onUpdate)
	})
	if err != nil {
		return err
	}
	defer w.Close()

	roots := a.WatchRoots()
	if err := w.Watch(roots); err != nil {
		return err
	}
	slog.Info("watching for crash logs", "roots", roots)

	<-ctx.Done()
	return nil
}

func (a *App) handleChanges(ctx context.Context, limiters *util.LimiterRegistry, paths []string, onUpdate func(report.Summary)) {
	ready := make([]string, 0, len(paths))
	for _, path := range paths {
		if err := limiters.Get(path).Wait(ctx, 1); err != nil {
			return
		}
		ready = append(ready, path)
	}

	if len(ready) == 0 {
		return
	}

	a.LoadProjects(ctx)
	summary, err := a.ProcessFiles(ctx, ready)
	if err != nil {
		slog.Error("failed to process changed crash logs", "paths", ready, "error", err)
	}
	if onUpdate != nil {
		onUpdate(summary)
	}
}
