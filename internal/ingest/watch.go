package ingest

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long Watch waits after the last write before firing.
// Benchmark jobs append one row per node, so a burst of writes is common.
const DefaultSettle = 2 * time.Second

// Watch calls onChange after the results file at path has been written,
// created or replaced and then left alone for settle. It watches the parent
// directory so the file may be absent at start or be replaced by rename.
// Watch blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, settle time.Duration, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	if settle <= 0 {
		settle = DefaultSettle
	}

	slog.Info("ingest: watching results file", "path", abs, "settle", settle)

	timer := time.NewTimer(settle)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(settle)

		case <-timer.C:
			slog.Debug("ingest: results file changed", "path", abs)
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("ingest: watcher error", "err", err)
		}
	}
}
