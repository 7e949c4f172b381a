package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"reflect"

	"github.com/fsnotify/fsnotify"
)

// Diff lists the top-level sections that differ between prev and next.
// live holds sections a running server applies on reload; restart holds
// those that need a restart (dataset path and server).
func Diff(prev, next *Config) (live, restart []string) {
	if prev == nil || next == nil {
		return nil, nil
	}
	if !reflect.DeepEqual(prev.Baseline, next.Baseline) {
		live = append(live, "baseline")
	}
	if !reflect.DeepEqual(prev.Scoring, next.Scoring) {
		live = append(live, "scoring")
	}
	if !reflect.DeepEqual(prev.Groups, next.Groups) {
		live = append(live, "groups")
	}
	if !reflect.DeepEqual(prev.Filter, next.Filter) {
		live = append(live, "filter")
	}
	if !reflect.DeepEqual(prev.Export, next.Export) {
		live = append(live, "export")
	}
	if !reflect.DeepEqual(prev.Alerts, next.Alerts) {
		live = append(live, "alerts")
	}
	if prev.Dataset.Path != next.Dataset.Path {
		restart = append(restart, "dataset.path")
	}
	if !reflect.DeepEqual(prev.Dataset.Columns, next.Dataset.Columns) ||
		prev.Dataset.ElapsedToken != next.Dataset.ElapsedToken {
		live = append(live, "dataset")
	}
	if prev.Server != next.Server {
		restart = append(restart, "server")
	}
	return live, restart
}

// Watch monitors path and calls onChange with the reloaded Config whenever
// a write changes at least one section. It runs until ctx is cancelled.
//
// The parent directory is watched so editors that save by rename are
// followed. A reload that fails to parse or validate is logged and skipped;
// the previous config stays in effect.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	current, err := Load(abs)
	if err != nil {
		slog.Warn("config: initial load failed, next valid write will apply", "path", abs, "err", err)
		current = nil
	}
	slog.Info("config: watching for changes", "path", abs)

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
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			next, err := Load(abs)
			if err != nil {
				slog.Error("config: reload failed, keeping previous config", "path", abs, "err", err)
				continue
			}

			live, restart := Diff(current, next)
			if current != nil && len(live) == 0 && len(restart) == 0 {
				slog.Debug("config: file rewritten without changes", "path", abs)
				continue
			}
			if len(restart) > 0 {
				slog.Warn("config: some changes need a restart", "sections", restart)
			}
			slog.Info("config: reloaded", "path", abs,
				"sections", live,
				"window_days", next.Baseline.WindowDays,
				"threshold", next.Scoring.Threshold)

			current = next
			onChange(next)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}
