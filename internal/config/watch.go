package config

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch hot-reloads the config file into cfg on write events, following the
// teacher's ReplaceFrom pattern. ReplaceFrom holds cfg's lock, so only
// readers that take the same lock are guaranteed a consistent snapshot;
// direct field reads are not synchronized with a reload.
func Watch(path string, cfg *Config) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				next, err := Load(path)
				if err != nil {
					slog.Warn("config reload failed", "error", err)
					continue
				}
				cfg.ReplaceFrom(next)
				slog.Info("config reloaded", "path", path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("config watcher error", "error", err)
			}
		}
	}()

	return watcher, nil
}
