package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watch calls fn after every change of file until ctx is done.
func watch(ctx context.Context, file string, debounce time.Duration, fn func()) error {
	w, err := newWatcher(file)
	if err != nil {
		return err
	}
	defer w.Close()
	slog.Info("watching schema document", "path", file)
	watchLoop(ctx, w, file, debounce, fn)
	return nil
}

// newWatcher watches the directory of file. Editors saving atomically
// replace the file, which a watch on the file itself would lose.
func newWatcher(file string) (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch directory: %w", err)
	}
	return w, nil
}

func watchLoop(ctx context.Context, w *fsnotify.Watcher, file string, debounce time.Duration, fn func()) {
	var (
		name  = filepath.Base(file)
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			slog.Debug("schema document changed", "event", event.Op.String(), "file", event.Name)
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			fn()
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			slog.Error("file watcher error", "error", err)
		}
	}
}
