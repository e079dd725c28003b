package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/buildplan/buildplan/pkg/telemetry"
)

// DefaultDebounce is how long Watch waits for a burst of events to settle.
const DefaultDebounce = 300 * time.Millisecond

// Watch calls onChange each time one of files is written, created or
// renamed over, until ctx is done. Bursts of events closer than debounce
// collapse into one call. Calls never overlap.
//
// The parent directories are watched rather than the files, so editors
// that save by renaming a temporary file are seen too.
func Watch(ctx context.Context, files []string, debounce time.Duration, onChange func(ctx context.Context)) error {
	if len(files) == 0 {
		return fmt.Errorf("nothing to watch")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := telemetry.FromContext(ctx).NewComponentLogger("watch")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	wanted := make(map[string]bool, len(files))
	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", f, err)
		}
		wanted[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	logger.Infof("Watching %d file(s) for changes", len(wanted))

	var (
		timer   *time.Timer
		trigger <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || !wanted[name] {
				continue
			}
			logger.WithFields(map[string]interface{}{
				"file": name,
				"op":   event.Op.String(),
			}).Debug("File changed")

			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			trigger = timer.C

		case <-trigger:
			trigger = nil
			onChange(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WithError(err).Warn("Watcher error")
		}
	}
}
