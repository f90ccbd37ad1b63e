package docs

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the burst of events an editor save produces.
const reloadDelay = 100 * time.Millisecond

// Watch reloads the bundle at path whenever it changes and passes the new
// entries to onChange. A bundle that fails to load is logged and ignored,
// leaving the caller on the previous table. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, onChange func([]Entry)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("docs: watch: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors often replace the file instead of
	// writing it in place.
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("docs: watch: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("docs: watch %s: %w", path, err)
	}
	log.Infof("watching documentation bundle %s", abs)

	timer := time.NewTimer(reloadDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				timer.Reset(reloadDelay)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warningf("documentation watcher: %s", err)

		case <-timer.C:
			entries, err := LoadFile(abs)
			if err != nil {
				log.Warningf("keeping previous documentation: %s", err)
				continue
			}
			log.Infof("reloaded %d documentation entries from %s", len(entries), abs)
			onChange(entries)
		}
	}
}
