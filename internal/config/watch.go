package config

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/betweencoffee/baristaboard/internal/timers"
)

// DefaultReloadDelay coalesces the burst of events an editor save produces.
const DefaultReloadDelay = 250 * time.Millisecond

// Watch reloads the config file whenever it changes and passes the result
// to onChange. The parent directory is watched so that editors replacing
// the file by rename are noticed. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, delay time.Duration, onChange func(Config)) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return err
	}
	if delay <= 0 {
		delay = DefaultReloadDelay
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(resolved)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(resolved), err)
	}

	debounce := timers.NewDebouncer(delay)
	defer debounce.Cancel()

	reload := func() {
		cfg, err := Load(resolved)
		if err != nil {
			log.Printf("config reload failed: %v", err)
			return
		}
		onChange(cfg)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != resolved {
				continue
			}
			if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Rename) {
				debounce.Trigger(reload)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("config watch error: %v", err)
		}
	}
}
