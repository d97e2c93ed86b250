package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rubiojr/fingertips/pkg/log"
)

const reloadDelay = 250 * time.Millisecond

// Watch reloads the catalog whenever one of the helper JSON files changes
// and passes it to onChange. Bursts of events are coalesced. Watch blocks
// until ctx is done. Reload failures are logged and the previous catalog
// stays in use.
func Watch(ctx context.Context, store *Store, onChange func(*Catalog)) error {
	l := log.ForService("catalog")

	if err := os.MkdirAll(store.Dir(), 0755); err != nil {
		return fmt.Errorf("creating helpers directory: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() {
		_ = w.Close()
	}()
	if err := w.Add(store.Dir()); err != nil {
		return fmt.Errorf("watching %s: %w", store.Dir(), err)
	}

	var (
		timer  *time.Timer
		reload <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !isHelperEvent(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDelay)
			} else {
				timer.Reset(reloadDelay)
			}
			reload = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.Warnf("watcher error: %v", err)
		case <-reload:
			reload = nil
			c, err := store.Load()
			if err != nil {
				l.Warnf("reloading helper files: %v", err)
				continue
			}
			l.Infof("helper files changed, catalog reloaded")
			onChange(c)
		}
	}
}

func isHelperEvent(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	switch filepath.Base(ev.Name) {
	case IndicatorsFile, AreasFile, IndexFile:
		return true
	}
	return false
}
