package tags

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"firestige.xyz/pktpeek/internal/core"
	"firestige.xyz/pktpeek/internal/log"
)

const defaultDebounce = 200 * time.Millisecond

// Watcher serves names from a tag file and reloads it when the file changes.
// A failed reload keeps the previous registry.
type Watcher struct {
	path     string
	current  atomic.Pointer[Registry]
	reloads  atomic.Uint64
	debounce time.Duration
}

// NewWatcher loads path once. Call Run to follow changes.
func NewWatcher(path string) (*Watcher, error) {
	reg, err := Load(path)
	if err != nil {
		return nil, err
	}
	w := &Watcher{path: filepath.Clean(path), debounce: defaultDebounce}
	w.current.Store(reg)
	return w, nil
}

// Name resolves tag against the latest loaded registry.
func (w *Watcher) Name(dir core.Direction, tag byte) (string, bool) {
	return w.current.Load().Name(dir, tag)
}

// Reloads returns how many successful reloads happened since NewWatcher.
func (w *Watcher) Reloads() uint64 {
	return w.reloads.Load()
}

// Run watches the file's directory, so editors that replace the file by
// rename are followed too. It returns when ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create tag file watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	logger := log.GetLogger().WithField("tags_file", w.path)
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.WithError(err).Warn("tag file watcher error")

		case <-timer.C:
			reg, err := Load(w.path)
			if err != nil {
				logger.WithError(err).Warn("tag file reload failed, keeping previous names")
				continue
			}
			w.current.Store(reg)
			w.reloads.Add(1)
			logger.Infof("reloaded %d tag name(s)", reg.Len())
		}
	}
}
