package config

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Usoramara/alive-intelligence-v3/internal/logging"
)

// =============================================================================
// CONFIG FILE WATCHER
// =============================================================================

// Watcher watches the config file and re-applies the hot-reloadable subset on
// change. Only the log level is hot today; everything else needs a restart.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	lastSeen time.Time
	onReload func(*Config)
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewWatcher creates a watcher for the given config path. onReload may be nil.
func NewWatcher(path string, onReload func(*Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		path:     path,
		watcher:  fsw,
		debounce: 500 * time.Millisecond, // editors fire several events per save
		onReload: onReload,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching. The containing directory is watched rather than the
// file itself, because editors that write-and-rename would otherwise detach
// the watch on the first save.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	go w.run()
	return nil
}

func (w *Watcher) run() {
	defer close(w.doneCh)
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if time.Since(w.lastSeen) < w.debounce {
				continue
			}
			w.lastSeen = time.Now()
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryBoot).Warnf("config watch error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		logging.Get(logging.CategoryBoot).Warnf("config reload failed, keeping previous: %v", err)
		return
	}
	logging.SetLevel(cfg.Logging.Level)
	logging.Boot("config reloaded, log level now %s", cfg.Logging.Level)
	if w.onReload != nil {
		w.onReload(cfg)
	}
}

// Stop stops the watcher and waits for its goroutine.
func (w *Watcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
	<-w.doneCh
}
