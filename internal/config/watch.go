package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"bennypowers.dev/vuextract/internal/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce groups bursts of writes editors make when saving.
const DefaultDebounce = 150 * time.Millisecond

// Watcher reloads the project config when one of its files changes.
type Watcher struct {
	root     string
	debounce time.Duration
	onChange func(Config, error)

	watcher *fsnotify.Watcher
	done    chan struct{}

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// Watch starts watching root for config file changes. onChange receives the
// re-resolved config, or the error that prevented reading it.
func Watch(root string, debounce time.Duration, onChange func(Config, error)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		root:     root,
		debounce: debounce,
		onChange: onChange,
		watcher:  fsw,
		done:     make(chan struct{}),
	}

	if err := fsw.Add(root); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", root, err)
	}
	w.watchConfigDir()

	go w.loop()
	log.Info("Watching project config under %s", root)
	return w, nil
}

// watchConfigDir adds .config when it exists; it may appear later
func (w *Watcher) watchConfigDir() {
	dir := filepath.Join(w.root, ".config")
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		if err := w.watcher.Add(dir); err != nil {
			log.Warn("Failed to watch %s: %v", dir, err)
		}
	}
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error("Config watcher error: %v", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Name == filepath.Join(w.root, ".config") && event.Has(fsnotify.Create) {
		w.watchConfigDir()
		return
	}
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || (!slices.Contains(Files, rel) && rel != PackageJSON) {
		return
	}
	log.Debug("Config file event: %s %s", event.Op, event.Name)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	w.mu.Lock()
	stopped := w.stopped
	w.mu.Unlock()
	if stopped {
		return
	}
	cfg, err := Resolve(w.root)
	w.onChange(cfg, err)
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	close(w.done)
	return w.watcher.Close()
}
