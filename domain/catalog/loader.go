package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk shape of a catalog override
type catalogFile struct {
	NodeTypes []NodeType `yaml:"nodeTypes"`
}

// LoadFile reads a catalog from a YAML file. Entries are merged over the
// compiled-in defaults, so a file only needs to list the types it changes.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	merged := append(Default().Types(), file.NodeTypes...)
	return New(merged), nil
}

// Watcher keeps a catalog in sync with its backing file. Readers get the
// current snapshot via Current; reloads swap the snapshot atomically.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	stopCh   chan struct{}
	onReload []func(*Catalog)

	mu      sync.RWMutex
	current *Catalog
}

// NewWatcher loads the catalog at path and begins tracking the file for
// changes. Call Start to begin delivery and Stop to release the watcher.
func NewWatcher(path string, logger *zap.Logger) (*Watcher, error) {
	current, err := LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial catalog: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch catalog file: %w", err)
	}

	// Watch the directory too: editors and config pushes often replace the
	// file with a rename instead of writing in place.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		logger.Warn("Failed to watch catalog directory", zap.Error(err))
	}

	return &Watcher{
		path:    path,
		watcher: fw,
		logger:  logger,
		stopCh:  make(chan struct{}),
		current: current,
	}, nil
}

// Current returns the latest catalog snapshot
func (w *Watcher) Current() *Catalog {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnReload registers a callback invoked after each successful reload
func (w *Watcher) OnReload(fn func(*Catalog)) {
	w.onReload = append(w.onReload, fn)
}

// Start begins watching for catalog changes
func (w *Watcher) Start() {
	go w.watchLoop()
	w.logger.Info("Catalog watcher started", zap.String("path", w.path))
}

// Stop stops watching for catalog changes
func (w *Watcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
	w.logger.Info("Catalog watcher stopped")
}

func (w *Watcher) watchLoop() {
	var debounceTimer *time.Timer
	debounceDuration := 100 * time.Millisecond

	for {
		select {
		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, w.reload)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Catalog watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	w.logger.Info("Catalog file changed, reloading", zap.String("path", w.path))

	next, err := LoadFile(w.path)
	if err != nil {
		w.logger.Error("Failed to reload catalog, keeping current", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.current = next
	w.mu.Unlock()

	for _, fn := range w.onReload {
		fn(next)
	}

	w.logger.Info("Catalog reloaded", zap.Int("nodeTypes", len(next.Types())))
}
