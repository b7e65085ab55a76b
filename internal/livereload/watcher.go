// internal/livereload/watcher.go
package livereload

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webbridge/internal/config"
)

// ReloadFunc is called once per burst of file changes.
type ReloadFunc func(ctx context.Context) error

// Watcher reloads the web view when files under the watched paths change.
// Bursts of changes within the debounce window collapse into one reload.
type Watcher struct {
	logger   *zap.Logger
	paths    []string
	debounce time.Duration
	reload   ReloadFunc

	mu      sync.Mutex
	timer   *time.Timer
	pending []string
	wg      sync.WaitGroup
}

// New creates a watcher for the configured paths. Nothing is watched until
// Run is called.
func New(cfg config.LiveReloadConfig, reload ReloadFunc, logger *zap.Logger) (*Watcher, error) {
	if reload == nil {
		return nil, fmt.Errorf("reload function is required")
	}
	if len(cfg.Paths) == 0 {
		return nil, fmt.Errorf("livereload requires at least one path")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	paths := make([]string, 0, len(cfg.Paths))
	for _, p := range cfg.Paths {
		expanded, err := homedir.Expand(p)
		if err != nil {
			return nil, fmt.Errorf("failed to expand watch path '%s': %w", p, err)
		}
		paths = append(paths, filepath.Clean(expanded))
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}

	return &Watcher{
		logger:   logger.Named("livereload"),
		paths:    paths,
		debounce: debounce,
		reload:   reload,
	}, nil
}

// Run watches until ctx is canceled. Directories are watched recursively as
// they exist at start; new subdirectories are added when they appear.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	for _, p := range w.paths {
		if err := w.addTree(fsw, p); err != nil {
			return err
		}
	}
	w.logger.Info("Live reload enabled.", zap.Strings("paths", w.paths), zap.Duration("debounce", w.debounce))

	defer w.stop()
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, fsw, ev)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("File watcher error.", zap.Error(err))
		}
	}
}

func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("watch path '%s': %w", root, err)
	}
	if !info.IsDir() {
		return fsw.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch dir '%s': %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) handle(ctx context.Context, fsw *fsnotify.Watcher, ev fsnotify.Event) {
	if ev.Op == fsnotify.Chmod {
		return
	}
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(fsw, ev.Name); err != nil {
				w.logger.Warn("Could not watch new directory.", zap.String("path", ev.Name), zap.Error(err))
			}
		}
	}
	w.schedule(ctx, ev.Name)
}

// schedule (re)arms the debounce timer.
func (w *Watcher) schedule(ctx context.Context, name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = append(w.pending, name)
	if w.timer != nil && w.timer.Stop() {
		// The stopped callback never ran; release its slot.
		w.wg.Done()
	}
	w.wg.Add(1)
	w.timer = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		w.fire(ctx)
	})
}

func (w *Watcher) fire(ctx context.Context) {
	w.mu.Lock()
	changed := w.pending
	w.pending = nil
	w.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	w.logger.Info("Content changed, reloading.", zap.Int("changes", len(changed)), zap.Strings("files", changed))
	if err := w.reload(ctx); err != nil {
		w.logger.Error("Live reload failed.", zap.Error(err))
	}
}

// stop cancels a pending reload and waits for a running one.
func (w *Watcher) stop() {
	w.mu.Lock()
	if w.timer != nil && w.timer.Stop() {
		w.wg.Done()
	}
	w.timer = nil
	w.pending = nil
	w.mu.Unlock()
	w.wg.Wait()
}
