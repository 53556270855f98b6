package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"

	"github.com/tristendillon/minibundle/core/logger"
	"github.com/tristendillon/minibundle/core/walker"
)

const DefaultDebounce = 500 * time.Millisecond

type Options struct {
	RootDir  string
	Exclude  []string // relative to RootDir, or absolute
	Debounce time.Duration
}

// Watcher reports changes below a root directory. Bursts of events are
// debounced into one OnChange call, and calls never overlap.
type Watcher struct {
	watcher  *fsnotify.Watcher
	rootDir  string
	dirs     *walker.DirWalker
	debounce time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	changed map[string]struct{}
	group   singleflight.Group

	onStart  func(ctx context.Context) error
	onChange func(ctx context.Context, changed []string) error
	onClose  func() error
}

func New(opts Options) (*Watcher, error) {
	root, err := filepath.Abs(opts.RootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve watch root %s: %w", opts.RootDir, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		watcher:  fsw,
		rootDir:  root,
		dirs:     walker.NewDirWalker(afero.NewOsFs(), root, opts.Exclude),
		debounce: debounce,
		changed:  make(map[string]struct{}),
		onStart:  func(context.Context) error { return nil },
		onChange: func(context.Context, []string) error { return nil },
		onClose:  func() error { return nil },
	}
	logger.Debug("Watcher: Excluding paths: %v", w.dirs.Exclude)
	return w, nil
}

func (w *Watcher) OnStart(fn func(ctx context.Context) error) { w.onStart = fn }

func (w *Watcher) OnChange(fn func(ctx context.Context, changed []string) error) { w.onChange = fn }

func (w *Watcher) OnClose(fn func() error) { w.onClose = fn }

// Watch blocks until ctx is done or the underlying watcher fails.
func (w *Watcher) Watch(ctx context.Context) error {
	if err := w.addRecursively(w.rootDir); err != nil {
		return fmt.Errorf("failed to add watchers: %w", err)
	}

	if err := w.onStart(ctx); err != nil {
		logger.Error("Watcher: OnStart failed: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if event.Op == fsnotify.Chmod || w.shouldExclude(event.Name) {
				continue
			}

			logger.Debug("Watcher: File event: %s %s", event.Op, event.Name)

			if event.Has(fsnotify.Create) {
				if stat, err := os.Stat(event.Name); err == nil && stat.IsDir() {
					if err := w.addRecursively(event.Name); err != nil {
						logger.Warn("Watcher: %v", err)
					}
				}
			}

			w.schedule(ctx, event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			logger.Error("Watcher error: %v", err)
		}
	}
}

// schedule records path as changed and restarts the debounce timer.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if path != "" {
		w.changed[path] = struct{}{}
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() { w.flush(ctx) })
}

func (w *Watcher) flush(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	_, err, shared := w.group.Do("change", func() (interface{}, error) {
		changed := w.takeChanged()
		if len(changed) == 0 {
			return nil, nil
		}
		logger.Debug("Watcher: %d file(s) changed", len(changed))
		return nil, w.onChange(ctx, changed)
	})
	if err != nil && !shared {
		logger.Error("Watcher: OnChange failed: %v", err)
	}

	// Changes that arrived while the call was running get their own call.
	if w.pending() > 0 {
		w.schedule(ctx, "")
	}
}

func (w *Watcher) takeChanged() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]string, 0, len(w.changed))
	for p := range w.changed {
		out = append(out, p)
	}
	sort.Strings(out)
	w.changed = make(map[string]struct{})
	return out
}

func (w *Watcher) pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.changed)
}

func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	if err := w.onClose(); err != nil {
		logger.Error("Watcher: OnClose failed: %v", err)
	}

	return w.watcher.Close()
}

func (w *Watcher) shouldExclude(path string) bool {
	return w.dirs.Excluded(path)
}

func (w *Watcher) addRecursively(root string) error {
	dirs, err := w.dirs.Walk(root)
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to add watcher for %s: %w", dir, err)
		}
	}
	return nil
}
