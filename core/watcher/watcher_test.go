package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(t *testing.T, root string) *Watcher {
	t.Helper()
	w, err := New(Options{
		RootDir:  root,
		Exclude:  []string{"node_modules", "dist", filepath.Join(root, ".cache")},
		Debounce: 20 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w
}

func TestShouldExclude(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)

	tests := []struct {
		path string
		want bool
	}{
		{filepath.Join(root, "src", "index.js"), false},
		{filepath.Join(root, "dist"), true},
		{filepath.Join(root, "dist", "bundle.js"), true},
		{filepath.Join(root, "distribution", "a.js"), false},
		{filepath.Join(root, "node_modules", "x", "index.js"), true},
		{filepath.Join(root, ".cache", "mods", "a.mp"), true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, w.shouldExclude(tt.path), tt.path)
	}
}

func TestScheduleCoalescesBursts(t *testing.T) {
	w := newTestWatcher(t, t.TempDir())

	var (
		mu    sync.Mutex
		calls [][]string
	)
	done := make(chan struct{}, 4)
	w.OnChange(func(_ context.Context, changed []string) error {
		mu.Lock()
		calls = append(calls, changed)
		mu.Unlock()
		done <- struct{}{}
		return nil
	})

	ctx := context.Background()
	w.schedule(ctx, "/b.js")
	w.schedule(ctx, "/a.js")
	w.schedule(ctx, "/b.js")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("OnChange was not called")
	}

	// Give a stray second call the chance to show up.
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"/a.js", "/b.js"}, calls[0])
}

func TestWatchReportsFileChanges(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dist"), 0o755))

	w := newTestWatcher(t, root)

	started := make(chan struct{})
	changes := make(chan []string, 8)
	w.OnStart(func(context.Context) error {
		close(started)
		return nil
	})
	w.OnChange(func(_ context.Context, changed []string) error {
		changes <- changed
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- w.Watch(ctx) }()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not start")
	}

	require.NoError(t, os.WriteFile(filepath.Join(root, "dist", "bundle.js"), []byte("ignored"), 0o644))
	target := filepath.Join(root, "src", "index.js")
	require.NoError(t, os.WriteFile(target, []byte("capture(1);"), 0o644))

	select {
	case changed := <-changes:
		assert.Contains(t, changed, target)
		assert.NotContains(t, changed, filepath.Join(root, "dist", "bundle.js"))
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
