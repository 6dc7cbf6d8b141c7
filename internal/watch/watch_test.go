package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/propsync/internal/mirror"
	"github.com/roach88/propsync/internal/property"
	"github.com/roach88/propsync/internal/resource"
	"github.com/roach88/propsync/internal/testutil"
)

const (
	testDebounce = 20 * time.Millisecond
	waitFor      = 2 * time.Second
	tick         = 10 * time.Millisecond
)

type countingRefresher struct {
	path  string
	calls atomic.Int32
}

func (r *countingRefresher) Path() string { return r.path }

func (r *countingRefresher) Refresh(context.Context) (bool, error) {
	r.calls.Add(1)
	return false, nil
}

func startWatcher(t *testing.T, res Refresher) *Watcher {
	t.Helper()
	w, err := New(res, testDebounce)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(w.Stop)
	return w
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

func TestWatcher_RestoresTamperedMirror(t *testing.T) {
	g, node := testutil.OpenGraph(t)
	path := filepath.Join(t.TempDir(), "Gemfile")
	res := resource.New(property.New(g, node), "Gemfile", mirror.New(path, mirror.DefaultMode))

	ctx := context.Background()
	_, err := res.Store(ctx, "v1")
	require.NoError(t, err)

	w := startWatcher(t, res)

	require.NoError(t, os.WriteFile(path, []byte("tampered"), 0o644))
	assert.Eventually(t, func() bool {
		return readFile(t, path) == "v1" && w.Stats().Rewrites >= 1
	}, waitFor, tick)

	require.NoError(t, os.Remove(path))
	assert.Eventually(t, func() bool {
		return readFile(t, path) == "v1" && w.Stats().Rewrites >= 2
	}, waitFor, tick)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	res := &countingRefresher{path: filepath.Join(dir, "Gemfile")}
	w := startWatcher(t, res)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "Gemfile.lock"), []byte("x"), 0o644))
	time.Sleep(10 * testDebounce)

	assert.Zero(t, res.calls.Load())
	assert.Zero(t, w.Stats().Events)
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	res := &countingRefresher{path: filepath.Join(dir, "Gemfile")}

	w, err := New(res, 200*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(w.Stop)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(res.path, []byte{byte('a' + i)}, 0o644))
	}

	assert.Eventually(t, func() bool { return w.Stats().Refreshes >= 1 }, waitFor, tick)
	assert.Equal(t, int32(1), res.calls.Load())

	// inotify coalesces identical consecutive writes, so only a lower bound holds.
	stats := w.Stats()
	assert.GreaterOrEqual(t, stats.Events, 1)
	assert.Equal(t, 1, stats.Refreshes)
}

func TestWatcher_ContextCancelStopsLoop(t *testing.T) {
	res := &countingRefresher{path: filepath.Join(t.TempDir(), "Gemfile")}
	w, err := New(res, testDebounce)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	cancel()

	select {
	case <-w.Done():
	case <-time.After(waitFor):
		t.Fatal("event loop did not exit after cancel")
	}
	w.Stop()
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	res := &countingRefresher{path: filepath.Join(t.TempDir(), "Gemfile")}
	w, err := New(res, testDebounce)
	require.NoError(t, err)

	w.Stop()
	w.Stop()
	assert.Error(t, w.Start(context.Background()))
}

func TestWatcher_StopWithoutStartClosesDone(t *testing.T) {
	res := &countingRefresher{path: filepath.Join(t.TempDir(), "Gemfile")}
	w, err := New(res, testDebounce)
	require.NoError(t, err)

	done := w.Done()
	w.Stop()

	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("Done stayed open after Stop without Start")
	}
}

func TestWatcher_MissingDirectory(t *testing.T) {
	res := &countingRefresher{path: filepath.Join(t.TempDir(), "missing", "Gemfile")}
	w, err := New(res, testDebounce)
	require.NoError(t, err)
	defer w.Stop()

	assert.Error(t, w.Start(context.Background()))
}

func TestTickInterval(t *testing.T) {
	assert.Equal(t, 10*time.Millisecond, tickInterval(0))
	assert.Equal(t, 25*time.Millisecond, tickInterval(50*time.Millisecond))
	assert.Equal(t, 100*time.Millisecond, tickInterval(time.Second))
}
