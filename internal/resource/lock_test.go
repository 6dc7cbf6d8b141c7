package resource

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockAware_StoreRemovesLock(t *testing.T) {
	f := newFixture(t)
	r := f.lockAware()
	ctx := context.Background()
	lock := LockPath(f.path)

	require.NoError(t, os.WriteFile(lock, []byte("bundler"), 0o644))
	changed, err := r.Store(ctx, "v1")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NoFileExists(t, lock)

	// Unchanged content still clears a fresh lock.
	require.NoError(t, os.WriteFile(lock, []byte("bundler"), 0o644))
	changed, err = r.Store(ctx, "v1")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.NoFileExists(t, lock)
}

func TestLockAware_DeleteRemovesLock(t *testing.T) {
	f := newFixture(t)
	r := f.lockAware()
	ctx := context.Background()
	lock := LockPath(f.path)

	_, err := r.Store(ctx, "v1")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(lock, []byte("bundler"), 0o644))

	require.NoError(t, r.Delete(ctx))
	assert.NoFileExists(t, lock)
	assert.NoFileExists(t, f.path)
}

func TestLockAware_MissingLockIsFine(t *testing.T) {
	f := newFixture(t)
	r := f.lockAware()
	ctx := context.Background()

	_, err := r.Store(ctx, "v1")
	require.NoError(t, err)
	require.NoError(t, r.Delete(ctx))
	require.NoError(t, r.Delete(ctx))
}

func TestPlainResource_LeavesLockAlone(t *testing.T) {
	f := newFixture(t)
	r := f.plain()
	lock := LockPath(f.path)

	require.NoError(t, os.WriteFile(lock, []byte("bundler"), 0o644))
	_, err := r.Store(context.Background(), "v1")
	require.NoError(t, err)
	assert.FileExists(t, lock)
}

func TestLockPath_ResolvesSymlinks(t *testing.T) {
	dir := t.TempDir()
	realDir := filepath.Join(dir, "realDir")
	require.NoError(t, os.Mkdir(realDir, 0o755))
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(realDir, link))

	resolvedDir, err := filepath.EvalSymlinks(realDir)
	require.NoError(t, err)

	// Mirror does not exist yet: resolved through the parent.
	assert.Equal(t, filepath.Join(resolvedDir, "Gemfile.lock"), LockPath(filepath.Join(link, "Gemfile")))

	// Mirror exists.
	require.NoError(t, os.WriteFile(filepath.Join(realDir, "Gemfile"), nil, 0o644))
	assert.Equal(t, filepath.Join(resolvedDir, "Gemfile.lock"), LockPath(filepath.Join(link, "Gemfile")))
}

func TestCanonicalPath_RelativeBecomesAbsolute(t *testing.T) {
	got := CanonicalPath("Gemfile")
	assert.True(t, filepath.IsAbs(got))
	assert.Equal(t, "Gemfile", filepath.Base(got))
}
