package resource

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/propsync/internal/mirror"
	"github.com/roach88/propsync/internal/property"
	"github.com/roach88/propsync/internal/testutil"
)

const gemfileKey = "Gemfile"

type fixture struct {
	graph *testutil.FaultyGraph
	props *property.Store
	path  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	g, node := testutil.OpenGraph(t)
	fg := testutil.NewFaultyGraph(g)
	return &fixture{
		graph: fg,
		props: property.New(fg, node),
		path:  filepath.Join(t.TempDir(), "Gemfile"),
	}
}

func (f *fixture) plain(opts ...Option) *Resource {
	return New(f.props, gemfileKey, mirror.New(f.path, 0), opts...)
}

func (f *fixture) lockAware(opts ...Option) *Resource {
	return NewLockAware(f.props, gemfileKey, mirror.New(f.path, 0), opts...)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestStore_IdempotentSecondCall(t *testing.T) {
	f := newFixture(t)
	r := f.plain()
	ctx := context.Background()

	changed, err := r.Store(ctx, "gem 'rails'")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = r.Store(ctx, "gem 'rails'")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestStore_RoundTrip(t *testing.T) {
	f := newFixture(t)
	r := f.plain()
	ctx := context.Background()

	_, err := r.Store(ctx, "gem 'rails'\ngem 'pg'\n")
	require.NoError(t, err)

	v, ok := r.Retrieve(ctx)
	require.True(t, ok)
	assert.Equal(t, "gem 'rails'\ngem 'pg'\n", v)
	assert.Equal(t, "gem 'rails'\ngem 'pg'\n", readFile(t, f.path))
}

func TestRetrieve_AbsentWhenNeverStored(t *testing.T) {
	f := newFixture(t)
	r := f.plain()

	v, ok := r.Retrieve(context.Background())
	assert.False(t, ok)
	assert.Empty(t, v)

	exists, err := r.ExistsInStore(context.Background())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDelete_Completeness(t *testing.T) {
	f := newFixture(t)
	r := f.plain()
	ctx := context.Background()

	_, err := r.Store(ctx, "v")
	require.NoError(t, err)
	require.NoError(t, r.Delete(ctx))

	exists, err := r.ExistsInStore(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoFileExists(t, f.path)

	// Idempotent
	require.NoError(t, r.Delete(ctx))
}

func TestStore_RewritesStaleMirror(t *testing.T) {
	f := newFixture(t)
	r := f.plain()
	ctx := context.Background()

	_, err := r.Store(ctx, "v1")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(f.path, []byte("edited by hand"), 0o644))

	changed, err := r.Store(ctx, "v1")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "v1", readFile(t, f.path))
}

func TestStore_FailedCommitLeavesFileUntouched(t *testing.T) {
	f := newFixture(t)
	r := f.lockAware()
	ctx := context.Background()

	lock := LockPath(f.path)
	require.NoError(t, os.WriteFile(lock, []byte("pid 42"), 0o644))

	f.graph.FailCommits(nil)
	changed, err := r.Store(ctx, "v1")
	require.ErrorIs(t, err, testutil.ErrInjected)
	assert.False(t, changed)

	assert.NoFileExists(t, f.path)
	assert.FileExists(t, lock, "hooks must not run after a failed write")

	f.graph.Heal()
	exists, err := r.ExistsInStore(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDelete_FailedCommitKeepsEverything(t *testing.T) {
	f := newFixture(t)
	r := f.plain()
	ctx := context.Background()

	_, err := r.Store(ctx, "v1")
	require.NoError(t, err)

	f.graph.FailCommits(nil)
	require.ErrorIs(t, r.Delete(ctx), testutil.ErrInjected)
	f.graph.Heal()

	v, ok := r.Retrieve(ctx)
	assert.True(t, ok)
	assert.Equal(t, "v1", v)
	assert.FileExists(t, f.path)
}

func TestStore_ReadFailureAfterCommitRemovesMirror(t *testing.T) {
	f := newFixture(t)
	var logs bytes.Buffer
	r := f.plain(WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	ctx := context.Background()

	_, err := r.Store(ctx, "v1")
	require.NoError(t, err)

	// The commit succeeds but the read-back fails and collapses to absent.
	f.graph.FailViews(nil)
	changed, err := r.Store(ctx, "v2")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NoFileExists(t, f.path)
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "property unreadable after store")

	f.graph.Heal()
	v, ok := r.Retrieve(ctx)
	require.True(t, ok)
	assert.Equal(t, "v2", v)

	changed, err = r.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "v2", readFile(t, f.path))
}

// unreadableMirror wraps a real mirror but fails every read.
type unreadableMirror struct {
	*mirror.File
	reads int
}

func (m *unreadableMirror) ReadAll() (string, error) {
	m.reads++
	return "", errors.New("permission denied")
}

func TestStore_UnreadableMirrorIsRewritten(t *testing.T) {
	f := newFixture(t)
	m := &unreadableMirror{File: mirror.New(f.path, 0)}
	r := New(f.props, gemfileKey, m)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(f.path, []byte("v1"), 0o644))

	changed, err := r.Store(ctx, "v1")
	require.NoError(t, err)
	assert.True(t, changed, "a failed staleness check counts as changed")
	assert.Equal(t, 1, m.reads)
	assert.Equal(t, "v1", readFile(t, f.path))
}

func TestStore_PermissionDeniedMirror(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores file permissions")
	}
	f := newFixture(t)
	r := f.plain()
	ctx := context.Background()

	require.NoError(t, os.WriteFile(f.path, []byte("old"), 0o000))

	changed, err := r.Store(ctx, "new")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "new", readFile(t, f.path))
}

func TestStore_UnwritableMirrorFails(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), "missing-dir", "Gemfile")
	r := New(f.props, gemfileKey, mirror.New(path, 0))
	ctx := context.Background()

	_, err := r.Store(ctx, "v1")
	require.Error(t, err)

	// The graph write committed before the file step failed.
	v, ok := r.Retrieve(ctx)
	assert.True(t, ok)
	assert.Equal(t, "v1", v)
}

func TestRefresh_RestoresRemovedMirror(t *testing.T) {
	f := newFixture(t)
	r := f.plain()
	ctx := context.Background()

	_, err := r.Store(ctx, "v1")
	require.NoError(t, err)
	require.NoError(t, os.Remove(f.path))

	changed, err := r.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "v1", readFile(t, f.path))

	changed, err = r.Refresh(ctx)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestRefresh_AbsentPropertyRemovesMirror(t *testing.T) {
	f := newFixture(t)
	r := f.plain()
	ctx := context.Background()

	require.NoError(t, os.WriteFile(f.path, []byte("orphan"), 0o644))

	changed, err := r.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NoFileExists(t, f.path)

	changed, err = r.Refresh(ctx)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestScenario_StoreStoreChangeDelete(t *testing.T) {
	f := newFixture(t)
	r := f.plain()
	ctx := context.Background()

	changed, err := r.Store(ctx, "v1")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "v1", readFile(t, f.path))

	changed, err = r.Store(ctx, "v1")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "v1", readFile(t, f.path))

	changed, err = r.Store(ctx, "v2")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "v2", readFile(t, f.path))

	require.NoError(t, r.Delete(ctx))
	exists, err := r.ExistsInStore(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoFileExists(t, f.path)
}

func TestHooks_RunInOrderWithMutation(t *testing.T) {
	f := newFixture(t)
	var seen []Mutation
	record := func(ctx context.Context, m Mutation) error {
		seen = append(seen, m)
		return nil
	}
	failing := func(ctx context.Context, m Mutation) error {
		return errors.New("ignored")
	}
	r := f.plain(WithHooks(failing, record))
	ctx := context.Background()

	_, err := r.Store(ctx, "v1")
	require.NoError(t, err)
	_, err = r.Store(ctx, "v1")
	require.NoError(t, err)
	_, err = r.Refresh(ctx)
	require.NoError(t, err)
	require.NoError(t, r.Delete(ctx))

	require.Len(t, seen, 4)
	assert.Equal(t, Mutation{Op: OpStore, Property: gemfileKey, Path: f.path, Changed: true}, seen[0])
	assert.Equal(t, Mutation{Op: OpStore, Property: gemfileKey, Path: f.path, Changed: false}, seen[1])
	assert.Equal(t, Mutation{Op: OpRefresh, Property: gemfileKey, Path: f.path, Changed: false}, seen[2])
	assert.Equal(t, Mutation{Op: OpDelete, Property: gemfileKey, Path: f.path, Changed: true}, seen[3])
}

func TestAccessors(t *testing.T) {
	f := newFixture(t)
	r := f.plain()
	assert.Equal(t, gemfileKey, r.Property())
	assert.Equal(t, f.path, r.Path())
}
