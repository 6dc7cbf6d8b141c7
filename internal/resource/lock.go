package resource

import (
	"context"
	"path/filepath"

	"github.com/roach88/propsync/internal/mirror"
)

// LockSuffix is appended to the canonical mirror path to name the lock
// artifact.
const LockSuffix = ".lock"

// LockCleanup returns a hook that deletes the lock artifact next to the
// mutated mirror. A missing lock file is not an error.
func LockCleanup() Hook {
	return func(ctx context.Context, m Mutation) error {
		return mirror.New(LockPath(m.Path), 0).Delete()
	}
}

// LockPath returns "<canonical path>.lock" for a mirror path.
func LockPath(path string) string {
	return CanonicalPath(path) + LockSuffix
}

// CanonicalPath returns an absolute path with symlinks resolved as far as
// possible. A path whose file does not exist yet is resolved through its
// parent directory.
func CanonicalPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		return filepath.Join(dir, filepath.Base(abs))
	}
	return abs
}
