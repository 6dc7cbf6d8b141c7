// Package mirror manages the on-disk copy of a property value.
//
// A File is bound to one path for its lifetime and always reads and writes
// the whole file.
package mirror

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// DefaultMode is the permission used when a mirror is created.
const DefaultMode fs.FileMode = 0o644

// File is a whole-file mirror at a fixed path.
type File struct {
	path string
	mode fs.FileMode
}

// New returns a mirror for path. A zero mode means DefaultMode.
func New(path string, mode fs.FileMode) *File {
	if mode == 0 {
		mode = DefaultMode
	}
	return &File{path: path, mode: mode}
}

// Path returns the mirrored path.
func (f *File) Path() string {
	return f.path
}

// ReadAll returns the whole file as text.
func (f *File) ReadAll() (string, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		return "", fmt.Errorf("read mirror: %w", err)
	}
	defer fh.Close()

	data, err := io.ReadAll(fh)
	if err != nil {
		return "", fmt.Errorf("read mirror %s: %w", f.path, err)
	}
	return string(data), nil
}

// WriteAll replaces the file with content. Any existing file is removed
// first; the new handle is closed on every path and a close failure is
// reported.
func (f *File) WriteAll(content string) (err error) {
	if err := f.Delete(); err != nil {
		return err
	}

	fh, err := os.OpenFile(f.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.mode)
	if err != nil {
		return fmt.Errorf("write mirror: %w", err)
	}
	defer func() {
		if closeErr := fh.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("write mirror %s: close: %w", f.path, closeErr)
		}
	}()

	if _, err := io.WriteString(fh, content); err != nil {
		return fmt.Errorf("write mirror %s: %w", f.path, err)
	}
	return nil
}

// Exists reports whether something is present at the path.
func (f *File) Exists() bool {
	_, err := os.Lstat(f.path)
	return err == nil
}

// Delete removes the file. A missing file is not an error.
func (f *File) Delete() error {
	err := os.Remove(f.path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("delete mirror: %w", err)
}
