// Package filestore provides the whole-file persistence primitive shared by
// the key pool and the assignment ledger: read the entire file, rewrite the
// entire file atomically, and serialize read-modify-write cycles both within
// the process and across processes.
package filestore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// ErrNotExist indicates the backing file has not been created yet.
var ErrNotExist = errors.New("file does not exist")

// File is a single flat-file resource. The zero value is not usable; call New.
type File struct {
	path string
	perm fs.FileMode

	mu   sync.Mutex
	lock *flock.Flock
}

// New returns a File for path. The sidecar lock lives at path + ".lock".
func New(path string, perm fs.FileMode) *File {
	if perm == 0 {
		perm = 0644
	}
	return &File{
		path: path,
		perm: perm,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the path of the backing file.
func (f *File) Path() string {
	return f.path
}

// Read returns the full contents of the file. A missing file is reported as
// ErrNotExist so callers can substitute their empty value.
func (f *File) Read() ([]byte, error) {
	data, err := os.ReadFile(f.path) //nolint:gosec // G304: path comes from operator config
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, f.path)
		}
		return nil, fmt.Errorf("reading %s: %w", f.path, err)
	}
	return data, nil
}

// Update runs fn while holding the in-process mutex and the cross-process
// file lock. Every read-modify-write of the resource goes through Update.
func (f *File) Update(fn func() error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if err := f.lock.Lock(); err != nil {
		return fmt.Errorf("locking %s: %w", f.path, err)
	}
	defer func() { _ = f.lock.Unlock() }()

	return fn()
}

// Write replaces the file contents. The data is written to a temporary file in
// the same directory, synced, and renamed over the target so readers never
// observe a partially written document.
func (f *File) Write(data []byte) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temporary file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temporary file: %w", err)
	}
	if err := os.Chmod(tmpPath, f.perm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting permissions: %w", err)
	}

	if err := os.Rename(tmpPath, f.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming %s into place: %w", f.path, err)
	}

	return nil
}
