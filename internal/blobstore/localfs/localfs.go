// Package localfs stores blobs as files under a root directory.
package localfs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/patric-chuzhbe/filesmanager/internal/blobstore"
)

// LocalFS writes blobs under root. The directory is created on demand.
type LocalFS struct {
	root string
}

func New(root string) *LocalFS {
	return &LocalFS{root: root}
}

func (l *LocalFS) NewPath() string {
	return filepath.Join(l.root, uuid.NewString())
}

// Put writes to a temporary file and renames it over path, so readers
// never observe a partially written blob.
func (l *LocalFS) Put(ctx context.Context, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("in internal/blobstore/localfs/localfs.go/Put(): error while `os.MkdirAll()` calling: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("in internal/blobstore/localfs/localfs.go/Put(): error while `os.CreateTemp()` calling: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("in internal/blobstore/localfs/localfs.go/Put(): error while `tmp.Write()` calling: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("in internal/blobstore/localfs/localfs.go/Put(): error while `tmp.Close()` calling: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("in internal/blobstore/localfs/localfs.go/Put(): error while `os.Rename()` calling: %w", err)
	}

	return nil
}

func (l *LocalFS) Get(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, blobstore.ErrBlobNotFound
		}
		return nil, fmt.Errorf("in internal/blobstore/localfs/localfs.go/Get(): error while `os.ReadFile()` calling: %w", err)
	}

	return data, nil
}

func (l *LocalFS) Delete(ctx context.Context, path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("in internal/blobstore/localfs/localfs.go/Delete(): error while `os.Remove()` calling: %w", err)
	}

	return nil
}
