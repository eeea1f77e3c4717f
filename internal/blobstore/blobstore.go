// Package blobstore declares the binary content store behind file entities
// and their derivatives.
package blobstore

import (
	"context"
	"errors"
)

// ErrBlobNotFound is returned by Get for a path that holds no content.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore keeps opaque byte content under string paths. A Put to an
// existing path overwrites it. Implementations must be safe for concurrent use.
type BlobStore interface {
	// NewPath returns a fresh, unused path.
	NewPath() string

	Put(ctx context.Context, path string, data []byte) error

	Get(ctx context.Context, path string) ([]byte, error)

	// Delete succeeds for paths that hold no content.
	Delete(ctx context.Context, path string) error
}
