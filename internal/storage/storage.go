// Package storage holds private blob backends for encrypted files. Nothing
// stored here is reachable over HTTP; callers go through the secure file
// service.
package storage

import (
	"context"
	"errors"
	"path"
	"strings"
)

var (
	ErrNotFound    = errors.New("blob not found")
	ErrInvalidPath = errors.New("invalid blob path")
)

// BlobStore persists opaque blobs under slash separated relative paths.
type BlobStore interface {
	// Put writes the blob atomically: readers see the old state or the full
	// blob, never a prefix.
	Put(ctx context.Context, blobPath string, data []byte) error
	Get(ctx context.Context, blobPath string) ([]byte, error)
	// Delete is idempotent.
	Delete(ctx context.Context, blobPath string) error
	Exists(ctx context.Context, blobPath string) (bool, error)
	Size(ctx context.Context, blobPath string) (int64, error)
}

// CleanPath normalizes a relative blob path and rejects anything that could
// escape the store root.
func CleanPath(blobPath string) (string, error) {
	if blobPath == "" || strings.ContainsRune(blobPath, '\\') || strings.ContainsRune(blobPath, 0) {
		return "", ErrInvalidPath
	}
	if strings.HasPrefix(blobPath, "/") {
		return "", ErrInvalidPath
	}

	cleaned := path.Clean(blobPath)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}
