// Package storage provides blob store access for source videos and
// extracted frames. It defines the BlobStore interface (port) and
// implementations for Amazon S3, MinIO and the local filesystem.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned by Get when the bucket has no object at key.
var ErrObjectNotFound = errors.New("storage: object not found")

// BlobStore defines key-addressed object storage.
// Implementations must be safe for concurrent use.
type BlobStore interface {
	// Get opens a streaming read of the object at bucket/key.
	// The caller is responsible for closing the returned ReadCloser.
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	// Put writes body to bucket/key, replacing any existing object.
	// size is the body length in bytes, or -1 when unknown.
	Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error
}
