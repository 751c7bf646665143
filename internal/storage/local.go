package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidObjectPath is returned when a bucket or key would resolve
// outside the store root.
var ErrInvalidObjectPath = errors.New("storage: invalid object path")

// Compile-time check that LocalStore implements BlobStore.
var _ BlobStore = (*LocalStore)(nil)

// LocalStore implements BlobStore on local disk. Each bucket is a
// directory under root and each key a file path inside it. Content types
// are not persisted. It backs local runs and tests.
type LocalStore struct {
	root string
}

// NewLocalStore creates a new LocalStore rooted at root.
// If root is empty, os.TempDir()/frame-extractor is used.
// The directory is created if it doesn't exist.
func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		root = filepath.Join(os.TempDir(), "frame-extractor")
	}

	if err := os.MkdirAll(root, 0750); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}

	return &LocalStore{root: root}, nil
}

// Root returns the store root directory.
func (s *LocalStore) Root() string {
	return s.root
}

// Get opens the file backing bucket/key.
func (s *LocalStore) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	p, err := s.objectPath(bucket, key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p) // #nosec G304 - path is confined to the store root
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s/%s", ErrObjectNotFound, bucket, key)
		}
		return nil, fmt.Errorf("open object: %w", err)
	}
	return f, nil
}

// Put writes body to bucket/key. The data goes to a temporary file first
// and is renamed into place, so readers never observe a partial object.
func (s *LocalStore) Put(ctx context.Context, bucket, key string, body io.Reader, _ int64, _ string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	p, err := s.objectPath(bucket, key)
	if err != nil {
		return err
	}

	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create object directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".put_*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpName := f.Name()
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write object: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close object: %w", err)
	}

	if err := os.Rename(tmpName, p); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename object: %w", err)
	}
	return nil
}

// objectPath maps bucket/key to a file path and rejects anything that
// escapes the bucket directory.
func (s *LocalStore) objectPath(bucket, key string) (string, error) {
	if bucket == "" || key == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return "", fmt.Errorf("%w: bucket=%q key=%q", ErrInvalidObjectPath, bucket, key)
	}

	bucketDir := filepath.Join(s.root, bucket)
	p := filepath.Join(bucketDir, filepath.FromSlash(key))
	if !strings.HasPrefix(p, bucketDir+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: bucket=%q key=%q", ErrInvalidObjectPath, bucket, key)
	}
	return p, nil
}
