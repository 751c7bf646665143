package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/maauso/frame-extractor/internal/storage"
	"github.com/maauso/frame-extractor/internal/workspace"
)

// Fetcher streams a source video from a blob store into the workspace.
type Fetcher struct {
	store   storage.BlobStore
	ws      *workspace.Manager
	allowed AllowedTypeSet
}

// NewFetcher creates a Fetcher that accepts only extensions in allowed.
func NewFetcher(store storage.BlobStore, ws *workspace.Manager, allowed AllowedTypeSet) *Fetcher {
	return &Fetcher{store: store, ws: ws, allowed: allowed}
}

// Check validates key and returns its extension. No I/O is performed.
func (f *Fetcher) Check(key string) (string, error) {
	ext, err := Extension(key)
	if err != nil {
		return "", err
	}
	if !f.allowed.Contains(ext) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}
	return ext, nil
}

// Fetch validates ref.Key, then copies the object into the workspace as
// input.<ext> and returns the local path. It returns only once the whole
// object is flushed to disk. A partial file is removed on failure.
func (f *Fetcher) Fetch(ctx context.Context, ref SourceReference) (string, error) {
	ext, err := f.Check(ref.Key)
	if err != nil {
		return "", err
	}

	body, err := f.store.Get(ctx, ref.Bucket, ref.Key)
	if err != nil {
		return "", fmt.Errorf("%w: get %s: %w", ErrFetch, ref, err)
	}
	defer func() { _ = body.Close() }()

	path := f.ws.SourcePath(ext)
	if err := writeFile(path, body); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("%w: write %s: %w", ErrFetch, path, err)
	}
	return path, nil
}

func writeFile(path string, r io.Reader) (err error) {
	// #nosec G304 - path is built from the workspace directory and a validated extension
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	if _, err := io.Copy(file, r); err != nil {
		return err
	}
	return file.Sync()
}
