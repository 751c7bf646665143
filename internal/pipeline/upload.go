package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/maauso/frame-extractor/internal/storage"
	"github.com/maauso/frame-extractor/internal/workspace"
)

// FrameContentType is the content type every uploaded frame is stored with.
const FrameContentType = "image/png"

// DefaultUploadConcurrency bounds parallel uploads when none is configured.
const DefaultUploadConcurrency = 8

// UploadOutcome is the resolved result of storing one artifact.
type UploadOutcome struct {
	// Filename is the artifact's name in the workspace.
	Filename string
	// Key is the destination object key.
	Key string
	// Err is nil on success, otherwise wraps ErrUpload.
	Err error
}

// Uploader stores collected artifacts in the destination bucket.
type Uploader struct {
	store       storage.BlobStore
	concurrency int
	logger      *slog.Logger
}

// NewUploader creates an Uploader running at most concurrency Puts at once.
func NewUploader(store storage.BlobStore, concurrency int, logger *slog.Logger) *Uploader {
	if concurrency <= 0 {
		concurrency = DefaultUploadConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{store: store, concurrency: concurrency, logger: logger}
}

// Upload stores every artifact under prefix in bucket and waits until all
// attempts have resolved. A failed attempt is logged and recorded in its
// outcome; it never cancels the others. Outcomes are in artifact order.
func (u *Uploader) Upload(ctx context.Context, bucket, prefix string, artifacts []workspace.Artifact) []UploadOutcome {
	outcomes := make([]UploadOutcome, len(artifacts))

	var g errgroup.Group
	g.SetLimit(u.concurrency)

	for i, a := range artifacts {
		key := DestinationKey(prefix, a.Filename)
		outcomes[i] = UploadOutcome{Filename: a.Filename, Key: key}

		g.Go(func() error {
			err := u.store.Put(ctx, bucket, key, bytes.NewReader(a.Content), int64(len(a.Content)), FrameContentType)
			if err != nil {
				outcomes[i].Err = fmt.Errorf("%w: %s/%s: %w", ErrUpload, bucket, key, err)
				u.logger.Error("frame upload failed",
					slog.String("bucket", bucket),
					slog.String("key", key),
					slog.String("error", err.Error()),
				)
				return nil
			}
			u.logger.Debug("frame uploaded",
				slog.String("bucket", bucket),
				slog.String("key", key),
				slog.Int("bytes", len(a.Content)),
			)
			return nil
		})
	}

	_ = g.Wait()
	return outcomes
}

// CountFailures returns how many outcomes carry an error.
func CountFailures(outcomes []UploadOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}
