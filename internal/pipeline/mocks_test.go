package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/maauso/frame-extractor/internal/media"
	"github.com/maauso/frame-extractor/internal/storage"
)

// mockStore is a testify mock of storage.BlobStore.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, bucket, key)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

func (m *mockStore) Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, bucket, key, body, size, contentType)
	return args.Error(0)
}

// failingPutStore fails Put for one key and delegates everything else.
type failingPutStore struct {
	storage.BlobStore
	failKey string
}

func (s failingPutStore) Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	if key == s.failKey {
		return errors.New("access denied")
	}
	return s.BlobStore.Put(ctx, bucket, key, body, size, contentType)
}

// fakeExtractor writes numbered frames into the job's output directory
// instead of running ffmpeg.
type fakeExtractor struct {
	mu       sync.Mutex
	frames   int
	exitCode int
	err      error
	block    bool
	jobs     []media.ExtractionJob
}

func (f *fakeExtractor) ExtractFrames(ctx context.Context, job media.ExtractionJob) (media.ExtractionResult, error) {
	f.mu.Lock()
	f.jobs = append(f.jobs, job)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return media.ExtractionResult{}, fmt.Errorf("%w: ffmpeg cancelled: %w", media.ErrExtraction, ctx.Err())
	}
	if f.err != nil {
		return media.ExtractionResult{}, f.err
	}

	for i := 1; i <= f.frames; i++ {
		name := filepath.Join(job.OutputDirectory, fmt.Sprintf(job.OutputPattern, i))
		if err := os.WriteFile(name, []byte(fmt.Sprintf("frame-%d", i)), 0600); err != nil {
			return media.ExtractionResult{}, err
		}
	}
	return media.ExtractionResult{ExitCode: f.exitCode, Stderr: "fake"}, nil
}

func (f *fakeExtractor) calls() []media.ExtractionJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]media.ExtractionJob(nil), f.jobs...)
}

// fakeProber returns a fixed duration or error.
type fakeProber struct {
	seconds float64
	err     error
}

func (p fakeProber) ProbeDuration(context.Context, string) (float64, error) {
	return p.seconds, p.err
}
