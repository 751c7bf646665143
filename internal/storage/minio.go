package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrMinioEndpointRequired is returned when NewMinioStore is called without an endpoint.
var ErrMinioEndpointRequired = errors.New("storage: minio endpoint is required")

// Compile-time check that MinioStore implements BlobStore.
var _ BlobStore = (*MinioStore)(nil)

// MinioConfig holds the configuration for a MinIO (or other S3-compatible) server.
type MinioConfig struct {
	Endpoint  string // host:port, no scheme
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// MinioStore implements BlobStore using minio-go.
type MinioStore struct {
	client *minio.Client
}

// NewMinioStore creates a new MinioStore. No request is made until the
// first Get or Put.
func NewMinioStore(cfg MinioConfig) (*MinioStore, error) {
	if cfg.Endpoint == "" {
		return nil, ErrMinioEndpointRequired
	}

	cl, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  miniocreds.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	return &MinioStore{client: cl}, nil
}

// Get streams an object from MinIO. The object is stat'ed first so a
// missing key fails here rather than on the first Read.
func (m *MinioStore) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get from minio: %w", err)
	}

	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s/%s", ErrObjectNotFound, bucket, key)
		}
		return nil, fmt.Errorf("stat minio object: %w", err)
	}

	return obj, nil
}

// Put uploads an object to MinIO.
func (m *MinioStore) Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := m.client.PutObject(ctx, bucket, key, body, size, opts); err != nil {
		return fmt.Errorf("upload to minio: %w", err)
	}
	return nil
}
