// Package bootstrap provides dependency initialization for the frame extractor.
// Every entry point (Lambda, HTTP server, local CLI) builds the same graph here.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maauso/frame-extractor/internal/config"
	"github.com/maauso/frame-extractor/internal/media"
	"github.com/maauso/frame-extractor/internal/metrics"
	"github.com/maauso/frame-extractor/internal/pipeline"
	"github.com/maauso/frame-extractor/internal/run"
	"github.com/maauso/frame-extractor/internal/storage"
	"github.com/maauso/frame-extractor/internal/workspace"
)

// Dependencies holds all initialized dependencies for an entry point.
type Dependencies struct {
	Service *pipeline.Service
	Store   storage.BlobStore
	Runs    *run.MemoryRepository
	Metrics *metrics.Metrics
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var wsOpts []workspace.Option
	if cfg.ScratchAllowShared {
		wsOpts = append(wsOpts, workspace.AllowShared())
	}
	ws, err := workspace.New(cfg.ScratchDir, wsOpts...)
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	extractor := media.NewFFmpegExtractor(cfg.FFmpegPath, cfg.FFprobePath)
	repo := run.NewMemoryRepository()
	m := metrics.New()

	svc, err := pipeline.NewService(store, ws, extractor, PipelineOptions(cfg),
		pipeline.WithProber(extractor),
		pipeline.WithRunRepository(repo),
		pipeline.WithMetrics(m),
		pipeline.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}

	logger.Info("pipeline configured",
		slog.String("destination_bucket", cfg.DestinationBucket),
		slog.Int("frame_rate", cfg.FrameRate),
		slog.Any("allowed_types", cfg.AllowedTypes),
		slog.String("scratch_dir", ws.Dir()),
		slog.String("ffmpeg", cfg.FFmpegPath),
	)
	if len(cfg.AllowedResolutions) > 0 || cfg.Width > 0 || cfg.Height > 0 {
		logger.Warn("resize settings are read but not applied",
			slog.Any("allowed_resolutions", cfg.AllowedResolutions),
			slog.Int("width", cfg.Width),
			slog.Int("height", cfg.Height),
		)
	}

	return &Dependencies{
		Service: svc,
		Store:   store,
		Runs:    repo,
		Metrics: m,
	}, nil
}

// PipelineOptions maps configuration to pipeline options.
func PipelineOptions(cfg *config.Config) pipeline.Options {
	return pipeline.Options{
		DestinationBucket: cfg.DestinationBucket,
		FrameRate:         cfg.FrameRate,
		AllowedTypes:      pipeline.NewAllowedTypeSet(cfg.AllowedTypes...),
		UploadConcurrency: cfg.UploadConcurrency,
		ExtractionTimeout: cfg.ExtractionTimeout,
		FailOnNonZeroExit: cfg.FailOnNonZeroExit,
	}
}

// initStorage creates the blob store selected by STORAGE_PROVIDER.
func initStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.BlobStore, error) {
	switch cfg.StorageProvider {
	case config.ProviderS3:
		s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("region", cfg.S3Region),
			slog.String("endpoint", cfg.S3Endpoint),
		)
		return s3Store, nil

	case config.ProviderMinio:
		minioStore, err := storage.NewMinioStore(storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			Region:    cfg.S3Region,
			AccessKey: cfg.AWSAccessKeyID,
			SecretKey: cfg.AWSSecretAccessKey,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("create MinIO storage: %w", err)
		}
		logger.Info("MinIO storage configured",
			slog.String("endpoint", cfg.MinioEndpoint),
			slog.Bool("ssl", cfg.MinioUseSSL),
		)
		return minioStore, nil

	case config.ProviderLocal:
		localStore, err := storage.NewLocalStore(cfg.LocalStoreRoot)
		if err != nil {
			return nil, fmt.Errorf("create local storage: %w", err)
		}
		logger.Info("local storage configured",
			slog.String("root", localStore.Root()),
		)
		return localStore, nil
	}

	return nil, fmt.Errorf("%w: %q", config.ErrUnknownStorageProvider, cfg.StorageProvider)
}
