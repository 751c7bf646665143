// Package main provides the AWS Lambda entry point for the frame extractor.
//
// The function is triggered by S3 ObjectCreated notifications on the
// upload bucket. Each invocation extracts frames from the uploaded video
// with ffmpeg and writes them to DESTINATION_BUCKET under a prefix derived
// from the object key. Dependencies are built once per container and
// reused by warm invocations.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/maauso/frame-extractor/internal/bootstrap"
	"github.com/maauso/frame-extractor/internal/config"
	"github.com/maauso/frame-extractor/internal/event"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// The container's temp dir belongs to this function alone.
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = os.TempDir()
	}
	cfg.ScratchAllowShared = true

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting frame extractor lambda",
		slog.String("config", cfg.String()),
	)

	deps, err := bootstrap.NewDependencies(context.Background(), cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	handler := event.NewHandler(deps.Service, logger)
	lambda.Start(handler.Invoke)
	return nil
}
