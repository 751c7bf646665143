// Package event adapts object-storage upload notifications to pipeline
// runs and produces the completion response returned to the invoker.
package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/aws/aws-lambda-go/events"

	"github.com/maauso/frame-extractor/internal/pipeline"
)

// Static errors for event decoding.
var (
	// ErrNoRecords is returned when a notification carries no records.
	ErrNoRecords = errors.New("event has no records")
	// ErrEmptySource is returned when the first record has no bucket or key.
	ErrEmptySource = errors.New("event record has an empty bucket or key")
	// ErrKeyEncoding is returned when the object key is not valid URL form encoding.
	ErrKeyEncoding = errors.New("event object key is not url encoded")
)

// SourceFromS3Event builds a SourceReference from the first record of e.
// Object keys arrive URL form encoded: "+" is a space and %XX sequences
// are decoded. When the raw key is absent the pre-decoded key is used.
func SourceFromS3Event(e events.S3Event) (pipeline.SourceReference, error) {
	if len(e.Records) == 0 {
		return pipeline.SourceReference{}, ErrNoRecords
	}
	rec := e.Records[0].S3

	key := rec.Object.URLDecodedKey
	if rec.Object.Key != "" {
		decoded, err := url.QueryUnescape(rec.Object.Key)
		if err != nil {
			return pipeline.SourceReference{}, fmt.Errorf("%w: %w", ErrKeyEncoding, err)
		}
		key = decoded
	}

	if rec.Bucket.Name == "" || key == "" {
		return pipeline.SourceReference{}, ErrEmptySource
	}
	return pipeline.SourceReference{Bucket: rec.Bucket.Name, Key: key}, nil
}

// Completion is the response returned after a successful run: a 301
// pointing at the source key with an empty body.
func Completion(ref pipeline.SourceReference) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusMovedPermanently,
		Headers:    map[string]string{"location": ref.Key},
		Body:       "",
	}
}

// Processor runs the pipeline for one source.
type Processor interface {
	Process(ctx context.Context, ref pipeline.SourceReference) (*pipeline.Result, error)
}

// Handler is the Lambda entry point for S3 upload notifications.
type Handler struct {
	processor Processor
	logger    *slog.Logger
}

// NewHandler creates a Handler that runs p for each notification.
func NewHandler(p Processor, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{processor: p, logger: logger}
}

// Invoke handles one notification. Only the first record is processed.
// A fatal pipeline error is returned so the runtime reports the
// invocation as failed.
func (h *Handler) Invoke(ctx context.Context, e events.S3Event) (events.APIGatewayProxyResponse, error) {
	ref, err := SourceFromS3Event(e)
	if err != nil {
		h.logger.Error("invalid upload event", slog.String("error", err.Error()))
		return events.APIGatewayProxyResponse{}, err
	}
	if len(e.Records) > 1 {
		h.logger.Warn("ignoring extra event records",
			slog.Int("records", len(e.Records)),
			slog.String("key", ref.Key),
		)
	}

	res, err := h.processor.Process(ctx, ref)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}

	h.logger.Info("upload event processed",
		slog.String("run_id", res.RunID),
		slog.String("key", ref.Key),
		slog.Int("frames", res.Frames),
		slog.Int("upload_failures", res.Failed()),
	)
	return Completion(ref), nil
}
