package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-playground/validator/v10"

	"github.com/maauso/frame-extractor/internal/event"
	"github.com/maauso/frame-extractor/internal/media"
	"github.com/maauso/frame-extractor/internal/pipeline"
	"github.com/maauso/frame-extractor/internal/run"
	"github.com/maauso/frame-extractor/internal/storage"
)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service            *pipeline.Service
	validator          *validator.Validate
	logger             *slog.Logger
	enableAsyncProcess bool
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithAsyncProcessing enables or disables background processing for
// POST /runs. When disabled, the run completes before the response is written.
func WithAsyncProcessing(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.enableAsyncProcess = enabled
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *pipeline.Service, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:            service,
		validator:          validator.New(),
		logger:             logger,
		enableAsyncProcess: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// HandleEvent handles POST /events requests. The body is an S3-format
// bucket notification, as sent by S3-compatible stores such as MinIO.
// The first record is processed before the response is written.
func (h *Handlers) HandleEvent(w http.ResponseWriter, r *http.Request) {
	var e events.S3Event
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		h.logger.Warn("failed to decode event body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	ref, err := event.SourceFromS3Event(e)
	if err != nil {
		h.logger.Warn("invalid event",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_EVENT")
		return
	}

	res, err := h.service.Process(r.Context(), ref)
	if err != nil {
		h.writePipelineError(w, res, err)
		return
	}

	writeJSON(w, http.StatusOK, EventResponse{
		RunID:          res.RunID,
		Location:       event.Completion(ref).Headers["location"],
		Destination:    res.DestinationBucket + "/" + res.Prefix,
		Frames:         res.Frames,
		UploadFailures: res.Failed(),
	})
}

// CreateRun handles POST /runs requests.
func (h *Handlers) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	ref := pipeline.SourceReference{Bucket: req.Bucket, Key: req.Key}
	rn := run.New(ref.Bucket, ref.Key)

	if !h.enableAsyncProcess {
		res, err := h.service.ProcessRun(r.Context(), rn, ref)
		if err != nil {
			h.writePipelineError(w, res, err)
			return
		}
		writeJSON(w, http.StatusOK, CreateRunResponse{ID: rn.ID, Status: string(rn.GetStatus())})
		return
	}

	// Save first so GET /runs/{id} finds the run immediately.
	if repo := h.service.Runs(); repo != nil {
		if err := repo.Save(r.Context(), rn); err != nil {
			h.logger.Error("failed to save run",
				slog.String("run_id", rn.ID),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to create run", "RUN_CREATION_FAILED")
			return
		}
	}

	// Detached from the request so the run outlives it.
	go func(ctx context.Context) {
		if _, err := h.service.ProcessRun(ctx, rn, ref); err != nil {
			h.logger.Error("background run failed",
				slog.String("run_id", rn.ID),
				slog.String("error", err.Error()),
			)
		}
	}(context.WithoutCancel(r.Context()))

	h.logger.Info("run accepted",
		slog.String("run_id", rn.ID),
		slog.String("bucket", ref.Bucket),
		slog.String("key", ref.Key),
	)

	writeJSON(w, http.StatusAccepted, CreateRunResponse{
		ID:     rn.ID,
		Status: string(run.StatusRunning),
	})
}

// ListRuns handles GET /runs requests.
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	repo := h.service.Runs()
	if repo == nil {
		writeJSON(w, http.StatusOK, ListRunsResponse{Runs: []RunResponse{}})
		return
	}

	runs, err := repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list runs",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list runs", "RUN_FETCH_FAILED")
		return
	}

	resp := ListRunsResponse{Runs: make([]RunResponse, 0, len(runs))}
	for _, rn := range runs {
		resp.Runs = append(resp.Runs, toRunResponse(rn))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetRun handles GET /runs/{id} requests.
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	if runID == "" {
		writeError(w, http.StatusBadRequest, "run ID is required", "MISSING_RUN_ID")
		return
	}

	repo := h.service.Runs()
	if repo == nil {
		writeError(w, http.StatusNotFound, "run not found", "RUN_NOT_FOUND")
		return
	}

	found, err := repo.FindByID(r.Context(), runID)
	if err != nil {
		if errors.Is(err, run.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found", "RUN_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get run",
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get run", "RUN_FETCH_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, toRunResponse(found))
}

// writePipelineError maps a fatal pipeline error to a status and code.
func (h *Handlers) writePipelineError(w http.ResponseWriter, res *pipeline.Result, err error) {
	status, code := http.StatusInternalServerError, "PIPELINE_FAILED"
	switch {
	case errors.Is(err, pipeline.ErrInvalidKey),
		errors.Is(err, pipeline.ErrUnsupportedType),
		errors.Is(err, pipeline.ErrKeyShape):
		status, code = http.StatusUnprocessableEntity, "UNSUPPORTED_SOURCE"
	case errors.Is(err, storage.ErrObjectNotFound):
		status, code = http.StatusNotFound, "SOURCE_NOT_FOUND"
	case errors.Is(err, media.ErrExtraction),
		errors.Is(err, pipeline.ErrExtractionExitStatus):
		code = "EXTRACTION_FAILED"
	}

	var runID string
	if res != nil {
		runID = res.RunID
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: code, RunID: runID})
}

func toRunResponse(rn *run.Run) RunResponse {
	return RunResponse{
		ID:                rn.ID,
		Bucket:            rn.Bucket,
		Key:               rn.Key,
		Status:            string(rn.Status),
		Stage:             string(rn.Stage),
		Error:             rn.Error,
		ExitCode:          rn.ExitCode,
		DestinationPrefix: rn.DestinationPrefix,
		Frames:            rn.Frames,
		Uploaded:          rn.Uploaded,
		UploadFailures:    rn.UploadFailures,
		CreatedAt:         rn.CreatedAt,
		CompletedAt:       rn.CompletedAt,
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
