package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/maauso/frame-extractor/internal/media"
	"github.com/maauso/frame-extractor/internal/metrics"
	"github.com/maauso/frame-extractor/internal/run"
	"github.com/maauso/frame-extractor/internal/storage"
	"github.com/maauso/frame-extractor/internal/workspace"
)

// ErrInvalidOptions is returned by NewService for an unusable configuration.
var ErrInvalidOptions = errors.New("invalid pipeline options")

// Options is the per-process pipeline configuration.
type Options struct {
	// DestinationBucket receives the extracted frames.
	DestinationBucket string
	// FrameRate is passed to ffmpeg as -r.
	FrameRate int
	// AllowedTypes is the extension allow-list. Empty means DefaultAllowedTypes.
	AllowedTypes AllowedTypeSet
	// UploadConcurrency bounds parallel uploads. Zero means DefaultUploadConcurrency.
	UploadConcurrency int
	// ExtractionTimeout bounds the ffmpeg run. Zero means no limit.
	ExtractionTimeout time.Duration
	// FailOnNonZeroExit makes a non-zero ffmpeg exit status fatal.
	FailOnNonZeroExit bool
}

// Result describes one completed pipeline run.
type Result struct {
	RunID             string
	Source            SourceReference
	DestinationBucket string
	Prefix            string
	// ExitCode is the ffmpeg exit status.
	ExitCode int
	// Frames is the number of artifacts collected.
	Frames int
	// Uploads holds one outcome per collected artifact.
	Uploads []UploadOutcome
	// CollectionErrors are per-file read failures that were skipped.
	CollectionErrors []error
}

// Failed returns the number of uploads that did not succeed.
func (r *Result) Failed() int {
	return CountFailures(r.Uploads)
}

// Service runs the frame extraction pipeline. Runs share one scratch
// directory and are serialized.
type Service struct {
	mu sync.Mutex

	opts      Options
	ws        *workspace.Manager
	fetcher   *Fetcher
	extractor media.FrameExtractor
	prober    media.Prober
	uploader  *Uploader
	runs      run.Repository
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// ServiceOption configures optional Service collaborators.
type ServiceOption func(*Service)

// WithProber enables the source duration probe. Probe failures are logged only.
func WithProber(p media.Prober) ServiceOption {
	return func(s *Service) {
		s.prober = p
	}
}

// WithRunRepository records every run in repo.
func WithRunRepository(repo run.Repository) ServiceOption {
	return func(s *Service) {
		s.runs = repo
	}
}

// WithMetrics records pipeline metrics in m.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a Service that reads sources from and writes frames
// to store, using ws as its scratch directory.
func NewService(store storage.BlobStore, ws *workspace.Manager, extractor media.FrameExtractor, opts Options, options ...ServiceOption) (*Service, error) {
	if opts.DestinationBucket == "" {
		return nil, fmt.Errorf("%w: destination bucket is required", ErrInvalidOptions)
	}
	if opts.FrameRate <= 0 {
		return nil, fmt.Errorf("%w: frame rate must be positive, got %d", ErrInvalidOptions, opts.FrameRate)
	}
	if opts.AllowedTypes.Len() == 0 {
		opts.AllowedTypes = NewAllowedTypeSet(DefaultAllowedTypes...)
	}

	s := &Service{
		opts:      opts,
		ws:        ws,
		extractor: extractor,
		logger:    slog.Default(),
	}
	for _, opt := range options {
		opt(s)
	}
	s.fetcher = NewFetcher(store, ws, opts.AllowedTypes)
	s.uploader = NewUploader(store, opts.UploadConcurrency, s.logger)
	return s, nil
}

// Runs returns the run repository, or nil if runs are not recorded.
func (s *Service) Runs() run.Repository {
	return s.runs
}

// Process runs the pipeline for ref. Validation happens before any I/O.
// A fatal stage error aborts the run and leaves the scratch directory as
// it is; the next run purges it. Per-file collection and upload failures
// are reported in the Result and do not fail the run.
func (s *Service) Process(ctx context.Context, ref SourceReference) (*Result, error) {
	return s.ProcessRun(ctx, run.New(ref.Bucket, ref.Key), ref)
}

// ProcessRun is Process with a run record created by the caller, so its
// ID can be handed out before the run finishes. r must be RUNNING.
func (s *Service) ProcessRun(ctx context.Context, r *run.Run, ref SourceReference) (*Result, error) {
	if r.IsTerminal() {
		return nil, fmt.Errorf("%w: %s is %s", ErrRunFinished, r.ID, r.GetStatus())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res := &Result{
		RunID:             r.ID,
		Source:            ref,
		DestinationBucket: s.opts.DestinationBucket,
	}
	logger := s.logger.With(
		slog.String("run_id", r.ID),
		slog.String("bucket", ref.Bucket),
		slog.String("key", ref.Key),
	)

	s.metrics.RunStarted()
	s.save(ctx, logger, r)
	logger.Info("pipeline started")

	fail := func(stage run.Stage, err error) (*Result, error) {
		logger.Error("pipeline failed",
			slog.String("stage", string(stage)),
			slog.String("error", err.Error()),
		)
		_ = r.Fail(err.Error())
		s.save(ctx, logger, r)
		s.metrics.RunFinished(metrics.OutcomeFailure, string(stage))
		return res, err
	}

	ext, err := s.fetcher.Check(ref.Key)
	if err != nil {
		return fail(run.StageValidate, err)
	}
	prefix, err := DestinationPrefix(ref.Key)
	if err != nil {
		return fail(run.StageValidate, err)
	}
	res.Prefix = prefix
	r.SetPrefix(prefix)

	s.enter(ctx, logger, r, run.StageReset)
	start := time.Now()
	removed, err := s.ws.Reset(ctx)
	s.metrics.ObserveStage(string(run.StageReset), time.Since(start))
	if err != nil {
		return fail(run.StageReset, err)
	}
	logger.Debug("workspace reset", slog.Int("removed", len(removed)))

	s.enter(ctx, logger, r, run.StageFetch)
	start = time.Now()
	input, err := s.fetcher.Fetch(ctx, ref)
	s.metrics.ObserveStage(string(run.StageFetch), time.Since(start))
	if err != nil {
		return fail(run.StageFetch, err)
	}
	logger.Info("source fetched", slog.String("path", input))

	s.probe(ctx, logger, input)

	s.enter(ctx, logger, r, run.StageExtract)
	start = time.Now()
	exitCode, err := s.extract(ctx, input)
	s.metrics.ObserveStage(string(run.StageExtract), time.Since(start))
	res.ExitCode = exitCode
	r.SetExitCode(exitCode)
	if err != nil {
		return fail(run.StageExtract, err)
	}
	if exitCode != 0 {
		logger.Warn("ffmpeg exited with non-zero status", slog.Int("exit_code", exitCode))
	}

	s.enter(ctx, logger, r, run.StageCollect)
	start = time.Now()
	artifacts, err := s.ws.Collect(ctx, workspace.SourceFilename(ext), func(cerr error) {
		logger.Warn("skipping unreadable file", slog.String("error", cerr.Error()))
		res.CollectionErrors = append(res.CollectionErrors, cerr)
	})
	s.metrics.ObserveStage(string(run.StageCollect), time.Since(start))
	if err != nil {
		return fail(run.StageCollect, err)
	}
	res.Frames = len(artifacts)
	s.metrics.AddFrames(len(artifacts))
	logger.Info("frames collected", slog.Int("frames", len(artifacts)))

	s.enter(ctx, logger, r, run.StageUpload)
	start = time.Now()
	res.Uploads = s.uploader.Upload(ctx, s.opts.DestinationBucket, prefix, artifacts)
	s.metrics.ObserveStage(string(run.StageUpload), time.Since(start))

	failed := res.Failed()
	s.metrics.AddUploads(len(res.Uploads)-failed, failed)
	r.SetCounts(res.Frames, len(res.Uploads)-failed, failed)
	_ = r.Complete()
	s.save(ctx, logger, r)
	s.metrics.RunFinished(metrics.OutcomeSuccess, string(run.StageDone))

	logger.Info("pipeline completed",
		slog.String("destination", s.opts.DestinationBucket+"/"+prefix),
		slog.Int("frames", res.Frames),
		slog.Int("upload_failures", failed),
	)
	return res, nil
}

// extract runs the extractor under the configured timeout and returns
// the exit status. A non-zero status is an error only in strict mode.
func (s *Service) extract(ctx context.Context, input string) (int, error) {
	if s.opts.ExtractionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ExtractionTimeout)
		defer cancel()
	}

	out, err := s.extractor.ExtractFrames(ctx, media.ExtractionJob{
		InputPath:       input,
		OutputDirectory: s.ws.Dir(),
		FrameRate:       s.opts.FrameRate,
		OutputPattern:   media.DefaultOutputPattern,
	})
	if err != nil {
		return out.ExitCode, err
	}
	if out.ExitCode != 0 && s.opts.FailOnNonZeroExit {
		return out.ExitCode, fmt.Errorf("%w: exit code %d: %s", ErrExtractionExitStatus, out.ExitCode, out.Stderr)
	}
	return out.ExitCode, nil
}

func (s *Service) probe(ctx context.Context, logger *slog.Logger, input string) {
	if s.prober == nil {
		return
	}
	seconds, err := s.prober.ProbeDuration(ctx, input)
	if err != nil {
		logger.Warn("could not probe source duration", slog.String("error", err.Error()))
		return
	}
	s.metrics.ObserveSourceDuration(seconds)
	logger.Info("source probed", slog.Float64("duration_seconds", seconds))
}

// enter moves r to stage and persists it so readers see progress.
func (s *Service) enter(ctx context.Context, logger *slog.Logger, r *run.Run, stage run.Stage) {
	r.Enter(stage)
	s.save(ctx, logger, r)
}

func (s *Service) save(ctx context.Context, logger *slog.Logger, r *run.Run) {
	if s.runs == nil {
		return
	}
	if err := s.runs.Save(ctx, r); err != nil {
		logger.Warn("failed to save run", slog.String("error", err.Error()))
	}
}
