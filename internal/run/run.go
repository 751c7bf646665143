// Package run provides the Run aggregate that records one pass of the frame
// extraction pipeline, with state transitions and a repository port for
// persistence.
package run

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/maauso/frame-extractor/internal/run/id"
)

// Status represents the current state of a Run.
type Status string

const (
	// StatusRunning indicates the pipeline is in progress.
	StatusRunning Status = "RUNNING"
	// StatusCompleted indicates the pipeline reached the upload stage and every attempt resolved.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates a fatal stage error aborted the pipeline.
	StatusFailed Status = "FAILED"
)

// Stage names the pipeline step a run is in, or failed in.
type Stage string

const (
	StageValidate Stage = "validate"
	StageReset    Stage = "reset"
	StageFetch    Stage = "fetch"
	StageExtract  Stage = "extract"
	StageCollect  Stage = "collect"
	StageUpload   Stage = "upload"
	StageDone     Stage = "done"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusRunning:   {StatusCompleted, StatusFailed},
	StatusCompleted: {},
	StatusFailed:    {},
}

func canTransition(from, to Status) bool {
	return slices.Contains(validTransitions[from], to)
}

// Run records a single pipeline invocation for one source object.
type Run struct {
	mu sync.RWMutex

	// ID is the unique identifier for this run.
	ID string
	// Bucket is the source container.
	Bucket string
	// Key is the decoded source object key.
	Key string
	// Status is the current run state.
	Status Status
	// Stage is the last stage entered.
	Stage Stage
	// Error contains the fatal error message if the run failed.
	Error string
	// ExitCode is the ffmpeg exit status, once known.
	ExitCode int
	// DestinationPrefix is where frames are written in the destination bucket.
	DestinationPrefix string
	// Frames is the number of artifacts collected.
	Frames int
	// Uploaded is the number of artifacts stored successfully.
	Uploaded int
	// UploadFailures is the number of artifacts that could not be stored.
	UploadFailures int
	// CreatedAt is when the run started.
	CreatedAt time.Time
	// UpdatedAt is when the run was last updated.
	UpdatedAt time.Time
	// CompletedAt is when the run reached a terminal state.
	CompletedAt time.Time
}

// New creates a RUNNING run for bucket/key with a generated ID.
func New(bucket, key string) *Run {
	return NewWithID(id.Generate(), bucket, key)
}

// NewWithID creates a RUNNING run with the specified ID.
func NewWithID(runID, bucket, key string) *Run {
	now := time.Now()
	return &Run{
		ID:        runID,
		Bucket:    bucket,
		Key:       key,
		Status:    StatusRunning,
		Stage:     StageValidate,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the run status.
// Returns ErrInvalidTransition if the transition is not allowed.
func (r *Run) TransitionTo(status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !canTransition(r.Status, status) {
		return ErrInvalidTransition
	}

	r.Status = status
	r.UpdatedAt = time.Now()
	if status == StatusCompleted || status == StatusFailed {
		r.CompletedAt = r.UpdatedAt
	}
	return nil
}

// Complete transitions the run to COMPLETED.
func (r *Run) Complete() error {
	if err := r.TransitionTo(StatusCompleted); err != nil {
		return err
	}
	r.Enter(StageDone)
	return nil
}

// Fail transitions the run to FAILED with an error message.
// The stage is left at the one that failed.
func (r *Run) Fail(errMsg string) error {
	r.mu.Lock()
	r.Error = errMsg
	r.mu.Unlock()
	return r.TransitionTo(StatusFailed)
}

// Enter records that the run moved to stage.
func (r *Run) Enter(stage Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Stage = stage
	r.UpdatedAt = time.Now()
}

// SetPrefix records the destination prefix.
func (r *Run) SetPrefix(prefix string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.DestinationPrefix = prefix
	r.UpdatedAt = time.Now()
}

// SetExitCode records the ffmpeg exit status.
func (r *Run) SetExitCode(code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ExitCode = code
	r.UpdatedAt = time.Now()
}

// SetCounts records how many frames were collected and how the uploads resolved.
func (r *Run) SetCounts(frames, uploaded, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Frames = frames
	r.Uploaded = uploaded
	r.UploadFailures = failed
	r.UpdatedAt = time.Now()
}

// GetStatus returns the current run status (thread-safe).
func (r *Run) GetStatus() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Status
}

// IsTerminal returns true if the run is in a terminal state.
func (r *Run) IsTerminal() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// Clone creates a copy of the run for safe reads.
func (r *Run) Clone() *Run {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return &Run{
		ID:                r.ID,
		Bucket:            r.Bucket,
		Key:               r.Key,
		Status:            r.Status,
		Stage:             r.Stage,
		Error:             r.Error,
		ExitCode:          r.ExitCode,
		DestinationPrefix: r.DestinationPrefix,
		Frames:            r.Frames,
		Uploaded:          r.Uploaded,
		UploadFailures:    r.UploadFailures,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
		CompletedAt:       r.CompletedAt,
	}
}
