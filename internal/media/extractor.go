// Package media provides frame extraction from video files.
package media

import (
	"context"
	"time"
)

// DefaultOutputPattern names frames by increasing integer index: 1.png, 2.png, ...
const DefaultOutputPattern = "%d.png"

// ExtractionJob describes one frame extraction. It is built once per
// invocation and consumed by a single ExtractFrames call.
type ExtractionJob struct {
	// InputPath is the fetched source video.
	InputPath string
	// OutputDirectory receives the numbered images.
	OutputDirectory string
	// FrameRate is the number of frames extracted per second of video.
	FrameRate int
	// OutputPattern is the printf-style file name pattern, e.g. "%d.png".
	OutputPattern string
}

// ExtractionResult reports how the external tool finished.
type ExtractionResult struct {
	// ExitCode is the tool's exit status. A non-zero code is reported,
	// not returned as an error; callers decide whether it is fatal.
	ExitCode int
	// Stderr holds the tail of the tool's diagnostic output.
	Stderr string
	// Duration is the wall time the tool ran for.
	Duration time.Duration
}

// FrameExtractor defines the interface for extracting still frames from video.
type FrameExtractor interface {
	// ExtractFrames runs the extraction described by job and returns once
	// the external process has exited. It returns an error only when the
	// process could not be run to completion (missing binary, spawn
	// failure, cancellation or timeout).
	ExtractFrames(ctx context.Context, job ExtractionJob) (ExtractionResult, error)
}

// Prober reports media metadata.
type Prober interface {
	// ProbeDuration returns the duration of a media file in seconds.
	ProbeDuration(ctx context.Context, path string) (float64, error)
}
