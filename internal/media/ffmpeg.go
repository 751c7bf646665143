package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Static errors for media operations.
var (
	// ErrExtraction is returned when the extraction process cannot be run to completion.
	ErrExtraction = errors.New("extraction error")
	// ErrInvalidJob is returned when an ExtractionJob is missing required fields.
	ErrInvalidJob = errors.New("invalid extraction job")
	// ErrFFprobeExecution is returned when ffprobe command fails.
	ErrFFprobeExecution = errors.New("ffprobe execution failed")
)

// maxStderrTail caps how much ffmpeg output is kept in results and errors.
const maxStderrTail = 4096

// Compile-time checks that FFmpegExtractor implements FrameExtractor and Prober.
var (
	_ FrameExtractor = (*FFmpegExtractor)(nil)
	_ Prober         = (*FFmpegExtractor)(nil)
)

// FFmpegExtractor implements FrameExtractor using the ffmpeg CLI.
type FFmpegExtractor struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
	// ffprobePath is the path to the ffprobe binary. Defaults to "ffprobe".
	ffprobePath string
}

// NewFFmpegExtractor creates a new FFmpegExtractor.
// Empty paths default to "ffmpeg" and "ffprobe" (found via PATH).
func NewFFmpegExtractor(ffmpegPath, ffprobePath string) *FFmpegExtractor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpegExtractor{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

// Args returns the ffmpeg argument list for job:
// -i <input> -r <frameRate> <outputDirectory>/<outputPattern>.
func (j ExtractionJob) Args() []string {
	return []string{
		"-i", j.InputPath,
		"-r", strconv.Itoa(j.FrameRate),
		filepath.Join(j.OutputDirectory, j.OutputPattern),
	}
}

// Validate checks that job can be handed to ffmpeg.
func (j ExtractionJob) Validate() error {
	switch {
	case j.InputPath == "":
		return fmt.Errorf("%w: input path is empty", ErrInvalidJob)
	case j.OutputDirectory == "":
		return fmt.Errorf("%w: output directory is empty", ErrInvalidJob)
	case j.FrameRate <= 0:
		return fmt.Errorf("%w: frame rate must be positive, got %d", ErrInvalidJob, j.FrameRate)
	case j.OutputPattern == "":
		return fmt.Errorf("%w: output pattern is empty", ErrInvalidJob)
	}
	return nil
}

// ExtractFrames runs ffmpeg and waits for it to exit. The exit status is
// reported in the result; only a failure to run the process at all is
// returned as an error.
func (p *FFmpegExtractor) ExtractFrames(ctx context.Context, job ExtractionJob) (ExtractionResult, error) {
	if err := job.Validate(); err != nil {
		return ExtractionResult{}, err
	}

	args := job.Args()

	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := ExtractionResult{
		Stderr:   tail(stderr.String(), maxStderrTail),
		Duration: time.Since(start),
	}

	if err == nil {
		return result, nil
	}

	// Check if context was cancelled or timed out
	if ctx.Err() != nil {
		return result, fmt.Errorf("%w: ffmpeg cancelled: %w", ErrExtraction, ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}

	return result, fmt.Errorf("%w: %w", ErrExtraction, &FFmpegError{
		Args:   args,
		Stderr: result.Stderr,
		Err:    err,
	})
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

// ProbeDuration returns the duration in seconds of a media file.
// It uses ffprobe to extract the duration metadata.
func (p *FFmpegExtractor) ProbeDuration(ctx context.Context, path string) (float64, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return 0, fmt.Errorf("%w: %w, stderr: %s", ErrFFprobeExecution, err, stderr.String())
	}

	var duration float64
	_, err = fmt.Sscanf(strings.TrimSpace(stdout.String()), "%f", &duration)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}

	return duration, nil
}

// tail returns at most the last n bytes of s.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
