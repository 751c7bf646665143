package pipeline

import "errors"

// Static errors for pipeline stages. Stage failures from other packages
// keep their own sentinels (workspace.ErrWorkspace, workspace.ErrCollection,
// media.ErrExtraction).
var (
	// ErrInvalidKey is returned when the source key has no trailing extension.
	ErrInvalidKey = errors.New("could not determine the file type")
	// ErrUnsupportedType is returned when the extension is not in the allow-list.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrKeyShape is returned when a destination prefix cannot be derived from the key.
	ErrKeyShape = errors.New("source key has too few path segments")
	// ErrFetch is returned when the source object cannot be streamed to the workspace.
	ErrFetch = errors.New("fetch error")
	// ErrUpload wraps a failure to store one frame.
	ErrUpload = errors.New("upload error")
	// ErrExtractionExitStatus is returned when ffmpeg exits non-zero and strict mode is on.
	ErrExtractionExitStatus = errors.New("frame extraction exited with non-zero status")
	// ErrRunFinished is returned by ProcessRun for a run that already completed or failed.
	ErrRunFinished = errors.New("run already finished")
)
