// Package pipeline turns one uploaded video into a set of frame images in
// the destination bucket. It validates the source key, fetches the video
// into the scratch directory, runs frame extraction, collects the produced
// files and uploads them concurrently.
package pipeline

import (
	"slices"
	"strings"
)

// SourceReference identifies the uploaded video that triggered a run.
type SourceReference struct {
	// Bucket is the source container name.
	Bucket string `json:"bucket"`
	// Key is the decoded object key.
	Key string `json:"key"`
}

// String returns the reference as bucket/key.
func (r SourceReference) String() string {
	return r.Bucket + "/" + r.Key
}

// DefaultAllowedTypes are the video extensions accepted when none are configured.
var DefaultAllowedTypes = []string{"mov", "mpg", "mpeg", "mp4", "wmv", "avi", "webm"}

// AllowedTypeSet is an immutable set of accepted file extensions.
// Membership is case-sensitive.
type AllowedTypeSet struct {
	exts []string
}

// NewAllowedTypeSet builds a set from exts. Surrounding whitespace and a
// leading dot are dropped; empty entries and duplicates are ignored.
func NewAllowedTypeSet(exts ...string) AllowedTypeSet {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.TrimPrefix(strings.TrimSpace(e), ".")
		if e == "" || slices.Contains(out, e) {
			continue
		}
		out = append(out, e)
	}
	return AllowedTypeSet{exts: out}
}

// Contains reports whether ext is accepted.
func (s AllowedTypeSet) Contains(ext string) bool {
	return slices.Contains(s.exts, ext)
}

// List returns a copy of the accepted extensions in configuration order.
func (s AllowedTypeSet) List() []string {
	return slices.Clone(s.exts)
}

// Len returns the number of accepted extensions.
func (s AllowedTypeSet) Len() int {
	return len(s.exts)
}
