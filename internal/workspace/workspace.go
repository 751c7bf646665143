// Package workspace owns the scratch directory an invocation works in.
// The directory may be reused across invocations by the runtime, so it
// is purged at the start of every run and never by a failed run.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Static errors for workspace operations.
var (
	// ErrWorkspace is returned when the scratch directory cannot be listed or purged.
	ErrWorkspace = errors.New("workspace error")
	// ErrCollection wraps a failure to read one produced file.
	ErrCollection = errors.New("collection error")
	// ErrSharedDirectory is returned by New for a directory other processes
	// also use, such as the system temp dir, unless AllowShared is given.
	ErrSharedDirectory = errors.New("refusing to use a shared directory as scratch space")
)

// DefaultDirName is the scratch directory created under os.TempDir when
// no directory is configured.
const DefaultDirName = "frame-extractor-scratch"

// sourceBaseName is the fixed file name of the fetched source, before its extension.
const sourceBaseName = "input"

// Artifact is one produced file read into memory.
type Artifact struct {
	// Filename is the base name inside the scratch directory.
	Filename string
	// Content is the full file content.
	Content []byte
}

// Manager manages a single scratch directory.
type Manager struct {
	dir string
}

// Option configures a Manager.
type Option func(*options)

type options struct {
	allowShared bool
}

// AllowShared permits the system temp dir as scratch space. Reset purges
// everything in it, so use this only where the process owns that
// directory outright, as in a Lambda container.
func AllowShared() Option {
	return func(o *options) {
		o.allowShared = true
	}
}

// New creates a Manager for dir, creating the directory if needed.
// An empty dir means DefaultDirName under os.TempDir. The filesystem root
// is always rejected, and os.TempDir itself is rejected without AllowShared.
func New(dir string, opts ...Option) (*Manager, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if dir == "" {
		dir = filepath.Join(os.TempDir(), DefaultDirName)
	}
	if err := checkShared(dir, o.allowShared); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", ErrWorkspace, dir, err)
	}
	return &Manager{dir: dir}, nil
}

func checkShared(dir string, allowShared bool) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("%w: resolve %s: %w", ErrWorkspace, dir, err)
	}
	if filepath.Dir(abs) == abs {
		return fmt.Errorf("%w: %s is a filesystem root", ErrSharedDirectory, dir)
	}
	if allowShared {
		return nil
	}
	if tmp, err := filepath.Abs(os.TempDir()); err == nil && tmp == abs {
		return fmt.Errorf("%w: %s is the system temp directory", ErrSharedDirectory, dir)
	}
	return nil
}

// Dir returns the scratch directory path.
func (m *Manager) Dir() string {
	return m.dir
}

// SourceFilename returns the reserved name for a source with extension ext.
func SourceFilename(ext string) string {
	return sourceBaseName + "." + ext
}

// SourcePath returns the path the source with extension ext is fetched to.
func (m *Manager) SourcePath(ext string) string {
	return filepath.Join(m.dir, SourceFilename(ext))
}

// Reset removes every entry in the scratch directory. The first failure
// aborts the reset; nothing is skipped silently.
func (m *Manager) Reset(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", ErrWorkspace, m.dir, err)
	}

	removed := make([]string, 0, len(entries))
	for _, e := range entries {
		select {
		case <-ctx.Done():
			return removed, fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if err := os.RemoveAll(filepath.Join(m.dir, e.Name())); err != nil {
			return removed, fmt.Errorf("%w: remove %s: %w", ErrWorkspace, e.Name(), err)
		}
		removed = append(removed, e.Name())
	}
	return removed, nil
}

// Collect reads every regular file in the scratch directory except
// exclude. A file that cannot be read is reported to onError wrapped in
// ErrCollection and skipped. Only a listing failure is returned.
// Artifacts come back in directory listing order, which is not frame order.
func (m *Manager) Collect(ctx context.Context, exclude string, onError func(error)) ([]Artifact, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", ErrCollection, m.dir, err)
	}

	artifacts := make([]Artifact, 0, len(entries))
	for _, e := range entries {
		select {
		case <-ctx.Done():
			return artifacts, fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		name := e.Name()
		if name == exclude || e.IsDir() {
			continue
		}

		content, err := os.ReadFile(filepath.Join(m.dir, name)) // #nosec G304 - name comes from listing our own directory
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("%w: read %s: %w", ErrCollection, name, err))
			}
			continue
		}
		artifacts = append(artifacts, Artifact{Filename: name, Content: content})
	}
	return artifacts, nil
}
