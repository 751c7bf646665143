package run

import (
	"errors"
	"testing"

	"github.com/maauso/frame-extractor/internal/run/id"
)

func TestNew(t *testing.T) {
	r := New("uploads", "videos/alpha/clip.mp4")

	if !id.Valid(r.ID) {
		t.Errorf("expected generated ID, got %q", r.ID)
	}
	if r.Status != StatusRunning {
		t.Errorf("expected status %s, got %s", StatusRunning, r.Status)
	}
	if r.Stage != StageValidate {
		t.Errorf("expected stage %s, got %s", StageValidate, r.Stage)
	}
	if r.Bucket != "uploads" || r.Key != "videos/alpha/clip.mp4" {
		t.Errorf("unexpected source %s/%s", r.Bucket, r.Key)
	}
	if r.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestRun_Complete(t *testing.T) {
	r := NewWithID("run-1", "b", "k")

	if err := r.Complete(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.GetStatus() != StatusCompleted {
		t.Errorf("expected %s, got %s", StatusCompleted, r.GetStatus())
	}
	if r.Stage != StageDone {
		t.Errorf("expected stage %s, got %s", StageDone, r.Stage)
	}
	if r.CompletedAt.IsZero() {
		t.Error("expected CompletedAt to be set")
	}
	if !r.IsTerminal() {
		t.Error("expected terminal run")
	}
}

func TestRun_Fail(t *testing.T) {
	r := NewWithID("run-1", "b", "k")
	r.Enter(StageFetch)

	if err := r.Fail("fetch error: boom"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.GetStatus() != StatusFailed {
		t.Errorf("expected %s, got %s", StatusFailed, r.GetStatus())
	}
	if r.Error != "fetch error: boom" {
		t.Errorf("unexpected error message %q", r.Error)
	}
	if r.Stage != StageFetch {
		t.Errorf("expected failing stage to be kept, got %s", r.Stage)
	}
}

func TestRun_TerminalStatesAreFinal(t *testing.T) {
	tests := []struct {
		name   string
		finish func(*Run) error
	}{
		{"completed", (*Run).Complete},
		{"failed", func(r *Run) error { return r.Fail("x") }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := NewWithID("run-1", "b", "k")
			if err := tc.finish(r); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := r.TransitionTo(StatusRunning); !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("expected ErrInvalidTransition, got %v", err)
			}
			if err := r.Complete(); !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("expected ErrInvalidTransition, got %v", err)
			}
		})
	}
}

func TestRun_SettersAndClone(t *testing.T) {
	r := NewWithID("run-1", "b", "videos/alpha/clip.mp4")
	r.SetPrefix("alpha/clip")
	r.SetExitCode(1)
	r.SetCounts(3, 2, 1)

	c := r.Clone()
	if c.DestinationPrefix != "alpha/clip" || c.ExitCode != 1 {
		t.Errorf("clone lost fields: %+v", c)
	}
	if c.Frames != 3 || c.Uploaded != 2 || c.UploadFailures != 1 {
		t.Errorf("clone lost counts: %+v", c)
	}

	c.Frames = 99
	if r.Frames != 3 {
		t.Error("modifying clone should not affect original")
	}
}
