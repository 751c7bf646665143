// Package id provides unique identifier generation for runs.
package id

import (
	"github.com/google/uuid"
)

// Prefix marks identifiers produced by Generate.
const Prefix = "run-"

// Generate creates a new unique run ID.
// Format: run-<uuid v4>
// Example: run-0b6f3c1e-8d2a-4a57-9a43-5f1c2b7d9e10
func Generate() string {
	return Prefix + uuid.NewString()
}

// Valid reports whether s has the shape of a generated run ID.
func Valid(s string) bool {
	if len(s) <= len(Prefix) || s[:len(Prefix)] != Prefix {
		return false
	}
	_, err := uuid.Parse(s[len(Prefix):])
	return err == nil
}
