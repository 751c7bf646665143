// Package server provides the HTTP surface of the frame extractor: S3-format
// bucket notifications, manual runs, run lookup, health and metrics.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import "time"

// CreateRunRequest is the HTTP request body for starting a run by hand.
type CreateRunRequest struct {
	// Bucket is the source container.
	Bucket string `json:"bucket" validate:"required,max=255"`
	// Key is the decoded source object key.
	Key string `json:"key" validate:"required,max=1024"`
}

// CreateRunResponse is the HTTP response after a run is accepted.
type CreateRunResponse struct {
	// ID is the unique identifier for the run.
	ID string `json:"id"`
	// Status is the initial run status.
	Status string `json:"status"`
}

// EventResponse is the HTTP response after a notification has been processed.
type EventResponse struct {
	// RunID identifies the run that processed the event.
	RunID string `json:"run_id"`
	// Location is the source key, mirroring the completion response location header.
	Location string `json:"location"`
	// Destination is bucket/prefix where frames were written.
	Destination string `json:"destination"`
	// Frames is the number of frames collected.
	Frames int `json:"frames"`
	// UploadFailures is the number of frames that could not be stored.
	UploadFailures int `json:"upload_failures"`
}

// RunResponse is the HTTP response for getting run details.
type RunResponse struct {
	ID                string    `json:"id"`
	Bucket            string    `json:"bucket"`
	Key               string    `json:"key"`
	Status            string    `json:"status"`
	Stage             string    `json:"stage"`
	Error             string    `json:"error,omitempty"`
	ExitCode          int       `json:"exit_code"`
	DestinationPrefix string    `json:"destination_prefix,omitempty"`
	Frames            int       `json:"frames"`
	Uploaded          int       `json:"uploaded"`
	UploadFailures    int       `json:"upload_failures"`
	CreatedAt         time.Time `json:"created_at"`
	CompletedAt       time.Time `json:"completed_at,omitzero"`
}

// ListRunsResponse is the HTTP response for listing runs.
type ListRunsResponse struct {
	Runs []RunResponse `json:"runs"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
	// RunID identifies the failed run, when one was started.
	RunID string `json:"run_id,omitempty"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
