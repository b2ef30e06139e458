package types

import (
	"fmt"
	"strings"
)

// AuthHeader carries the opaque host credential on webhook requests
const AuthHeader = "X-Auth-Token"

// JobStatus represents the state of a generation job on the webhook service
type JobStatus string

// Job status values reported by the webhook
const (
	// JobStatusQueued indicates the job was accepted and waits for a worker
	JobStatusQueued JobStatus = "queued"
	// JobStatusProcessing indicates generation is running
	JobStatusProcessing JobStatus = "processing"
	// JobStatusComplete indicates outputs are ready
	JobStatusComplete JobStatus = "complete"
	// JobStatusFailed indicates generation stopped with an error
	JobStatusFailed JobStatus = "failed"
)

// IsTerminal reports whether the job can no longer change
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusComplete || s == JobStatusFailed
}

// String returns the wire value
func (s JobStatus) String() string {
	return string(s)
}

// ParseJobStatus converts a wire value into a JobStatus
func ParseJobStatus(str string) (JobStatus, error) {
	switch s := JobStatus(strings.ToLower(strings.TrimSpace(str))); s {
	case JobStatusQueued, JobStatusProcessing, JobStatusComplete, JobStatusFailed:
		return s, nil
	default:
		return "", fmt.Errorf("invalid job status: %q", str)
	}
}

// OutputType selects what the webhook renders
type OutputType string

// Output types
const (
	OutputImages OutputType = "images"
	OutputVideo  OutputType = "video"
)

// IsValid reports whether t is a known output type
func (t OutputType) IsValid() bool {
	return t == OutputImages || t == OutputVideo
}

// JobHandle is returned by brief and revision submissions
type JobHandle struct {
	JobID  string    `json:"jobId"`  // Identifier assigned by the webhook
	Status JobStatus `json:"status"` // Initial status, normally queued
}

// StatusResponse is the body of a job status query
type StatusResponse struct {
	JobID    string    `json:"jobId"`
	Status   JobStatus `json:"status"`
	Progress float64   `json:"progress"`        // 0-100
	Stage    string    `json:"stage,omitempty"` // Descriptive label, may be empty
	Error    string    `json:"error,omitempty"` // Set when status is failed
}

// JobResults holds the outputs of a completed job. The payload is owned by
// the webhook service and kept opaque.
type JobResults struct {
	JobID   string                 `json:"jobId"`
	Outputs map[string]interface{} `json:"outputs"`
	Prompts map[string]interface{} `json:"prompts,omitempty"`
}

// Images returns the image URLs found under outputs.images. Entries may be
// plain strings or objects carrying a url field.
func (r *JobResults) Images() []string {
	if r == nil || r.Outputs == nil {
		return nil
	}
	raw, ok := r.Outputs["images"].([]interface{})
	if !ok {
		return nil
	}

	urls := make([]string, 0, len(raw))
	for _, item := range raw {
		switch v := item.(type) {
		case string:
			urls = append(urls, v)
		case map[string]interface{}:
			if u, ok := v["url"].(string); ok {
				urls = append(urls, u)
			}
		}
	}
	return urls
}

// SubmitBriefRequest is the body of POST /brief-submit
type SubmitBriefRequest struct {
	AuthToken  string      `json:"authToken"`
	Brief      BriefFields `json:"brief"`
	OutputType OutputType  `json:"outputType"`
	Timestamp  string      `json:"timestamp"`
}

// SubmitRevisionRequest is the body of POST /brief-revision
type SubmitRevisionRequest struct {
	AuthToken     string   `json:"authToken"`
	OriginalJobID string   `json:"originalJobId"`
	Fixes         []string `json:"fixes"`
	Notes         string   `json:"notes"`
	Timestamp     string   `json:"timestamp"`
}

// ErrorResponse is the error body returned by the webhook
type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}
