// Package store keeps the state of submitted jobs.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/chicogong/ffgraph/pkg/schemas"
)

var (
	// ErrJobNotFound is returned when a job does not exist
	ErrJobNotFound = errors.New("job not found")

	// ErrJobExists is returned when attempting to create a job that already exists
	ErrJobExists = errors.New("job already exists")

	// ErrInvalidJobID is returned for invalid job IDs
	ErrInvalidJobID = errors.New("invalid job ID")

	// ErrInvalidTransition is returned when a job leaves a terminal state
	ErrInvalidTransition = errors.New("invalid job state transition")
)

// Store is the interface for job state persistence
type Store interface {
	// CreateJob creates a new job with initial state
	CreateJob(ctx context.Context, job *Job) error

	// GetJob retrieves a job by ID
	GetJob(ctx context.Context, jobID string) (*Job, error)

	// UpdateJob replaces an existing job
	UpdateJob(ctx context.Context, job *Job) error

	// DeleteJob deletes a job by ID
	DeleteJob(ctx context.Context, jobID string) error

	// ListJobs lists jobs with optional filtering
	ListJobs(ctx context.Context, filter *ListFilter) ([]*Job, error)

	// UpdateJobStatus moves a job to status and records progress, which
	// may be nil
	UpdateJobStatus(ctx context.Context, jobID string, status schemas.JobState, progress *schemas.Progress) error

	// FailJob records err and moves the job to the failed state
	FailJob(ctx context.Context, jobID string, err *schemas.ErrorInfo) error

	// CompleteJob records the written outputs and moves the job to the
	// completed state
	CompleteJob(ctx context.Context, jobID string, outputs []schemas.OutputFile) error

	// Close closes the store and releases resources
	Close() error
}

// Job is a submitted job and everything known about its run.
type Job struct {
	JobID   string    `json:"job_id"`
	Created time.Time `json:"created_at"`
	Updated time.Time `json:"updated_at"`

	Spec *schemas.JobSpec        `json:"spec"`
	Plan *schemas.ProcessingPlan `json:"plan,omitempty"`

	Status      schemas.JobState     `json:"status"`
	Progress    *schemas.Progress    `json:"progress,omitempty"`
	Error       *schemas.ErrorInfo   `json:"error,omitempty"`
	StartedAt   *time.Time           `json:"started_at,omitempty"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
	OutputFiles []schemas.OutputFile `json:"output_files,omitempty"`
}

// ListFilter defines filtering criteria for listing jobs
type ListFilter struct {
	Status []schemas.JobState `json:"status,omitempty"`

	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`

	// Pagination
	Limit  int `json:"limit,omitempty"`  // Max results (0 = no limit)
	Offset int `json:"offset,omitempty"` // Skip N results

	// Newest first unless Ascending is set
	Ascending bool `json:"ascending,omitempty"`
}

// ToJobStatus converts a Job to schemas.JobStatus
func (j *Job) ToJobStatus() *schemas.JobStatus {
	return &schemas.JobStatus{
		JobID:       j.JobID,
		Status:      j.Status,
		Progress:    j.Progress,
		Error:       j.Error,
		Plan:        j.Plan,
		CreatedAt:   j.Created,
		UpdatedAt:   j.Updated,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
		OutputFiles: j.OutputFiles,
	}
}

// IsTerminal returns true if the job is in a terminal state
func (j *Job) IsTerminal() bool {
	return j.Status.Terminal()
}

// IsRunning returns true if the job has started and not finished
func (j *Job) IsRunning() bool {
	return j.Status != schemas.JobStatePending && !j.Status.Terminal()
}
