package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/chicogong/ffgraph/pkg/schemas"
)

// MemoryStore is an in-memory implementation of Store, safe for concurrent
// use. Jobs are copied on the way in and out.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	now  func() time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]*Job),
		now:  time.Now,
	}
}

// CreateJob creates a new job
func (m *MemoryStore) CreateJob(ctx context.Context, job *Job) error {
	if job.JobID == "" {
		return ErrInvalidJobID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[job.JobID]; exists {
		return ErrJobExists
	}

	stored := copyJob(job)
	if stored.Created.IsZero() {
		stored.Created = m.now()
	}
	if stored.Updated.IsZero() {
		stored.Updated = stored.Created
	}
	if stored.Status == "" {
		stored.Status = schemas.JobStatePending
	}
	m.jobs[job.JobID] = stored
	return nil
}

// GetJob retrieves a job by ID
func (m *MemoryStore) GetJob(ctx context.Context, jobID string) (*Job, error) {
	if jobID == "" {
		return nil, ErrInvalidJobID
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return nil, ErrJobNotFound
	}
	return copyJob(job), nil
}

// UpdateJob updates an existing job
func (m *MemoryStore) UpdateJob(ctx context.Context, job *Job) error {
	if job.JobID == "" {
		return ErrInvalidJobID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[job.JobID]; !exists {
		return ErrJobNotFound
	}

	stored := copyJob(job)
	stored.Updated = m.now()
	m.jobs[job.JobID] = stored
	return nil
}

// DeleteJob deletes a job by ID
func (m *MemoryStore) DeleteJob(ctx context.Context, jobID string) error {
	if jobID == "" {
		return ErrInvalidJobID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[jobID]; !exists {
		return ErrJobNotFound
	}
	delete(m.jobs, jobID)
	return nil
}

// ListJobs lists jobs with optional filtering
func (m *MemoryStore) ListJobs(ctx context.Context, filter *ListFilter) ([]*Job, error) {
	if filter == nil {
		filter = &ListFilter{}
	}

	m.mu.RLock()
	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		if matches(job, filter) {
			jobs = append(jobs, copyJob(job))
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(jobs, func(a, b *Job) int {
		c := a.Created.Compare(b.Created)
		if c == 0 {
			c = strings.Compare(a.JobID, b.JobID)
		}
		if !filter.Ascending {
			c = -c
		}
		return c
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(jobs) {
			return []*Job{}, nil
		}
		jobs = jobs[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(jobs) {
		jobs = jobs[:filter.Limit]
	}
	return jobs, nil
}

// UpdateJobStatus updates job status and progress
func (m *MemoryStore) UpdateJobStatus(ctx context.Context, jobID string, status schemas.JobState, progress *schemas.Progress) error {
	return m.transition(jobID, status, func(job *Job) {
		if progress != nil {
			job.Progress = copyProgress(progress)
		}
	})
}

// FailJob records err and marks the job failed
func (m *MemoryStore) FailJob(ctx context.Context, jobID string, err *schemas.ErrorInfo) error {
	return m.transition(jobID, schemas.JobStateFailed, func(job *Job) {
		if err != nil {
			e := *err
			job.Error = &e
		}
	})
}

// CompleteJob records outputs and marks the job completed
func (m *MemoryStore) CompleteJob(ctx context.Context, jobID string, outputs []schemas.OutputFile) error {
	return m.transition(jobID, schemas.JobStateCompleted, func(job *Job) {
		job.OutputFiles = slices.Clone(outputs)
		if job.Progress == nil {
			job.Progress = &schemas.Progress{}
		}
		job.Progress.OverallPercent = 100
	})
}

func (m *MemoryStore) transition(jobID string, status schemas.JobState, apply func(*Job)) error {
	if jobID == "" {
		return ErrInvalidJobID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return ErrJobNotFound
	}
	if job.Status.Terminal() && job.Status != status {
		return ErrInvalidTransition
	}

	now := m.now()
	job.Status = status
	job.Updated = now
	apply(job)

	if job.StartedAt == nil && job.IsRunning() {
		job.StartedAt = &now
	}
	if job.CompletedAt == nil && status.Terminal() {
		job.CompletedAt = &now
	}
	return nil
}

// Close closes the store (no-op for memory store)
func (m *MemoryStore) Close() error {
	return nil
}

func matches(job *Job, filter *ListFilter) bool {
	if len(filter.Status) > 0 && !slices.Contains(filter.Status, job.Status) {
		return false
	}
	if filter.CreatedAfter != nil && job.Created.Before(*filter.CreatedAfter) {
		return false
	}
	if filter.CreatedBefore != nil && job.Created.After(*filter.CreatedBefore) {
		return false
	}
	return true
}

// copyJob copies the mutable parts of job. Spec and Plan are shared; they
// are not modified after submission.
func copyJob(job *Job) *Job {
	if job == nil {
		return nil
	}

	c := *job
	if job.StartedAt != nil {
		t := *job.StartedAt
		c.StartedAt = &t
	}
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		c.CompletedAt = &t
	}
	if job.Error != nil {
		e := *job.Error
		c.Error = &e
	}
	c.Progress = copyProgress(job.Progress)
	c.OutputFiles = slices.Clone(job.OutputFiles)
	return &c
}

func copyProgress(p *schemas.Progress) *schemas.Progress {
	if p == nil {
		return nil
	}
	c := *p
	if p.FFmpeg != nil {
		f := *p.FFmpeg
		c.FFmpeg = &f
	}
	return &c
}
