package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dvloznov/lifeledger/internal/jobs"
)

// DefaultRetention is how many finished jobs a Store keeps.
const DefaultRetention = 1000

// Store keeps job state in memory. Data is lost on service restart.
type Store struct {
	mu        sync.RWMutex
	jobs      map[string]*jobs.Job
	retention int
	now       func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithRetention sets how many finished jobs are kept; older ones are
// dropped as new jobs finish. Zero or less keeps everything.
func WithRetention(n int) StoreOption {
	return func(s *Store) { s.retention = n }
}

// NewStore creates an empty job store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		jobs:      make(map[string]*jobs.Job),
		retention: DefaultRetention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SaveJob stores a copy of job, replacing any previous state.
func (s *Store) SaveJob(ctx context.Context, job *jobs.Job) error {
	if job.ID == "" {
		return fmt.Errorf("SaveJob: job id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := *job
	s.jobs[job.ID] = &c
	if c.Status.Finished() {
		s.prune()
	}
	return nil
}

// GetJob returns a copy of the job with jobID.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("GetJob %s: %w", jobID, jobs.ErrJobNotFound)
	}
	c := *job
	return &c, nil
}

// ListJobs returns copies of the matching jobs, newest first.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.Job, error) {
	s.mu.RLock()
	result := []*jobs.Job{}
	for _, job := range s.jobs {
		if !matches(job, filter) {
			continue
		}
		c := *job
		result = append(result, &c)
	}
	s.mu.RUnlock()

	sortNewestFirst(result)

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*jobs.Job{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

// UpdateJobStatus sets the status and error of a stored job. Moving to a
// finished status stamps CompletedAt; moving to running stamps StartedAt.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("UpdateJobStatus %s: %w", jobID, jobs.ErrJobNotFound)
	}

	now := s.now().UTC()
	job.Status = status
	job.Error = errorMsg
	switch {
	case status == jobs.JobStatusRunning:
		job.StartedAt = &now
	case status.Finished():
		job.CompletedAt = &now
		s.prune()
	}
	return nil
}

// prune drops the oldest finished jobs beyond the retention limit. Callers
// hold s.mu.
func (s *Store) prune() {
	if s.retention <= 0 {
		return
	}
	var finished []*jobs.Job
	for _, job := range s.jobs {
		if job.Status.Finished() {
			finished = append(finished, job)
		}
	}
	if len(finished) <= s.retention {
		return
	}
	sortNewestFirst(finished)
	for _, job := range finished[s.retention:] {
		delete(s.jobs, job.ID)
	}
}

func matches(job *jobs.Job, f jobs.JobFilter) bool {
	return (f.UserID == "" || job.UserID == f.UserID) &&
		(f.Type == "" || job.Type == f.Type) &&
		(f.Status == "" || job.Status == f.Status)
}

func sortNewestFirst(js []*jobs.Job) {
	sort.Slice(js, func(i, j int) bool {
		if !js[i].CreatedAt.Equal(js[j].CreatedAt) {
			return js[i].CreatedAt.After(js[j].CreatedAt)
		}
		return js[i].ID < js[j].ID
	})
}

var _ jobs.JobStore = (*Store)(nil)
