package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cozy-creator/brandgen/internal/types"
)

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now for timestamps stamped by the store.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type jobEntry struct {
	job *types.Job
	seq uint64
}

// JobStore keeps generation jobs in memory. Every mutation of a job runs
// under that job's key lock, so read-modify-write sequences are atomic per
// id while different ids proceed in parallel.
type JobStore struct {
	mu    sync.RWMutex
	jobs  map[string]*jobEntry
	seq   uint64
	locks *KeyedMutex
	now   func() time.Time
}

func NewJobStore(opts ...Option) *JobStore {
	o := buildOptions(opts)
	return &JobStore{
		jobs:  make(map[string]*jobEntry),
		locks: NewKeyedMutex(),
		now:   o.now,
	}
}

// Now returns the store clock so callers stamp entities consistently.
func (s *JobStore) Now() time.Time {
	return s.now()
}

func (s *JobStore) Insert(job *types.Job) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("job must have an id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("job %s: %w", job.ID, ErrAlreadyExists)
	}
	s.seq++
	s.jobs[job.ID] = &jobEntry{job: job.Clone(), seq: s.seq}

	return nil
}

func (s *JobStore) Get(id string) (*types.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}

	return entry.job.Clone(), nil
}

// List returns jobs newest first, optionally restricted to one status.
func (s *JobStore) List(status *types.JobStatus) []*types.Job {
	s.mu.RLock()
	entries := make([]*jobEntry, 0, len(s.jobs))
	for _, entry := range s.jobs {
		if status != nil && entry.job.Status != *status {
			continue
		}
		entries = append(entries, &jobEntry{job: entry.job.Clone(), seq: entry.seq})
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.job.CreatedAt.Equal(b.job.CreatedAt) {
			return a.job.CreatedAt.After(b.job.CreatedAt)
		}
		return a.seq > b.seq
	})

	jobs := make([]*types.Job, len(entries))
	for i, entry := range entries {
		jobs[i] = entry.job
	}
	return jobs
}

// update applies fn to a copy of the job under its key lock and stores the
// copy only when fn succeeds.
func (s *JobStore) update(id string, fn func(job *types.Job) error) (*types.Job, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	s.mu.RLock()
	entry, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}

	next := entry.job.Clone()
	if err := fn(next); err != nil {
		return entry.job.Clone(), err
	}

	s.mu.Lock()
	entry.job = next
	s.mu.Unlock()

	return next.Clone(), nil
}

// Start moves a queued job to processing.
func (s *JobStore) Start(id string) (*types.Job, error) {
	return s.update(id, func(job *types.Job) error {
		if job.Status != types.JobStatusQueued {
			return &StateError{Op: "start", Status: string(job.Status)}
		}
		job.Status = types.JobStatusProcessing
		return nil
	})
}

// Progress records processing progress, clamped to [0, 100].
func (s *JobStore) Progress(id string, progress float64) (*types.Job, error) {
	return s.update(id, func(job *types.Job) error {
		if job.Status != types.JobStatusProcessing {
			return &StateError{Op: "progress", Status: string(job.Status)}
		}
		job.Progress = min(max(progress, 0), 100)
		return nil
	})
}

// Complete finishes a processing job with its images.
func (s *JobStore) Complete(id string, images []types.GeneratedImage) (*types.Job, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}

	return s.update(id, func(job *types.Job) error {
		if job.Status != types.JobStatusProcessing {
			return &StateError{Op: "complete", Status: string(job.Status)}
		}
		now := s.now()
		job.Status = types.JobStatusComplete
		job.Progress = 100
		job.Images = append([]types.GeneratedImage(nil), images...)
		job.CompletedAt = &now
		job.ErrorMessage = nil
		return nil
	})
}

// Fail marks a queued or processing job as failed with message.
func (s *JobStore) Fail(id string, message string) (*types.Job, error) {
	return s.update(id, func(job *types.Job) error {
		if job.Status.Terminal() {
			return &StateError{Op: "fail", Status: string(job.Status)}
		}
		if message == "" {
			message = "Unknown error"
		}
		now := s.now()
		job.Status = types.JobStatusFailed
		job.ErrorMessage = &message
		job.CompletedAt = &now
		job.Images = []types.GeneratedImage{}
		return nil
	})
}

// Cancel marks a queued or processing job as cancelled. A refused cancel
// returns a *StateError naming the job's current status.
func (s *JobStore) Cancel(id string) (*types.Job, error) {
	return s.update(id, func(job *types.Job) error {
		if job.Status.Terminal() {
			return &StateError{Op: "cancel", Status: string(job.Status)}
		}
		now := s.now()
		job.Status = types.JobStatusCancelled
		job.CompletedAt = &now
		return nil
	})
}
