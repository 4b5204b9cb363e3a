package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/model"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/repository"
	"github.com/google/uuid"
)

// MemoryStore keeps jobs in process memory. Readers always receive copies.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*model.Job
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: map[uuid.UUID]*model.Job{}}
}

func (s *MemoryStore) Create(_ context.Context, job *model.Job) error {
	if job.ID == uuid.Nil {
		job.InitMeta()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return &repository.UniqueConstraintError{Detail: "job " + job.ID.String() + " already exists"}
	}
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, repository.ErrNotFound)
	}
	return cloneJob(job), nil
}

func (s *MemoryStore) Claim(_ context.Context, id uuid.UUID) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, repository.ErrNotFound)
	}
	if job.State != model.JobStatePending {
		return nil, fmt.Errorf("job %s is %s: %w", id, job.State, repository.ErrAlreadyClaimed)
	}
	job.State = model.JobStateRunning
	job.UpdatedAt = time.Now()
	return cloneJob(job), nil
}

// Update applies state, progress, error and result, rejecting regressions with ErrStaleUpdate.
// The cancel flag is owned by RequestCancel and is not overwritten.
func (s *MemoryStore) Update(_ context.Context, job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.jobs[job.ID]
	if !ok {
		return fmt.Errorf("job %s: %w", job.ID, repository.ErrNotFound)
	}
	if !stored.State.CanTransitionTo(job.State) || job.Processed < stored.Processed {
		return fmt.Errorf("job %s %s/%d to %s/%d: %w",
			job.ID, stored.State, stored.Processed, job.State, job.Processed, repository.ErrStaleUpdate)
	}

	job.UpdatedAt = time.Now()
	stored.State = job.State
	stored.Processed = job.Processed
	stored.Total = job.Total
	stored.Error = job.Error
	stored.Result = append([]byte(nil), job.Result...)
	stored.UpdatedAt = job.UpdatedAt
	return nil
}

func (s *MemoryStore) RequestCancel(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok || job.State.Terminal() {
		return fmt.Errorf("job %s: %w", id, repository.ErrJobNotCancelable)
	}
	job.CancelRequested = true
	job.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) DeleteFinishedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, job := range s.jobs {
		if job.State.Terminal() && job.UpdatedAt.Before(cutoff) {
			delete(s.jobs, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *MemoryStore) FailStale(_ context.Context, cutoff time.Time, reason string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var failed int64
	for _, job := range s.jobs {
		if !job.State.Terminal() && job.UpdatedAt.Before(cutoff) {
			job.State = model.JobStateFailed
			job.Error = reason
			job.UpdatedAt = now
			failed++
		}
	}
	return failed, nil
}

func cloneJob(job *model.Job) *model.Job {
	c := *job
	if job.Result != nil {
		c.Result = append([]byte(nil), job.Result...)
	}
	return &c
}
