// Package jobs implements the in-memory registry of generation jobs.
package jobs

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"openkeywords/internal/domain"
	"openkeywords/internal/domain/model"
	"openkeywords/internal/domain/ports/repository"
)

var _ repository.JobRegistry = (*Registry)(nil)

type entry struct {
	job *model.GenerationJob
	seq uint64 // insertion order, breaks createdAt ties
}

// Registry is a mutex-guarded map of jobs. The zero value is not usable; use NewRegistry.
type Registry struct {
	mu    sync.Mutex
	jobs  map[string]*entry
	seq   uint64
	now   func() time.Time
	newID func() string
}

func NewRegistry() *Registry {
	return NewRegistryWithClock(time.Now)
}

// NewRegistryWithClock lets tests control timestamps.
func NewRegistryWithClock(now func() time.Time) *Registry {
	return &Registry{
		jobs:  make(map[string]*entry),
		now:   now,
		newID: uuid.NewString,
	}
}

func (r *Registry) Create(req model.KeywordRequest) (*model.GenerationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.newID()
	if _, exists := r.jobs[id]; exists {
		return nil, fmt.Errorf("job id collision %s", id)
	}
	ts := r.now()
	r.seq++
	job := &model.GenerationJob{
		ID:        id,
		Status:    model.JobStatusPending,
		Request:   req.Clone(),
		Progress:  model.JobProgress{TargetCount: req.TargetCount},
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	r.jobs[id] = &entry{job: job, seq: r.seq}
	return job.Snapshot(), nil
}

func (r *Registry) MarkRunning(id string) error {
	return r.transition(id, model.JobStatusRunning, nil)
}

func (r *Registry) Complete(id string, result *model.GenerationResult, progress model.JobProgress) error {
	return r.transition(id, model.JobStatusCompleted, func(j *model.GenerationJob) {
		j.Result = result.Clone()
		j.Progress = progress
	})
}

func (r *Registry) Fail(id string, message string) error {
	return r.transition(id, model.JobStatusFailed, func(j *model.GenerationJob) {
		j.Error = message
	})
}

func (r *Registry) transition(id string, next model.JobStatus, apply func(*model.GenerationJob)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[id]
	if !ok {
		return fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
	}
	if !e.job.Status.CanTransitionTo(next) {
		return fmt.Errorf("job %s %s -> %s: %w", id, e.job.Status, next, domain.ErrInvalidTransition)
	}
	e.job.Status = next
	if apply != nil {
		apply(e.job)
	}
	e.job.UpdatedAt = r.now()
	return nil
}

func (r *Registry) Get(id string) (*model.GenerationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return e.job.Snapshot(), nil
}

// List returns jobs newest first. limit <= 0 returns all of them.
func (r *Registry) List(limit int) []*model.GenerationJob {
	r.mu.Lock()
	defer r.mu.Unlock()

	sorted := r.sortedLocked()
	out := make([]*model.GenerationJob, 0, len(sorted))
	for i := len(sorted) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, sorted[i].job.Snapshot())
	}
	return out
}

func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[id]; !ok {
		return false
	}
	delete(r.jobs, id)
	return true
}

// Cleanup applies the age rule first, then trims the oldest jobs until at most
// maxJobs remain, regardless of status. Non-positive arguments disable a rule.
func (r *Registry) Cleanup(maxAge time.Duration, maxJobs int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	if maxAge > 0 {
		cutoff := r.now().Add(-maxAge)
		for id, e := range r.jobs {
			if e.job.CreatedAt.Before(cutoff) {
				delete(r.jobs, id)
				removed++
			}
		}
	}

	if maxJobs > 0 && len(r.jobs) > maxJobs {
		sorted := r.sortedLocked()
		excess := len(sorted) - maxJobs
		for _, e := range sorted[:excess] {
			delete(r.jobs, e.job.ID)
			removed++
		}
	}
	return removed
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// sortedLocked returns entries oldest first. Caller holds r.mu.
func (r *Registry) sortedLocked() []*entry {
	out := make([]*entry, 0, len(r.jobs))
	for _, e := range r.jobs {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.job.CreatedAt.Equal(b.job.CreatedAt) {
			return a.job.CreatedAt.Before(b.job.CreatedAt)
		}
		return a.seq < b.seq
	})
	return out
}
