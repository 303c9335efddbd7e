// File: internal/usecase/job_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"openkeywords/internal/domain"
	"openkeywords/internal/domain/model"
	"openkeywords/internal/domain/ports/repository"
	"openkeywords/internal/infra/logging"
	"openkeywords/internal/infra/metrics"
	"openkeywords/internal/infra/worker"
)

// Compile-time check
var _ JobUseCase = (*jobUC)(nil)

type JobUseCase interface {
	// Submit validates req, registers a pending job and queues the pipeline.
	// It returns as soon as the job is queued. When the queue is full the job
	// is failed and returned together with domain.ErrQueueFull.
	Submit(ctx context.Context, req model.KeywordRequest) (*model.GenerationJob, error)
	Get(ctx context.Context, id string) (*model.GenerationJob, error)
	List(ctx context.Context, limit int) []*model.GenerationJob
	Delete(ctx context.Context, id string) bool
	Cleanup(ctx context.Context) (int, error)
}

// TaskQueue accepts background work without blocking.
type TaskQueue interface {
	Submit(task worker.Task) error
}

// JobLimits bound the registry size.
type JobLimits struct {
	MaxAge  time.Duration
	MaxJobs int
	// RunTimeout caps one pipeline run; zero means no cap.
	RunTimeout time.Duration
}

type jobUC struct {
	registry  repository.JobRegistry
	archive   repository.JobArchive // optional
	generator KeywordGenerator
	queue     TaskQueue
	limits    JobLimits
	logger    *zerolog.Logger
}

func NewJobUseCase(registry repository.JobRegistry, archive repository.JobArchive, generator KeywordGenerator, queue TaskQueue, limits JobLimits, logger *zerolog.Logger) *jobUC {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &jobUC{registry: registry, archive: archive, generator: generator, queue: queue, limits: limits, logger: logger}
}

func (u *jobUC) Submit(ctx context.Context, req model.KeywordRequest) (*model.GenerationJob, error) {
	req = req.Clone()
	req.Normalize()
	if err := req.Validate(); err != nil {
		metrics.IncJobRejected("invalid")
		return nil, err
	}

	job, err := u.registry.Create(req)
	if err != nil {
		return nil, err
	}
	metrics.SetJobsInRegistry(u.registry.Len())
	log := logging.With(logging.WithJobID(ctx, job.ID), u.logger)

	// The run outlives the request, so it carries only the ids, not ctx's deadline.
	runCtx := logging.WithJobID(logging.WithTraceID(context.Background(), logging.TraceID(ctx)), job.ID)
	if err := u.queue.Submit(func(workerCtx context.Context) error {
		ctx, cancel := context.WithCancel(runCtx)
		defer cancel()
		stop := context.AfterFunc(workerCtx, cancel)
		defer stop()
		u.run(ctx, job.ID, req)
		return nil
	}); err != nil {
		metrics.IncJobRejected("queue_full")
		log.Warn().Err(err).Msg("job rejected")
		u.finish(runCtx, job.ID, u.registry.Fail(job.ID, err.Error()))
		failed, gerr := u.registry.Get(job.ID)
		if gerr != nil {
			return nil, err
		}
		return failed, err
	}

	log.Info().Str("company", req.CompanyName).Int("target", req.TargetCount).Msg("job queued")
	return job, nil
}

// run always drives the job to a terminal state, even when the pipeline panics.
func (u *jobUC) run(ctx context.Context, id string, req model.KeywordRequest) {
	log := logging.With(ctx, u.logger)
	if err := u.registry.MarkRunning(id); err != nil {
		// deleted or failed while queued
		log.Warn().Err(err).Msg("job not runnable")
		return
	}

	if u.limits.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.limits.RunTimeout)
		defer cancel()
	}

	result, err := u.generate(ctx, req)
	if err != nil {
		log.Error().Err(err).Msg("job failed")
		u.finish(ctx, id, u.registry.Fail(id, err.Error()))
		return
	}
	progress := model.JobProgress{KeywordsGenerated: len(result.Keywords), TargetCount: req.TargetCount}
	log.Info().Int("keywords", progress.KeywordsGenerated).Float64("seconds", result.ProcessingTimeSeconds).Msg("job completed")
	u.finish(ctx, id, u.registry.Complete(id, result, progress))
}

func (u *jobUC) generate(ctx context.Context, req model.KeywordRequest) (result *model.GenerationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError{r}
		}
	}()
	result, err = u.generator.Generate(ctx, req)
	if err == nil && result == nil {
		err = errors.New("generator returned no result")
	}
	return result, err
}

// finish records metrics and archives the terminal snapshot.
func (u *jobUC) finish(ctx context.Context, id string, transitionErr error) {
	log := logging.With(ctx, u.logger)
	if transitionErr != nil {
		log.Warn().Err(transitionErr).Msg("job transition rejected")
		return
	}
	job, err := u.registry.Get(id)
	if err != nil {
		return
	}
	metrics.IncJob(string(job.Status))
	if u.archive == nil {
		return
	}
	actx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := u.archive.Save(actx, job); err != nil {
		log.Warn().Err(err).Msg("archive job failed")
	}
}

// Get checks the live registry first, then the archive.
func (u *jobUC) Get(ctx context.Context, id string) (*model.GenerationJob, error) {
	job, err := u.registry.Get(id)
	if err == nil || !errors.Is(err, domain.ErrNotFound) || u.archive == nil {
		return job, err
	}
	job, aerr := u.archive.FindByID(ctx, id)
	if aerr != nil {
		if errors.Is(aerr, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("archive lookup: %w", aerr)
	}
	return job, nil
}

func (u *jobUC) List(_ context.Context, limit int) []*model.GenerationJob {
	return u.registry.List(limit)
}

// Delete removes the job from the registry and the archive, so Get cannot
// resurrect it from an archived snapshot.
func (u *jobUC) Delete(ctx context.Context, id string) bool {
	log := logging.With(logging.WithJobID(ctx, id), u.logger)
	ok := u.registry.Delete(id)
	if ok {
		metrics.SetJobsInRegistry(u.registry.Len())
	}
	if u.archive != nil {
		archived, err := u.archive.Delete(ctx, id)
		if err != nil {
			log.Warn().Err(err).Msg("archive delete failed")
		}
		ok = ok || archived
	}
	if ok {
		log.Info().Msg("job deleted")
	}
	return ok
}

// Cleanup evicts old jobs; its signature matches scheduler.Job.
func (u *jobUC) Cleanup(ctx context.Context) (int, error) {
	n := u.registry.Cleanup(u.limits.MaxAge, u.limits.MaxJobs)
	metrics.AddJobsCleaned(n)
	metrics.SetJobsInRegistry(u.registry.Len())
	if n > 0 {
		logging.With(ctx, u.logger).Info().Int("removed", n).Int("remaining", u.registry.Len()).Msg("jobs cleaned up")
	}
	return n, nil
}
