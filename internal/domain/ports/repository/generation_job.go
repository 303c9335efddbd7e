package repository

import (
	"context"
	"time"

	"openkeywords/internal/domain/model"
)

// JobRegistry tracks live generation jobs. Every method returns snapshots;
// implementations never hand out their own records.
type JobRegistry interface {
	Create(req model.KeywordRequest) (*model.GenerationJob, error)
	MarkRunning(id string) error
	Complete(id string, result *model.GenerationResult, progress model.JobProgress) error
	Fail(id string, message string) error
	Get(id string) (*model.GenerationJob, error)
	List(limit int) []*model.GenerationJob
	Delete(id string) bool
	// Cleanup drops jobs older than maxAge, then the oldest jobs beyond maxJobs.
	Cleanup(maxAge time.Duration, maxJobs int) int
	Len() int
}

// JobArchive keeps terminal job snapshots after they leave the registry.
type JobArchive interface {
	Save(ctx context.Context, job *model.GenerationJob) error
	FindByID(ctx context.Context, id string) (*model.GenerationJob, error)
	// Delete reports whether a snapshot was removed.
	Delete(ctx context.Context, id string) (bool, error)
}
