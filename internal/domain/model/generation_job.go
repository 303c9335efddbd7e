package model

import "time"

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether no further transition is legal.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransitionTo encodes the job lifecycle:
// pending -> running -> completed|failed, plus pending -> failed when a run
// blows up before it is marked running.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusPending:
		return next == JobStatusRunning || next == JobStatusFailed
	case JobStatusRunning:
		return next == JobStatusCompleted || next == JobStatusFailed
	default:
		return false
	}
}

type JobProgress struct {
	KeywordsGenerated int `json:"keywords_generated"`
	TargetCount       int `json:"target_count"`
}

// GenerationJob is one asynchronous keyword generation run.
type GenerationJob struct {
	ID        string
	Status    JobStatus
	Request   KeywordRequest
	Progress  JobProgress
	Result    *GenerationResult
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Snapshot returns a deep copy safe to hand outside the registry.
func (j *GenerationJob) Snapshot() *GenerationJob {
	if j == nil {
		return nil
	}
	out := *j
	out.Request = j.Request.Clone()
	out.Result = j.Result.Clone()
	return &out
}
