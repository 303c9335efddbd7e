package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound          = errors.New("entity not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidTransition = errors.New("invalid job status transition")
	ErrNotCompleted      = errors.New("job not completed")
	ErrQueueFull         = errors.New("worker queue full")
	ErrRateLimited       = errors.New("too many requests")
	ErrNoAIProvider      = errors.New("no AI provider configured")
	ErrEmptyResponse     = errors.New("empty AI response")
)
