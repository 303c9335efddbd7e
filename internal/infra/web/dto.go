package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"openkeywords/internal/domain"
	"openkeywords/internal/domain/model"
)

type healthResponse struct {
	Status              string    `json:"status"`
	Version             string    `json:"version"`
	Timestamp           time.Time `json:"timestamp"`
	GeminiConfigured    bool      `json:"gemini_configured"`
	OpenAIConfigured    bool      `json:"openai_configured"`
	SERankingConfigured bool      `json:"seranking_configured"`
}

type jobCreatedResponse struct {
	JobID     string          `json:"job_id"`
	Status    model.JobStatus `json:"status"`
	Message   string          `json:"message"`
	CreatedAt time.Time       `json:"created_at"`
}

type jobStatusResponse struct {
	JobID     string                  `json:"job_id"`
	Status    model.JobStatus         `json:"status"`
	Progress  *model.JobProgress      `json:"progress"`
	Result    *model.GenerationResult `json:"result"`
	Error     *string                 `json:"error"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

func toJobStatus(job *model.GenerationJob, withResult bool) jobStatusResponse {
	out := jobStatusResponse{
		JobID:     job.ID,
		Status:    job.Status,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
	if job.Progress.TargetCount > 0 {
		p := job.Progress
		out.Progress = &p
	}
	if job.Error != "" {
		e := job.Error
		out.Error = &e
	}
	if withResult {
		out.Result = job.Result
	}
	return out
}

type jobListResponse struct {
	Jobs  []jobStatusResponse `json:"jobs"`
	Total int                 `json:"total"`
}

type cleanupResponse struct {
	Removed   int `json:"removed"`
	Remaining int `json:"remaining"`
}

type errorResponse struct {
	Detail string `json:"detail"`
	JobID  string `json:"job_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// statusFor maps domain sentinels onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrNotCompleted):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrQueueFull), errors.Is(err, domain.ErrNoAIProvider):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
