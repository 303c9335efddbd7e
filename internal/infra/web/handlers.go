package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"openkeywords/internal/domain"
	"openkeywords/internal/domain/model"
	"openkeywords/internal/infra/logging"
	"openkeywords/internal/infra/redis"
	"openkeywords/internal/usecase"
)

const (
	maxBodyBytes     = 1 << 20
	defaultListLimit = 50
	maxListLimit     = 100
	maxSyncKeywords  = 100
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	h := s.opts.Health
	writeJSON(w, http.StatusOK, healthResponse{
		Status:              "healthy",
		Version:             h.Version,
		Timestamp:           time.Now().UTC(),
		GeminiConfigured:    h.GeminiConfigured,
		OpenAIConfigured:    h.OpenAIConfigured,
		SERankingConfigured: h.SERankingConfigured,
	})
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	if !s.opts.Health.aiConfigured() {
		s.fail(w, r, domain.ErrNoAIProvider)
		return
	}
	if err := s.allow(r); err != nil {
		s.fail(w, r, err)
		return
	}
	req, err := decodeRequest(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	job, err := s.jobs.Submit(r.Context(), req)
	if err != nil {
		if job != nil {
			writeJSON(w, statusFor(err), errorResponse{Detail: err.Error(), JobID: job.ID})
			return
		}
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, jobCreatedResponse{
		JobID:     job.ID,
		Status:    job.Status,
		Message:   fmt.Sprintf("Job created. Poll /api/v1/jobs/%s for status.", job.ID),
		CreatedAt: job.CreatedAt,
	})
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			writeDetail(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxListLimit))
			return
		}
		limit = n
	}
	jobs := s.jobs.List(r.Context(), limit)
	out := jobListResponse{Jobs: make([]jobStatusResponse, 0, len(jobs)), Total: len(jobs)}
	for _, j := range jobs {
		out.Jobs = append(out.Jobs, toJobStatus(j, false))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toJobStatus(job, true))
}

func (s *Server) deleteJob(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	if !s.jobs.Delete(r.Context(), id) {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("Job %s not found", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) exportJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookup(w, r)
	if !ok {
		return
	}
	format, err := usecase.ParseExportFormat(chi.URLParam(r, "format"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if job.Status != model.JobStatusCompleted || job.Result == nil {
		writeDetail(w, http.StatusBadRequest, "Job not completed")
		return
	}

	var buf bytes.Buffer
	if err := usecase.Export(&buf, format, job.Result); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, format.Filename(job.ID)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	if !s.opts.Health.aiConfigured() {
		s.fail(w, r, domain.ErrNoAIProvider)
		return
	}
	req, err := decodeRequest(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	probe := req.Clone()
	probe.Normalize()
	if probe.TargetCount > maxSyncKeywords {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf(
			"Synchronous generation limited to %d keywords. Use /api/v1/jobs for larger batches.", maxSyncKeywords))
		return
	}

	result, err := s.generator.Generate(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) adminCleanup(w http.ResponseWriter, r *http.Request) {
	removed, err := s.jobs.Cleanup(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	remaining := len(s.jobs.List(r.Context(), 0))
	writeJSON(w, http.StatusOK, cleanupResponse{Removed: removed, Remaining: remaining})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*model.GenerationJob, bool) {
	id, ok := jobID(w, r)
	if !ok {
		return nil, false
	}
	job, err := s.jobs.Get(r.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("Job %s not found", id))
		return nil, false
	}
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	return job, true
}

// allow fails open when the limiter backend is unavailable.
func (s *Server) allow(r *http.Request) error {
	if s.opts.Limiter == nil {
		return nil
	}
	ok, err := s.opts.Limiter.Allow(r.Context(), redis.SubmitKey(clientIP(r)))
	if err != nil {
		logging.With(r.Context(), s.logger).Warn().Err(err).Msg("rate limiter unavailable")
		return nil
	}
	if !ok {
		return domain.ErrRateLimited
	}
	return nil
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.With(r.Context(), s.logger).Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeDetail(w, status, err.Error())
}

func jobID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid job id")
		return "", false
	}
	return id, true
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (model.KeywordRequest, error) {
	var req model.KeywordRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return req, fmt.Errorf("%w: malformed request body: %v", domain.ErrInvalidArgument, err)
	}
	return req, nil
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
