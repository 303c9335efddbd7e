//go:build !integration

package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openkeywords/internal/domain"
	"openkeywords/internal/domain/model"
	"openkeywords/internal/infra/worker"
	"openkeywords/internal/jobs"
	"openkeywords/internal/usecase"
)

type stubGenerator struct {
	result *model.GenerationResult
	err    error
	calls  int
}

func (g *stubGenerator) Generate(_ context.Context, req model.KeywordRequest) (*model.GenerationResult, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.result, nil
}

type inlineQueue struct{}

func (inlineQueue) Submit(task worker.Task) error { return task(context.Background()) }

type fullQueue struct{}

func (fullQueue) Submit(worker.Task) error { return domain.ErrQueueFull }

type stubLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (l *stubLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.keys = append(l.keys, key)
	return l.allow, l.err
}

func sampleResult() *model.GenerationResult {
	return &model.GenerationResult{
		Keywords: []model.KeywordCandidate{
			{Text: "seo audit tool", Intent: model.IntentCommercial, Score: 80, Source: model.SourceAIGenerated, ClusterName: "Tools", Difficulty: 50},
			{Text: "=cmd()", Intent: model.IntentInformational, Score: 60, Source: model.SourceAIGenerated, ClusterName: "Tools", Difficulty: 50},
		},
		Clusters:   []model.Cluster{{Name: "Tools", Keywords: []string{"seo audit tool", "=cmd()"}, Count: 2}},
		Statistics: model.Statistics{Total: 2, AvgScore: 70},
	}
}

type harness struct {
	srv  *Server
	gen  *stubGenerator
	jobs usecase.JobUseCase
}

func newHarness(t *testing.T, queue usecase.TaskQueue, opts Options) *harness {
	t.Helper()
	gen := &stubGenerator{result: sampleResult()}
	uc := usecase.NewJobUseCase(jobs.NewRegistry(), nil, gen, queue, usecase.JobLimits{}, nil)
	if !opts.Health.aiConfigured() {
		opts.Health.GeminiConfigured = true
	}
	return &harness{srv: NewServer(uc, gen, opts, nil), gen: gen, jobs: uc}
}

func (h *harness) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	h := newHarness(t, inlineQueue{}, Options{Health: HealthInfo{Version: "1.2.3", OpenAIConfigured: true}})

	for _, path := range []string{"/", "/health"} {
		rec := h.do(http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[map[string]any](t, rec)
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "1.2.3", body["version"])
		assert.Equal(t, true, body["openai_configured"])
		assert.Equal(t, false, body["gemini_configured"])
		assert.Equal(t, false, body["seranking_configured"])
	}
	assert.NotEmpty(t, h.do(http.MethodGet, "/health", "").Header().Get(requestIDHeader))
}

func TestCreateJob_RunsToCompletion(t *testing.T) {
	h := newHarness(t, inlineQueue{}, Options{})

	rec := h.do(http.MethodPost, "/api/v1/jobs", `{"company_name":"Acme","target_count":20}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	created := decode[jobCreatedResponse](t, rec)
	assert.NotEmpty(t, created.JobID)
	assert.Contains(t, created.Message, created.JobID)

	rec = h.do(http.MethodGet, "/api/v1/jobs/"+created.JobID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[jobStatusResponse](t, rec)
	assert.Equal(t, model.JobStatusCompleted, status.Status)
	require.NotNil(t, status.Result)
	assert.Len(t, status.Result.Keywords, 2)
	require.NotNil(t, status.Progress)
	assert.Equal(t, 2, status.Progress.KeywordsGenerated)
	assert.Equal(t, 20, status.Progress.TargetCount)
	assert.Nil(t, status.Error)
}

func TestCreateJob_Rejections(t *testing.T) {
	t.Run("invalid body", func(t *testing.T) {
		h := newHarness(t, inlineQueue{}, Options{})
		rec := h.do(http.MethodPost, "/api/v1/jobs", `{"company_name":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("validation", func(t *testing.T) {
		h := newHarness(t, inlineQueue{}, Options{})
		rec := h.do(http.MethodPost, "/api/v1/jobs", `{"company_name":"Acme","target_count":5000}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, 0, h.gen.calls)
	})

	t.Run("queue full", func(t *testing.T) {
		h := newHarness(t, fullQueue{}, Options{})
		rec := h.do(http.MethodPost, "/api/v1/jobs", `{"company_name":"Acme"}`)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		body := decode[errorResponse](t, rec)
		require.NotEmpty(t, body.JobID)

		job, err := h.jobs.Get(context.Background(), body.JobID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusFailed, job.Status)
	})

	t.Run("no provider", func(t *testing.T) {
		gen := &stubGenerator{}
		uc := usecase.NewJobUseCase(jobs.NewRegistry(), nil, gen, inlineQueue{}, usecase.JobLimits{}, nil)
		srv := NewServer(uc, gen, Options{}, nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(`{"company_name":"Acme"}`)))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("rate limited", func(t *testing.T) {
		lim := &stubLimiter{allow: false}
		h := newHarness(t, inlineQueue{}, Options{Limiter: lim})
		rec := h.do(http.MethodPost, "/api/v1/jobs", `{"company_name":"Acme"}`)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.Len(t, lim.keys, 1)
		assert.Equal(t, "rate_limit:jobs:192.0.2.1", lim.keys[0])
	})

	t.Run("limiter down fails open", func(t *testing.T) {
		lim := &stubLimiter{err: errors.New("connection refused")}
		h := newHarness(t, inlineQueue{}, Options{Limiter: lim})
		rec := h.do(http.MethodPost, "/api/v1/jobs", `{"company_name":"Acme"}`)
		assert.Equal(t, http.StatusAccepted, rec.Code)
	})
}

func TestGetJob_Errors(t *testing.T) {
	h := newHarness(t, inlineQueue{}, Options{})

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/v1/jobs/not-a-uuid", "").Code)

	rec := h.do(http.MethodGet, "/api/v1/jobs/6f1c3f0e-8d7a-4c39-9d7e-2b0a4b9f0c11", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Detail, "not found")
}

func TestListJobs(t *testing.T) {
	h := newHarness(t, inlineQueue{}, Options{})
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusAccepted, h.do(http.MethodPost, "/api/v1/jobs", `{"company_name":"Acme"}`).Code)
	}

	rec := h.do(http.MethodGet, "/api/v1/jobs?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[jobListResponse](t, rec)
	assert.Equal(t, 2, list.Total)
	for _, j := range list.Jobs {
		assert.Nil(t, j.Result)
	}

	assert.Equal(t, 3, decode[jobListResponse](t, h.do(http.MethodGet, "/api/v1/jobs", "")).Total)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/v1/jobs?limit=0", "").Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/v1/jobs?limit=101", "").Code)
}

func TestDeleteJob(t *testing.T) {
	h := newHarness(t, inlineQueue{}, Options{})
	created := decode[jobCreatedResponse](t, h.do(http.MethodPost, "/api/v1/jobs", `{"company_name":"Acme"}`))

	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/api/v1/jobs/"+created.JobID, "").Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, "/api/v1/jobs/"+created.JobID, "").Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/v1/jobs/"+created.JobID, "").Code)
}

func TestExportJob(t *testing.T) {
	h := newHarness(t, inlineQueue{}, Options{})
	created := decode[jobCreatedResponse](t, h.do(http.MethodPost, "/api/v1/jobs", `{"company_name":"Acme"}`))
	base := "/api/v1/jobs/" + created.JobID + "/export/"

	rec := h.do(http.MethodGet, base+"csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "keywords_"+created.JobID[:8]+".csv")
	assert.Contains(t, rec.Body.String(), "seo audit tool")
	assert.Contains(t, rec.Body.String(), "'=cmd()")

	rec = h.do(http.MethodGet, base+"json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[model.GenerationResult](t, rec).Keywords, 2)

	rec = h.do(http.MethodGet, base+"xlsx", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"))

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, base+"pdf", "").Code)
}

func TestExportJob_NotCompleted(t *testing.T) {
	h := newHarness(t, fullQueue{}, Options{})
	body := decode[errorResponse](t, h.do(http.MethodPost, "/api/v1/jobs", `{"company_name":"Acme"}`))

	rec := h.do(http.MethodGet, "/api/v1/jobs/"+body.JobID+"/export/csv", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Job not completed", decode[errorResponse](t, rec).Detail)
}

func TestGenerateSync(t *testing.T) {
	h := newHarness(t, inlineQueue{}, Options{})

	rec := h.do(http.MethodPost, "/api/v1/generate", `{"company_name":"Acme","target_count":30}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decode[model.GenerationResult](t, rec).Keywords, 2)

	rec = h.do(http.MethodPost, "/api/v1/generate", `{"company_name":"Acme","target_count":150}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Detail, "/api/v1/jobs")
	assert.Equal(t, 1, h.gen.calls)

	h.gen.err = domain.ErrNoAIProvider
	assert.Equal(t, http.StatusServiceUnavailable, h.do(http.MethodPost, "/api/v1/generate", `{"company_name":"Acme"}`).Code)
}

func TestAdminCleanup_Auth(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		header string
		want   int
	}{
		{"disabled", "", "Bearer anything", http.StatusForbidden},
		{"missing header", "secret", "", http.StatusUnauthorized},
		{"wrong scheme", "secret", "Basic secret", http.StatusUnauthorized},
		{"wrong key", "secret", "Bearer nope", http.StatusForbidden},
		{"ok", "secret", "Bearer secret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, inlineQueue{}, Options{AdminAPIKey: tt.key})
			var headers []string
			if tt.header != "" {
				headers = []string{"Authorization", tt.header}
			}
			rec := h.do(http.MethodPost, "/api/v1/admin/cleanup", "", headers...)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAdminCleanup_Response(t *testing.T) {
	h := newHarness(t, inlineQueue{}, Options{AdminAPIKey: "secret"})
	h.do(http.MethodPost, "/api/v1/jobs", `{"company_name":"Acme"}`)

	rec := h.do(http.MethodPost, "/api/v1/admin/cleanup", "", "Authorization", "Bearer secret")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[cleanupResponse](t, rec)
	assert.Equal(t, 0, out.Removed)
	assert.Equal(t, 1, out.Remaining)
}

func TestTraceIDPropagation(t *testing.T) {
	h := newHarness(t, inlineQueue{}, Options{})
	rec := h.do(http.MethodGet, "/health", "", requestIDHeader, "abc-123")
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestRecover(t *testing.T) {
	nop := zerolog.Nop()
	handler := Recover(&nop)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(domain.ErrInvalidTransition))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(context.DeadlineExceeded))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("x")))
}
