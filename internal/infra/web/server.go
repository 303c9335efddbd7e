// File: internal/infra/web/server.go
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"openkeywords/internal/infra/metrics"
	"openkeywords/internal/usecase"
)

// SubmitLimiter throttles job submissions per client.
type SubmitLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// HealthInfo is reported verbatim by the health endpoints.
type HealthInfo struct {
	Version             string
	GeminiConfigured    bool
	OpenAIConfigured    bool
	SERankingConfigured bool
}

func (h HealthInfo) aiConfigured() bool { return h.GeminiConfigured || h.OpenAIConfigured }

type Options struct {
	AdminAPIKey     string
	RequestTimeout  time.Duration
	GenerateTimeout time.Duration
	Health          HealthInfo
	// Limiter is optional; nil disables submission throttling.
	Limiter SubmitLimiter
}

type Server struct {
	jobs      usecase.JobUseCase
	generator usecase.KeywordGenerator
	opts      Options
	logger    *zerolog.Logger
	router    chi.Router
	srv       *http.Server
}

func NewServer(jobs usecase.JobUseCase, generator usecase.KeywordGenerator, opts Options, logger *zerolog.Logger) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	s := &Server{jobs: jobs, generator: generator, opts: opts, logger: logger}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(s.logger), Recover(s.logger))

	r.Get("/", s.health)
	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(Timeout(s.opts.RequestTimeout))
			r.Post("/jobs", s.createJob)
			r.Get("/jobs", s.listJobs)
			r.Get("/jobs/{id}", s.getJob)
			r.Delete("/jobs/{id}", s.deleteJob)
			r.Get("/jobs/{id}/export/{format}", s.exportJob)
			r.With(BearerAuth(s.opts.AdminAPIKey, s.logger)).Post("/admin/cleanup", s.adminCleanup)
		})
		r.With(Timeout(s.opts.GenerateTimeout)).Post("/generate", s.generate)
	})
	return r
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start blocks serving addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info().Str("addr", addr).Msg("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
