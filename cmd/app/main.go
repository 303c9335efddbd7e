// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"openkeywords/internal/application"
	"openkeywords/internal/config"
	"openkeywords/internal/domain/ports/repository"
	pg "openkeywords/internal/infra/db/postgres"
	"openkeywords/internal/infra/logging"
	"openkeywords/internal/infra/metrics"
	red "openkeywords/internal/infra/redis"
	"openkeywords/internal/infra/scheduler"
	"openkeywords/internal/infra/web"
	"openkeywords/internal/infra/worker"
	"openkeywords/internal/jobs"
	"openkeywords/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, debug level)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}
	logger.Info().
		Str("version", version).
		Bool("ai_configured", cfg.HasAIProvider()).
		Bool("archive", cfg.Database.URL != "").
		Str("admin_key", logging.Redact(cfg.Admin.APIKey, cfg.Runtime.Dev)).
		Msg("starting openkeywords")

	// ---- Metrics ----
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- AI + generator ----
	svc, err := application.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("build services")
	}

	// ---- Worker pool ----
	pool := worker.NewPool(cfg.Jobs.Workers, cfg.Jobs.QueueSize, logger)
	pool.Start(ctx)

	// ---- Postgres archive (optional) ----
	var archive repository.JobArchive
	if cfg.Database.URL != "" {
		dbPool, err := pg.Connect(ctx, cfg.Database.URL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres")
		}
		defer dbPool.Close()
		a := pg.NewJobArchive(dbPool)
		if err := a.Migrate(ctx); err != nil {
			logger.Fatal().Err(err).Msg("postgres migrate")
		}
		archive = a
		logger.Info().Msg("job archive enabled")
	}

	// ---- Redis rate limiter (optional) ----
	var limiter web.SubmitLimiter
	if cfg.Jobs.SubmitLimit > 0 {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		limiter = red.NewRateLimiter(redisClient, cfg.Jobs.SubmitLimit, cfg.Jobs.SubmitWindow)
		logger.Info().Int("limit", cfg.Jobs.SubmitLimit).Dur("window", cfg.Jobs.SubmitWindow).Msg("submit rate limit enabled")
	}

	// ---- Job service ----
	jobUC := usecase.NewJobUseCase(jobs.NewRegistry(), archive, svc.Generator, pool, usecase.JobLimits{
		MaxAge:  cfg.Jobs.MaxAge,
		MaxJobs: cfg.Jobs.MaxJobs,
	}, logger)

	cleaner := scheduler.NewScheduler("job-cleanup", cfg.Jobs.CleanupInterval, jobUC.Cleanup, logger)
	cleaner.Start(ctx)

	// ---- HTTP ----
	srv := web.NewServer(jobUC, svc.Generator, web.Options{
		AdminAPIKey:     cfg.Admin.APIKey,
		RequestTimeout:  cfg.HTTP.RequestTimeout,
		GenerateTimeout: cfg.HTTP.GenerateTimeout,
		Limiter:         limiter,
		Health: web.HealthInfo{
			Version:             version,
			GeminiConfigured:    cfg.AI.GeminiKey != "",
			OpenAIConfigured:    cfg.AI.OpenAIKey != "",
			SERankingConfigured: svc.SERanking != nil,
		},
	}, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(cfg.HTTP.Addr) }()

	// ---- Graceful shutdown ----
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cleaner.Stop()
	cancel()
	pool.Stop()
	logger.Info().Msg("stopped")
}
