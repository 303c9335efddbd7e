// File: internal/application/services.go
package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"openkeywords/internal/config"
	"openkeywords/internal/domain/ports/adapter"
	aiAdapters "openkeywords/internal/infra/adapters/ai"
	"openkeywords/internal/infra/adapters/seo"
	"openkeywords/internal/usecase"
)

// Services is the part of the object graph shared by the API server and the CLI.
type Services struct {
	AI        adapter.AIServiceAdapter // nil when no provider is configured
	SERanking *seo.SERankingClient     // nil when no api key is configured
	Generator *usecase.Generator
	Model     string
}

// Build wires AI providers, the optional SE Ranking client and the generator.
// A missing AI key is not an error: the generator then fails every run with
// domain.ErrNoAIProvider and the HTTP layer reports 503.
func Build(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*Services, error) {
	ai, model, err := BuildAI(ctx, cfg.AI, logger)
	if err != nil {
		return nil, err
	}
	svc := &Services{AI: ai, Model: model}

	var (
		volumes adapter.VolumeLookup
		gaps    adapter.GapAnalyzer
	)
	if cfg.SERanking.APIKey != "" {
		client, err := seo.NewSERankingClient(cfg.SERanking.APIKey, cfg.SERanking.BaseURL, logger)
		if err != nil {
			return nil, fmt.Errorf("seranking: %w", err)
		}
		svc.SERanking = client
		volumes, gaps = client, client
	}

	svc.Generator = usecase.NewGenerator(ai, volumes, gaps, usecase.GeneratorOptions{
		Model:             model,
		BatchSize:         cfg.Generation.BatchSize,
		ScoringBatchSize:  cfg.Generation.ScoringBatchSize,
		OverGenerateRatio: cfg.Generation.OverGenerateRatio,
		Temperature:       cfg.Generation.Temperature,
	}, logger)
	return svc, nil
}

// BuildAI returns the decorated provider chain and the model the generator
// should request. Both are zero when no key is configured.
//
// Each provider is instrumented on its own so metrics carry the real provider
// and model. Multi -> Retrying -> Limited then wraps them, so retries are
// measured per attempt and a retry waits inside its concurrency slot.
func BuildAI(ctx context.Context, cfg config.AIConfig, logger *zerolog.Logger) (adapter.AIServiceAdapter, string, error) {
	byProvider := map[string]adapter.AIServiceAdapter{}
	if cfg.GeminiKey != "" {
		g, err := aiAdapters.NewGeminiAdapter(ctx, cfg.GeminiKey, cfg.GeminiURL, geminiDefault(cfg.DefaultModel), int(cfg.MaxOutputTokens))
		if err != nil {
			return nil, "", fmt.Errorf("gemini adapter: %w", err)
		}
		byProvider["gemini"] = aiAdapters.NewInstrumentedAI(g, geminiDefault(cfg.DefaultModel))
	}
	if cfg.OpenAIKey != "" {
		o, err := aiAdapters.NewOpenAIAdapter(cfg.OpenAIKey, openAIDefault(cfg.DefaultModel), cfg.OpenAIBaseURL)
		if err != nil {
			return nil, "", fmt.Errorf("openai adapter: %w", err)
		}
		byProvider["openai"] = aiAdapters.NewInstrumentedAI(o, openAIDefault(cfg.DefaultModel))
	}
	if len(byProvider) == 0 {
		logger.Warn().Msg("no AI provider configured; generation is disabled")
		return nil, "", nil
	}

	model := cfg.DefaultModel
	provider := aiAdapters.ResolveProvider(model, cfg.ModelProviders, "openai")
	if byProvider[provider] == nil {
		// configured model belongs to a provider without a key; let a configured one use its own default
		provider = fallbackProvider(byProvider)
		logger.Warn().Str("model", cfg.DefaultModel).Str("provider", provider).Msg("default model provider not configured; using provider default")
		model = ""
	}

	var ai adapter.AIServiceAdapter = aiAdapters.NewMultiAIAdapter(provider, byProvider, cfg.ModelProviders)
	ai = aiAdapters.NewRetryingAI(ai, aiAdapters.RetryOptions{MaxAttempts: cfg.RetryAttempts}, logger)
	ai = aiAdapters.NewLimitedAI(ai, cfg.ConcurrentLimit)

	logger.Info().Str("provider", provider).Str("model", model).Int("concurrency", cfg.ConcurrentLimit).Msg("AI adapter ready")
	return ai, model, nil
}

// fallbackProvider prefers gemini, then openai.
func fallbackProvider(byProvider map[string]adapter.AIServiceAdapter) string {
	for _, p := range []string{"gemini", "openai"} {
		if byProvider[p] != nil {
			return p
		}
	}
	return ""
}

func geminiDefault(model string) string {
	if strings.HasPrefix(strings.ToLower(model), "gemini") {
		return model
	}
	return "gemini-2.5-flash"
}

func openAIDefault(model string) string {
	if model == "" || strings.HasPrefix(strings.ToLower(model), "gemini") {
		return "gpt-4o-mini"
	}
	return model
}
