package ai

import (
	"context"
	"time"

	"openkeywords/internal/domain/ports/adapter"
	"openkeywords/internal/infra/metrics"
)

var _ adapter.AIServiceAdapter = (*instrumentedAI)(nil)

type instrumentedAI struct {
	inner adapter.AIServiceAdapter
	model string // label used when a request leaves Model empty
}

// NewInstrumentedAI records latency and token usage for every Generate call.
func NewInstrumentedAI(inner adapter.AIServiceAdapter, defaultModel string) adapter.AIServiceAdapter {
	return &instrumentedAI{inner: inner, model: defaultModel}
}

func (i *instrumentedAI) Provider() string { return i.inner.Provider() }

func (i *instrumentedAI) CountTokens(ctx context.Context, model string, prompt string) (int, error) {
	return i.inner.CountTokens(ctx, model, prompt)
}

func (i *instrumentedAI) Generate(ctx context.Context, req adapter.GenerateRequest) (string, adapter.Usage, error) {
	start := time.Now()
	text, usage, err := i.inner.Generate(ctx, req)
	metrics.ObserveAICall(
		i.inner.Provider(), modelOrDefault(req.Model, i.model), req.Stage,
		usage.PromptTokens, usage.CompletionTokens,
		time.Since(start).Milliseconds(),
		err == nil,
	)
	return text, usage, err
}
