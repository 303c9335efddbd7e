package ai

import (
	"context"
	"strings"

	"openkeywords/internal/domain"
	"openkeywords/internal/domain/ports/adapter"
)

var _ adapter.AIServiceAdapter = (*MultiAIAdapter)(nil)

// MultiAIAdapter routes each call to a provider chosen by model name.
type MultiAIAdapter struct {
	defaultProvider string // e.g., "openai" or "gemini"
	byProvider      map[string]adapter.AIServiceAdapter
	modelToProvider map[string]string // model -> provider ("openai" | "gemini")
}

// NewMultiAIAdapter does not inject any default model; it only knows a default provider.
// Each provider adapter is responsible for its own default model.
func NewMultiAIAdapter(
	defaultProvider string,
	byProvider map[string]adapter.AIServiceAdapter,
	modelToProvider map[string]string,
) *MultiAIAdapter {
	return &MultiAIAdapter{
		defaultProvider: strings.ToLower(defaultProvider),
		byProvider:      byProvider,
		modelToProvider: modelToProvider,
	}
}

func (m *MultiAIAdapter) Provider() string { return "multi" }

func (m *MultiAIAdapter) resolveProvider(model string) string {
	return ResolveProvider(model, m.modelToProvider, m.defaultProvider)
}

// ResolveProvider maps a model name to "gemini" or "openai". Explicit
// overrides win; unknown names go to fallback.
func ResolveProvider(model string, overrides map[string]string, fallback string) string {
	if p := overrides[model]; p != "" {
		return strings.ToLower(p)
	}
	l := strings.ToLower(model)
	switch {
	case strings.HasPrefix(l, "gemini"):
		return "gemini"
	case strings.HasPrefix(l, "gpt"), strings.HasPrefix(l, "o1"), strings.HasPrefix(l, "o3"), strings.HasPrefix(l, "o4"):
		return "openai"
	default:
		return strings.ToLower(fallback)
	}
}

func (m *MultiAIAdapter) pick(model string) adapter.AIServiceAdapter {
	if a := m.byProvider[m.resolveProvider(model)]; a != nil {
		return a
	}
	// last resort: default provider, then any
	if a := m.byProvider[m.defaultProvider]; a != nil {
		return a
	}
	for _, a := range m.byProvider {
		if a != nil {
			return a
		}
	}
	return nil
}

func (m *MultiAIAdapter) CountTokens(ctx context.Context, model string, prompt string) (int, error) {
	a := m.pick(model)
	if a == nil {
		return 0, domain.ErrNoAIProvider
	}
	return a.CountTokens(ctx, model, prompt)
}

func (m *MultiAIAdapter) Generate(ctx context.Context, req adapter.GenerateRequest) (string, adapter.Usage, error) {
	a := m.pick(req.Model)
	if a == nil {
		return "", adapter.Usage{}, domain.ErrNoAIProvider
	}
	return a.Generate(ctx, req)
}
