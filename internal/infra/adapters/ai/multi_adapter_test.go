package ai

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openkeywords/internal/domain"
	"openkeywords/internal/domain/ports/adapter"
	"openkeywords/internal/infra/metrics"
)

type stubAI struct {
	name      string
	mu        sync.Mutex
	genN      int
	ctN       int
	lastModel string
	errs      []error // consumed one per Generate call
	inFlight  int32
	maxSeen   int32
	hold      time.Duration
}

func (s *stubAI) Provider() string { return s.name }

func (s *stubAI) CountTokens(ctx context.Context, model string, prompt string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctN++
	s.lastModel = model
	return 1, nil
}

func (s *stubAI) Generate(ctx context.Context, req adapter.GenerateRequest) (string, adapter.Usage, error) {
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		m := atomic.LoadInt32(&s.maxSeen)
		if n <= m || atomic.CompareAndSwapInt32(&s.maxSeen, m, n) {
			break
		}
	}
	if s.hold > 0 {
		time.Sleep(s.hold)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.genN++
	s.lastModel = req.Model
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return "", adapter.Usage{}, err
		}
	}
	return "ok", adapter.Usage{PromptTokens: 1, CompletionTokens: 1}, nil
}

func TestMultiAIAdapterRouting(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	open := &stubAI{name: "openai"}
	gem := &stubAI{name: "gemini"}

	m := NewMultiAIAdapter(
		"openai",
		map[string]adapter.AIServiceAdapter{"openai": open, "gemini": gem},
		map[string]string{"custom-x": "gemini"},
	)

	// explicit map wins
	_, _ = m.CountTokens(ctx, "custom-x", "p")
	assert.Equal(t, 1, gem.ctN)
	assert.Equal(t, 0, open.ctN)

	_, _, _ = m.Generate(ctx, adapter.GenerateRequest{Model: "gpt-4o-mini", Prompt: "p"})
	assert.Equal(t, 1, open.genN)

	_, _, _ = m.Generate(ctx, adapter.GenerateRequest{Model: "gemini-2.0-flash", Prompt: "p"})
	assert.Equal(t, 1, gem.genN)

	// unknown -> default provider
	_, _, _ = m.Generate(ctx, adapter.GenerateRequest{Model: "mystery", Prompt: "p"})
	assert.Equal(t, 2, open.genN)
}

func TestMultiAIAdapterFallsBackToAnyProvider(t *testing.T) {
	gem := &stubAI{name: "gemini"}
	m := NewMultiAIAdapter("openai", map[string]adapter.AIServiceAdapter{"gemini": gem}, nil)

	_, _, err := m.Generate(context.Background(), adapter.GenerateRequest{Model: "gpt-4o", Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, 1, gem.genN)

	empty := NewMultiAIAdapter("openai", nil, nil)
	_, _, err = empty.Generate(context.Background(), adapter.GenerateRequest{Prompt: "p"})
	assert.ErrorIs(t, err, domain.ErrNoAIProvider)
}

func TestRetryingAI(t *testing.T) {
	boom := errors.New("503 unavailable")

	t.Run("succeeds after transient failures", func(t *testing.T) {
		inner := &stubAI{name: "gemini", errs: []error{boom, boom, nil}}
		r := NewRetryingAI(inner, RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond}, nil)
		text, _, err := r.Generate(context.Background(), adapter.GenerateRequest{Prompt: "p", Stage: "generate"})
		require.NoError(t, err)
		assert.Equal(t, "ok", text)
		assert.Equal(t, 3, inner.genN)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		inner := &stubAI{name: "gemini", errs: []error{boom, boom, boom, boom}}
		r := NewRetryingAI(inner, RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond}, nil)
		_, _, err := r.Generate(context.Background(), adapter.GenerateRequest{Prompt: "p"})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 3, inner.genN)
	})

	t.Run("does not retry cancellation", func(t *testing.T) {
		inner := &stubAI{name: "gemini", errs: []error{context.Canceled}}
		r := NewRetryingAI(inner, RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond}, nil)
		_, _, err := r.Generate(context.Background(), adapter.GenerateRequest{Prompt: "p"})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, inner.genN)
	})
}

func TestLimitedAI(t *testing.T) {
	inner := &stubAI{name: "openai", hold: 10 * time.Millisecond}
	l := NewLimitedAI(inner, 2)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = l.Generate(context.Background(), adapter.GenerateRequest{Prompt: "p"})
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, inner.genN)
	assert.LessOrEqual(t, atomic.LoadInt32(&inner.maxSeen), int32(2))

	assert.Same(t, adapter.AIServiceAdapter(inner), NewLimitedAI(inner, 0))
}

func TestResolveProvider(t *testing.T) {
	assert.Equal(t, "gemini", ResolveProvider("gemini-2.5-flash", nil, "openai"))
	assert.Equal(t, "openai", ResolveProvider("gpt-4o-mini", nil, "gemini"))
	assert.Equal(t, "gemini", ResolveProvider("proxy-model", map[string]string{"proxy-model": "Gemini"}, "openai"))
	assert.Equal(t, "openai", ResolveProvider("", nil, "OpenAI"))
}

func TestInstrumentedProvidersReportRealProvider(t *testing.T) {
	metrics.MustRegister()
	m := NewMultiAIAdapter("gemini", map[string]adapter.AIServiceAdapter{
		"gemini": NewInstrumentedAI(&stubAI{name: "gemini"}, "gemini-2.5-flash"),
	}, nil)

	_, _, err := m.Generate(context.Background(), adapter.GenerateRequest{Prompt: "p", Stage: "cluster-metrics"})
	require.NoError(t, err)

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	var sawLatency, sawTokens bool
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range metric.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			switch mf.GetName() {
			case "ai_calls_latency_ms":
				if labels["stage"] == "cluster-metrics" {
					assert.Equal(t, "gemini", labels["provider"])
					sawLatency = true
				}
			case "ai_tokens_in":
				assert.NotEqual(t, "multi", labels["provider"])
				if labels["provider"] == "gemini" && labels["model"] == "gemini-2.5-flash" {
					sawTokens = true
				}
			}
		}
	}
	assert.True(t, sawLatency, "latency recorded under the gemini provider")
	assert.True(t, sawTokens, "tokens recorded under the gemini default model")
}
