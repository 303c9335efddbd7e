package ai

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"openkeywords/internal/domain/ports/adapter"
	"openkeywords/internal/infra/metrics"
)

var _ adapter.AIServiceAdapter = (*retryingAI)(nil)

// RetryOptions configures exponential backoff.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

type retryingAI struct {
	inner adapter.AIServiceAdapter
	opts  RetryOptions
	log   *zerolog.Logger
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryingAI retries Generate on any error except context cancellation.
func NewRetryingAI(inner adapter.AIServiceAdapter, opts RetryOptions, log *zerolog.Logger) adapter.AIServiceAdapter {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = 2 * time.Second
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 10 * time.Second
	}
	if opts.Multiplier <= 0 {
		opts.Multiplier = 2.0
	}
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &retryingAI{inner: inner, opts: opts, log: log, sleep: sleepCtx}
}

func (r *retryingAI) Provider() string { return r.inner.Provider() }

func (r *retryingAI) CountTokens(ctx context.Context, model string, prompt string) (int, error) {
	return r.inner.CountTokens(ctx, model, prompt)
}

func (r *retryingAI) Generate(ctx context.Context, req adapter.GenerateRequest) (string, adapter.Usage, error) {
	delay := r.opts.InitialDelay
	var lastErr error
	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		text, usage, err := r.inner.Generate(ctx, req)
		if err == nil {
			return text, usage, nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || attempt == r.opts.MaxAttempts {
			break
		}

		r.log.Warn().Err(err).
			Str("stage", req.Stage).
			Int("attempt", attempt).
			Int("max_attempts", r.opts.MaxAttempts).
			Dur("delay", delay).
			Msg("ai call failed, retrying")
		metrics.IncAIRetry(req.Stage)

		if err := r.sleep(ctx, delay); err != nil {
			return "", adapter.Usage{}, err
		}
		delay = time.Duration(float64(delay) * r.opts.Multiplier)
		if delay > r.opts.MaxDelay {
			delay = r.opts.MaxDelay
		}
	}
	return "", adapter.Usage{}, lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
