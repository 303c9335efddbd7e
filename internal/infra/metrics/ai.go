package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		aiTokensIn,
		aiTokensOut,
		aiCallsLatencyMs,
		aiRetries,
	)
}

var (
	aiTokensIn = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_in",
			Help: "Sum of prompt (input) tokens per provider/model.",
		},
		[]string{"provider", "model"},
	)

	aiTokensOut = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_out",
			Help: "Sum of completion (output) tokens per provider/model.",
		},
		[]string{"provider", "model"},
	)

	aiCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_calls_latency_ms",
			Help:    "AI call latency distribution in milliseconds.",
			Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 20000, 40000, 80000},
		},
		[]string{"provider", "stage", "success"},
	)

	aiRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_call_retries_total",
			Help: "Retried AI calls per pipeline stage.",
		},
		[]string{"stage"},
	)
)

func ObserveAICall(provider, model, stage string, tokensIn, tokensOut int, latencyMs int64, success bool) {
	lbl := []string{norm(provider), norm(model)}
	aiTokensIn.WithLabelValues(lbl...).Add(float64(tokensIn))
	aiTokensOut.WithLabelValues(lbl...).Add(float64(tokensOut))
	aiCallsLatencyMs.WithLabelValues(norm(provider), norm(stage), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

func IncAIRetry(stage string) {
	aiRetries.WithLabelValues(norm(stage)).Inc()
}
