package adapter

import "context"

// GenerateRequest is a single prompt sent to a text model.
type GenerateRequest struct {
	Prompt      string
	Temperature float32

	// Model may be empty to use the adapter's default.
	Model string

	// JSON asks the provider for application/json output.
	JSON bool

	// Stage names the pipeline step for metrics and logs.
	Stage string
}

// Usage for a single call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// AIServiceAdapter is the port for LLM text generation.
type AIServiceAdapter interface {
	// Provider is a short lowercase name such as "gemini" or "openai".
	Provider() string

	// Generate returns the model's text together with usage as reported by the provider.
	Generate(ctx context.Context, req GenerateRequest) (string, Usage, error)

	// CountTokens returns prompt tokens (best-effort when exact counting isn't available).
	CountTokens(ctx context.Context, model string, prompt string) (int, error)
}
