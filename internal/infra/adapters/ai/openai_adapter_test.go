package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openkeywords/internal/domain/ports/adapter"
)

func TestOpenAIAdapterGenerate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"keywords\":[]}"}}],
			"usage":{"prompt_tokens":12,"completion_tokens":3,"total_tokens":15}}`))
	}))
	defer srv.Close()

	a, err := NewOpenAIAdapter("sk-test", "gpt-4o-mini", srv.URL+"/")
	require.NoError(t, err)

	text, usage, err := a.Generate(context.Background(), adapter.GenerateRequest{Prompt: "hi", Temperature: 0.3, JSON: true})
	require.NoError(t, err)
	assert.Equal(t, `{"keywords":[]}`, text)
	assert.Equal(t, adapter.Usage{PromptTokens: 12, CompletionTokens: 3, TotalTokens: 15}, usage)
	assert.Equal(t, "gpt-4o-mini", got["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, got["response_format"])
}

func TestOpenAIAdapterHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	a, err := NewOpenAIAdapter("sk-test", "", srv.URL)
	require.NoError(t, err)
	_, _, err = a.Generate(context.Background(), adapter.GenerateRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")

	_, err = NewOpenAIAdapter("", "", "")
	assert.Error(t, err)
}
