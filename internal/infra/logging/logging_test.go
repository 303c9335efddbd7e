package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openkeywords/internal/config"
)

func TestWithAddsContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewWriter(&buf, config.LogConfig{Level: "info", Format: "json"}, false)

	ctx := WithJobID(WithTraceID(context.Background(), "tr-1"), "job-1")
	With(ctx, base).Info().Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "tr-1", line["trace_id"])
	assert.Equal(t, "job-1", line["job_id"])
	assert.Equal(t, "tr-1", TraceID(ctx))
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "***", Redact("short", false))
	assert.Equal(t, "abcd...yz", Redact("abcdefghijklmnopqrstuvwxyz", false))
	assert.Equal(t, "short", Redact("short", true))
}
