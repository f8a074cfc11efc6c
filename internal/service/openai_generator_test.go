package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"captia/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completionResponse = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [{
    "index": 0,
    "finish_reason": "stop",
    "message": {"role": "assistant", "content": "🎯 MEETING SUMMARY\n- Goal: renew contract"}
  }],
  "usage": {"prompt_tokens": 120, "completion_tokens": 80, "total_tokens": 200}
}`

func newTestGenerator(t *testing.T, handler http.HandlerFunc) *OpenAIGenerator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := &config.Config{
		OpenAIAPIKey:      "sk-test",
		OpenAIBaseURL:     srv.URL + "/v1/",
		OpenAIModel:       "gpt-4o-mini",
		OpenAITemperature: 0.7,
		OpenAIMaxTokens:   800,
	}
	return NewOpenAIGenerator(cfg, zerolog.Nop())
}

func TestOpenAIGeneratorGenerate(t *testing.T) {
	var body map[string]any
	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionResponse))
	})

	out, err := gen.Generate(context.Background(), "we agreed to renew")
	require.NoError(t, err)

	assert.Equal(t, int64(200), out.TokensUsed)
	assert.True(t, strings.HasPrefix(out.Text, summaryHeader))
	assert.Contains(t, out.Text, "- Goal: renew contract")
	assert.True(t, strings.HasSuffix(out.Text, transcriptHeader+"\nwe agreed to renew"))

	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.InDelta(t, 0.7, body["temperature"], 1e-9)
	assert.EqualValues(t, 800, body["max_tokens"])
	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Contains(t, messages[1].(map[string]any)["content"], "we agreed to renew")
}

func TestOpenAIGeneratorErrorStatusIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream failure","type":"server_error"}}`))
	})

	_, err := gen.Generate(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.EqualValues(t, 1, calls.Load())
}

func TestOpenAIGeneratorEmptyChoices(t *testing.T) {
	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"gpt-4o-mini","choices":[],"usage":{"total_tokens":3}}`))
	})

	_, err := gen.Generate(context.Background(), "hello")
	assert.ErrorContains(t, err, "no choices")
}

func TestEstimateCost(t *testing.T) {
	assert.Equal(t, "~$0.0000", EstimateCost(0))
	assert.Equal(t, "~$0.0015", EstimateCost(10_000))
	assert.Equal(t, "~$0.1500", EstimateCost(1_000_000))
}
