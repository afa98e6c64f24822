package openaicompat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BaSui01/researchflow/llm"
	"github.com/BaSui01/researchflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{
		APIKey:       "sk-test",
		BaseURL:      srv.URL,
		DefaultModel: "gpt-4o",
	}, zap.NewNop())
}

func TestNew_Defaults(t *testing.T) {
	p := New(Config{}, nil)
	assert.Equal(t, "openai", p.Name())
	assert.Equal(t, "https://api.openai.com", p.Cfg.BaseURL)
	assert.Equal(t, "/v1/chat/completions", p.Cfg.EndpointPath)
	assert.Equal(t, "/v1/models", p.Cfg.ModelsEndpoint)
}

func TestProvider_Completion(t *testing.T) {
	var captured map[string]any
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"model": "gpt-4o-2024-08-06",
			"created": 1700000000,
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "{\"is_acceptable\":true}"}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 4, "total_tokens": 14}
		}`))
	})

	resp, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "judge"},
			{Role: llm.RoleUser, Content: "draft"},
		},
		ResponseFormat: &llm.ResponseFormat{Type: llm.ResponseFormatJSON},
	})
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", captured["model"])
	assert.Equal(t, float64(0), captured["temperature"], "zero temperature is sent explicitly")
	assert.Equal(t, map[string]any{"type": "json_object"}, captured["response_format"])
	msgs := captured["messages"].([]any)
	assert.Len(t, msgs, 2)

	assert.Equal(t, "chatcmpl-1", resp.ID)
	assert.Equal(t, "gpt-4o-2024-08-06", resp.Model)
	assert.Equal(t, `{"is_acceptable":true}`, resp.Choices[0].Message.Content)
	assert.Equal(t, 14, resp.Usage.TotalTokens)
	assert.Equal(t, int64(1700000000), resp.CreatedAt.Unix())
}

func TestProvider_ErrorMapping(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key","type":"invalid_request_error"}}`))
	})

	_, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	assert.Equal(t, types.ErrUnauthorized, types.GetErrorCode(err))
	assert.False(t, types.IsRetryable(err))
}

func TestProvider_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	p := New(Config{BaseURL: srv.URL}, nil)

	_, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	assert.True(t, types.IsRetryable(err))
}

func TestProvider_HealthCheck(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	status, err := p.HealthCheck(context.Background())
	require.Error(t, err)
	assert.False(t, status.Healthy)
	assert.Equal(t, types.ErrUpstreamError, types.GetErrorCode(err))
}
