package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/BaSui01/researchflow/llm"
	"github.com/BaSui01/researchflow/llm/providers"
	"github.com/BaSui01/researchflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *GeminiProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGeminiProvider(Config{BaseProviderConfig: providers.BaseProviderConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "gemini-2.5-pro",
	}}, zap.NewNop())
}

func TestGeminiProvider_Name(t *testing.T) {
	provider := NewGeminiProvider(Config{}, zap.NewNop())
	assert.Equal(t, "gemini", provider.Name())
	assert.Equal(t, defaultBaseURL, provider.cfg.BaseURL)
}

func TestGeminiProvider_Completion(t *testing.T) {
	var captured geminiRequest
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-2.5-pro:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content":      map[string]any{"role": "model", "parts": []map[string]any{{"text": "Hello "}, {"text": "world"}}},
				"finishReason": "STOP",
			}},
			"usageMetadata": map[string]any{"promptTokenCount": 5, "candidatesTokenCount": 2, "totalTokenCount": 7},
			"responseId":    "resp-1",
		})
	})

	resp, err := provider.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "be terse"},
			{Role: llm.RoleUser, Content: "hi"},
			{Role: llm.RoleAssistant, Content: "earlier"},
		},
		Temperature:    0,
		MaxTokens:      64,
		ResponseFormat: &llm.ResponseFormat{Type: llm.ResponseFormatJSON},
	})
	require.NoError(t, err)

	// 请求转换
	require.NotNil(t, captured.SystemInstruction)
	assert.Equal(t, "be terse", captured.SystemInstruction.Parts[0].Text)
	require.Len(t, captured.Contents, 2)
	assert.Equal(t, "user", captured.Contents[0].Role)
	assert.Equal(t, "model", captured.Contents[1].Role)
	require.NotNil(t, captured.GenerationConfig)
	require.NotNil(t, captured.GenerationConfig.Temperature)
	assert.Equal(t, float32(0), *captured.GenerationConfig.Temperature)
	assert.Equal(t, 64, captured.GenerationConfig.MaxOutputTokens)
	assert.Equal(t, "application/json", captured.GenerationConfig.ResponseMimeType)

	// 响应转换
	assert.Equal(t, "resp-1", resp.ID)
	assert.Equal(t, "gemini", resp.Provider)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "Hello world", resp.Choices[0].Message.Content)
	assert.Equal(t, "STOP", resp.Choices[0].FinishReason)
	assert.Equal(t, 7, resp.Usage.TotalTokens)
}

func TestGeminiProvider_RequestModelOverridesConfig(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", r.URL.Path)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	})

	resp, err := provider.Completion(context.Background(), &llm.ChatRequest{
		Model:    "gemini-2.5-flash",
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", resp.Model)
}

func TestGeminiProvider_ErrorMapping(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"Resource exhausted","status":"RESOURCE_EXHAUSTED"}}`))
	})

	_, err := provider.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	assert.Equal(t, types.ErrRateLimited, types.GetErrorCode(err))
	assert.True(t, types.IsRetryable(err))
	assert.Contains(t, err.Error(), "Resource exhausted")
}

func TestGeminiProvider_MalformedBody(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	_, err := provider.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	assert.Equal(t, types.ErrUpstreamError, types.GetErrorCode(err))
}

func TestGeminiProvider_EmptyMessages(t *testing.T) {
	provider := NewGeminiProvider(Config{}, nil)
	_, err := provider.Completion(context.Background(), &llm.ChatRequest{})
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
}

func TestGeminiProvider_HealthCheck(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models", r.URL.Path)
		if r.Header.Get("x-goog-api-key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"models":[]}`))
	})

	status, err := provider.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy)
}

func TestGeminiProvider_Integration(t *testing.T) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("GEMINI_API_KEY not set, skipping integration test")
	}

	provider := NewGeminiProvider(Config{BaseProviderConfig: providers.BaseProviderConfig{
		APIKey:  apiKey,
		Model:   defaultModel,
		Timeout: 30 * time.Second,
	}}, zap.NewNop())

	resp, err := provider.Completion(context.Background(), &llm.ChatRequest{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: "Say 'test' only"}},
		MaxTokens:   10,
		Temperature: 0.1,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Choices)
}
