package retrieval

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BaSui01/researchflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTavilyServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestTavily_Search(t *testing.T) {
	var captured tavilyRequest
	srv := newTavilyServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"query":"q","results":[
			{"title":"A","url":"https://a.example","content":"alpha","score":0.9},
			{"title":"B","url":"https://b.example","content":"beta","score":0.5}
		]}`))
	})

	tv := NewTavily(TavilyConfig{APIKey: "tvly-key", BaseURL: srv.URL}, zap.NewNop())
	results, err := tv.Search(context.Background(), "what is go", SearchOptions{MaxResults: 3})
	require.NoError(t, err)

	assert.Equal(t, "tvly-key", captured.APIKey)
	assert.Equal(t, "what is go", captured.Query)
	assert.Equal(t, "basic", captured.SearchDepth)
	assert.Equal(t, 3, captured.MaxResults)

	require.Len(t, results, 2)
	assert.Equal(t, SearchResult{Title: "A", URL: "https://a.example", Content: "alpha", Score: 0.9}, results[0])
}

func TestTavily_DepthOverride(t *testing.T) {
	var captured tavilyRequest
	srv := newTavilyServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(`{"results":[]}`))
	})

	tv := NewTavily(TavilyConfig{APIKey: "k", BaseURL: srv.URL, Depth: "basic"}, nil)
	_, err := tv.Search(context.Background(), "q", SearchOptions{Depth: "advanced"})
	require.NoError(t, err)
	assert.Equal(t, "advanced", captured.SearchDepth)
}

func TestTavily_MissingAPIKey(t *testing.T) {
	tv := NewTavily(TavilyConfig{}, nil)
	_, err := tv.Search(context.Background(), "q", SearchOptions{})
	require.Error(t, err)
	assert.Equal(t, types.ErrUnauthorized, types.GetErrorCode(err))
}

func TestTavily_HTTPError(t *testing.T) {
	srv := newTavilyServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":{"error":"Unauthorized: missing or invalid API key."}}`))
	})

	tv := NewTavily(TavilyConfig{APIKey: "bad", BaseURL: srv.URL}, nil)
	_, err := tv.Search(context.Background(), "q", SearchOptions{})
	require.Error(t, err)
	assert.Equal(t, types.ErrUnauthorized, types.GetErrorCode(err))
}

func TestTavily_RateLimitWithoutRetries(t *testing.T) {
	var calls atomic.Int32
	srv := newTavilyServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	tv := NewTavily(TavilyConfig{APIKey: "k", BaseURL: srv.URL}, nil)
	_, err := tv.Search(context.Background(), "q", SearchOptions{})
	require.Error(t, err)
	assert.Equal(t, types.ErrRateLimited, types.GetErrorCode(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestTavily_RateLimitBackoff(t *testing.T) {
	var calls atomic.Int32
	srv := newTavilyServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"results":[{"title":"A","url":"u","content":"c"}]}`))
	})

	tv := NewTavily(TavilyConfig{
		APIKey:              "k",
		BaseURL:             srv.URL,
		MaxRateLimitRetries: 3,
		InitialBackoff:      time.Millisecond,
	}, nil)
	results, err := tv.Search(context.Background(), "q", SearchOptions{})
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestTavily_BackoffHonoursContext(t *testing.T) {
	srv := newTavilyServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	tv := NewTavily(TavilyConfig{
		APIKey:              "k",
		BaseURL:             srv.URL,
		MaxRateLimitRetries: 5,
		InitialBackoff:      time.Hour,
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := tv.Search(ctx, "q", SearchOptions{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
