package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/researchflow/llm/providers"
	"github.com/BaSui01/researchflow/types"
	"go.uber.org/zap"
)

const defaultTavilyBaseURL = "https://api.tavily.com"

// TavilyConfig Tavily 客户端配置
type TavilyConfig struct {
	APIKey  string
	BaseURL string
	// Depth controls Tavily's search_depth parameter (basic or advanced).
	Depth   string
	Timeout time.Duration
	// MaxRateLimitRetries 为 429 时的退避重试次数，0 表示直接返回限流错误
	MaxRateLimitRetries int
	// InitialBackoff 首次退避时长，之后每次翻倍，上限 30s
	InitialBackoff time.Duration
}

// Tavily calls the Tavily search API.
type Tavily struct {
	cfg    TavilyConfig
	client *http.Client
	logger *zap.Logger
}

// NewTavily constructs a Tavily search provider.
func NewTavily(cfg TavilyConfig, logger *zap.Logger) *Tavily {
	if cfg.Depth == "" {
		cfg.Depth = "basic"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultTavilyBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tavily{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("component", "tavily")),
	}
}

var _ SearchProvider = (*Tavily)(nil)

// Name returns the provider name.
func (t *Tavily) Name() string { return "tavily" }

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results,omitempty"`
}

type tavilyResponse struct {
	Query   string `json:"query"`
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search posts a query to Tavily.
func (t *Tavily) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	if strings.TrimSpace(t.cfg.APIKey) == "" {
		return nil, types.NewError(types.ErrUnauthorized, "tavily: API key is missing").WithProvider(t.Name())
	}

	depth := t.cfg.Depth
	if opts.Depth != "" {
		depth = opts.Depth
	}
	payload, err := json.Marshal(tavilyRequest{
		APIKey:      t.cfg.APIKey,
		Query:       query,
		SearchDepth: depth,
		MaxResults:  opts.MaxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := strings.TrimRight(t.cfg.BaseURL, "/") + "/search"

	var resp *http.Response
	delay := t.cfg.InitialBackoff
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err = t.client.Do(req)
		if err != nil {
			return nil, providers.MapTransportError(err, t.Name())
		}

		if resp.StatusCode != http.StatusTooManyRequests || attempt >= t.cfg.MaxRateLimitRetries {
			break
		}
		resp.Body.Close()

		t.logger.Warn("rate limited, backing off",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay))

		// Back off and retry on 429, doubling the delay each time up to 30 s.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		if delay < 30*time.Second {
			delay *= 2
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := providers.ReadErrorMessage(resp.Body)
		return nil, providers.MapHTTPError(resp.StatusCode, msg, t.Name())
	}

	var response tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "failed to decode tavily response").
			WithCause(err).
			WithProvider(t.Name())
	}

	results := make([]SearchResult, 0, len(response.Results))
	for _, r := range response.Results {
		results = append(results, SearchResult{Title: r.Title, URL: r.URL, Content: r.Content, Score: r.Score})
	}
	return results, nil
}
