package retrieval

import (
	"context"
	"strings"
	"time"

	"github.com/BaSui01/researchflow/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// AdapterConfig 配置 Adapter
type AdapterConfig struct {
	// Timeout 单次检索超时，0 表示只受调用方 context 约束
	Timeout time.Duration
	// RateLimitRPS 每秒请求数上限，0 表示不限流
	RateLimitRPS float64
	// RateLimitBurst 令牌桶容量
	RateLimitBurst int
	// Depth 透传给 SearchProvider
	Depth string
}

// Adapter 将 SearchProvider 包装为工作流使用的 top-K 片段检索。
type Adapter struct {
	provider SearchProvider
	cfg      AdapterConfig
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// NewAdapter 创建检索适配器
func NewAdapter(provider SearchProvider, cfg AdapterConfig, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Adapter{
		provider: provider,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "retrieval"), zap.String("provider", provider.Name())),
	}
	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		a.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)
	}
	return a
}

// Search 执行检索并返回至多 topK 条片段，保持提供方的排序。
func (a *Adapter) Search(ctx context.Context, query string, topK int) ([]Snippet, error) {
	if strings.TrimSpace(query) == "" {
		return nil, types.NewError(types.ErrInvalidInput, "search query is empty")
	}
	if topK <= 0 {
		return nil, types.Errorf(types.ErrInvalidInput, "top_k must be positive, got %d", topK)
	}

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, types.NewError(types.ErrRetrievalFailed, "rate limiter wait").WithCause(err)
		}
	}

	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	results, err := a.provider.Search(ctx, query, SearchOptions{MaxResults: topK, Depth: a.cfg.Depth})
	if err != nil {
		a.logger.Warn("search failed", zap.Duration("latency", time.Since(start)), zap.Error(err))
		return nil, types.NewError(types.ErrRetrievalFailed, "search failed").
			WithCause(err).
			WithProvider(a.provider.Name()).
			WithRetryable(types.IsRetryable(err))
	}

	if len(results) > topK {
		results = results[:topK]
	}

	snippets := make([]Snippet, 0, len(results))
	for _, r := range results {
		snippets = append(snippets, Snippet{Source: sourceOf(r), Content: strings.TrimSpace(r.Content)})
	}

	a.logger.Debug("search completed",
		zap.Int("results", len(snippets)),
		zap.Int("top_k", topK),
		zap.Duration("latency", time.Since(start)))

	return snippets, nil
}

func sourceOf(r SearchResult) string {
	switch {
	case r.URL != "":
		return r.URL
	case r.Title != "":
		return r.Title
	default:
		return "unknown"
	}
}
