package factory

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/researchflow/config"
	"github.com/BaSui01/researchflow/llm"
	"github.com/BaSui01/researchflow/llm/providers"
	"github.com/BaSui01/researchflow/llm/providers/gemini"
	"github.com/BaSui01/researchflow/llm/providers/openaicompat"
)

// ProviderConfig is the generic configuration accepted by the factory function.
type ProviderConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// MaxRetries > 0 时用 RetryableProvider 包装，只重试标记为可重试的错误
	MaxRetries int `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
}

// NewProviderFromConfig creates a Provider instance based on the provider name.
//
// Supported names: gemini, openai. Any other name is treated as a generic
// OpenAI-compatible endpoint and requires base_url.
func NewProviderFromConfig(name string, cfg ProviderConfig, logger *zap.Logger) (llm.Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var p llm.Provider
	switch name {
	case "gemini":
		p = gemini.NewGeminiProvider(gemini.Config{BaseProviderConfig: providers.BaseProviderConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}}, logger)

	case "openai":
		p = openaicompat.New(openaicompat.Config{
			ProviderName: "openai",
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      cfg.Timeout,
		}, logger)

	default:
		// 通用 OpenAI 兼容提供商：任意名称 + base_url 即可接入（Ollama、vLLM 等）
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("unknown provider %q: built-in provider not found, and base_url is required for generic OpenAI-compatible provider", name)
		}
		logger.Info("creating generic OpenAI-compatible provider",
			zap.String("provider", name),
			zap.String("base_url", cfg.BaseURL))
		p = openaicompat.New(openaicompat.Config{
			ProviderName: name,
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      cfg.Timeout,
		}, logger)
	}

	if cfg.MaxRetries > 0 {
		rc := providers.DefaultRetryConfig()
		rc.MaxRetries = cfg.MaxRetries
		p = providers.NewRetryableProvider(p, rc, logger)
	}
	return p, nil
}

// NewFromModelConfig builds the provider for one configured model role.
func NewFromModelConfig(mc config.ModelConfig, logger *zap.Logger) (llm.Provider, error) {
	return NewProviderFromConfig(mc.Provider, ProviderConfig{
		APIKey:     mc.APIKey,
		BaseURL:    mc.BaseURL,
		Model:      mc.Model,
		Timeout:    mc.Timeout,
		MaxRetries: mc.MaxRetries,
	}, logger)
}

// SupportedProviders returns the list of built-in provider names.
func SupportedProviders() []string {
	return []string{"gemini", "openai"}
}
