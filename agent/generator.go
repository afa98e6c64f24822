package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/researchflow/llm"
)

// ModelOptions 单个模型角色的调用参数
type ModelOptions struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// DraftGenerator 基于 LLM 的起草者
type DraftGenerator struct {
	provider llm.Provider
	opts     ModelOptions
	logger   *zap.Logger
}

// NewDraftGenerator creates a generator over provider.
func NewDraftGenerator(provider llm.Provider, opts ModelOptions, logger *zap.Logger) *DraftGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DraftGenerator{
		provider: provider,
		opts:     opts,
		logger:   logger.With(zap.String("component", "draft_generator")),
	}
}

// Complete 单次调用模型起草答案，失败直接返回，不做重试。
func (g *DraftGenerator) Complete(ctx context.Context, directive, question, researchData string) (string, error) {
	req := &llm.ChatRequest{
		Model:       g.opts.Model,
		Temperature: g.opts.Temperature,
		MaxTokens:   g.opts.MaxTokens,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: directive},
			{Role: llm.RoleUser, Content: draftPrompt(question, researchData)},
		},
	}

	resp, err := g.provider.Completion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("draft completion: %w", err)
	}
	draft, err := llm.FirstContent(resp)
	if err != nil {
		return "", fmt.Errorf("draft completion: %w", err)
	}

	g.logger.Debug("draft generated",
		zap.String("model", resp.Model),
		zap.Int("chars", len(draft)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)
	return draft, nil
}

func draftPrompt(question, researchData string) string {
	return fmt.Sprintf("Question: %s\n\nResearch Context:\n%s\n\nDraft the full answer:", question, researchData)
}
