package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/researchflow/llm"
	"github.com/BaSui01/researchflow/llm/structured"
	"github.com/BaSui01/researchflow/workflow"
)

// critiqueSchema 是要求模型输出的评审结构
type critiqueSchema struct {
	IsAcceptable bool   `json:"is_acceptable" jsonschema:"required,description=MUST be True if the answer is clear, factually grounded, and complete. MUST be False if more research or refinement is needed."`
	Reflection   string `json:"reflection" jsonschema:"required,description=A detailed analysis of the current draft. If is_acceptable is False, describe exactly what new research is needed or how the answer should be improved."`
}

// Critic 基于 LLM 结构化输出的评审者
type Critic struct {
	output *structured.StructuredOutput[critiqueSchema]
	logger *zap.Logger
}

// NewCritic creates a critic over provider.
func NewCritic(provider llm.Provider, opts ModelOptions, logger *zap.Logger) (*Critic, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	output, err := structured.NewStructuredOutput[critiqueSchema](provider,
		structured.WithModel(opts.Model),
		structured.WithTemperature(opts.Temperature),
		structured.WithMaxTokens(opts.MaxTokens),
	)
	if err != nil {
		return nil, fmt.Errorf("create critique extractor: %w", err)
	}
	return &Critic{
		output: output,
		logger: logger.With(zap.String("component", "critic")),
	}, nil
}

// Extract 评审草稿。返回的 Reflection 保证非空。
func (c *Critic) Extract(ctx context.Context, directive, question, researchData, draft string) (workflow.Verdict, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: directive},
		{Role: llm.RoleUser, Content: critiquePrompt(question, researchData, draft)},
	}

	out, err := c.output.Generate(ctx, messages)
	if err != nil {
		return workflow.Verdict{}, fmt.Errorf("critique extraction: %w", err)
	}

	verdict := workflow.Verdict{IsAcceptable: out.IsAcceptable, Reflection: out.Reflection}.Normalize()
	c.logger.Debug("critique extracted",
		zap.Bool("is_acceptable", verdict.IsAcceptable),
		zap.Int("reflection_chars", len(verdict.Reflection)),
	)
	return verdict, nil
}

func critiquePrompt(question, researchData, draft string) string {
	return fmt.Sprintf("Original Question: %s\n\nResearch Context:\n%s\n\nDraft Answer:\n%s", question, researchData, draft)
}
