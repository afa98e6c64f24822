package structured

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/BaSui01/researchflow/llm"
)

// StructuredOutput 是通用结构化输出处理器，生成类型安全的模型输出。
type StructuredOutput[T any] struct {
	schema      *JSONSchema
	schemaJSON  string
	provider    llm.Provider
	model       string
	temperature float32
	maxTokens   int
}

// Option 配置 StructuredOutput
type Option func(*options)

type options struct {
	model       string
	temperature float32
	maxTokens   int
}

// WithModel 指定请求模型
func WithModel(model string) Option {
	return func(o *options) { o.model = model }
}

// WithTemperature 指定温度
func WithTemperature(t float32) Option {
	return func(o *options) { o.temperature = t }
}

// WithMaxTokens 指定最大输出 token
func WithMaxTokens(n int) Option {
	return func(o *options) { o.maxTokens = n }
}

// NewStructuredOutput 为 T 创建结构化输出处理器，Schema 由类型参数自动生成。
func NewStructuredOutput[T any](provider llm.Provider, opts ...Option) (*StructuredOutput[T], error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}

	var zero T
	schema, err := GenerateSchema(reflect.TypeOf(zero))
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema for type %T: %w", zero, err)
	}
	schemaJSON, err := schema.ToJSONIndent()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	return &StructuredOutput[T]{
		schema:      schema,
		schemaJSON:  string(schemaJSON),
		provider:    provider,
		model:       o.model,
		temperature: o.temperature,
		maxTokens:   o.maxTokens,
	}, nil
}

// Schema 返回用于校验的 JSON Schema
func (s *StructuredOutput[T]) Schema() *JSONSchema {
	return s.schema
}

// Generate 以 JSON 模式请求模型并解析为 T。
// 调用方的 system 消息保留在 schema 指令之前。
func (s *StructuredOutput[T]) Generate(ctx context.Context, messages []llm.Message) (*T, error) {
	allMessages := make([]llm.Message, 0, len(messages)+1)
	allMessages = append(allMessages, messages...)
	allMessages = append(allMessages, llm.Message{
		Role:    llm.RoleSystem,
		Content: s.buildStructuredOutputPrompt(),
	})

	resp, err := s.provider.Completion(ctx, &llm.ChatRequest{
		Model:          s.model,
		Messages:       allMessages,
		Temperature:    s.temperature,
		MaxTokens:      s.maxTokens,
		ResponseFormat: &llm.ResponseFormat{Type: llm.ResponseFormatJSON, Schema: json.RawMessage(s.schemaJSON)},
	})
	if err != nil {
		return nil, fmt.Errorf("provider completion failed: %w", err)
	}

	choice, err := llm.FirstChoice(resp)
	if err != nil {
		return nil, err
	}

	return s.Parse(choice.Message.Content)
}

// buildStructuredOutputPrompt 生成结构化输出指令
func (s *StructuredOutput[T]) buildStructuredOutputPrompt() string {
	var sb strings.Builder

	sb.WriteString("IMPORTANT INSTRUCTIONS:\n")
	sb.WriteString("1. You MUST respond with valid JSON that conforms to the schema below.\n")
	sb.WriteString("2. Do NOT include any text before or after the JSON.\n")
	sb.WriteString("3. Do NOT wrap the JSON in markdown code blocks.\n")
	sb.WriteString("4. Ensure all required fields are present and have valid values.\n\n")
	sb.WriteString("JSON Schema:\n")
	sb.WriteString(s.schemaJSON)
	sb.WriteString("\n\nRespond with ONLY the JSON object.")

	return sb.String()
}

// Parse 从模型回复中提取 JSON，按 schema 校验后解析为 T。
func (s *StructuredOutput[T]) Parse(raw string) (*T, error) {
	jsonStr := extractJSON(raw)

	if err := Validate([]byte(jsonStr), s.schema); err != nil {
		return nil, err
	}

	var value T
	if err := json.Unmarshal([]byte(jsonStr), &value); err != nil {
		return nil, &ValidationErrors{Errors: []ParseError{{Message: fmt.Sprintf("JSON parse error: %v", err)}}}
	}
	return &value, nil
}

var codeFence = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// extractJSON 从可能包含 markdown 或其他文字的回复中取出 JSON。
func extractJSON(response string) string {
	response = strings.TrimSpace(response)

	if strings.Contains(response, "```") {
		if matches := codeFence.FindStringSubmatch(response); len(matches) > 1 {
			return strings.TrimSpace(matches[1])
		}
	}

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start >= 0 && end > start {
		return response[start : end+1]
	}

	return response
}
